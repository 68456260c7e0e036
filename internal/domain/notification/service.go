package notification

import (
	"context"
	"time"
)

// Service defines the notification service interface
type Service interface {
	// Enqueue persists notifications using the transaction carried by ctx, if any.
	Enqueue(ctx context.Context, reqs []CreateNotificationRequest) ([]Notification, error)
	// Publish pushes already-persisted notifications to live subscribers.
	Publish(notifications []Notification)

	GetNotifications(ctx context.Context, req ListNotificationsRequest) (*NotificationListResponse, error)
	MarkAsRead(ctx context.Context, userID string, req MarkAsReadRequest) error
	// PurgeRead deletes read notifications older than the retention window.
	PurgeRead(ctx context.Context, retention time.Duration) (int64, error)

	Subscribe(ctx context.Context, userID string) (<-chan SSEEvent, func())
}
