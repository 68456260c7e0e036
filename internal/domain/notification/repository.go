package notification

import (
	"context"
	"time"
)

// Repository defines the notification repository interface
type Repository interface {
	CreateBatch(ctx context.Context, notifications []*Notification) error
	GetByUserID(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) ([]*Notification, int, error)
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, ids []string, userID string) error
	// DeleteReadBefore removes read notifications created before the cutoff.
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}
