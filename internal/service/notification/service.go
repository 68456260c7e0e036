package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/sse"
)

// EventNotification is the SSE event name for newly created notifications.
const EventNotification = "notification"

type service struct {
	repo         notification.Repository
	hub          *sse.Hub
	logger       *slog.Logger
	streamBuffer int
}

// NewNotificationService creates a notification service. Notifications are written
// synchronously so they can share the caller's transaction; live delivery happens
// through Publish once the caller has committed.
func NewNotificationService(repo notification.Repository, hub *sse.Hub, logger *slog.Logger, streamBuffer int) notification.Service {
	if streamBuffer < 1 {
		streamBuffer = 10
	}
	return &service{
		repo:         repo,
		hub:          hub,
		logger:       logger,
		streamBuffer: streamBuffer,
	}
}

// Enqueue implements notification.Service.
func (s *service) Enqueue(ctx context.Context, reqs []notification.CreateNotificationRequest) ([]notification.Notification, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	entities := make([]*notification.Notification, len(reqs))
	for i, req := range reqs {
		if req.RecipientID == "" {
			return nil, fmt.Errorf("notification %d: %w", i, notification.ErrRecipientRequired)
		}
		entities[i] = &notification.Notification{
			CompanyID:   req.CompanyID,
			RecipientID: req.RecipientID,
			SenderID:    req.SenderID,
			Type:        req.Type,
			Title:       req.Title,
			Message:     req.Message,
			Data:        req.Data,
		}
	}

	if err := s.repo.CreateBatch(ctx, entities); err != nil {
		return nil, err
	}

	created := make([]notification.Notification, len(entities))
	for i, n := range entities {
		created[i] = *n
	}
	return created, nil
}

// Publish implements notification.Service.
func (s *service) Publish(notifications []notification.Notification) {
	delivered := 0
	for _, n := range notifications {
		delivered += s.hub.Publish(n.RecipientID, sse.Event{
			Event: EventNotification,
			Data:  n.ToResponse(),
		})
	}
	s.logger.Debug("notifications published",
		slog.Int("notifications", len(notifications)),
		slog.Int("delivered", delivered),
	)
}

// GetNotifications retrieves paginated notifications for a user
func (s *service) GetNotifications(ctx context.Context, req notification.ListNotificationsRequest) (*notification.NotificationListResponse, error) {
	req.Normalize()

	notifications, total, err := s.repo.GetByUserID(ctx, req.UserID, req.Page, req.PageSize, req.UnreadOnly)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = n.ToResponse()
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unreadCount,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}, nil
}

// MarkAsRead marks specified notifications as read
func (s *service) MarkAsRead(ctx context.Context, userID string, req notification.MarkAsReadRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, req.NotificationIDs, userID)
}

// PurgeRead implements notification.Service. Unread notifications are kept regardless of age.
func (s *service) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	deleted, err := s.repo.DeleteReadBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("read notifications purged", slog.Int64("deleted", deleted), slog.Duration("retention", retention))
	}
	return deleted, nil
}

// Subscribe creates an SSE subscription for a user. The returned channel closes
// when ctx is done or cleanup is called.
func (s *service) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	ch, cleanup := s.hub.Subscribe(userID)
	s.logger.Debug("notification stream opened",
		slog.String("user_id", userID),
		slog.Int("streams", s.hub.SubscriberCount(userID)),
	)

	out := make(chan notification.SSEEvent, s.streamBuffer)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				resp, ok := event.Data.(notification.NotificationResponse)
				if !ok {
					continue
				}
				select {
				case out <- notification.SSEEvent{Event: event.Event, Data: resp}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}
