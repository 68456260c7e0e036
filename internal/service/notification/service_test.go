package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	created  []*notification.Notification
	failWith error
	marked   []string
	cutoff   time.Time
}

func (f *fakeRepo) CreateBatch(_ context.Context, ns []*notification.Notification) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i, n := range ns {
		n.ID = "n-" + string(rune('a'+i))
		n.CreatedAt = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
		f.created = append(f.created, n)
	}
	return nil
}

func (f *fakeRepo) GetByUserID(_ context.Context, userID string, page, pageSize int, unreadOnly bool) ([]*notification.Notification, int, error) {
	var out []*notification.Notification
	for _, n := range f.created {
		if n.RecipientID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetUnreadCount(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range f.created {
		if n.RecipientID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) MarkAsRead(_ context.Context, ids []string, userID string) error {
	f.marked = append(f.marked, ids...)
	return nil
}

func (f *fakeRepo) DeleteReadBefore(_ context.Context, before time.Time) (int64, error) {
	f.cutoff = before
	var kept []*notification.Notification
	var deleted int64
	for _, n := range f.created {
		if n.IsRead && n.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	f.created = kept
	return deleted, nil
}

func newTestService(repo notification.Repository, hub *sse.Hub) notification.Service {
	return NewNotificationService(repo, hub, slog.New(slog.NewTextHandler(io.Discard, nil)), 4)
}

func TestEnqueue_PersistsAndReturnsCreated(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, sse.NewHub(4))

	created, err := svc.Enqueue(context.Background(), []notification.CreateNotificationRequest{
		{CompanyID: "c1", RecipientID: "u1", Type: notification.TypeBillingFinalized, Title: "Billing finalized", Message: "done"},
		{CompanyID: "c1", RecipientID: "u2", Type: notification.TypeBillingFinalized, Title: "Billing finalized", Message: "done"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "n-a", created[0].ID)
	assert.Equal(t, "u2", created[1].RecipientID)
	assert.False(t, created[0].CreatedAt.IsZero())
	assert.Len(t, repo.created, 2)
}

func TestEnqueue_RejectsMissingRecipient(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, sse.NewHub(4))

	_, err := svc.Enqueue(context.Background(), []notification.CreateNotificationRequest{{CompanyID: "c1"}})
	assert.ErrorIs(t, err, notification.ErrRecipientRequired)
	assert.Empty(t, repo.created)
}

func TestEnqueue_PropagatesRepositoryError(t *testing.T) {
	boom := errors.New("insert failed")
	svc := newTestService(&fakeRepo{failWith: boom}, sse.NewHub(4))

	_, err := svc.Enqueue(context.Background(), []notification.CreateNotificationRequest{{RecipientID: "u1"}})
	assert.ErrorIs(t, err, boom)
}

func TestPublish_DeliversToSubscriber(t *testing.T) {
	hub := sse.NewHub(4)
	svc := newTestService(&fakeRepo{}, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, cleanup := svc.Subscribe(ctx, "u1")
	defer cleanup()

	svc.Publish([]notification.Notification{
		{ID: "n1", RecipientID: "u1", Type: notification.TypeBillingFinalized, Message: "hello"},
		{ID: "n2", RecipientID: "u2", Type: notification.TypeBillingFinalized, Message: "other"},
	})

	select {
	case ev := <-events:
		assert.Equal(t, EventNotification, ev.Event)
		assert.Equal(t, "n1", ev.Data.ID)
		assert.Equal(t, "hello", ev.Data.Message)
	case <-time.After(time.Second):
		t.Fatal("expected a notification event")
	}
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	svc := newTestService(&fakeRepo{}, sse.NewHub(4))

	ctx, cancel := context.WithCancel(context.Background())
	events, cleanup := svc.Subscribe(ctx, "u1")
	defer cleanup()
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream did not close")
	}
}

func TestGetNotifications_CountsUnread(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, sse.NewHub(4))

	_, err := svc.Enqueue(context.Background(), []notification.CreateNotificationRequest{
		{RecipientID: "u1", Message: "a"},
		{RecipientID: "u1", Message: "b"},
		{RecipientID: "u2", Message: "c"},
	})
	require.NoError(t, err)
	repo.created[0].IsRead = true

	resp, err := svc.GetNotifications(context.Background(), notification.ListNotificationsRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.UnreadCount)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)
}

func TestMarkAsRead_Validates(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, sse.NewHub(4))

	assert.Error(t, svc.MarkAsRead(context.Background(), "u1", notification.MarkAsReadRequest{}))

	id := "0190a1b2-0000-7000-8000-000000000001"
	require.NoError(t, svc.MarkAsRead(context.Background(), "u1", notification.MarkAsReadRequest{NotificationIDs: []string{id}}))
	assert.Equal(t, []string{id}, repo.marked)
}

func TestPurgeRead_KeepsUnreadAndRecent(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, sse.NewHub(4))

	_, err := svc.Enqueue(context.Background(), []notification.CreateNotificationRequest{
		{RecipientID: "u1", Message: "old read"},
		{RecipientID: "u1", Message: "old unread"},
		{RecipientID: "u1", Message: "recent read"},
	})
	require.NoError(t, err)
	repo.created[0].IsRead = true
	repo.created[2].IsRead = true
	repo.created[2].CreatedAt = time.Now()

	deleted, err := svc.PurgeRead(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	require.Len(t, repo.created, 2)
	assert.Equal(t, "old unread", repo.created[0].Message)
	assert.Equal(t, "recent read", repo.created[1].Message)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), repo.cutoff, time.Minute)
}

func TestPurgeRead_RejectsNonPositiveRetention(t *testing.T) {
	svc := newTestService(&fakeRepo{}, sse.NewHub(4))

	_, err := svc.PurgeRead(context.Background(), 0)
	assert.Error(t, err)
}
