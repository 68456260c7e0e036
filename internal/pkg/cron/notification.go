package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
)

// NotificationRetentionJob deletes read notifications older than retention.
func NotificationRetentionJob(svc notification.Service, interval, retention time.Duration) Job {
	return Job{
		Name:     "notification_retention",
		Interval: interval,
		Fn: func(ctx context.Context) error {
			_, err := svc.PurgeRead(ctx, retention)
			return err
		},
	}
}
