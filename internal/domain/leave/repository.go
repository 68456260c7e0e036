package leave

import (
	"context"
	"time"
)

type LeaveRequestRepository interface {
	// ListApprovedOverlapping returns APPROVED requests of the employee with
	// start_date <= end AND end_date >= start.
	ListApprovedOverlapping(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]LeaveRequest, error)
}
