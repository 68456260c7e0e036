package workreport

import (
	"context"
	"time"
)

type WorkReportRepository interface {
	// ListByEmployeeInRange returns the employee's log items dated within [start, end]
	// (inclusive calendar dates), each joined to its project, ordered by date.
	ListByEmployeeInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]LogItem, error)
	// ListEmployeeIDsWithActivity returns the distinct employees with log items in [start, end].
	ListEmployeeIDsWithActivity(ctx context.Context, companyID string, start, end time.Time) ([]string, error)
}
