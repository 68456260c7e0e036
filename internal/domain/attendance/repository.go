package attendance

import (
	"context"
	"time"
)

type AttendanceRepository interface {
	// ListByEmployeeInRange returns attendance rows dated within [start, end], ordered by date.
	ListByEmployeeInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]Attendance, error)
}
