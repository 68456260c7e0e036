package leave

import (
	"time"
)

type LeaveRequestStatus string

const (
	LeaveRequestStatusPending   LeaveRequestStatus = "PENDING"
	LeaveRequestStatusApproved  LeaveRequestStatus = "APPROVED"
	LeaveRequestStatusRejected  LeaveRequestStatus = "REJECTED"
	LeaveRequestStatusCancelled LeaveRequestStatus = "CANCELLED"
)

type LeaveRequest struct {
	ID         string
	CompanyID  string
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
	Status     LeaveRequestStatus
	CreatedAt  time.Time
}

// Covers reports whether the calendar date of day falls within the leave, inclusive.
func (l LeaveRequest) Covers(day time.Time) bool {
	d := truncateDate(day)
	return !d.Before(truncateDate(l.StartDate)) && !d.After(truncateDate(l.EndDate))
}

// Overlaps reports whether the leave intersects the inclusive range [start, end].
func (l LeaveRequest) Overlaps(start, end time.Time) bool {
	return !truncateDate(l.StartDate).After(truncateDate(end)) && !truncateDate(l.EndDate).Before(truncateDate(start))
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
