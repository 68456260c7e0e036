package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

type Attendance struct {
	ID         string
	CompanyID  string
	EmployeeID string
	Date       time.Time
	ClockIn    time.Time
	ClockOut   *time.Time
	TotalHours *decimal.Decimal
	CreatedAt  time.Time
}

// WorkedHours returns the recorded total, or the clock-in/clock-out span when no total
// was stored. ok is false while the employee is still clocked in.
func (a Attendance) WorkedHours() (hours decimal.Decimal, ok bool) {
	if a.TotalHours != nil {
		return *a.TotalHours, true
	}
	if a.ClockOut == nil || a.ClockOut.Before(a.ClockIn) {
		return decimal.Zero, false
	}
	minutes := int64(a.ClockOut.Sub(a.ClockIn) / time.Minute)
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).Round(2), true
}
