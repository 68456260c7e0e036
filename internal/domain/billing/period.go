package billing

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
)

// NewPeriod truncates start and end to calendar dates and requires start <= end.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: truncateDate(start), End: truncateDate(end)}
	if p.Start.After(p.End) {
		return Period{}, fmt.Errorf("%w: start_date must not be after end_date", ErrInvalidArgument)
	}
	return p, nil
}

// ParsePeriod parses two YYYY-MM-DD dates into a Period.
func ParsePeriod(startDate, endDate string) (Period, error) {
	start, ok := validator.IsValidDate(startDate)
	if !ok {
		return Period{}, fmt.Errorf("%w: start_date must be a YYYY-MM-DD date", ErrInvalidArgument)
	}
	end, ok := validator.IsValidDate(endDate)
	if !ok {
		return Period{}, fmt.Errorf("%w: end_date must be a YYYY-MM-DD date", ErrInvalidArgument)
	}
	return NewPeriod(start, end)
}

// Contains reports whether the calendar date of t lies within the period.
func (p Period) Contains(t time.Time) bool {
	d := truncateDate(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return p.Start.Format(validator.DateLayout) + ".." + p.End.Format(validator.DateLayout)
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
