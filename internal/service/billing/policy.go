package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/workreport"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// excludeLeaveDays drops log items dated on a day covered by an approved leave.
func excludeLeaveDays(items []workreport.LogItem, leaves []leave.LeaveRequest) (kept []workreport.LogItem, excluded int) {
	if len(leaves) == 0 {
		return items, 0
	}

	kept = make([]workreport.LogItem, 0, len(items))
	for _, item := range items {
		onLeave := false
		for _, l := range leaves {
			if l.Status == leave.LeaveRequestStatusApproved && l.Covers(item.Date) {
				onLeave = true
				break
			}
		}
		if onLeave {
			excluded++
			continue
		}
		kept = append(kept, item)
	}
	return kept, excluded
}

// attendanceWarnings compares reported hours per day with clocked hours. It never
// fails: every mismatch becomes a warning on the summary.
func attendanceWarnings(items []workreport.LogItem, records []attendance.Attendance) []billing.Warning {
	reported := make(map[string]decimal.Decimal)
	days := make(map[string]time.Time)
	for _, item := range items {
		key := item.Date.Format(validator.DateLayout)
		reported[key] = reported[key].Add(item.HoursWorked)
		days[key] = item.Date
	}

	byDay := make(map[string]attendance.Attendance, len(records))
	for _, rec := range records {
		byDay[rec.Date.Format(validator.DateLayout)] = rec
	}

	var warnings []billing.Warning
	for key, hours := range reported {
		if !hours.IsPositive() {
			continue
		}
		rec, ok := byDay[key]
		if !ok {
			warnings = append(warnings, billing.Warning{
				Code:    billing.WarningMissingAttendance,
				Date:    days[key],
				Message: fmt.Sprintf("%s hours reported without an attendance record", hours.String()),
			})
			continue
		}
		clocked, ok := rec.WorkedHours()
		if !ok {
			continue
		}
		if hours.GreaterThan(clocked) {
			warnings = append(warnings, billing.Warning{
				Code:    billing.WarningHoursExceedAttendance,
				Date:    days[key],
				Message: fmt.Sprintf("%s hours reported but %s hours clocked", hours.String(), clocked.String()),
			})
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		if !warnings[i].Date.Equal(warnings[j].Date) {
			return warnings[i].Date.Before(warnings[j].Date)
		}
		return warnings[i].Code < warnings[j].Code
	})
	return warnings
}
