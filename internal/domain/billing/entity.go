package billing

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/shopspring/decimal"
)

// Formulas recorded on line items and billing record details.
const (
	FormulaHourly     = "hours * ratePerHour"
	FormulaCountBased = "(achievedCount / countDivisor) * countMultiplier"
)

// CurrencyPlaces is the precision every calculated amount is rounded to.
const CurrencyPlaces = 2

// Period is an inclusive range of calendar dates, stored as UTC midnights.
type Period struct {
	Start time.Time
	End   time.Time
}

// BillingLineItem is the computed bill for one employee on one project.
type BillingLineItem struct {
	EmployeeID         string
	ProjectID          string
	ProjectName        string
	BillingType        project.BillingType
	MetricLabel        string
	TotalHours         decimal.Decimal
	TotalAchievedCount *decimal.Decimal
	FormulaApplied     string
	CalculatedAmount   decimal.Decimal
}

// CheckMode reports whether the line's mode-specific fields agree with the billing
// mode of its project. Hourly lines carry the hours label and formula and no achieved
// count; count-based lines carry the project's metric label, the count formula and
// a non-negative achieved count.
func (l BillingLineItem) CheckMode(mode project.BillingMode) error {
	if l.TotalHours.IsNegative() {
		return fmt.Errorf("%w: total hours %s is negative", ErrInvalidBillingData, l.TotalHours.String())
	}

	switch m := mode.(type) {
	case project.HourlyBilling:
		if l.MetricLabel != project.MetricLabelHours {
			return fmt.Errorf("%w: hourly line has metric label %q, want %q", ErrInvalidBillingData, l.MetricLabel, project.MetricLabelHours)
		}
		if l.FormulaApplied != FormulaHourly {
			return fmt.Errorf("%w: hourly line has formula %q", ErrInvalidBillingData, l.FormulaApplied)
		}
		if l.TotalAchievedCount != nil {
			return fmt.Errorf("%w: hourly line must not carry an achieved count", ErrInvalidBillingData)
		}

	case project.CountBasedBilling:
		if l.MetricLabel != m.MetricLabel {
			return fmt.Errorf("%w: count-based line has metric label %q, want %q", ErrInvalidBillingData, l.MetricLabel, m.MetricLabel)
		}
		if l.FormulaApplied != FormulaCountBased {
			return fmt.Errorf("%w: count-based line has formula %q", ErrInvalidBillingData, l.FormulaApplied)
		}
		if l.TotalAchievedCount == nil {
			return fmt.Errorf("%w: count-based line requires an achieved count", ErrInvalidBillingData)
		}
		if l.TotalAchievedCount.IsNegative() {
			return fmt.Errorf("%w: achieved count %s is negative", ErrInvalidBillingData, l.TotalAchievedCount.String())
		}

	default:
		return fmt.Errorf("%w: project has no billing mode", ErrInvalidBillingData)
	}
	return nil
}

// Warning is a non-blocking observation raised by a policy hook.
type Warning struct {
	Code    WarningCode
	Date    time.Time
	Message string
}

type WarningCode string

const (
	WarningHoursExceedAttendance WarningCode = "hours_exceed_attendance"
	WarningMissingAttendance     WarningCode = "missing_attendance"
)

// PeriodBillingSummary holds one employee's line items for a period, ordered by project.
type PeriodBillingSummary struct {
	EmployeeID   string
	EmployeeName string
	Period       Period
	LineItems    []BillingLineItem
	Warnings     []Warning
}

// TotalAmount sums the line item amounts.
func (s PeriodBillingSummary) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.LineItems {
		total = total.Add(item.CalculatedAmount)
	}
	return total
}

// BillingRecord is the persisted, immutable header for one finalized employee-period.
type BillingRecord struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalAmount decimal.Decimal
	FinalizedBy string
	CreatedAt   time.Time

	// Joined fields
	EmployeeName string
	Details      []BillingRecordDetail
}

// BillingRecordDetail is one persisted line item of a BillingRecord.
type BillingRecordDetail struct {
	ID                 string
	BillingRecordID    string
	CompanyID          string
	EmployeeID         string
	ProjectID          string
	PeriodStart        time.Time
	PeriodEnd          time.Time
	BillingType        project.BillingType
	MetricLabel        string
	TotalHours         decimal.Decimal
	TotalAchievedCount *decimal.Decimal
	FormulaApplied     string
	CalculatedAmount   decimal.Decimal
	CreatedAt          time.Time

	// Joined fields
	ProjectName string
}

// EmployeeProject identifies the unit guarded against double finalization within a period.
type EmployeeProject struct {
	EmployeeID string
	ProjectID  string
}

type BillingRecordFilter struct {
	EmployeeID  *string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Page        int
	Limit       int
}
