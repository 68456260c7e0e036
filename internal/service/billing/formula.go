package billing

import (
	"fmt"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/workreport"
	"github.com/shopspring/decimal"
)

// calculateLineItem applies the project's billing formula to one employee's log
// items on that project. A negative result is rejected, never clamped.
func calculateLineItem(employeeID string, proj project.Project, items []workreport.LogItem) (billing.BillingLineItem, error) {
	totalHours := decimal.Zero
	for _, item := range items {
		totalHours = totalHours.Add(item.HoursWorked)
	}

	line := billing.BillingLineItem{
		EmployeeID:  employeeID,
		ProjectID:   proj.ID,
		ProjectName: proj.Name,
		BillingType: proj.BillingType(),
		TotalHours:  totalHours,
	}

	var amount decimal.Decimal
	switch mode := proj.Mode.(type) {
	case project.HourlyBilling:
		line.MetricLabel = project.MetricLabelHours
		line.FormulaApplied = billing.FormulaHourly
		amount = totalHours.Mul(mode.RatePerHour)

	case project.CountBasedBilling:
		achieved := decimal.Zero
		for _, item := range items {
			if item.AchievedCount != nil {
				achieved = achieved.Add(*item.AchievedCount)
			}
		}
		line.TotalAchievedCount = &achieved
		line.MetricLabel = mode.MetricLabel
		line.FormulaApplied = billing.FormulaCountBased
		// Multiplying first keeps the division as the single inexact step.
		amount = achieved.Mul(mode.Multiplier).Div(mode.Divisor)

	default:
		return billing.BillingLineItem{}, fmt.Errorf("%w: project %s has no billing mode", billing.ErrInvalidBillingData, proj.ID)
	}

	if amount.IsNegative() {
		return billing.BillingLineItem{}, fmt.Errorf("%w: project %s amount %s is negative",
			billing.ErrInvalidBillingData, proj.ID, amount.String())
	}

	line.CalculatedAmount = roundCurrency(amount)
	return line, nil
}

// roundCurrency rounds half away from zero, which is half-up for the
// non-negative amounts that reach it.
func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(billing.CurrencyPlaces)
}

// checkAmount rejects amounts a calculation could not have produced.
func checkAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", billing.ErrInvalidBillingData, d.String())
	}
	if !d.Equal(roundCurrency(d)) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places",
			billing.ErrInvalidBillingData, d.String(), billing.CurrencyPlaces)
	}
	return nil
}
