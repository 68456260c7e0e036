package project

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BillingType string

const (
	BillingTypeHourly     BillingType = "hourly"
	BillingTypeCountBased BillingType = "count_based"
)

// MetricLabelHours is the metric label reported for hourly projects.
const MetricLabelHours = "hours"

type Project struct {
	ID        string
	CompanyID string
	Name      string
	Mode      BillingMode
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BillingType reports which billing mode the project uses.
func (p Project) BillingType() BillingType {
	if p.Mode == nil {
		return ""
	}
	return p.Mode.Type()
}

// BillingMode is either HourlyBilling or CountBasedBilling. The set is closed:
// the unexported method keeps other packages from adding variants.
type BillingMode interface {
	Type() BillingType
	billingMode()
}

type HourlyBilling struct {
	RatePerHour decimal.Decimal
}

func (HourlyBilling) Type() BillingType { return BillingTypeHourly }
func (HourlyBilling) billingMode()      {}

type CountBasedBilling struct {
	MetricLabel string
	Divisor     decimal.Decimal
	Multiplier  decimal.Decimal
}

func (CountBasedBilling) Type() BillingType { return BillingTypeCountBased }
func (CountBasedBilling) billingMode()      {}

// NewBillingMode builds the billing variant from the nullable storage columns,
// rejecting projects whose mode-specific fields are missing or out of range.
func NewBillingMode(
	billingType BillingType,
	ratePerHour *decimal.Decimal,
	metricLabel *string,
	divisor *decimal.Decimal,
	multiplier *decimal.Decimal,
) (BillingMode, error) {
	switch billingType {
	case BillingTypeHourly:
		if ratePerHour == nil {
			return nil, fmt.Errorf("%w: hourly project requires rate_per_hour", ErrInvalidBillingMode)
		}
		if ratePerHour.IsNegative() {
			return nil, fmt.Errorf("%w: rate_per_hour must be non-negative", ErrInvalidBillingMode)
		}
		return HourlyBilling{RatePerHour: *ratePerHour}, nil

	case BillingTypeCountBased:
		if metricLabel == nil || *metricLabel == "" {
			return nil, fmt.Errorf("%w: count_based project requires count_metric_label", ErrInvalidBillingMode)
		}
		if divisor == nil || multiplier == nil {
			return nil, fmt.Errorf("%w: count_based project requires count_divisor and count_multiplier", ErrInvalidBillingMode)
		}
		if divisor.LessThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: count_divisor must be at least 1", ErrInvalidBillingMode)
		}
		if multiplier.IsNegative() {
			return nil, fmt.Errorf("%w: count_multiplier must be non-negative", ErrInvalidBillingMode)
		}
		return CountBasedBilling{
			MetricLabel: *metricLabel,
			Divisor:     *divisor,
			Multiplier:  *multiplier,
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown billing type %q", ErrInvalidBillingMode, billingType)
}
