package billing

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== CALCULATE ==========

type CalculateBillingRequest struct {
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	EmployeeIDs []string `json:"employee_ids,omitempty"` // Empty = every employee with activity
}

func (r *CalculateBillingRequest) Validate() error {
	var errs validator.ValidationErrors
	validatePeriodFields(&errs, r.StartDate, r.EndDate)
	validateIDs(&errs, "employee_ids", r.EmployeeIDs)
	return invalid(errs)
}

// ========== FINALIZE ==========

type FinalizeBillingRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
}

func (r *FinalizeBillingRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(r.EmployeeIDs) == 0 {
		errs.Add("employee_ids", "at least one employee is required")
	}
	validateIDs(&errs, "employee_ids", r.EmployeeIDs)
	validatePeriodFields(&errs, r.StartDate, r.EndDate)
	return invalid(errs)
}

type FinalizeSummariesRequest struct {
	Summaries []SummaryInput `json:"summaries"`
}

type SummaryInput struct {
	EmployeeID string          `json:"employee_id"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	LineItems  []LineItemInput `json:"line_items"`
}

type LineItemInput struct {
	ProjectID          string           `json:"project_id"`
	MetricLabel        string           `json:"metric_label"`
	TotalHours         decimal.Decimal  `json:"total_hours"`
	TotalAchievedCount *decimal.Decimal `json:"total_achieved_count,omitempty"`
	FormulaApplied     string           `json:"formula_applied"`
	CalculatedAmount   decimal.Decimal  `json:"calculated_amount"`
}

// Validate checks shape only. Amount sign and precision are checked by the finalizer
// so they surface as ErrInvalidBillingData.
func (r *FinalizeSummariesRequest) Validate() error {
	if len(r.Summaries) == 0 {
		return fmt.Errorf("%w: nothing to finalize", ErrInvalidArgument)
	}

	var errs validator.ValidationErrors
	seenUnits := make(map[string]struct{}, len(r.Summaries))
	for i, s := range r.Summaries {
		prefix := fmt.Sprintf("summaries[%d]", i)
		if !validator.IsValidUUID(s.EmployeeID) {
			errs.Add(prefix+".employee_id", "must be a valid UUID")
		}
		validatePeriodFields(&errs, s.StartDate, s.EndDate)

		unit := s.EmployeeID + "|" + s.StartDate + "|" + s.EndDate
		if _, dup := seenUnits[unit]; dup {
			errs.Add(prefix, "duplicate employee and period")
		}
		seenUnits[unit] = struct{}{}

		if len(s.LineItems) == 0 {
			errs.Add(prefix+".line_items", "at least one line item is required")
		}
		seenProjects := make(map[string]struct{}, len(s.LineItems))
		for j, item := range s.LineItems {
			itemPrefix := fmt.Sprintf("%s.line_items[%d]", prefix, j)
			if !validator.IsValidUUID(item.ProjectID) {
				errs.Add(itemPrefix+".project_id", "must be a valid UUID")
			}
			if _, dup := seenProjects[item.ProjectID]; dup {
				errs.Add(itemPrefix+".project_id", "duplicate project in summary")
			}
			seenProjects[item.ProjectID] = struct{}{}
			if validator.IsEmpty(item.MetricLabel) {
				errs.Add(itemPrefix+".metric_label", "is required")
			}
			if validator.IsEmpty(item.FormulaApplied) {
				errs.Add(itemPrefix+".formula_applied", "is required")
			}
		}
	}
	return invalid(errs)
}

// ToSummaries converts validated input into domain summaries.
func (r *FinalizeSummariesRequest) ToSummaries() ([]PeriodBillingSummary, error) {
	summaries := make([]PeriodBillingSummary, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		period, err := ParsePeriod(s.StartDate, s.EndDate)
		if err != nil {
			return nil, err
		}
		items := make([]BillingLineItem, 0, len(s.LineItems))
		for _, in := range s.LineItems {
			items = append(items, BillingLineItem{
				EmployeeID:         s.EmployeeID,
				ProjectID:          in.ProjectID,
				MetricLabel:        in.MetricLabel,
				TotalHours:         in.TotalHours,
				TotalAchievedCount: in.TotalAchievedCount,
				FormulaApplied:     in.FormulaApplied,
				CalculatedAmount:   in.CalculatedAmount,
			})
		}
		summaries = append(summaries, PeriodBillingSummary{
			EmployeeID: s.EmployeeID,
			Period:     period,
			LineItems:  items,
		})
	}
	return summaries, nil
}

type FinalizeBillingResponse struct {
	CreatedCount int      `json:"created_count"`
	DetailCount  int      `json:"detail_count"`
	RecordIDs    []string `json:"record_ids"`
}

// ========== RECORDS ==========

type ListBillingRecordsRequest struct {
	EmployeeID string
	StartDate  string
	EndDate    string
	Page       int
	Limit      int
}

func (r *ListBillingRecordsRequest) Validate() error {
	var errs validator.ValidationErrors
	if r.EmployeeID != "" && !validator.IsValidUUID(r.EmployeeID) {
		errs.Add("employee_id", "must be a valid UUID")
	}
	if r.StartDate != "" {
		if _, ok := validator.IsValidDate(r.StartDate); !ok {
			errs.Add("start_date", "must be a YYYY-MM-DD date")
		}
	}
	if r.EndDate != "" {
		if _, ok := validator.IsValidDate(r.EndDate); !ok {
			errs.Add("end_date", "must be a YYYY-MM-DD date")
		}
	}
	return errs.Err()
}

// ToFilter converts a validated request into a repository filter with clamped paging.
func (r *ListBillingRecordsRequest) ToFilter() BillingRecordFilter {
	filter := BillingRecordFilter{Page: r.Page, Limit: r.Limit}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if r.EmployeeID != "" {
		id := r.EmployeeID
		filter.EmployeeID = &id
	}
	if start, ok := validator.IsValidDate(r.StartDate); ok {
		filter.PeriodStart = &start
	}
	if end, ok := validator.IsValidDate(r.EndDate); ok {
		filter.PeriodEnd = &end
	}
	return filter
}

type PeriodResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type BillingLineItemResponse struct {
	ProjectID          string              `json:"project_id"`
	ProjectName        string              `json:"project_name"`
	BillingType        project.BillingType `json:"billing_type"`
	MetricLabel        string              `json:"metric_label"`
	TotalHours         decimal.Decimal     `json:"total_hours"`
	TotalAchievedCount *decimal.Decimal    `json:"total_achieved_count,omitempty"`
	FormulaApplied     string              `json:"formula_applied"`
	CalculatedAmount   decimal.Decimal     `json:"calculated_amount"`
}

type WarningResponse struct {
	Code    WarningCode `json:"code"`
	Date    string      `json:"date"`
	Message string      `json:"message"`
}

type PeriodBillingSummaryResponse struct {
	EmployeeID   string                    `json:"employee_id"`
	EmployeeName string                    `json:"employee_name"`
	Period       PeriodResponse            `json:"period"`
	LineItems    []BillingLineItemResponse `json:"line_items"`
	TotalAmount  decimal.Decimal           `json:"total_amount"`
	Warnings     []WarningResponse         `json:"warnings,omitempty"`
}

type BillingRecordDetailResponse struct {
	ID                 string              `json:"id"`
	ProjectID          string              `json:"project_id"`
	ProjectName        string              `json:"project_name,omitempty"`
	BillingType        project.BillingType `json:"billing_type"`
	MetricLabel        string              `json:"metric_label"`
	TotalHours         decimal.Decimal     `json:"total_hours"`
	TotalAchievedCount *decimal.Decimal    `json:"total_achieved_count,omitempty"`
	FormulaApplied     string              `json:"formula_applied"`
	CalculatedAmount   decimal.Decimal     `json:"calculated_amount"`
}

type BillingRecordResponse struct {
	ID           string                        `json:"id"`
	EmployeeID   string                        `json:"employee_id"`
	EmployeeName string                        `json:"employee_name,omitempty"`
	Period       PeriodResponse                `json:"period"`
	TotalAmount  decimal.Decimal               `json:"total_amount"`
	FinalizedBy  string                        `json:"finalized_by"`
	CreatedAt    time.Time                     `json:"created_at"`
	Details      []BillingRecordDetailResponse `json:"details,omitempty"`
}

type ListBillingRecordResponse struct {
	Data       []BillingRecordResponse `json:"data"`
	TotalCount int64                   `json:"total_count"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
}

// ========== MAPPERS ==========

func NewPeriodResponse(start, end time.Time) PeriodResponse {
	return PeriodResponse{
		StartDate: start.Format(validator.DateLayout),
		EndDate:   end.Format(validator.DateLayout),
	}
}

func (s PeriodBillingSummary) ToResponse() PeriodBillingSummaryResponse {
	items := make([]BillingLineItemResponse, 0, len(s.LineItems))
	for _, item := range s.LineItems {
		items = append(items, BillingLineItemResponse{
			ProjectID:          item.ProjectID,
			ProjectName:        item.ProjectName,
			BillingType:        item.BillingType,
			MetricLabel:        item.MetricLabel,
			TotalHours:         item.TotalHours,
			TotalAchievedCount: item.TotalAchievedCount,
			FormulaApplied:     item.FormulaApplied,
			CalculatedAmount:   item.CalculatedAmount,
		})
	}
	var warnings []WarningResponse
	for _, w := range s.Warnings {
		warnings = append(warnings, WarningResponse{
			Code:    w.Code,
			Date:    w.Date.Format(validator.DateLayout),
			Message: w.Message,
		})
	}
	return PeriodBillingSummaryResponse{
		EmployeeID:   s.EmployeeID,
		EmployeeName: s.EmployeeName,
		Period:       NewPeriodResponse(s.Period.Start, s.Period.End),
		LineItems:    items,
		TotalAmount:  s.TotalAmount(),
		Warnings:     warnings,
	}
}

func (r BillingRecord) ToResponse() BillingRecordResponse {
	details := make([]BillingRecordDetailResponse, 0, len(r.Details))
	for _, d := range r.Details {
		details = append(details, BillingRecordDetailResponse{
			ID:                 d.ID,
			ProjectID:          d.ProjectID,
			ProjectName:        d.ProjectName,
			BillingType:        d.BillingType,
			MetricLabel:        d.MetricLabel,
			TotalHours:         d.TotalHours,
			TotalAchievedCount: d.TotalAchievedCount,
			FormulaApplied:     d.FormulaApplied,
			CalculatedAmount:   d.CalculatedAmount,
		})
	}
	return BillingRecordResponse{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Period:       NewPeriodResponse(r.PeriodStart, r.PeriodEnd),
		TotalAmount:  r.TotalAmount,
		FinalizedBy:  r.FinalizedBy,
		CreatedAt:    r.CreatedAt,
		Details:      details,
	}
}

// ========== HELPERS ==========

func validatePeriodFields(errs *validator.ValidationErrors, startDate, endDate string) {
	start, startOK := validator.IsValidDate(startDate)
	if !startOK {
		errs.Add("start_date", "must be a YYYY-MM-DD date")
	}
	end, endOK := validator.IsValidDate(endDate)
	if !endOK {
		errs.Add("end_date", "must be a YYYY-MM-DD date")
	}
	if startOK && endOK && start.After(end) {
		errs.Add("end_date", "must not be before start_date")
	}
}

func validateIDs(errs *validator.ValidationErrors, field string, ids []string) {
	for _, id := range ids {
		if !validator.IsValidUUID(id) {
			errs.Add(field, "must contain valid UUIDs")
			return
		}
	}
}

// invalid tags collected validation errors as ErrInvalidArgument while keeping
// the field details reachable through errors.As.
func invalid(errs validator.ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidArgument, errs)
}
