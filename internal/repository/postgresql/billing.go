package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// uniqueBillingDetailConstraint guards one finalized line per employee, project and period.
const uniqueBillingDetailConstraint = "uq_billing_record_details_employee_project_period"

type billingRepository struct {
	db *database.DB
}

func NewBillingRepository(db *database.DB) billing.BillingRepository {
	return &billingRepository{db: db}
}

// CreateRecord implements billing.BillingRepository. The header and its details are
// sent as one pgx batch; run it inside the caller's transaction so they land together.
func (r *billingRepository) CreateRecord(ctx context.Context, record billing.BillingRecord) (billing.BillingRecord, error) {
	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	headerQuery := `
		INSERT INTO billing_records (id, company_id, employee_id, period_start, period_end, total_amount, finalized_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	detailQuery := `
		INSERT INTO billing_record_details (
			id, billing_record_id, company_id, employee_id, project_id,
			period_start, period_end, billing_type, metric_label,
			total_hours, total_achieved_count, formula_applied, calculated_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	batch := &pgx.Batch{}
	batch.Queue(headerQuery,
		record.ID, record.CompanyID, record.EmployeeID, record.PeriodStart, record.PeriodEnd,
		record.TotalAmount, nullIfEmpty(record.FinalizedBy),
	).QueryRow(func(row pgx.Row) error {
		return row.Scan(&record.CreatedAt)
	})

	for i := range record.Details {
		d := &record.Details[i]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		d.BillingRecordID = record.ID
		d.CompanyID = record.CompanyID
		d.EmployeeID = record.EmployeeID
		d.PeriodStart = record.PeriodStart
		d.PeriodEnd = record.PeriodEnd

		batch.Queue(detailQuery,
			d.ID, d.BillingRecordID, d.CompanyID, d.EmployeeID, d.ProjectID,
			d.PeriodStart, d.PeriodEnd, string(d.BillingType), d.MetricLabel,
			d.TotalHours, d.TotalAchievedCount, d.FormulaApplied, d.CalculatedAmount,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&d.CreatedAt)
		})
	}

	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err, uniqueBillingDetailConstraint) {
			return billing.BillingRecord{}, fmt.Errorf("employee %s, period %s: %w",
				record.EmployeeID, record.PeriodStart.Format(time.DateOnly), billing.ErrAlreadyFinalized)
		}
		return billing.BillingRecord{}, fmt.Errorf("failed to create billing record: %w", err)
	}

	return record, nil
}

// FindFinalized implements billing.BillingRepository.
func (r *billingRepository) FindFinalized(ctx context.Context, companyID string, period billing.Period, pairs []billing.EmployeeProject) ([]billing.EmployeeProject, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	employeeIDs := make([]string, len(pairs))
	projectIDs := make([]string, len(pairs))
	for i, p := range pairs {
		employeeIDs[i] = p.EmployeeID
		projectIDs[i] = p.ProjectID
	}

	query := `
		SELECT d.employee_id, d.project_id
		FROM billing_record_details d
		JOIN UNNEST($2::uuid[], $3::uuid[]) AS pair(employee_id, project_id)
			ON pair.employee_id = d.employee_id AND pair.project_id = d.project_id
		WHERE d.company_id = $1 AND d.period_start = $4 AND d.period_end = $5
		ORDER BY d.employee_id, d.project_id
	`

	rows, err := q.Query(ctx, query, companyID, employeeIDs, projectIDs, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to find finalized billing lines: %w", err)
	}
	defer rows.Close()

	var found []billing.EmployeeProject
	for rows.Next() {
		var p billing.EmployeeProject
		if err := rows.Scan(&p.EmployeeID, &p.ProjectID); err != nil {
			return nil, fmt.Errorf("failed to scan finalized billing line: %w", err)
		}
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate finalized billing lines: %w", err)
	}
	return found, nil
}

// GetRecordByID implements billing.BillingRepository.
func (r *billingRepository) GetRecordByID(ctx context.Context, id string, companyID string) (billing.BillingRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT br.id, br.company_id, br.employee_id, br.period_start, br.period_end,
			   br.total_amount, COALESCE(br.finalized_by::text, ''), br.created_at, e.full_name
		FROM billing_records br
		JOIN employees e ON e.id = br.employee_id
		WHERE br.id = $1 AND br.company_id = $2
	`

	var rec billing.BillingRecord
	err := q.QueryRow(ctx, query, id, companyID).Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.TotalAmount, &rec.FinalizedBy, &rec.CreatedAt, &rec.EmployeeName,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return billing.BillingRecord{}, billing.ErrBillingRecordNotFound
		}
		return billing.BillingRecord{}, fmt.Errorf("failed to get billing record: %w", err)
	}

	detailQuery := `
		SELECT d.id, d.billing_record_id, d.company_id, d.employee_id, d.project_id,
			   d.period_start, d.period_end, d.billing_type, d.metric_label,
			   d.total_hours, d.total_achieved_count, d.formula_applied, d.calculated_amount,
			   d.created_at, p.name
		FROM billing_record_details d
		JOIN projects p ON p.id = d.project_id
		WHERE d.billing_record_id = $1 AND d.company_id = $2
		ORDER BY p.name, d.project_id
	`

	rows, err := q.Query(ctx, detailQuery, id, companyID)
	if err != nil {
		return billing.BillingRecord{}, fmt.Errorf("failed to get billing record details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d billing.BillingRecordDetail
		if err := rows.Scan(
			&d.ID, &d.BillingRecordID, &d.CompanyID, &d.EmployeeID, &d.ProjectID,
			&d.PeriodStart, &d.PeriodEnd, &d.BillingType, &d.MetricLabel,
			&d.TotalHours, &d.TotalAchievedCount, &d.FormulaApplied, &d.CalculatedAmount,
			&d.CreatedAt, &d.ProjectName,
		); err != nil {
			return billing.BillingRecord{}, fmt.Errorf("failed to scan billing record detail: %w", err)
		}
		rec.Details = append(rec.Details, d)
	}
	if err := rows.Err(); err != nil {
		return billing.BillingRecord{}, fmt.Errorf("failed to iterate billing record details: %w", err)
	}

	return rec, nil
}

// ListRecords implements billing.BillingRepository. Details are not loaded.
func (r *billingRepository) ListRecords(ctx context.Context, companyID string, filter billing.BillingRecordFilter) ([]billing.BillingRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM billing_records br
		JOIN employees e ON e.id = br.employee_id
		WHERE br.company_id = $1
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EmployeeID != nil {
		baseQuery += fmt.Sprintf(" AND br.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.PeriodStart != nil {
		baseQuery += fmt.Sprintf(" AND br.period_end >= $%d", argIdx)
		args = append(args, *filter.PeriodStart)
		argIdx++
	}
	if filter.PeriodEnd != nil {
		baseQuery += fmt.Sprintf(" AND br.period_start <= $%d", argIdx)
		args = append(args, *filter.PeriodEnd)
		argIdx++
	}

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count billing records: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT br.id, br.company_id, br.employee_id, br.period_start, br.period_end,
			   br.total_amount, COALESCE(br.finalized_by::text, ''), br.created_at, e.full_name
		%s
		ORDER BY br.period_start DESC, e.full_name, br.id
		LIMIT $%d OFFSET $%d
	`, baseQuery, argIdx, argIdx+1)

	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list billing records: %w", err)
	}
	defer rows.Close()

	var records []billing.BillingRecord
	for rows.Next() {
		var rec billing.BillingRecord
		if err := rows.Scan(
			&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.PeriodStart, &rec.PeriodEnd,
			&rec.TotalAmount, &rec.FinalizedBy, &rec.CreatedAt, &rec.EmployeeName,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan billing record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate billing records: %w", err)
	}

	return records, totalCount, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
