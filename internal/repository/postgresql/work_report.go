package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/workreport"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/database"
)

type workReportRepositoryImpl struct {
	db *database.DB
}

func NewWorkReportRepository(db *database.DB) workreport.WorkReportRepository {
	return &workReportRepositoryImpl{db: db}
}

// ListByEmployeeInRange implements workreport.WorkReportRepository.
func (w *workReportRepositoryImpl) ListByEmployeeInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]workreport.LogItem, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		SELECT wr.id, wr.company_id, wr.employee_id, wr.project_id, wr.date, wr.hours_worked,
			   wr.achieved_count, wr.description, wr.created_at,
			   p.id, p.company_id, p.name, p.billing_type, p.rate_per_hour,
			   p.count_metric_label, p.count_divisor, p.count_multiplier, p.created_at, p.updated_at
		FROM work_report_log_items wr
		JOIN projects p ON p.id = wr.project_id
		WHERE wr.company_id = $1 AND wr.employee_id = $2 AND wr.date BETWEEN $3 AND $4
		ORDER BY wr.date, wr.project_id
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list work report log items: %w", err)
	}
	defer rows.Close()

	var items []workreport.LogItem
	for rows.Next() {
		var item workreport.LogItem
		var row projectRow
		if err := rows.Scan(
			&item.ID, &item.CompanyID, &item.EmployeeID, &item.ProjectID, &item.Date, &item.HoursWorked,
			&item.AchievedCount, &item.Description, &item.CreatedAt,
			&item.Project.ID, &item.Project.CompanyID, &item.Project.Name, &row.BillingType, &row.RatePerHour,
			&row.CountMetricLabel, &row.CountDivisor, &row.CountMultiplier, &item.Project.CreatedAt, &item.Project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan work report log item: %w", err)
		}
		if item.Project.Mode, err = row.mode(item.Project.ID); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate work report log items: %w", err)
	}
	return items, nil
}

// ListEmployeeIDsWithActivity implements workreport.WorkReportRepository.
func (w *workReportRepositoryImpl) ListEmployeeIDsWithActivity(ctx context.Context, companyID string, start, end time.Time) ([]string, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		SELECT DISTINCT employee_id
		FROM work_report_log_items
		WHERE company_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees with work reports: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
