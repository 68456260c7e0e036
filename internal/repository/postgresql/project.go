package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type projectRepositoryImpl struct {
	db *database.DB
}

func NewProjectRepository(db *database.DB) project.ProjectRepository {
	return &projectRepositoryImpl{db: db}
}

// projectRow mirrors the nullable billing columns before they are folded into a BillingMode.
// A row that cannot form a valid mode is reported as invalid billing data.
type projectRow struct {
	BillingType      string
	RatePerHour      *decimal.Decimal
	CountMetricLabel *string
	CountDivisor     *decimal.Decimal
	CountMultiplier  *decimal.Decimal
}

func (r projectRow) mode(projectID string) (project.BillingMode, error) {
	mode, err := project.NewBillingMode(
		project.BillingType(r.BillingType),
		r.RatePerHour, r.CountMetricLabel, r.CountDivisor, r.CountMultiplier,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: project %s: %w", billing.ErrInvalidBillingData, projectID, err)
	}
	return mode, nil
}

// GetByIDs implements project.ProjectRepository.
func (p *projectRepositoryImpl) GetByIDs(ctx context.Context, companyID string, ids []string) ([]project.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, p.db)

	query := `
		SELECT id, company_id, name, billing_type, rate_per_hour,
			   count_metric_label, count_divisor, count_multiplier, created_at, updated_at
		FROM projects
		WHERE company_id = $1 AND id = ANY($2)
		ORDER BY name, id
	`

	rows, err := q.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects by ids: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var proj project.Project
		var row projectRow
		if err := rows.Scan(
			&proj.ID, &proj.CompanyID, &proj.Name, &row.BillingType, &row.RatePerHour,
			&row.CountMetricLabel, &row.CountDivisor, &row.CountMultiplier, &proj.CreatedAt, &proj.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if proj.Mode, err = row.mode(proj.ID); err != nil {
			return nil, err
		}
		projects = append(projects, proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}
