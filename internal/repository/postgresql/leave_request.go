package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/database"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

// ListApprovedOverlapping implements leave.LeaveRequestRepository.
func (l *leaveRequestRepositoryImpl) ListApprovedOverlapping(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		SELECT id, company_id, employee_id, start_date, end_date, status, created_at
		FROM leave_requests
		WHERE company_id = $1 AND employee_id = $2 AND status = $3
			AND start_date <= $5 AND end_date >= $4
		ORDER BY start_date
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, leave.LeaveRequestStatusApproved, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		var lr leave.LeaveRequest
		if err := rows.Scan(
			&lr.ID, &lr.CompanyID, &lr.EmployeeID, &lr.StartDate, &lr.EndDate, &lr.Status, &lr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave requests: %w", err)
	}
	return requests, nil
}
