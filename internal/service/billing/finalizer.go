package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
	"github.com/google/uuid"
)

const (
	finalizedTitle   = "Billing finalized"
	finalizedMessage = "Your billing for the period has been finalized."
)

// Finalize implements billing.BillingService. The employees are re-aggregated so
// what gets persisted always reflects current data.
func (s *BillingServiceImpl) Finalize(ctx context.Context, req billing.FinalizeBillingRequest) (billing.FinalizeBillingResponse, error) {
	if err := req.Validate(); err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	identity, err := identityFromContext(ctx)
	if err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	period, err := billing.ParsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	employees, err := s.employeesByIDs(ctx, identity.CompanyID, req.EmployeeIDs)
	if err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	summaries, err := s.aggregate(ctx, identity.CompanyID, employees, period)
	if err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	return s.commit(ctx, identity, summaries)
}

// FinalizeSummaries implements billing.BillingService.
func (s *BillingServiceImpl) FinalizeSummaries(ctx context.Context, req billing.FinalizeSummariesRequest) (billing.FinalizeBillingResponse, error) {
	if err := req.Validate(); err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	identity, err := identityFromContext(ctx)
	if err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	summaries, err := req.ToSummaries()
	if err != nil {
		return billing.FinalizeBillingResponse{}, err
	}

	return s.commit(ctx, identity, summaries)
}

// stagedBatch is a fully validated batch, ready to be written.
type stagedBatch struct {
	records       []billing.BillingRecord
	notifications []notification.CreateNotificationRequest
}

// commit persists summaries atomically. Every reference and duplicate is checked
// before the first insert; the unique index on billing_record_details still guards
// against a concurrent finalize slipping in between.
func (s *BillingServiceImpl) commit(ctx context.Context, identity user.Identity, summaries []billing.PeriodBillingSummary) (billing.FinalizeBillingResponse, error) {
	if len(summaries) == 0 {
		return billing.FinalizeBillingResponse{}, fmt.Errorf("%w: nothing to finalize", billing.ErrInvalidArgument)
	}
	for _, summary := range summaries {
		for _, line := range summary.LineItems {
			if err := checkAmount(line.CalculatedAmount); err != nil {
				return billing.FinalizeBillingResponse{}, fmt.Errorf("employee %s, project %s: %w", summary.EmployeeID, line.ProjectID, err)
			}
		}
	}

	var (
		resp      billing.FinalizeBillingResponse
		delivered []notification.Notification
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.stage(ctx, identity, summaries)
		if err != nil {
			return err
		}

		resp = billing.FinalizeBillingResponse{RecordIDs: make([]string, 0, len(batch.records))}
		for _, record := range batch.records {
			created, err := s.billingRepo.CreateRecord(ctx, record)
			if err != nil {
				return err
			}
			resp.CreatedCount++
			resp.DetailCount += len(created.Details)
			resp.RecordIDs = append(resp.RecordIDs, created.ID)
		}

		delivered, err = s.notifier.Enqueue(ctx, batch.notifications)
		if err != nil {
			return fmt.Errorf("enqueue notifications: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "billing finalization rolled back",
			slog.String("company_id", identity.CompanyID),
			slog.Int("summaries", len(summaries)),
			slog.Any("error", err),
		)
		return billing.FinalizeBillingResponse{}, err
	}

	s.notifier.Publish(delivered)

	s.logger.InfoContext(ctx, "billing finalized",
		slog.String("company_id", identity.CompanyID),
		slog.String("finalized_by", identity.UserID),
		slog.Int("records", resp.CreatedCount),
		slog.Int("details", resp.DetailCount),
		slog.Int("notifications", len(delivered)),
	)
	return resp, nil
}

// stage resolves every employee and project, checks each line against its project's
// billing mode, rejects already finalized lines and builds the rows to insert. It
// writes nothing.
func (s *BillingServiceImpl) stage(ctx context.Context, identity user.Identity, summaries []billing.PeriodBillingSummary) (stagedBatch, error) {
	companyID := identity.CompanyID

	var employeeIDs, projectIDs []string
	pairsByPeriod := make(map[billing.Period][]billing.EmployeeProject)
	for _, summary := range summaries {
		employeeIDs = append(employeeIDs, summary.EmployeeID)
		for _, line := range summary.LineItems {
			projectIDs = append(projectIDs, line.ProjectID)
			pairsByPeriod[summary.Period] = append(pairsByPeriod[summary.Period], billing.EmployeeProject{
				EmployeeID: summary.EmployeeID,
				ProjectID:  line.ProjectID,
			})
		}
	}
	employeeIDs = validator.Unique(employeeIDs)
	projectIDs = validator.Unique(projectIDs)

	employees, err := s.employeeRepo.GetByIDs(ctx, companyID, employeeIDs)
	if err != nil {
		return stagedBatch{}, fmt.Errorf("load employees: %w", err)
	}
	if missing := missingIDs(employeeIDs, employees, func(e employee.Employee) string { return e.ID }); len(missing) > 0 {
		return stagedBatch{}, fmt.Errorf("%w: employee %s", billing.ErrReferenceNotFound, missing[0])
	}

	projects, err := s.projectRepo.GetByIDs(ctx, companyID, projectIDs)
	if err != nil {
		return stagedBatch{}, fmt.Errorf("load projects: %w", err)
	}
	if missing := missingIDs(projectIDs, projects, func(p project.Project) string { return p.ID }); len(missing) > 0 {
		return stagedBatch{}, fmt.Errorf("%w: project %s", billing.ErrReferenceNotFound, missing[0])
	}

	projectByID := make(map[string]project.Project, len(projects))
	for _, p := range projects {
		projectByID[p.ID] = p
	}
	for _, summary := range summaries {
		for _, line := range summary.LineItems {
			if err := line.CheckMode(projectByID[line.ProjectID].Mode); err != nil {
				return stagedBatch{}, fmt.Errorf("employee %s, project %s: %w", summary.EmployeeID, line.ProjectID, err)
			}
		}
	}

	for period, pairs := range pairsByPeriod {
		finalized, err := s.billingRepo.FindFinalized(ctx, companyID, period, pairs)
		if err != nil {
			return stagedBatch{}, fmt.Errorf("check finalized billing: %w", err)
		}
		if len(finalized) > 0 {
			return stagedBatch{}, fmt.Errorf("%w: employee %s, project %s, period %s",
				billing.ErrAlreadyFinalized, finalized[0].EmployeeID, finalized[0].ProjectID, period.String())
		}
	}

	employeeByID := make(map[string]employee.Employee, len(employees))
	for _, e := range employees {
		employeeByID[e.ID] = e
	}

	batch := stagedBatch{records: make([]billing.BillingRecord, 0, len(summaries))}
	for _, summary := range summaries {
		record := billing.BillingRecord{
			ID:          uuid.New().String(),
			CompanyID:   companyID,
			EmployeeID:  summary.EmployeeID,
			PeriodStart: summary.Period.Start,
			PeriodEnd:   summary.Period.End,
			TotalAmount: summary.TotalAmount(),
			FinalizedBy: identity.UserID,
			Details:     make([]billing.BillingRecordDetail, 0, len(summary.LineItems)),
		}
		for _, line := range summary.LineItems {
			proj := projectByID[line.ProjectID]
			record.Details = append(record.Details, billing.BillingRecordDetail{
				ProjectID:          line.ProjectID,
				ProjectName:        proj.Name,
				BillingType:        proj.BillingType(),
				MetricLabel:        line.MetricLabel,
				TotalHours:         line.TotalHours,
				TotalAchievedCount: line.TotalAchievedCount,
				FormulaApplied:     line.FormulaApplied,
				CalculatedAmount:   line.CalculatedAmount,
			})
		}
		batch.records = append(batch.records, record)

		emp := employeeByID[summary.EmployeeID]
		if emp.UserID == nil {
			s.logger.DebugContext(ctx, "employee has no user account, skipping notification",
				slog.String("employee_id", emp.ID),
			)
			continue
		}
		sender := identity.UserID
		batch.notifications = append(batch.notifications, notification.CreateNotificationRequest{
			CompanyID:   companyID,
			RecipientID: *emp.UserID,
			SenderID:    &sender,
			Type:        notification.TypeBillingFinalized,
			Title:       finalizedTitle,
			Message:     finalizedMessage,
			Data: map[string]interface{}{
				"billing_record_id": record.ID,
				"period_start":      summary.Period.Start.Format(validator.DateLayout),
				"period_end":        summary.Period.End.Format(validator.DateLayout),
				"total_amount":      record.TotalAmount.StringFixed(2),
			},
		})
	}

	return batch, nil
}
