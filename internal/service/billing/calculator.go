package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/workreport"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
	"golang.org/x/sync/errgroup"
)

// Calculate implements billing.BillingService.
func (s *BillingServiceImpl) Calculate(ctx context.Context, req billing.CalculateBillingRequest) ([]billing.PeriodBillingSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	identity, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	period, err := billing.ParsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	var employees []employee.Employee
	if len(req.EmployeeIDs) > 0 {
		employees, err = s.employeesByIDs(ctx, identity.CompanyID, req.EmployeeIDs)
	} else {
		employees, err = s.employeesWithActivity(ctx, identity.CompanyID, period)
	}
	if err != nil {
		return nil, err
	}

	summaries, err := s.aggregate(ctx, identity.CompanyID, employees, period)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "billing calculated",
		slog.String("company_id", identity.CompanyID),
		slog.String("period", period.String()),
		slog.Int("employees", len(employees)),
		slog.Int("summaries", len(summaries)),
	)
	return summaries, nil
}

// employeesByIDs loads the requested employees and fails if any is unknown.
func (s *BillingServiceImpl) employeesByIDs(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	ids = validator.Unique(ids)

	employees, err := s.employeeRepo.GetByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	if missing := missingIDs(ids, employees, func(e employee.Employee) string { return e.ID }); len(missing) > 0 {
		return nil, fmt.Errorf("%w: employee %s", billing.ErrReferenceNotFound, missing[0])
	}
	return employees, nil
}

func (s *BillingServiceImpl) employeesWithActivity(ctx context.Context, companyID string, period billing.Period) ([]employee.Employee, error) {
	ids, err := s.workReportRepo.ListEmployeeIDsWithActivity(ctx, companyID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("list employees with activity: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	employees, err := s.employeeRepo.GetByIDs(ctx, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	return employees, nil
}

// aggregate builds one summary per employee with at least one line item. Employees
// are loaded concurrently up to the worker limit; the output order is by employee
// name, then ID.
func (s *BillingServiceImpl) aggregate(ctx context.Context, companyID string, employees []employee.Employee, period billing.Period) ([]billing.PeriodBillingSummary, error) {
	results := make([]*billing.PeriodBillingSummary, len(employees))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.WorkerLimit)
	for i, emp := range employees {
		g.Go(func() error {
			summary, err := s.summarizeEmployee(gctx, companyID, emp, period)
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.ID, err)
			}
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]billing.PeriodBillingSummary, 0, len(results))
	for _, summary := range results {
		if summary != nil {
			summaries = append(summaries, *summary)
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].EmployeeName != summaries[j].EmployeeName {
			return summaries[i].EmployeeName < summaries[j].EmployeeName
		}
		return summaries[i].EmployeeID < summaries[j].EmployeeID
	})
	return summaries, nil
}

type projectGroup struct {
	project project.Project
	items   []workreport.LogItem
}

// summarizeEmployee returns nil when the employee has nothing billable in the period.
func (s *BillingServiceImpl) summarizeEmployee(ctx context.Context, companyID string, emp employee.Employee, period billing.Period) (*billing.PeriodBillingSummary, error) {
	items, err := s.workReportRepo.ListByEmployeeInRange(ctx, companyID, emp.ID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("load work reports: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	leaves, err := s.leaveRepo.ListApprovedOverlapping(ctx, companyID, emp.ID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("load approved leave: %w", err)
	}
	records, err := s.attendanceRepo.ListByEmployeeInRange(ctx, companyID, emp.ID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	if s.opts.ExcludeLeaveDays {
		var excluded int
		items, excluded = excludeLeaveDays(items, leaves)
		if excluded > 0 {
			s.logger.DebugContext(ctx, "log items on approved leave excluded",
				slog.String("employee_id", emp.ID),
				slog.Int("excluded", excluded),
			)
		}
	}

	groups := make(map[string]*projectGroup)
	for _, item := range items {
		if !period.Contains(item.Date) {
			continue
		}
		g, ok := groups[item.ProjectID]
		if !ok {
			g = &projectGroup{project: item.Project}
			groups[item.ProjectID] = g
		}
		g.items = append(g.items, item)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	lines := make([]billing.BillingLineItem, 0, len(groups))
	for _, g := range groups {
		line, err := calculateLineItem(emp.ID, g.project, g.items)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProjectName != lines[j].ProjectName {
			return lines[i].ProjectName < lines[j].ProjectName
		}
		return lines[i].ProjectID < lines[j].ProjectID
	})

	warnings := attendanceWarnings(items, records)
	if len(warnings) > 0 {
		s.logger.WarnContext(ctx, "reported hours do not match attendance",
			slog.String("employee_id", emp.ID),
			slog.Int("warnings", len(warnings)),
		)
	}

	return &billing.PeriodBillingSummary{
		EmployeeID:   emp.ID,
		EmployeeName: emp.FullName,
		Period:       period,
		LineItems:    lines,
		Warnings:     warnings,
	}, nil
}

func missingIDs[T any](want []string, got []T, id func(T) string) []string {
	found := make(map[string]struct{}, len(got))
	for _, g := range got {
		found[id(g)] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := found[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
