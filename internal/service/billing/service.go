package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/workreport"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
)

// Notifier is the part of the notification service the finalizer depends on.
type Notifier interface {
	Enqueue(ctx context.Context, reqs []notification.CreateNotificationRequest) ([]notification.Notification, error)
	Publish(notifications []notification.Notification)
}

type Options struct {
	// WorkerLimit bounds how many employees are aggregated concurrently.
	WorkerLimit int
	// ExcludeLeaveDays drops log items dated on an approved leave day.
	ExcludeLeaveDays bool
}

type BillingServiceImpl struct {
	tx             database.Transactor
	billingRepo    billing.BillingRepository
	employeeRepo   employee.EmployeeRepository
	projectRepo    project.ProjectRepository
	workReportRepo workreport.WorkReportRepository
	leaveRepo      leave.LeaveRequestRepository
	attendanceRepo attendance.AttendanceRepository
	notifier       Notifier
	logger         *slog.Logger
	opts           Options
}

func NewBillingService(
	tx database.Transactor,
	billingRepo billing.BillingRepository,
	employeeRepo employee.EmployeeRepository,
	projectRepo project.ProjectRepository,
	workReportRepo workreport.WorkReportRepository,
	leaveRepo leave.LeaveRequestRepository,
	attendanceRepo attendance.AttendanceRepository,
	notifier Notifier,
	logger *slog.Logger,
	opts Options,
) billing.BillingService {
	if opts.WorkerLimit < 1 {
		opts.WorkerLimit = 1
	}
	return &BillingServiceImpl{
		tx:             tx,
		billingRepo:    billingRepo,
		employeeRepo:   employeeRepo,
		projectRepo:    projectRepo,
		workReportRepo: workReportRepo,
		leaveRepo:      leaveRepo,
		attendanceRepo: attendanceRepo,
		notifier:       notifier,
		logger:         logger,
		opts:           opts,
	}
}

func identityFromContext(ctx context.Context) (user.Identity, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return user.Identity{}, err
	}
	if identity.CompanyID == "" {
		return user.Identity{}, user.ErrCompanyIDRequired
	}
	return identity, nil
}

// ========== RECORDS ==========

func (s *BillingServiceImpl) GetRecord(ctx context.Context, id string) (billing.BillingRecordResponse, error) {
	identity, err := identityFromContext(ctx)
	if err != nil {
		return billing.BillingRecordResponse{}, err
	}
	if !validator.IsValidUUID(id) {
		return billing.BillingRecordResponse{}, billing.ErrBillingRecordNotFound
	}

	record, err := s.billingRepo.GetRecordByID(ctx, id, identity.CompanyID)
	if err != nil {
		return billing.BillingRecordResponse{}, err
	}
	return record.ToResponse(), nil
}

func (s *BillingServiceImpl) ListRecords(ctx context.Context, req billing.ListBillingRecordsRequest) (billing.ListBillingRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return billing.ListBillingRecordResponse{}, err
	}

	identity, err := identityFromContext(ctx)
	if err != nil {
		return billing.ListBillingRecordResponse{}, err
	}

	filter := req.ToFilter()
	records, total, err := s.billingRepo.ListRecords(ctx, identity.CompanyID, filter)
	if err != nil {
		return billing.ListBillingRecordResponse{}, fmt.Errorf("list billing records: %w", err)
	}

	data := make([]billing.BillingRecordResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, rec.ToResponse())
	}

	return billing.ListBillingRecordResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}
