package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/workreport"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testCompanyID = "0190a1b2-0000-7000-8000-0000000000c0"
	testUserID    = "0190a1b2-0000-7000-8000-0000000000f0"
)

// store is an in-memory stand-in for the database shared by every fake repository.
type store struct {
	mu            sync.Mutex
	employees     []employee.Employee
	projects      []project.Project
	logItems      []workreport.LogItem
	leaves        []leave.LeaveRequest
	attendances   []attendance.Attendance
	records       []billing.BillingRecord
	notifications []notification.Notification

	// failCreateRecordAt makes the n-th CreateRecord call (1-based) fail.
	failCreateRecordAt int
	createRecordCalls  int
	failNotifications  bool
	published          []notification.Notification
	inTx               bool
}

func newStore() *store { return &store{} }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func (st *store) addEmployee(id, name string, userID *string) employee.Employee {
	e := employee.Employee{
		ID:               id,
		UserID:           userID,
		CompanyID:        testCompanyID,
		EmployeeCode:     "EMP-" + id[len(id)-3:],
		FullName:         name,
		EmploymentStatus: employee.EmploymentStatusActive,
	}
	st.employees = append(st.employees, e)
	return e
}

func (st *store) addHourlyProject(id, name, rate string) project.Project {
	p := project.Project{ID: id, CompanyID: testCompanyID, Name: name, Mode: project.HourlyBilling{RatePerHour: dec(rate)}}
	st.projects = append(st.projects, p)
	return p
}

func (st *store) addCountProject(id, name, label, divisor, multiplier string) project.Project {
	p := project.Project{
		ID: id, CompanyID: testCompanyID, Name: name,
		Mode: project.CountBasedBilling{MetricLabel: label, Divisor: dec(divisor), Multiplier: dec(multiplier)},
	}
	st.projects = append(st.projects, p)
	return p
}

func (st *store) addLog(employeeID string, proj project.Project, day, hours string, achieved *decimal.Decimal) {
	st.logItems = append(st.logItems, workreport.LogItem{
		ID:            fmt.Sprintf("log-%d", len(st.logItems)+1),
		CompanyID:     testCompanyID,
		EmployeeID:    employeeID,
		ProjectID:     proj.ID,
		Date:          date(day),
		HoursWorked:   dec(hours),
		AchievedCount: achieved,
		Project:       proj,
	})
}

func (st *store) addLeave(employeeID, start, end string, status leave.LeaveRequestStatus) {
	st.leaves = append(st.leaves, leave.LeaveRequest{
		ID: fmt.Sprintf("leave-%d", len(st.leaves)+1), CompanyID: testCompanyID, EmployeeID: employeeID,
		StartDate: date(start), EndDate: date(end), Status: status,
	})
}

func (st *store) addAttendance(employeeID, day, totalHours string) {
	total := dec(totalHours)
	st.attendances = append(st.attendances, attendance.Attendance{
		ID: fmt.Sprintf("att-%d", len(st.attendances)+1), CompanyID: testCompanyID, EmployeeID: employeeID,
		Date: date(day), ClockIn: date(day).Add(8 * time.Hour), TotalHours: &total,
	})
}

func (st *store) detailCount() int {
	n := 0
	for _, r := range st.records {
		n += len(r.Details)
	}
	return n
}

// ---- transactor ----

type fakeTransactor struct{ st *store }

func (t fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.st.mu.Lock()
	records := append([]billing.BillingRecord(nil), t.st.records...)
	notifications := append([]notification.Notification(nil), t.st.notifications...)
	t.st.inTx = true
	t.st.mu.Unlock()

	err := fn(ctx)

	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	t.st.inTx = false
	if err != nil {
		t.st.records = records
		t.st.notifications = notifications
	}
	return err
}

// ---- repositories ----

type fakeEmployeeRepo struct{ st *store }

func (r fakeEmployeeRepo) GetByIDs(_ context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	want := toSet(ids)
	var out []employee.Employee
	for _, e := range r.st.employees {
		if _, ok := want[e.ID]; ok && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeProjectRepo struct{ st *store }

func (r fakeProjectRepo) GetByIDs(_ context.Context, companyID string, ids []string) ([]project.Project, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	want := toSet(ids)
	var out []project.Project
	for _, p := range r.st.projects {
		if _, ok := want[p.ID]; ok && p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeWorkReportRepo struct{ st *store }

func (r fakeWorkReportRepo) ListByEmployeeInRange(_ context.Context, companyID, employeeID string, start, end time.Time) ([]workreport.LogItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []workreport.LogItem
	for _, item := range r.st.logItems {
		if item.CompanyID == companyID && item.EmployeeID == employeeID && !item.Date.Before(start) && !item.Date.After(end) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r fakeWorkReportRepo) ListEmployeeIDsWithActivity(_ context.Context, companyID string, start, end time.Time) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, item := range r.st.logItems {
		if item.CompanyID != companyID || item.Date.Before(start) || item.Date.After(end) {
			continue
		}
		if _, ok := seen[item.EmployeeID]; !ok {
			seen[item.EmployeeID] = struct{}{}
			out = append(out, item.EmployeeID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeLeaveRepo struct{ st *store }

func (r fakeLeaveRepo) ListApprovedOverlapping(_ context.Context, companyID, employeeID string, start, end time.Time) ([]leave.LeaveRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []leave.LeaveRequest
	for _, l := range r.st.leaves {
		if l.CompanyID == companyID && l.EmployeeID == employeeID &&
			l.Status == leave.LeaveRequestStatusApproved && l.Overlaps(start, end) {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeAttendanceRepo struct{ st *store }

func (r fakeAttendanceRepo) ListByEmployeeInRange(_ context.Context, companyID, employeeID string, start, end time.Time) ([]attendance.Attendance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range r.st.attendances {
		if a.CompanyID == companyID && a.EmployeeID == employeeID && !a.Date.Before(start) && !a.Date.After(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

var errInjected = errors.New("injected failure")

type fakeBillingRepo struct{ st *store }

func (r fakeBillingRepo) CreateRecord(_ context.Context, record billing.BillingRecord) (billing.BillingRecord, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if !r.st.inTx {
		return billing.BillingRecord{}, errors.New("CreateRecord called outside a transaction")
	}
	r.st.createRecordCalls++
	if r.st.failCreateRecordAt == r.st.createRecordCalls {
		return billing.BillingRecord{}, errInjected
	}
	// emulate uq_billing_record_details_employee_project_period
	for _, existing := range r.st.records {
		for _, d := range existing.Details {
			for _, nd := range record.Details {
				if existing.EmployeeID == record.EmployeeID && d.ProjectID == nd.ProjectID &&
					existing.PeriodStart.Equal(record.PeriodStart) && existing.PeriodEnd.Equal(record.PeriodEnd) {
					return billing.BillingRecord{}, billing.ErrAlreadyFinalized
				}
			}
		}
	}
	if record.ID == "" {
		record.ID = fmt.Sprintf("rec-%d", len(r.st.records)+1)
	}
	for i := range record.Details {
		record.Details[i].BillingRecordID = record.ID
		record.Details[i].EmployeeID = record.EmployeeID
	}
	r.st.records = append(r.st.records, record)
	return record, nil
}

func (r fakeBillingRepo) FindFinalized(_ context.Context, companyID string, period billing.Period, pairs []billing.EmployeeProject) ([]billing.EmployeeProject, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []billing.EmployeeProject
	for _, rec := range r.st.records {
		if rec.CompanyID != companyID || !rec.PeriodStart.Equal(period.Start) || !rec.PeriodEnd.Equal(period.End) {
			continue
		}
		for _, d := range rec.Details {
			for _, p := range pairs {
				if p.EmployeeID == rec.EmployeeID && p.ProjectID == d.ProjectID {
					out = append(out, p)
				}
			}
		}
	}
	return out, nil
}

func (r fakeBillingRepo) GetRecordByID(_ context.Context, id string, companyID string) (billing.BillingRecord, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, rec := range r.st.records {
		if rec.ID == id && rec.CompanyID == companyID {
			return rec, nil
		}
	}
	return billing.BillingRecord{}, billing.ErrBillingRecordNotFound
}

func (r fakeBillingRepo) ListRecords(_ context.Context, companyID string, filter billing.BillingRecordFilter) ([]billing.BillingRecord, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []billing.BillingRecord
	for _, rec := range r.st.records {
		if rec.CompanyID != companyID {
			continue
		}
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		out = append(out, rec)
	}
	return out, int64(len(out)), nil
}

type fakeNotifier struct{ st *store }

func (n fakeNotifier) Enqueue(_ context.Context, reqs []notification.CreateNotificationRequest) ([]notification.Notification, error) {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	if n.st.failNotifications {
		return nil, errInjected
	}
	var created []notification.Notification
	for _, req := range reqs {
		note := notification.Notification{
			ID:          fmt.Sprintf("note-%d", len(n.st.notifications)+1),
			CompanyID:   req.CompanyID,
			RecipientID: req.RecipientID,
			SenderID:    req.SenderID,
			Type:        req.Type,
			Title:       req.Title,
			Message:     req.Message,
			Data:        req.Data,
		}
		n.st.notifications = append(n.st.notifications, note)
		created = append(created, note)
	}
	return created, nil
}

func (n fakeNotifier) Publish(notifications []notification.Notification) {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	n.st.published = append(n.st.published, notifications...)
}

// ---- helpers ----

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func newTestService(st *store, opts Options) *BillingServiceImpl {
	return NewBillingService(
		fakeTransactor{st},
		fakeBillingRepo{st},
		fakeEmployeeRepo{st},
		fakeProjectRepo{st},
		fakeWorkReportRepo{st},
		fakeLeaveRepo{st},
		fakeAttendanceRepo{st},
		fakeNotifier{st},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		opts,
	).(*BillingServiceImpl)
}

func authContext(t *testing.T) context.Context {
	t.Helper()
	svc := jwt.NewJWTService("billing-test-secret", "1h")
	token, _, err := svc.GenerateAccessToken(user.Identity{
		UserID:    testUserID,
		CompanyID: testCompanyID,
		Role:      user.RoleManager,
	})
	require.NoError(t, err)
	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), decoded, nil)
}

// raceRepo hides existing rows from the staging check, like a concurrent commit
// that lands after FindFinalized ran.
type raceRepo struct{ fakeBillingRepo }

func (raceRepo) FindFinalized(context.Context, string, billing.Period, []billing.EmployeeProject) ([]billing.EmployeeProject, error) {
	return nil, nil
}

func mustIdentity(t *testing.T, ctx context.Context) user.Identity {
	t.Helper()
	identity, err := identityFromContext(ctx)
	require.NoError(t, err)
	return identity
}
