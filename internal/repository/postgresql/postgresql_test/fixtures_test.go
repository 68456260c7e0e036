package postgresql_test

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t  *testing.T
	db *database.DB

	companyID string
	managerID string
}

func newFixture(t *testing.T) *fixture {
	db := requireDB(t)
	f := &fixture{t: t, db: db, companyID: uuid.NewString()}

	f.exec(`INSERT INTO companies (id, name) VALUES ($1, 'Acme')`, f.companyID)
	f.managerID = f.user("manager@acme.test", "manager")
	return f
}

func (f *fixture) exec(sql string, args ...interface{}) {
	f.t.Helper()
	_, err := f.db.Exec(context.Background(), sql, args...)
	require.NoError(f.t, err)
}

func (f *fixture) user(email, role string) string {
	id := uuid.NewString()
	f.exec(`INSERT INTO users (id, company_id, email, role) VALUES ($1, $2, $3, $4)`, id, f.companyID, email, role)
	return id
}

func (f *fixture) employee(code, name, status string, userID *string) string {
	id := uuid.NewString()
	f.exec(`
		INSERT INTO employees (id, user_id, company_id, employee_code, full_name, employment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, f.companyID, code, name, status)
	return id
}

func (f *fixture) hourlyProject(name, rate string) string {
	id := uuid.NewString()
	f.exec(`
		INSERT INTO projects (id, company_id, name, billing_type, rate_per_hour)
		VALUES ($1, $2, $3, 'hourly', $4::text::numeric)
	`, id, f.companyID, name, rate)
	return id
}

func (f *fixture) countProject(name, label, divisor, multiplier string) string {
	id := uuid.NewString()
	f.exec(`
		INSERT INTO projects (id, company_id, name, billing_type, count_metric_label, count_divisor, count_multiplier)
		VALUES ($1, $2, $3, 'count_based', $4, $5::text::numeric, $6::text::numeric)
	`, id, f.companyID, name, label, divisor, multiplier)
	return id
}

func (f *fixture) logItem(employeeID, projectID, date, hours string, achieved *string) {
	f.exec(`
		INSERT INTO work_report_log_items (company_id, employee_id, project_id, date, hours_worked, achieved_count)
		VALUES ($1, $2, $3, $4::text::date, $5::text::numeric, $6::text::numeric)
	`, f.companyID, employeeID, projectID, date, hours, achieved)
}

func (f *fixture) leave(employeeID, start, end, status string) {
	f.exec(`
		INSERT INTO leave_requests (company_id, employee_id, start_date, end_date, status)
		VALUES ($1, $2, $3::text::date, $4::text::date, $5)
	`, f.companyID, employeeID, start, end, status)
}

func (f *fixture) attendance(employeeID, date, totalHours string) {
	f.exec(`
		INSERT INTO attendances (company_id, employee_id, date, clock_in, total_hours)
		VALUES ($1, $2, $3::text::date, $3::text::date + TIME '08:00', $4::text::numeric)
	`, f.companyID, employeeID, date, totalHours)
}

func strPtr(s string) *string { return &s }
