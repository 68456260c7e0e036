package workreport

import (
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/shopspring/decimal"
)

// LogItem is one employee's work on one project for one day.
type LogItem struct {
	ID            string
	CompanyID     string
	EmployeeID    string
	ProjectID     string
	Date          time.Time
	HoursWorked   decimal.Decimal
	AchievedCount *decimal.Decimal
	Description   string
	CreatedAt     time.Time

	// Joined fields
	Project project.Project
}
