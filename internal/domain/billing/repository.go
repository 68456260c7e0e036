package billing

import "context"

// BillingRepository defines data access for finalized billing.
// All methods include companyID to prevent cross-company access.
type BillingRepository interface {
	// CreateRecord inserts the header and all of its details. It returns
	// ErrAlreadyFinalized when the uniqueness guard rejects a detail row.
	CreateRecord(ctx context.Context, record BillingRecord) (BillingRecord, error)
	// FindFinalized returns which of the given employee/project pairs already have
	// a detail row for exactly this period.
	FindFinalized(ctx context.Context, companyID string, period Period, pairs []EmployeeProject) ([]EmployeeProject, error)
	GetRecordByID(ctx context.Context, id string, companyID string) (BillingRecord, error)
	ListRecords(ctx context.Context, companyID string, filter BillingRecordFilter) ([]BillingRecord, int64, error)
}
