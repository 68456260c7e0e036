package employee

import "context"

type EmployeeRepository interface {
	// GetByIDs returns the employees of companyID among ids, including inactive ones.
	// Unknown IDs are simply absent from the result.
	GetByIDs(ctx context.Context, companyID string, ids []string) ([]Employee, error)
}
