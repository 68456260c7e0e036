package project

import "context"

type ProjectRepository interface {
	// GetByIDs returns the projects of companyID among ids. Unknown IDs are absent.
	GetByIDs(ctx context.Context, companyID string, ids []string) ([]Project, error)
}
