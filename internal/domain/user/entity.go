package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can review and finalize billing
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

// Identity is the caller identity carried in the access token claims.
type Identity struct {
	UserID     string
	CompanyID  string
	EmployeeID *string
	Role       Role
}

// IsManager checks if the caller is manager or owner
func (i Identity) IsManager() bool {
	return i.Role == RoleManager || i.Role == RoleOwner
}
