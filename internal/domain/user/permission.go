package user

type Permission string

const (
	// Billing
	PermissionBillingView      Permission = "billing.view"
	PermissionBillingCalculate Permission = "billing.calculate"
	PermissionBillingFinalize  Permission = "billing.finalize"

	// Notifications
	PermissionNotificationViewOwn Permission = "notification.view_own"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionBillingView,
		PermissionBillingCalculate,
		PermissionBillingFinalize,
		PermissionNotificationViewOwn,
	},
	RoleManager: {
		// Managers review and commit billing for their company
		PermissionBillingView,
		PermissionBillingCalculate,
		PermissionBillingFinalize,
		PermissionNotificationViewOwn,
	},
	RoleEmployee: {
		PermissionNotificationViewOwn,
	},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
