package enums

import "fmt"

// StaffRole represents the actor role carried in access tokens.
type StaffRole string

const (
	RoleCustomer          StaffRole = "customer"
	RoleAdmin             StaffRole = "admin"
	RoleSuperAdmin        StaffRole = "super_admin"
	RolePackageHandler    StaffRole = "package_handler"
	RoleTransferPersonnel StaffRole = "transfer_personnel"
	RoleFrontDesk         StaffRole = "front_desk"
)

var validStaffRoles = []StaffRole{
	RoleCustomer,
	RoleAdmin,
	RoleSuperAdmin,
	RolePackageHandler,
	RoleTransferPersonnel,
	RoleFrontDesk,
}

// String implements fmt.Stringer.
func (s StaffRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StaffRole.
func (s StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to an employee rather than a customer.
func (s StaffRole) IsStaff() bool {
	return s.IsValid() && s != RoleCustomer
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}

// TransferManagementRoles lists the roles allowed to manage transfer manifests.
func TransferManagementRoles() []StaffRole {
	return []StaffRole{RoleAdmin, RoleSuperAdmin, RolePackageHandler, RoleTransferPersonnel}
}

// PreAlertConfirmationRoles lists the roles allowed to confirm pre-alerts.
func PreAlertConfirmationRoles() []StaffRole {
	return []StaffRole{RoleAdmin, RoleSuperAdmin, RolePackageHandler, RoleFrontDesk}
}

// PackageAdminRoles lists the roles allowed to create, update and delete packages.
func PackageAdminRoles() []StaffRole {
	return []StaffRole{RoleAdmin, RoleSuperAdmin}
}
