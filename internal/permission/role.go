package permission

import "strings"

type Role string

// RoleStaffUser is a facility employee operating the front desk; the
// practitioner role is the chiropractor seeing patients.
const (
	RoleSuperAdmin    Role = "super_admin"
	RoleFacilityAdmin Role = "facility_admin"
	RoleStaffUser     Role = "staff"
	RolePractitioner  Role = "chiropractor"
	RolePatient       Role = "patient"
)

var roleAliases = map[string]Role{
	"superadmin":    RoleSuperAdmin,
	"facilityadmin": RoleFacilityAdmin,
	"admin":         RoleFacilityAdmin,
	"staff":         RoleStaffUser,
	"staffuser":     RoleStaffUser,
	"clientuser":    RoleStaffUser,
	"user":          RoleStaffUser,
	"chiropractor":  RolePractitioner,
	"practitioner":  RolePractitioner,
	"patient":       RolePatient,
}

// ParseRole maps the role strings seen in tokens and headers onto Role.
func ParseRole(raw string) (Role, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	r, ok := roleAliases[key]
	return r, ok
}

// IsClientUser groups the internal facility operators: facility admins and
// staff users. Screens use it to show the patient selector.
func IsClientUser(r Role) bool {
	return r == RoleFacilityAdmin || r == RoleStaffUser
}

// CanViewFacilityRoster reports whether r may load a facility's patients
// and appointments.
func CanViewFacilityRoster(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleFacilityAdmin, RoleStaffUser, RolePractitioner:
		return true
	}
	return false
}

// CanManageUsers reports whether r may load a facility's user list.
func CanManageUsers(r Role) bool {
	return r == RoleSuperAdmin || r == RoleFacilityAdmin
}
