package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hackgods/facility-booking/internal/appointment"
)

var (
	allRoles    = []Role{RoleSuperAdmin, RoleFacilityAdmin, RoleStaffUser, RolePractitioner, RolePatient, Role("unknown")}
	allStatuses = []appointment.Status{
		appointment.StatusPending,
		appointment.StatusConfirmed,
		appointment.StatusInProgress,
		appointment.StatusCompleted,
		appointment.StatusCancelled,
		appointment.StatusNoShow,
	}
)

func TestTerminalStatusesDenyEverything(t *testing.T) {
	for _, s := range []appointment.Status{appointment.StatusCompleted, appointment.StatusCancelled} {
		for _, r := range allRoles {
			assert.False(t, CanCancel(s, r), "cancel %s/%s", s, r)
			assert.False(t, CanReschedule(s, r), "reschedule %s/%s", s, r)
			assert.False(t, CanComplete(s, r), "complete %s/%s", s, r)
			assert.Empty(t, Allowed(s, r))
		}
	}
}

func TestRoleMatrixOnOpenStatus(t *testing.T) {
	tests := []struct {
		role Role
		want []Action
	}{
		{RolePatient, []Action{ActionCancel, ActionReschedule}},
		{RoleStaffUser, []Action{ActionCancel, ActionReschedule, ActionComplete}},
		{RoleFacilityAdmin, []Action{ActionComplete}},
		{RolePractitioner, []Action{ActionComplete}},
		{RoleSuperAdmin, []Action{}},
		{Role("unknown"), []Action{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, s := range []appointment.Status{appointment.StatusPending, appointment.StatusConfirmed, appointment.StatusInProgress, appointment.StatusNoShow} {
				assert.Equal(t, tt.want, Allowed(s, tt.role), "status %s", s)
			}
		})
	}
}

func TestCanMatchesAllowed(t *testing.T) {
	for _, s := range allStatuses {
		for _, r := range allRoles {
			allowed := map[Action]bool{}
			for _, a := range Allowed(s, r) {
				allowed[a] = true
			}
			for _, a := range Actions {
				assert.Equal(t, allowed[a], Can(a, s, r))
			}
		}
	}
	assert.False(t, Can(Action("delete"), appointment.StatusPending, RoleStaffUser))
}

func TestCancelThenGateDenies(t *testing.T) {
	status := appointment.StatusPending
	assert.True(t, CanCancel(status, RolePatient))
	status = appointment.StatusCancelled
	assert.False(t, CanCancel(status, RolePatient))
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"super_admin":  RoleSuperAdmin,
		"SuperAdmin":   RoleSuperAdmin,
		"admin":        RoleFacilityAdmin,
		"client-user":  RoleStaffUser,
		"user":         RoleStaffUser,
		"Chiropractor": RolePractitioner,
		"patient":      RolePatient,
	}
	for in, want := range tests {
		got, ok := ParseRole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseRole("guest")
	assert.False(t, ok)
}

func TestRoleGroups(t *testing.T) {
	assert.True(t, IsClientUser(RoleFacilityAdmin))
	assert.True(t, IsClientUser(RoleStaffUser))
	assert.False(t, IsClientUser(RolePractitioner))
	assert.False(t, IsClientUser(RolePatient))

	assert.True(t, CanViewFacilityRoster(RolePractitioner))
	assert.False(t, CanViewFacilityRoster(RolePatient))

	assert.True(t, CanManageUsers(RoleSuperAdmin))
	assert.False(t, CanManageUsers(RoleStaffUser))
}
