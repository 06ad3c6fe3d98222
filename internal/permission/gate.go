package permission

import "github.com/hackgods/facility-booking/internal/appointment"

type Action string

const (
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionComplete   Action = "complete"
)

// Actions lists every gated action in display order.
var Actions = []Action{ActionCancel, ActionReschedule, ActionComplete}

func open(s appointment.Status) bool {
	return s != appointment.StatusCancelled && s != appointment.StatusCompleted
}

func CanCancel(s appointment.Status, r Role) bool {
	return open(s) && (r == RolePatient || r == RoleStaffUser)
}

func CanReschedule(s appointment.Status, r Role) bool {
	return open(s) && (r == RolePatient || r == RoleStaffUser)
}

func CanComplete(s appointment.Status, r Role) bool {
	return open(s) && (r == RoleFacilityAdmin || r == RoleStaffUser || r == RolePractitioner)
}

// Can dispatches to the check for action. Unknown actions are denied.
func Can(action Action, s appointment.Status, r Role) bool {
	switch action {
	case ActionCancel:
		return CanCancel(s, r)
	case ActionReschedule:
		return CanReschedule(s, r)
	case ActionComplete:
		return CanComplete(s, r)
	}
	return false
}

// Allowed returns the actions r may take on an appointment in status s.
// It is a pure function of its inputs so it can be recomputed on every render.
func Allowed(s appointment.Status, r Role) []Action {
	allowed := make([]Action, 0, len(Actions))
	for _, a := range Actions {
		if Can(a, s, r) {
			allowed = append(allowed, a)
		}
	}
	return allowed
}
