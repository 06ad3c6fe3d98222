package api

import (
	"context"
	"net/http"
	"time"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/observability/metrics"
	"github.com/hackgods/facility-booking/internal/permission"
	redisclient "github.com/hackgods/facility-booking/internal/redis"
	"github.com/hackgods/facility-booking/internal/schedule"
)

// combined returns dateTime, or date and clock joined when dateTime is empty.
func combined(dateTime, date, clock string) string {
	if dateTime != "" {
		return dateTime
	}
	return schedule.Combine(date, clock)
}

func (req BookRequest) toAppointment() appointment.BookRequest {
	return appointment.BookRequest{
		PractitionerID: req.PractitionerID,
		DateTime:       combined(req.DateTime, req.Date, req.Time),
		ServiceID:      req.ServiceID,
		Notes:          req.Notes,
		PatientID:      req.PatientID,
	}
}

func (h *handlers) book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	booking := req.toAppointment()
	key := redisclient.OperationKey(string(appointment.OpBook), booking.PractitionerID, booking.DateTime)

	h.runTransition(w, r, appointment.OpBook, key, http.StatusCreated, func(ctx context.Context) (*appointment.Appointment, error) {
		return h.svc.Book(ctx, req.FacilityID, booking, appointment.Callbacks{})
	})
}

func (h *handlers) bookCash(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	booking := req.toAppointment()
	key := redisclient.OperationKey(string(appointment.OpBook), booking.PractitionerID, booking.DateTime)

	h.runTransition(w, r, appointment.OpBookCash, key, http.StatusCreated, func(ctx context.Context) (*appointment.Appointment, error) {
		return h.svc.BookWithCash(ctx, req.FacilityID, booking, req.Amount, appointment.Callbacks{})
	})
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	appt, ok := h.gated(w, r, permission.ActionCancel)
	if !ok {
		return
	}
	key := redisclient.OperationKey(string(appointment.OpCancel), appt.ID)
	h.runTransition(w, r, appointment.OpCancel, key, http.StatusOK, func(ctx context.Context) (*appointment.Appointment, error) {
		return h.svc.Cancel(ctx, appt, appointment.Callbacks{})
	})
}

func (h *handlers) reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	appt, ok := h.gated(w, r, permission.ActionReschedule)
	if !ok {
		return
	}
	dateTime := combined(req.DateTime, req.Date, req.Time)
	key := redisclient.OperationKey(string(appointment.OpReschedule), appt.ID)
	h.runTransition(w, r, appointment.OpReschedule, key, http.StatusOK, func(ctx context.Context) (*appointment.Appointment, error) {
		return h.svc.Reschedule(ctx, appt, dateTime, appointment.Callbacks{})
	})
}

func (h *handlers) complete(w http.ResponseWriter, r *http.Request) {
	appt, ok := h.gated(w, r, permission.ActionComplete)
	if !ok {
		return
	}
	key := redisclient.OperationKey(string(appointment.OpComplete), appt.ID)
	h.runTransition(w, r, appointment.OpComplete, key, http.StatusOK, func(ctx context.Context) (*appointment.Appointment, error) {
		return h.svc.Complete(ctx, appt, appointment.Callbacks{})
	})
}

// gated resolves the path appointment and checks the actor's
// role may perform action on it. It writes the response when it fails.
func (h *handlers) gated(w http.ResponseWriter, r *http.Request, action permission.Action) (appointment.Appointment, bool) {
	role, ok := h.actorRole(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_role", "X-Actor-Role is missing or unknown")
		return appointment.Appointment{}, false
	}
	appt, ok := h.findAppointment(w, r, role)
	if !ok {
		return appointment.Appointment{}, false
	}
	if !permission.Can(action, appt.Status, role) {
		h.logger.Info().
			Str("appointment_id", appt.ID).
			Str("status", string(appt.Status)).
			Str("role", string(role)).
			Str("action", string(action)).
			Msg("transition denied by permission gate")
		writeError(w, http.StatusForbidden, "forbidden", "role "+string(role)+" may not "+string(action)+" a "+string(appt.Status)+" appointment")
		return appointment.Appointment{}, false
	}
	return appt, true
}

func (h *handlers) runTransition(w http.ResponseWriter, r *http.Request, op appointment.Operation, key string, okStatus int, fn func(ctx context.Context) (*appointment.Appointment, error)) {
	start := time.Now()
	var result *appointment.Appointment
	err := h.guard.WithOperationLock(r.Context(), key, func(ctx context.Context) error {
		appt, err := fn(ctx)
		result = appt
		return err
	})
	if err != nil {
		h.metrics.ObserveTransition(string(op), outcomeOf(err), time.Since(start))
		handleError(w, err)
		return
	}
	h.metrics.ObserveTransition(string(op), metrics.OutcomeSuccess, time.Since(start))
	writeJSON(w, okStatus, result)
}
