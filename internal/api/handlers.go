package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/facility"
	"github.com/hackgods/facility-booking/internal/observability/metrics"
	"github.com/hackgods/facility-booking/internal/permission"
	redisclient "github.com/hackgods/facility-booking/internal/redis"
	"github.com/hackgods/facility-booking/internal/schedule"
)

const (
	actorRoleHeader = "X-Actor-Role"
	actorIDHeader   = "X-Actor-ID"
)

type handlers struct {
	svc         *appointment.Scheduler
	store       *facility.Store
	guard       redisclient.Guard
	defaultRole permission.Role
	grid        schedule.Grid
	metrics     *metrics.BookingMetrics
	logger      zerolog.Logger
}

// actorRole reads X-Actor-Role, falling back to the configured role.
func (h *handlers) actorRole(r *http.Request) (permission.Role, bool) {
	raw := r.Header.Get(actorRoleHeader)
	if raw == "" {
		return h.defaultRole, h.defaultRole != ""
	}
	return permission.ParseRole(raw)
}

// findAppointment resolves the path appointment from the loaded facilities.
// Patients never load a facility's appointments, so for them a miss falls
// back to the backend listing of the patient named by X-Actor-ID. It writes
// the response when it fails.
func (h *handlers) findAppointment(w http.ResponseWriter, r *http.Request, role permission.Role) (appointment.Appointment, bool) {
	id := chi.URLParam(r, "id")
	if appt, ok := h.store.FindAppointment(id); ok {
		return appt, true
	}

	if patientID := r.Header.Get(actorIDHeader); role == permission.RolePatient && patientID != "" {
		appts, err := h.svc.ListForPatient(r.Context(), patientID)
		if err != nil {
			handleError(w, err)
			return appointment.Appointment{}, false
		}
		for _, appt := range appts {
			if appt.ID == id {
				return appt, true
			}
		}
	}

	writeError(w, http.StatusNotFound, "appointment_not_found", "appointment is not in a loaded facility")
	return appointment.Appointment{}, false
}

func (h *handlers) slots(w http.ResponseWriter, r *http.Request) {
	practitionerID := chi.URLParam(r, "id")
	q := r.URL.Query()

	grid := h.grid
	if raw := q.Get("interval"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 || minutes > 24*60 {
			writeError(w, http.StatusBadRequest, "invalid_interval", "interval must be a positive number of minutes")
			return
		}
		grid.Interval = time.Duration(minutes) * time.Minute
	}

	var opts []schedule.FilterOption
	if exclude := q.Get("exclude"); exclude != "" {
		opts = append(opts, schedule.ExcludingID(exclude))
	}

	avail, err := h.svc.Availability(r.Context(), practitionerID, q.Get("date"), grid, opts...)
	if err != nil {
		h.metrics.ObserveSlotQuery(outcomeOf(err))
		handleError(w, err)
		return
	}
	h.metrics.ObserveSlotQuery(metrics.OutcomeSuccess)

	writeJSON(w, http.StatusOK, SlotsResponse{
		PractitionerID: practitionerID,
		Date:           avail.Date,
		Interval:       grid.Interval.String(),
		Booked:         avail.Booked,
		Available:      avail.Available,
	})
}

func (h *handlers) permissions(w http.ResponseWriter, r *http.Request) {
	role, ok := h.actorRole(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_role", "X-Actor-Role is missing or unknown")
		return
	}
	appt, ok := h.findAppointment(w, r, role)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, PermissionsResponse{
		AppointmentID: appt.ID,
		Status:        appt.Status,
		Role:          role,
		Allowed:       permission.Allowed(appt.Status, role),
		CanCancel:     permission.CanCancel(appt.Status, role),
		CanReschedule: permission.CanReschedule(appt.Status, role),
		CanComplete:   permission.CanComplete(appt.Status, role),
	})
}

func (h *handlers) getFacility(w http.ResponseWriter, r *http.Request) {
	view, ok := facility.ParseView(r.URL.Query().Get("view"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_view", "view must be current or selected")
		return
	}
	agg := h.store.Get(view)
	if agg.FacilityID != chi.URLParam(r, "id") {
		writeError(w, http.StatusNotFound, "facility_not_loaded", "facility is not loaded in the "+view.String()+" view")
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *handlers) selectFacility(w http.ResponseWriter, r *http.Request) {
	role, ok := h.actorRole(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_role", "X-Actor-Role is missing or unknown")
		return
	}

	err := h.store.Load(r.Context(), facility.Selected, chi.URLParam(r, "id"), role)
	switch {
	case err == nil:
		h.metrics.ObserveAggregateLoad(facility.Selected.String(), metrics.OutcomeSuccess)
	case errors.Is(err, facility.ErrSuperseded):
		h.metrics.ObserveAggregateLoad(facility.Selected.String(), metrics.OutcomeRejected)
		handleError(w, err)
		return
	default:
		// partial failures still populate the aggregate; the error fields say what is missing
		h.metrics.ObserveAggregateLoad(facility.Selected.String(), metrics.OutcomePartial)
	}
	writeJSON(w, http.StatusOK, h.store.Selected())
}

func (h *handlers) clearSelected(w http.ResponseWriter, r *http.Request) {
	h.store.ClearSelected()
	w.WriteHeader(http.StatusNoContent)
}

func outcomeOf(err error) string {
	if status, _ := errorStatus(err); status < 500 {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}
