package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/backend"
	"github.com/hackgods/facility-booking/internal/facility"
	redisclient "github.com/hackgods/facility-booking/internal/redis"
	"github.com/hackgods/facility-booking/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// errorStatus maps an operation error onto the gateway's status and code.
func errorStatus(err error) (int, string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return http.StatusConflict, "operation_in_progress"
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		return http.StatusConflict, "invalid_status_transition"
	case errors.Is(err, appointment.ErrInvalidDateTime),
		errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, schedule.ErrInvalidTime):
		return http.StatusBadRequest, "invalid_datetime"
	case errors.Is(err, schedule.ErrNoDate):
		return http.StatusBadRequest, "missing_date"
	case errors.Is(err, appointment.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, appointment.ErrMissingPractitioner),
		errors.Is(err, appointment.ErrMissingService),
		errors.Is(err, appointment.ErrMissingAppointment):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, facility.ErrSuperseded):
		return http.StatusConflict, "load_superseded"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode, "backend_rejected"
		}
		return http.StatusBadGateway, "backend_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// handleError writes err with the message a user should see.
func handleError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	details := appointment.Message(err)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		details = "the same operation is already being processed, please retry shortly"
	}
	writeError(w, status, code, details)
}
