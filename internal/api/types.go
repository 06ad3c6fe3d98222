package api

import (
	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/permission"
)

// BookRequest accepts either a combined dateTime or separate date and time.
type BookRequest struct {
	FacilityID     string  `json:"facilityId"`
	PractitionerID string  `json:"chiropractorId"`
	DateTime       string  `json:"dateTime"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	ServiceID      string  `json:"serviceId"`
	Notes          string  `json:"notes"`
	PatientID      string  `json:"patientId"`
	Amount         float64 `json:"amount"`
}

type RescheduleRequest struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

type SlotsResponse struct {
	PractitionerID string   `json:"practitionerId"`
	Date           string   `json:"date"`
	Interval       string   `json:"interval"`
	Booked         []string `json:"booked"`
	Available      []string `json:"available"`
}

type PermissionsResponse struct {
	AppointmentID string              `json:"appointmentId"`
	Status        appointment.Status  `json:"status"`
	Role          permission.Role     `json:"role"`
	Allowed       []permission.Action `json:"allowed"`
	CanCancel     bool                `json:"canCancel"`
	CanReschedule bool                `json:"canReschedule"`
	CanComplete   bool                `json:"canComplete"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
