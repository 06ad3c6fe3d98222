package appointment

import (
	"context"
)

// Backend is the REST surface the state machine drives. The backend is the
// source of truth; every method returns the server's view of the record.
type Backend interface {
	ListByPractitioner(ctx context.Context, practitionerID string) ([]Appointment, error)
	ListByFacility(ctx context.Context, facilityID string) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]Appointment, error)

	Book(ctx context.Context, req BookRequest) (*Appointment, error)
	BookWithCash(ctx context.Context, req CashBookRequest) (*Appointment, error)
	Cancel(ctx context.Context, id string) (*Appointment, error)
	Reschedule(ctx context.Context, id, dateTime string) (*Appointment, error)
	Complete(ctx context.Context, id string) (*Appointment, error)
}

// Cache is the facility aggregate store as seen by the state machine.
// Writes addressed to a facility the cache does not hold are dropped.
type Cache interface {
	AddAppointment(facilityID string, appt Appointment)
	UpdateAppointment(facilityID string, appt Appointment)
	SetAppointments(facilityID string, appts []Appointment)
}

// EventRecorder persists the audit trail of successful transitions.
type EventRecorder interface {
	InsertEvent(ctx context.Context, ev EventLog) error
}

type nopRecorder struct{}

func (nopRecorder) InsertEvent(context.Context, EventLog) error { return nil }
