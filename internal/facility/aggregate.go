package facility

import (
	"context"

	"github.com/hackgods/facility-booking/internal/appointment"
)

// User is a login attached to a facility, listed for admin screens.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Aggregate bundles one facility's record with its collections.
type Aggregate struct {
	FacilityID   string                     `json:"facilityId"`
	Facility     *appointment.Facility      `json:"facility"`
	Patients     []appointment.Patient      `json:"patients"`
	Services     []appointment.Service      `json:"services"`
	Staff        []appointment.Practitioner `json:"staff"`
	Appointments []appointment.Appointment  `json:"appointments"`
	Users        []User                     `json:"users"`
	Loading      bool                       `json:"loading"`

	// Error is set when any sub-fetch of the last load failed; FetchErrors
	// names which ones.
	Error       string            `json:"error,omitempty"`
	FetchErrors map[string]string `json:"fetchErrors,omitempty"`
}

func (a Aggregate) IsEmpty() bool {
	return a.FacilityID == ""
}

func (a Aggregate) clone() Aggregate {
	out := a
	if a.Facility != nil {
		f := *a.Facility
		out.Facility = &f
	}
	out.Patients = cloneSlice(a.Patients)
	out.Services = cloneSlice(a.Services)
	out.Staff = cloneSlice(a.Staff)
	out.Appointments = cloneSlice(a.Appointments)
	out.Users = cloneSlice(a.Users)
	if a.FetchErrors != nil {
		out.FetchErrors = make(map[string]string, len(a.FetchErrors))
		for k, v := range a.FetchErrors {
			out.FetchErrors[k] = v
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

// Fetcher is the read side of the backend feeding an aggregate.
type Fetcher interface {
	GetFacility(ctx context.Context, facilityID string) (*appointment.Facility, error)
	ListServices(ctx context.Context, facilityID string) ([]appointment.Service, error)
	ListStaff(ctx context.Context, facilityID string) ([]appointment.Practitioner, error)
	ListPatients(ctx context.Context, facilityID string) ([]appointment.Patient, error)
	ListByFacility(ctx context.Context, facilityID string) ([]appointment.Appointment, error)
	ListUsers(ctx context.Context, facilityID string) ([]User, error)
}
