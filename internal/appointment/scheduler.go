package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/facility-booking/internal/schedule"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentBookedCash  = "APPOINTMENT_BOOKED_CASH"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
)

// Callbacks lets a screen react to the outcome of a transition. Both are
// optional; the returned error carries the same information.
type Callbacks struct {
	OnSuccess func(Appointment)
	OnError   func(message string)
}

type Option func(*Scheduler)

func WithEventRecorder(rec EventRecorder) Option {
	return func(s *Scheduler) {
		if rec != nil {
			s.events = rec
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler drives the appointment lifecycle. Every transition calls the
// backend first and only patches the cache once the call succeeded.
type Scheduler struct {
	backend Backend
	cache   Cache
	events  EventRecorder
	ops     *Tracker
	logger  zerolog.Logger
}

func NewScheduler(backend Backend, cache Cache, opts ...Option) *Scheduler {
	s := &Scheduler{
		backend: backend,
		cache:   cache,
		events:  nopRecorder{},
		ops:     NewTracker(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loading reports whether op is in flight.
func (s *Scheduler) Loading(op Operation) bool { return s.ops.Loading(op) }

// LastError returns the message of op's last failure, cleared on the next
// attempt.
func (s *Scheduler) LastError(op Operation) string { return s.ops.LastError(op) }

// Book creates a pending appointment. The cache update is scoped to the
// facility the backend reports; facilityID is used only when it reports none.
func (s *Scheduler) Book(ctx context.Context, facilityID string, req BookRequest, cb Callbacks) (*Appointment, error) {
	return s.run(ctx, OpBook, cb, func() (*Appointment, error) {
		if err := validateBooking(req); err != nil {
			return nil, err
		}

		created, err := s.backend.Book(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("book appointment: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		appt := bookedAppointment(created, req)
		facilityID = ownerFacility(&appt, facilityID)
		s.cache.AddAppointment(facilityID, appt)

		s.logEvent(ctx, appt, facilityID, EventAppointmentBooked, map[string]any{
			"practitioner_id": req.PractitionerID,
			"service_id":      req.ServiceID,
			"date_time":       req.DateTime,
		})
		return &appt, nil
	})
}

// BookWithCash books and records a cash payment in one round trip. No online
// payment flow is involved.
func (s *Scheduler) BookWithCash(ctx context.Context, facilityID string, req BookRequest, amount float64, cb Callbacks) (*Appointment, error) {
	return s.run(ctx, OpBookCash, cb, func() (*Appointment, error) {
		if err := validateBooking(req); err != nil {
			return nil, err
		}
		if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return nil, ErrInvalidAmount
		}

		created, err := s.backend.BookWithCash(ctx, CashBookRequest{
			BookRequest:   req,
			Amount:        amount,
			PaymentMethod: PaymentCash,
		})
		if err != nil {
			return nil, fmt.Errorf("book appointment with cash: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		appt := bookedAppointment(created, req)
		appt.PaymentMethod = PaymentCash
		if appt.PaymentAmount == 0 {
			appt.PaymentAmount = amount
		}
		facilityID = ownerFacility(&appt, facilityID)
		s.cache.AddAppointment(facilityID, appt)

		s.logEvent(ctx, appt, facilityID, EventAppointmentBookedCash, map[string]any{
			"practitioner_id": req.PractitionerID,
			"service_id":      req.ServiceID,
			"date_time":       req.DateTime,
			"amount":          amount,
		})
		return &appt, nil
	})
}

// Cancel moves a non-terminal appointment to cancelled.
func (s *Scheduler) Cancel(ctx context.Context, appt Appointment, cb Callbacks) (*Appointment, error) {
	return s.run(ctx, OpCancel, cb, func() (*Appointment, error) {
		if err := checkTransition(appt, StatusCancelled); err != nil {
			return nil, err
		}

		resp, err := s.backend.Cancel(ctx, appt.ID)
		if err != nil {
			return nil, fmt.Errorf("cancel appointment: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		updated := appt
		updated.Status = StatusCancelled
		updated.UpdatedAt = serverUpdatedAt(resp)
		s.cache.UpdateAppointment(appt.Facility.ID(), updated)

		s.logEvent(ctx, updated, appt.Facility.ID(), EventAppointmentCancelled, map[string]any{
			"from": string(appt.Status),
		})
		return &updated, nil
	})
}

// Reschedule moves the appointment to dateTime (as produced by
// schedule.Combine). The status is left as is.
func (s *Scheduler) Reschedule(ctx context.Context, appt Appointment, dateTime string, cb Callbacks) (*Appointment, error) {
	return s.run(ctx, OpReschedule, cb, func() (*Appointment, error) {
		if appt.ID == "" {
			return nil, ErrMissingAppointment
		}
		date, clock, ok := schedule.Split(dateTime)
		if !ok {
			return nil, ErrInvalidDateTime
		}
		if appt.Status.Terminal() {
			return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidStatusTransition, appt.Status)
		}

		resp, err := s.backend.Reschedule(ctx, appt.ID, dateTime)
		if err != nil {
			return nil, fmt.Errorf("reschedule appointment: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		updated := appt
		updated.Date = date
		updated.Time = clock
		updated.UpdatedAt = serverUpdatedAt(resp)
		s.cache.UpdateAppointment(appt.Facility.ID(), updated)

		s.logEvent(ctx, updated, appt.Facility.ID(), EventAppointmentRescheduled, map[string]any{
			"from": schedule.Combine(appt.Date, appt.Time),
			"to":   dateTime,
		})
		return &updated, nil
	})
}

// Complete moves a non-terminal appointment to completed.
func (s *Scheduler) Complete(ctx context.Context, appt Appointment, cb Callbacks) (*Appointment, error) {
	return s.run(ctx, OpComplete, cb, func() (*Appointment, error) {
		if err := checkTransition(appt, StatusCompleted); err != nil {
			return nil, err
		}

		resp, err := s.backend.Complete(ctx, appt.ID)
		if err != nil {
			return nil, fmt.Errorf("complete appointment: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		updated := appt
		updated.Status = StatusCompleted
		updated.UpdatedAt = serverUpdatedAt(resp)
		s.cache.UpdateAppointment(appt.Facility.ID(), updated)

		s.logEvent(ctx, updated, appt.Facility.ID(), EventAppointmentCompleted, map[string]any{
			"from": string(appt.Status),
		})
		return &updated, nil
	})
}

// Refresh refetches a facility's appointments and replaces the cached list.
func (s *Scheduler) Refresh(ctx context.Context, facilityID string) ([]Appointment, error) {
	s.ops.start(OpRefresh)
	appts, err := s.ListForFacility(ctx, facilityID)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.ops.finish(OpRefresh, Message(err))
		return nil, err
	}
	s.cache.SetAppointments(facilityID, appts)
	s.ops.finish(OpRefresh, "")
	return appts, nil
}

func (s *Scheduler) ListForPractitioner(ctx context.Context, practitionerID string) ([]Appointment, error) {
	appts, err := s.backend.ListByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("list practitioner appointments: %w", err)
	}
	return normalized(appts), nil
}

func (s *Scheduler) ListForFacility(ctx context.Context, facilityID string) ([]Appointment, error) {
	appts, err := s.backend.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("list facility appointments: %w", err)
	}
	return normalized(appts), nil
}

func (s *Scheduler) ListForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	appts, err := s.backend.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return normalized(appts), nil
}

// Availability returns the grid for date split into booked and available
// slots for a practitioner. No request is made until a date is chosen.
func (s *Scheduler) Availability(ctx context.Context, practitionerID, date string, grid schedule.Grid, opts ...schedule.FilterOption) (schedule.Availability, error) {
	if date == "" {
		return schedule.Availability{}, schedule.ErrNoDate
	}
	appts, err := s.ListForPractitioner(ctx, practitionerID)
	if err != nil {
		return schedule.Availability{}, err
	}
	return schedule.Compute(date, appts, grid.Slots(), opts...)
}

// PatientAvailability is the reschedule-for-self variant: slots are excluded
// against the patient's own appointments.
func (s *Scheduler) PatientAvailability(ctx context.Context, patientID, date string, grid schedule.Grid, opts ...schedule.FilterOption) (schedule.Availability, error) {
	if date == "" {
		return schedule.Availability{}, schedule.ErrNoDate
	}
	appts, err := s.ListForPatient(ctx, patientID)
	if err != nil {
		return schedule.Availability{}, err
	}
	return schedule.Compute(date, appts, grid.Slots(), opts...)
}

func (s *Scheduler) run(ctx context.Context, op Operation, cb Callbacks, fn func() (*Appointment, error)) (*Appointment, error) {
	s.ops.start(op)

	appt, err := fn()
	if err != nil {
		msg := Message(err)
		s.ops.finish(op, msg)
		if IsLocal(err) {
			s.logger.Debug().Str("op", string(op)).Err(err).Msg("appointment operation rejected locally")
		} else {
			s.logger.Warn().Str("op", string(op)).Err(err).Msg("appointment operation failed")
		}
		if cb.OnError != nil {
			cb.OnError(msg)
		}
		return nil, err
	}

	s.ops.finish(op, "")
	if cb.OnSuccess != nil {
		cb.OnSuccess(*appt)
	}
	return appt, nil
}

func (s *Scheduler) logEvent(ctx context.Context, appt Appointment, facilityID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appt.ID,
		FacilityID:    facilityID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.events.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appt.ID).
			Msg("failed to insert event log")
	}
}

func validateBooking(req BookRequest) error {
	if req.PractitionerID == "" {
		return ErrMissingPractitioner
	}
	if req.ServiceID == "" {
		return ErrMissingService
	}
	if _, _, ok := schedule.Split(req.DateTime); !ok {
		return ErrInvalidDateTime
	}
	return nil
}

func checkTransition(appt Appointment, to Status) error {
	if appt.ID == "" {
		return ErrMissingAppointment
	}
	if appt.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}
	return nil
}

// bookedAppointment fills what a sparse backend response leaves out.
func bookedAppointment(created *Appointment, req BookRequest) Appointment {
	var appt Appointment
	if created != nil {
		appt = *created
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if appt.Practitioner.IsZero() {
		appt.Practitioner = RefTo[Practitioner](req.PractitionerID)
	}
	if appt.Service.IsZero() {
		appt.Service = RefTo[Service](req.ServiceID)
	}
	if appt.Patient.IsZero() && req.PatientID != "" {
		appt.Patient = RefTo[Patient](req.PatientID)
	}
	if appt.Notes == "" {
		appt.Notes = req.Notes
	}
	if appt.Date == "" || appt.Time == "" {
		appt.Date, appt.Time, _ = schedule.Split(req.DateTime)
	}
	appt.Normalize()
	return appt
}

func serverUpdatedAt(resp *Appointment) time.Time {
	if resp != nil && !resp.UpdatedAt.IsZero() {
		return resp.UpdatedAt
	}
	return time.Now()
}

func normalized(appts []Appointment) []Appointment {
	for i := range appts {
		appts[i].Normalize()
	}
	return appts
}

// ownerFacility returns the facility the backend filed appt under, falling
// back to requested and recording it on appt when the response had none.
func ownerFacility(appt *Appointment, requested string) string {
	if id := appt.Facility.ID(); id != "" {
		return id
	}
	if requested != "" {
		appt.Facility = RefTo[Facility](requested)
	}
	return requested
}
