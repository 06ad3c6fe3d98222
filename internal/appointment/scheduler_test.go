package appointment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/facility-booking/internal/schedule"
)

func pendingAppointment() Appointment {
	return Appointment{
		ID:           "appt-1",
		Facility:     RefTo[Facility]("fac-1"),
		Practitioner: RefTo[Practitioner]("prac-1"),
		Date:         "2024-06-01",
		Time:         "10:00",
		Status:       StatusPending,
	}
}

func TestScheduler_Cancel_PatchesCache(t *testing.T) {
	backend := newFakeBackend()
	cache := &fakeCache{}
	rec := &fakeRecorder{}
	svc := NewScheduler(backend, cache, WithEventRecorder(rec))

	var succeeded *Appointment
	got, err := svc.Cancel(context.Background(), pendingAppointment(), Callbacks{
		OnSuccess: func(a Appointment) { succeeded = &a },
		OnError:   func(string) { t.Fatal("OnError must not be called") },
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, succeeded)
	assert.Equal(t, StatusCancelled, succeeded.Status)
	require.Len(t, cache.writes, 1)
	assert.Equal(t, "update", cache.writes[0].kind)
	assert.Equal(t, "fac-1", cache.writes[0].facilityID)
	assert.Equal(t, StatusCancelled, cache.writes[0].appts[0].Status)
	assert.False(t, svc.Loading(OpCancel))
	assert.Empty(t, svc.LastError(OpCancel))

	require.Len(t, rec.events, 1)
	assert.Equal(t, EventAppointmentCancelled, rec.events[0].EventType)
	assert.Equal(t, "appt-1", rec.events[0].AppointmentID)
	assert.JSONEq(t, `{"from":"pending"}`, string(rec.events[0].Payload))
}

func TestScheduler_LoadingWhileInFlight(t *testing.T) {
	backend := newFakeBackend()
	backend.entered = make(chan string, 1)
	backend.gate = make(chan struct{})
	svc := NewScheduler(backend, &fakeCache{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Cancel(context.Background(), pendingAppointment(), Callbacks{})
		done <- err
	}()

	assert.Equal(t, "cancel", <-backend.entered)
	assert.True(t, svc.Loading(OpCancel))
	assert.False(t, svc.Loading(OpComplete))

	close(backend.gate)
	require.NoError(t, <-done)
	assert.False(t, svc.Loading(OpCancel))
}

func TestScheduler_TerminalStatusesRejectedLocally(t *testing.T) {
	for _, status := range []Status{StatusCancelled, StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			backend := newFakeBackend()
			cache := &fakeCache{}
			svc := NewScheduler(backend, cache)

			appt := pendingAppointment()
			appt.Status = status

			var msgs []string
			cb := Callbacks{OnError: func(m string) { msgs = append(msgs, m) }}

			_, err := svc.Cancel(context.Background(), appt, cb)
			assert.ErrorIs(t, err, ErrInvalidStatusTransition)
			_, err = svc.Complete(context.Background(), appt, cb)
			assert.ErrorIs(t, err, ErrInvalidStatusTransition)
			_, err = svc.Reschedule(context.Background(), appt, "2024-06-02T11:00:00.000", cb)
			assert.ErrorIs(t, err, ErrInvalidStatusTransition)

			assert.Empty(t, backend.calls)
			assert.Empty(t, cache.writes)
			assert.Len(t, msgs, 3)
		})
	}
}

func TestScheduler_BackendFailureSurfacesMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.err = &apiErr{msg: "Appointment not found"}
	cache := &fakeCache{}
	rec := &fakeRecorder{}
	svc := NewScheduler(backend, cache, WithEventRecorder(rec))

	var msg string
	_, err := svc.Complete(context.Background(), pendingAppointment(), Callbacks{
		OnError: func(m string) { msg = m },
	})
	require.Error(t, err)
	assert.Equal(t, "Appointment not found", msg)
	assert.Equal(t, "Appointment not found", svc.LastError(OpComplete))
	assert.False(t, svc.Loading(OpComplete))
	assert.Empty(t, cache.writes)
	assert.Empty(t, rec.events)
}

func TestScheduler_TransportFailureUsesGenericMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errTransport
	svc := NewScheduler(backend, &fakeCache{})

	var msg string
	_, err := svc.Cancel(context.Background(), pendingAppointment(), Callbacks{OnError: func(m string) { msg = m }})
	assert.ErrorIs(t, err, errTransport)
	assert.Equal(t, GenericErrorMessage, msg)
}

func TestScheduler_ErrorClearedOnNextAttempt(t *testing.T) {
	backend := newFakeBackend()
	backend.err = &apiErr{msg: "try later"}
	svc := NewScheduler(backend, &fakeCache{})

	_, err := svc.Cancel(context.Background(), pendingAppointment(), Callbacks{})
	require.Error(t, err)
	assert.Equal(t, "try later", svc.LastError(OpCancel))

	backend.err = nil
	_, err = svc.Cancel(context.Background(), pendingAppointment(), Callbacks{})
	require.NoError(t, err)
	assert.Empty(t, svc.LastError(OpCancel))
}

func TestScheduler_Reschedule(t *testing.T) {
	backend := newFakeBackend()
	cache := &fakeCache{}
	svc := NewScheduler(backend, cache)

	appt := pendingAppointment()
	appt.Status = StatusConfirmed

	got, err := svc.Reschedule(context.Background(), appt, schedule.Combine("2024-06-03", "14:00"), Callbacks{})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-03T14:00:00.000", backend.lastResched)
	assert.Equal(t, "2024-06-03", got.Date)
	assert.Equal(t, "14:00", got.Time)
	assert.Equal(t, StatusConfirmed, got.Status)
	require.Len(t, cache.writes, 1)
	assert.Equal(t, "2024-06-03", cache.writes[0].appts[0].Date)
}

func TestScheduler_Reschedule_InvalidTimestamp(t *testing.T) {
	backend := newFakeBackend()
	svc := NewScheduler(backend, &fakeCache{})

	var msg string
	_, err := svc.Reschedule(context.Background(), pendingAppointment(), schedule.Combine("", "10:00"), Callbacks{
		OnError: func(m string) { msg = m },
	})
	assert.ErrorIs(t, err, ErrInvalidDateTime)
	assert.Equal(t, ErrInvalidDateTime.Error(), msg)
	assert.Empty(t, backend.calls)
}

func TestScheduler_Book(t *testing.T) {
	backend := newFakeBackend()
	backend.bookResp = &Appointment{
		ID:       "new-1",
		Facility: RefTo[Facility]("fac-9"),
		Date:     "2024-06-01T00:00:00.000Z",
		Time:     "2:00:00 PM",
	}
	cache := &fakeCache{}
	svc := NewScheduler(backend, cache)

	req := BookRequest{
		PractitionerID: "prac-1",
		ServiceID:      "svc-1",
		DateTime:       schedule.Combine("2024-06-01", "14:00"),
		Notes:          "first visit",
	}
	got, err := svc.Book(context.Background(), "", req, Callbacks{})
	require.NoError(t, err)

	assert.Equal(t, req, backend.lastBook)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "2024-06-01", got.Date)
	assert.Equal(t, "14:00", got.Time)
	assert.Equal(t, "prac-1", got.Practitioner.ID())
	assert.Equal(t, "first visit", got.Notes)
	require.Len(t, cache.writes, 1)
	assert.Equal(t, "add", cache.writes[0].kind)
	assert.Equal(t, "fac-9", cache.writes[0].facilityID)
}

func TestScheduler_Book_CachesUnderBackendFacility(t *testing.T) {
	backend := newFakeBackend()
	backend.bookResp = &Appointment{ID: "new-2", Facility: RefTo[Facility]("fac-2")}
	cache := &fakeCache{}
	svc := NewScheduler(backend, cache)

	req := BookRequest{PractitionerID: "prac-2", ServiceID: "svc-2", DateTime: "2024-06-01T10:00:00.000"}
	got, err := svc.Book(context.Background(), "fac-1", req, Callbacks{})
	require.NoError(t, err)

	assert.Equal(t, "fac-2", got.Facility.ID())
	require.Len(t, cache.writes, 1)
	assert.Equal(t, "fac-2", cache.writes[0].facilityID)
}

func TestScheduler_Book_LocalValidation(t *testing.T) {
	valid := BookRequest{PractitionerID: "p", ServiceID: "s", DateTime: "2024-06-01T10:00:00.000"}

	tests := []struct {
		name    string
		mutate  func(*BookRequest)
		wantErr error
	}{
		{"missing practitioner", func(r *BookRequest) { r.PractitionerID = "" }, ErrMissingPractitioner},
		{"missing service", func(r *BookRequest) { r.ServiceID = "" }, ErrMissingService},
		{"sentinel timestamp", func(r *BookRequest) { r.DateTime = schedule.InvalidDateTime }, ErrInvalidDateTime},
		{"empty timestamp", func(r *BookRequest) { r.DateTime = "" }, ErrInvalidDateTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			svc := NewScheduler(backend, &fakeCache{})
			req := valid
			tt.mutate(&req)

			_, err := svc.Book(context.Background(), "fac-1", req, Callbacks{})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, backend.calls)
			assert.False(t, svc.Loading(OpBook))
		})
	}
}

func TestScheduler_BookWithCash(t *testing.T) {
	backend := newFakeBackend()
	cache := &fakeCache{}
	svc := NewScheduler(backend, cache)

	req := BookRequest{PractitionerID: "prac-1", ServiceID: "svc-1", DateTime: "2024-06-01T09:00:00.000"}
	got, err := svc.BookWithCash(context.Background(), "fac-1", req, 75, Callbacks{})
	require.NoError(t, err)

	assert.Equal(t, PaymentCash, backend.lastCash.PaymentMethod)
	assert.Equal(t, 75.0, backend.lastCash.Amount)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PaymentCash, got.PaymentMethod)
	assert.Equal(t, 75.0, got.PaymentAmount)
	assert.Equal(t, []string{"book_cash"}, backend.calls)
	assert.Equal(t, "fac-1", got.Facility.ID())
	require.Len(t, cache.writes, 1)
	assert.Equal(t, "fac-1", cache.writes[0].facilityID)
}

func TestScheduler_BookWithCash_NegativeAmount(t *testing.T) {
	backend := newFakeBackend()
	svc := NewScheduler(backend, &fakeCache{})

	req := BookRequest{PractitionerID: "prac-1", ServiceID: "svc-1", DateTime: "2024-06-01T09:00:00.000"}
	_, err := svc.BookWithCash(context.Background(), "fac-1", req, -1, Callbacks{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, backend.calls)
}

func TestScheduler_CancelledContextDoesNotPatchCache(t *testing.T) {
	backend := newFakeBackend()
	cache := &fakeCache{}
	svc := NewScheduler(backend, cache)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Cancel(ctx, pendingAppointment(), Callbacks{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cache.writes)
}

func TestScheduler_Availability(t *testing.T) {
	backend := newFakeBackend()
	backend.byPractitioner["prac-x"] = []Appointment{
		{ID: "a1", Date: "2024-06-01", Time: "10:00", Status: StatusConfirmed},
		{ID: "a2", Date: "2024-06-01", Time: "11:00", Status: StatusCompleted},
		{ID: "a3", Date: "2024-06-01", Time: "12:00", Status: StatusCancelled},
		{ID: "a4", Date: "2024-06-01", Time: "1:00:00 PM", Status: StatusNoShow},
		{ID: "a5", Date: "2024-06-01", Time: "3:00:00 PM", Status: StatusPending},
	}
	svc := NewScheduler(backend, &fakeCache{})

	got, err := svc.Availability(context.Background(), "prac-x", "2024-06-01", schedule.Hourly)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "15:00"}, got.Booked)
	assert.Equal(t, []string{"09:00", "11:00", "12:00", "13:00", "14:00", "16:00"}, got.Available)
}

func TestScheduler_Availability_NoDateSkipsBackend(t *testing.T) {
	backend := newFakeBackend()
	svc := NewScheduler(backend, &fakeCache{})

	_, err := svc.Availability(context.Background(), "prac-x", "", schedule.Hourly)
	assert.ErrorIs(t, err, schedule.ErrNoDate)
	_, err = svc.PatientAvailability(context.Background(), "pat-1", "", schedule.Hourly)
	assert.ErrorIs(t, err, schedule.ErrNoDate)
	assert.Empty(t, backend.calls)
}

func TestScheduler_PatientAvailability(t *testing.T) {
	backend := newFakeBackend()
	backend.byPatient["pat-1"] = []Appointment{
		{ID: "a1", Date: "2024-06-01", Time: "09:00", Status: StatusPending},
		{ID: "a2", Date: "2024-06-01", Time: "10:00", Status: StatusConfirmed},
	}
	svc := NewScheduler(backend, &fakeCache{})

	got, err := svc.PatientAvailability(context.Background(), "pat-1", "2024-06-01", schedule.Hourly, schedule.ExcludingID("a1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, got.Booked)
	assert.Contains(t, got.Available, "09:00")
}

func TestScheduler_Refresh(t *testing.T) {
	backend := newFakeBackend()
	backend.byFacility["fac-1"] = []Appointment{{ID: "a1", Time: "9:00:00 AM"}}
	cache := &fakeCache{}
	svc := NewScheduler(backend, cache)

	appts, err := svc.Refresh(context.Background(), "fac-1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "09:00", appts[0].Time)
	require.Len(t, cache.writes, 1)
	assert.Equal(t, "set", cache.writes[0].kind)

	backend.err = &apiErr{msg: "Facility not found"}
	_, err = svc.Refresh(context.Background(), "fac-1")
	require.Error(t, err)
	assert.Equal(t, "Facility not found", svc.LastError(OpRefresh))
	assert.Len(t, cache.writes, 1)
}

func TestScheduler_EventRecorderFailureIsNotSurfaced(t *testing.T) {
	rec := &fakeRecorder{err: errTransport}
	svc := NewScheduler(newFakeBackend(), &fakeCache{}, WithEventRecorder(rec))

	_, err := svc.Complete(context.Background(), pendingAppointment(), Callbacks{})
	require.NoError(t, err)
	assert.Len(t, rec.events, 1)
}
