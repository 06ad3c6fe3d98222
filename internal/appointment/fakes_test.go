package appointment

import (
	"context"
	"errors"
	"sync"
)

type apiErr struct{ msg string }

func (e *apiErr) Error() string       { return "backend: " + e.msg }
func (e *apiErr) UserMessage() string { return e.msg }

type fakeBackend struct {
	mu sync.Mutex

	byPractitioner map[string][]Appointment
	byPatient      map[string][]Appointment
	byFacility     map[string][]Appointment

	bookResp *Appointment
	err      error

	// entered receives each call name; gate, when set, blocks every call
	// until closed.
	entered chan string
	gate    chan struct{}

	calls       []string
	lastBook    BookRequest
	lastCash    CashBookRequest
	lastResched string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		byPractitioner: map[string][]Appointment{},
		byPatient:      map[string][]Appointment{},
		byFacility:     map[string][]Appointment{},
	}
}

func (f *fakeBackend) record(call string) error {
	if f.entered != nil {
		f.entered <- call
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeBackend) ListByPractitioner(_ context.Context, id string) ([]Appointment, error) {
	if err := f.record("list_practitioner"); err != nil {
		return nil, err
	}
	return append([]Appointment(nil), f.byPractitioner[id]...), nil
}

func (f *fakeBackend) ListByFacility(_ context.Context, id string) ([]Appointment, error) {
	if err := f.record("list_facility"); err != nil {
		return nil, err
	}
	return append([]Appointment(nil), f.byFacility[id]...), nil
}

func (f *fakeBackend) ListByPatient(_ context.Context, id string) ([]Appointment, error) {
	if err := f.record("list_patient"); err != nil {
		return nil, err
	}
	return append([]Appointment(nil), f.byPatient[id]...), nil
}

func (f *fakeBackend) Book(_ context.Context, req BookRequest) (*Appointment, error) {
	f.lastBook = req
	if err := f.record("book"); err != nil {
		return nil, err
	}
	if f.bookResp != nil {
		resp := *f.bookResp
		return &resp, nil
	}
	return &Appointment{ID: "new-1"}, nil
}

func (f *fakeBackend) BookWithCash(_ context.Context, req CashBookRequest) (*Appointment, error) {
	f.lastCash = req
	if err := f.record("book_cash"); err != nil {
		return nil, err
	}
	return &Appointment{ID: "cash-1", PaymentAmount: req.Amount}, nil
}

func (f *fakeBackend) Cancel(_ context.Context, id string) (*Appointment, error) {
	if err := f.record("cancel"); err != nil {
		return nil, err
	}
	return &Appointment{ID: id, Status: StatusCancelled}, nil
}

func (f *fakeBackend) Reschedule(_ context.Context, id, dateTime string) (*Appointment, error) {
	f.lastResched = dateTime
	if err := f.record("reschedule"); err != nil {
		return nil, err
	}
	return &Appointment{ID: id}, nil
}

func (f *fakeBackend) Complete(_ context.Context, id string) (*Appointment, error) {
	if err := f.record("complete"); err != nil {
		return nil, err
	}
	return &Appointment{ID: id, Status: StatusCompleted}, nil
}

type cacheWrite struct {
	kind       string
	facilityID string
	appts      []Appointment
}

type fakeCache struct {
	writes []cacheWrite
}

func (c *fakeCache) AddAppointment(facilityID string, appt Appointment) {
	c.writes = append(c.writes, cacheWrite{"add", facilityID, []Appointment{appt}})
}

func (c *fakeCache) UpdateAppointment(facilityID string, appt Appointment) {
	c.writes = append(c.writes, cacheWrite{"update", facilityID, []Appointment{appt}})
}

func (c *fakeCache) SetAppointments(facilityID string, appts []Appointment) {
	c.writes = append(c.writes, cacheWrite{"set", facilityID, appts})
}

type fakeRecorder struct {
	events []EventLog
	err    error
}

func (r *fakeRecorder) InsertEvent(_ context.Context, ev EventLog) error {
	r.events = append(r.events, ev)
	return r.err
}

var errTransport = errors.New("dial tcp: connection refused")
