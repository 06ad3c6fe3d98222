package facility

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/permission"
)

// View names one of the two aggregates held by the store.
type View int

const (
	// Current is the signed-in actor's own facility.
	Current View = iota
	// Selected is a facility being browsed or administered.
	Selected
)

func (v View) String() string {
	if v == Selected {
		return "selected"
	}
	return "current"
}

func ParseView(s string) (View, bool) {
	switch strings.ToLower(s) {
	case "", "current":
		return Current, true
	case "selected":
		return Selected, true
	}
	return Current, false
}

var views = []View{Current, Selected}

// ErrSuperseded is returned by Load when a newer Load or a Clear replaced
// the aggregate before the fetches settled. Its results were discarded.
var ErrSuperseded = errors.New("facility load superseded")

// Store caches the current and selected facility aggregates. All writes go
// through its named mutations; a mutation applies to every view holding the
// addressed facility and to no other.
type Store struct {
	mu      sync.RWMutex
	aggs    [2]Aggregate
	gens    [2]uint64
	fetcher Fetcher
	logger  zerolog.Logger
}

func NewStore(fetcher Fetcher, logger zerolog.Logger) *Store {
	return &Store{fetcher: fetcher, logger: logger}
}

type fetch struct {
	name string
	run  func(ctx context.Context) (func(*Aggregate), error)
}

// Load fetches the facility into view. Profile, services and staff are
// always requested; patients and appointments only for roles that can see
// the roster, users only for admins. Fetches run in parallel and a failed
// one does not stop the others. Loading is cleared once all have settled.
func (s *Store) Load(ctx context.Context, view View, facilityID string, role permission.Role) error {
	if facilityID == "" {
		return errors.New("facility id is required")
	}

	s.mu.Lock()
	s.gens[view]++
	gen := s.gens[view]
	prev := s.aggs[view]
	next := Aggregate{FacilityID: facilityID, Loading: true}
	if prev.FacilityID == facilityID {
		next = prev.clone()
		next.Loading = true
		next.Error = ""
		next.FetchErrors = nil
		// drop what this role does not fetch so an earlier load cannot leak it
		if !permission.CanViewFacilityRoster(role) {
			next.Patients = nil
			next.Appointments = nil
		}
		if !permission.CanManageUsers(role) {
			next.Users = nil
		}
	}
	s.aggs[view] = next
	s.mu.Unlock()

	fetches := s.fetchesFor(facilityID, role)

	var (
		g      errgroup.Group
		errMu  sync.Mutex
		failed = make(map[string]error)
	)
	for _, f := range fetches {
		g.Go(func() error {
			apply, err := f.run(ctx)
			if err != nil {
				errMu.Lock()
				failed[f.name] = err
				errMu.Unlock()
				s.logger.Warn().Err(err).
					Str("facility_id", facilityID).
					Str("fetch", f.name).
					Str("view", view.String()).
					Msg("facility sub-fetch failed")
				return nil
			}
			s.mu.Lock()
			if s.gens[view] == gen {
				apply(&s.aggs[view])
			}
			s.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, 0, len(names))
	msgs := make([]string, 0, len(names))
	fetchErrors := make(map[string]string, len(names))
	for _, name := range names {
		err := fmt.Errorf("load %s: %w", name, failed[name])
		errs = append(errs, err)
		msgs = append(msgs, err.Error())
		fetchErrors[name] = appointment.Message(failed[name])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[view] != gen {
		return ErrSuperseded
	}
	agg := &s.aggs[view]
	agg.Loading = false
	if len(errs) > 0 {
		agg.Error = strings.Join(msgs, "; ")
		agg.FetchErrors = fetchErrors
	}
	return errors.Join(errs...)
}

func (s *Store) fetchesFor(facilityID string, role permission.Role) []fetch {
	fetches := []fetch{
		{"facility", func(ctx context.Context) (func(*Aggregate), error) {
			f, err := s.fetcher.GetFacility(ctx, facilityID)
			return func(a *Aggregate) { a.Facility = f }, err
		}},
		{"services", func(ctx context.Context) (func(*Aggregate), error) {
			v, err := s.fetcher.ListServices(ctx, facilityID)
			return func(a *Aggregate) { a.Services = v }, err
		}},
		{"staff", func(ctx context.Context) (func(*Aggregate), error) {
			v, err := s.fetcher.ListStaff(ctx, facilityID)
			return func(a *Aggregate) { a.Staff = v }, err
		}},
	}
	if permission.CanViewFacilityRoster(role) {
		fetches = append(fetches,
			fetch{"patients", func(ctx context.Context) (func(*Aggregate), error) {
				v, err := s.fetcher.ListPatients(ctx, facilityID)
				return func(a *Aggregate) { a.Patients = v }, err
			}},
			fetch{"appointments", func(ctx context.Context) (func(*Aggregate), error) {
				v, err := s.fetcher.ListByFacility(ctx, facilityID)
				for i := range v {
					v[i].Normalize()
				}
				return func(a *Aggregate) { a.Appointments = v }, err
			}},
		)
	}
	if permission.CanManageUsers(role) {
		fetches = append(fetches, fetch{"users", func(ctx context.Context) (func(*Aggregate), error) {
			v, err := s.fetcher.ListUsers(ctx, facilityID)
			return func(a *Aggregate) { a.Users = v }, err
		}})
	}
	return fetches
}

// Get returns a copy of view's aggregate.
func (s *Store) Get(view View) Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aggs[view].clone()
}

func (s *Store) Current() Aggregate  { return s.Get(Current) }
func (s *Store) Selected() Aggregate { return s.Get(Selected) }

// Holds returns the views currently holding facilityID.
func (s *Store) Holds(facilityID string) []View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []View
	for _, v := range views {
		if facilityID != "" && s.aggs[v].FacilityID == facilityID {
			out = append(out, v)
		}
	}
	return out
}

// FindAppointment looks id up in both views, current first.
func (s *Store) FindAppointment(id string) (appointment.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range views {
		for _, a := range s.aggs[v].Appointments {
			if a.ID == id {
				return a, true
			}
		}
	}
	return appointment.Appointment{}, false
}

// Clear empties both views and orphans any load in flight.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range views {
		s.gens[v]++
		s.aggs[v] = Aggregate{}
	}
}

// ClearSelected tears down the selected view only.
func (s *Store) ClearSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[Selected]++
	s.aggs[Selected] = Aggregate{}
}

func (s *Store) AddService(facilityID string, svc appointment.Service) {
	s.apply(facilityID, func(a *Aggregate) {
		a.Services = upsert(a.Services, svc, func(x appointment.Service) string { return x.ID })
	})
}

func (s *Store) UpdateService(facilityID string, svc appointment.Service) {
	s.apply(facilityID, func(a *Aggregate) {
		a.Services = replace(a.Services, svc, func(x appointment.Service) string { return x.ID })
	})
}

func (s *Store) RemoveService(facilityID, serviceID string) {
	s.apply(facilityID, func(a *Aggregate) {
		a.Services = remove(a.Services, serviceID, func(x appointment.Service) string { return x.ID })
	})
}

func (s *Store) AddAppointment(facilityID string, appt appointment.Appointment) {
	s.apply(facilityID, func(a *Aggregate) {
		a.Appointments = upsert(a.Appointments, appt, apptID)
	})
}

func (s *Store) UpdateAppointment(facilityID string, appt appointment.Appointment) {
	s.apply(facilityID, func(a *Aggregate) {
		a.Appointments = replace(a.Appointments, appt, apptID)
	})
}

func (s *Store) RemoveAppointment(facilityID, appointmentID string) {
	s.apply(facilityID, func(a *Aggregate) {
		a.Appointments = remove(a.Appointments, appointmentID, apptID)
	})
}

// SetAppointments replaces the appointment list after a refetch.
func (s *Store) SetAppointments(facilityID string, appts []appointment.Appointment) {
	s.apply(facilityID, func(a *Aggregate) {
		a.Appointments = cloneSlice(appts)
	})
}

// apply runs fn against every view holding facilityID. Each view gets its
// own slices, so views never share backing arrays.
func (s *Store) apply(facilityID string, fn func(*Aggregate)) {
	if facilityID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range views {
		if s.aggs[v].FacilityID == facilityID {
			fn(&s.aggs[v])
		}
	}
}

func apptID(a appointment.Appointment) string { return a.ID }

func upsert[T any](items []T, item T, id func(T) string) []T {
	out := make([]T, 0, len(items)+1)
	found := false
	for _, x := range items {
		if id(x) == id(item) {
			out = append(out, item)
			found = true
			continue
		}
		out = append(out, x)
	}
	if !found {
		out = append(out, item)
	}
	return out
}

func replace[T any](items []T, item T, id func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, x := range items {
		if id(x) == id(item) {
			out = append(out, item)
			continue
		}
		out = append(out, x)
	}
	return out
}

func remove[T any](items []T, target string, id func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, x := range items {
		if id(x) != target {
			out = append(out, x)
		}
	}
	return out
}
