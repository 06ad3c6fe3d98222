// Package mockbackend is an in-memory stand-in for the booking REST API. It
// enforces the same authoritative rules as the real backend: slot conflicts
// on Pending/Confirmed appointments and no transitions out of Cancelled or
// Completed.
package mockbackend

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/facility"
	"github.com/hackgods/facility-booking/internal/schedule"
)

type facilityRecord struct {
	info     appointment.Facility
	services []appointment.Service
	staff    []appointment.Practitioner
	patients []appointment.Patient
	users    []facility.User
}

type Server struct {
	mu           sync.RWMutex
	facilities   map[string]*facilityRecord
	appointments map[string]appointment.Appointment
	order        []string
	tokens       map[string]string // bearer token -> patient id

	logger zerolog.Logger
	now    func() time.Time
}

func New(logger zerolog.Logger) *Server {
	return &Server{
		facilities:   make(map[string]*facilityRecord),
		appointments: make(map[string]appointment.Appointment),
		tokens:       make(map[string]string),
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requireBearer)

	r.Get("/facilities/{id}", s.getFacility)
	r.Get("/facilities/{id}/services", s.listServices)
	r.Get("/facilities/{id}/staff", s.listStaff)
	r.Get("/facilities/{id}/patients", s.listPatients)
	r.Get("/facilities/{id}/users", s.listUsers)

	r.Get("/appointments/chiropractor/{id}", s.listByPractitioner)
	r.Get("/appointments/facility/{id}", s.listByFacility)
	r.Get("/appointments/patient/{id}", s.listByPatient)
	r.Post("/appointments/book", s.book)
	r.Post("/appointments/book-cash", s.bookCash)
	r.Put("/appointments/cancel/{id}", s.cancel)
	r.Put("/appointments/reschedule/{id}", s.reschedule)
	r.Post("/appointments/completed/{id}", s.complete)

	return r
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) == "" {
			writeFailure(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (s *Server) AddFacility(f appointment.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facilityLocked(f.ID).info = f
}

func (s *Server) AddService(facilityID string, svc appointment.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.facilityLocked(facilityID)
	rec.services = append(rec.services, svc)
}

func (s *Server) AddStaff(facilityID string, p appointment.Practitioner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.facilityLocked(facilityID)
	rec.staff = append(rec.staff, p)
}

func (s *Server) AddPatient(facilityID string, p appointment.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.facilityLocked(facilityID)
	rec.patients = append(rec.patients, p)
}

func (s *Server) AddUser(facilityID string, u facility.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.facilityLocked(facilityID)
	rec.users = append(rec.users, u)
}

// AddAppointment stores a as-is, without the conflict check, so tests can set
// up data the booking endpoint would refuse.
func (s *Server) AddAppointment(a appointment.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.appointments[a.ID]; !exists {
		s.order = append(s.order, a.ID)
	}
	s.appointments[a.ID] = a
}

// RegisterToken makes bookings authenticated with token default to patientID.
func (s *Server) RegisterToken(token, patientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = patientID
}

func (s *Server) Appointment(id string) (appointment.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	return a, ok
}

// FacilityIDs lists known facilities in id order.
func (s *Server) FacilityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.facilities))
	for id := range s.facilities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) PatientIDs(facilityID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.facilities[facilityID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(rec.patients))
	for _, p := range rec.patients {
		ids = append(ids, p.ID)
	}
	return ids
}

func (s *Server) facilityLocked(id string) *facilityRecord {
	rec, ok := s.facilities[id]
	if !ok {
		rec = &facilityRecord{info: appointment.Facility{ID: id}}
		s.facilities[id] = rec
	}
	return rec
}

func (s *Server) filterAppointments(keep func(appointment.Appointment) bool) []appointment.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]appointment.Appointment, 0)
	for _, id := range s.order {
		if a := s.appointments[id]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// conflictLocked reports whether another blocking appointment already holds
// the practitioner's date and time.
func (s *Server) conflictLocked(practitionerID, date, clock, exceptID string) bool {
	for _, a := range s.appointments {
		if a.ID == exceptID || !a.Status.Blocking() {
			continue
		}
		if a.Practitioner.ID() != practitionerID {
			continue
		}
		d, _ := schedule.CalendarDate(a.Date)
		t, _ := schedule.NormalizeTime(a.Time)
		if d == date && t == clock {
			return true
		}
	}
	return false
}

// lookupLocked resolves a practitioner and service to the facility that
// employs the practitioner.
func (s *Server) lookupLocked(practitionerID, serviceID string) (*facilityRecord, *appointment.Practitioner, *appointment.Service) {
	for _, rec := range s.facilities {
		for i := range rec.staff {
			if rec.staff[i].ID != practitionerID {
				continue
			}
			for j := range rec.services {
				if rec.services[j].ID == serviceID {
					return rec, &rec.staff[i], &rec.services[j]
				}
			}
			return rec, &rec.staff[i], nil
		}
	}
	return nil, nil, nil
}

func (s *Server) patientLocked(id string) (appointment.Patient, bool) {
	for _, rec := range s.facilities {
		for _, p := range rec.patients {
			if p.ID == id {
				return p, true
			}
		}
	}
	return appointment.Patient{}, false
}
