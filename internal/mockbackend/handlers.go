package mockbackend

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/schedule"
)

type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successResponse{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(failureResponse{Success: false, Message: message})
}

func (s *Server) facilityOr404(w http.ResponseWriter, r *http.Request) (facilityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.facilities[chi.URLParam(r, "id")]
	if !ok {
		writeFailure(w, http.StatusNotFound, "Facility not found")
		return facilityRecord{}, false
	}
	return *rec, true
}

func (s *Server) getFacility(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.facilityOr404(w, r); ok {
		writeData(w, http.StatusOK, rec.info)
	}
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.facilityOr404(w, r); ok {
		writeData(w, http.StatusOK, nonNil(rec.services))
	}
}

func (s *Server) listStaff(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.facilityOr404(w, r); ok {
		writeData(w, http.StatusOK, nonNil(rec.staff))
	}
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.facilityOr404(w, r); ok {
		writeData(w, http.StatusOK, nonNil(rec.patients))
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.facilityOr404(w, r); ok {
		writeData(w, http.StatusOK, nonNil(rec.users))
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func (s *Server) listByPractitioner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeData(w, http.StatusOK, s.filterAppointments(func(a appointment.Appointment) bool {
		return a.Practitioner.ID() == id
	}))
}

func (s *Server) listByFacility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeData(w, http.StatusOK, s.filterAppointments(func(a appointment.Appointment) bool {
		return a.Facility.ID() == id
	}))
}

func (s *Server) listByPatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeData(w, http.StatusOK, s.filterAppointments(func(a appointment.Appointment) bool {
		return a.Patient.ID() == id
	}))
}

func (s *Server) book(w http.ResponseWriter, r *http.Request) {
	var req appointment.CashBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.create(w, r, req.BookRequest, nil)
}

func (s *Server) bookCash(w http.ResponseWriter, r *http.Request) {
	var req appointment.CashBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount < 0 {
		writeFailure(w, http.StatusBadRequest, "Invalid payment amount")
		return
	}
	amount := req.Amount
	s.create(w, r, req.BookRequest, &amount)
}

// create books req. A non-nil cash amount records a paid cash booking.
func (s *Server) create(w http.ResponseWriter, r *http.Request, req appointment.BookRequest, cash *float64) {
	date, clock, ok := schedule.Split(req.DateTime)
	if !ok {
		writeFailure(w, http.StatusBadRequest, schedule.InvalidDateTime)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, doc, svc := s.lookupLocked(req.PractitionerID, req.ServiceID)
	switch {
	case doc == nil:
		writeFailure(w, http.StatusNotFound, "Chiropractor not found")
		return
	case svc == nil:
		writeFailure(w, http.StatusNotFound, "Service not found")
		return
	}

	patientID := req.PatientID
	if patientID == "" {
		patientID = s.tokens[bearerToken(r)]
	}
	patient, ok := s.patientLocked(patientID)
	if !ok {
		writeFailure(w, http.StatusNotFound, "Patient not found")
		return
	}

	if s.conflictLocked(doc.ID, date, clock, "") {
		writeFailure(w, http.StatusConflict, "Slot already booked")
		return
	}

	now := s.now().UTC()
	appt := appointment.Appointment{
		ID:            uuid.NewString(),
		Patient:       appointment.Populated(patient.ID, patient),
		Practitioner:  appointment.Populated(doc.ID, *doc),
		Service:       appointment.Populated(svc.ID, *svc),
		Facility:      appointment.RefTo[appointment.Facility](rec.info.ID),
		Date:          date,
		Time:          clock,
		Status:        appointment.StatusPending,
		PaymentStatus: appointment.PaymentPending,
		PaymentAmount: svc.Price,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cash != nil {
		appt.PaymentMethod = appointment.PaymentCash
		appt.PaymentStatus = appointment.PaymentPaid
		appt.PaymentAmount = *cash
	}

	s.appointments[appt.ID] = appt
	s.order = append(s.order, appt.ID)

	s.logger.Debug().
		Str("appointment_id", appt.ID).
		Str("practitioner_id", doc.ID).
		Str("date", date).
		Str("time", clock).
		Bool("cash", cash != nil).
		Msg("mock backend booked appointment")

	writeData(w, http.StatusCreated, appt)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	s.transition(w, chi.URLParam(r, "id"), func(a *appointment.Appointment) (int, string) {
		a.Status = appointment.StatusCancelled
		return 0, ""
	})
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	s.transition(w, chi.URLParam(r, "id"), func(a *appointment.Appointment) (int, string) {
		a.Status = appointment.StatusCompleted
		return 0, ""
	})
}

func (s *Server) reschedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DateTime string `json:"dateTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	date, clock, ok := schedule.Split(body.DateTime)
	if !ok {
		writeFailure(w, http.StatusBadRequest, schedule.InvalidDateTime)
		return
	}

	s.transition(w, chi.URLParam(r, "id"), func(a *appointment.Appointment) (int, string) {
		if s.conflictLocked(a.Practitioner.ID(), date, clock, a.ID) {
			return http.StatusConflict, "Slot already booked"
		}
		a.Date = date
		a.Time = clock
		return 0, ""
	})
}

// transition applies mutate to a non-terminal appointment under the write
// lock. A non-zero status from mutate rejects the change.
func (s *Server) transition(w http.ResponseWriter, id string, mutate func(*appointment.Appointment) (int, string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, "Appointment not found")
		return
	}
	if appt.Status.Terminal() {
		writeFailure(w, http.StatusBadRequest, "Appointment is already "+string(appt.Status))
		return
	}
	if status, msg := mutate(&appt); status != 0 {
		writeFailure(w, status, msg)
		return
	}
	appt.UpdatedAt = s.now().UTC()
	s.appointments[id] = appt
	writeData(w, http.StatusOK, appt)
}
