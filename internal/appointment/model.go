package appointment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hackgods/facility-booking/internal/schedule"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

var knownStatuses = map[string]Status{
	"pending":    StatusPending,
	"confirmed":  StatusConfirmed,
	"inprogress": StatusInProgress,
	"completed":  StatusCompleted,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"noshow":     StatusNoShow,
}

// ParseStatus accepts the spellings the backend has been seen to use
// ("Pending", "in-progress", "NoShow", "canceled", ...).
func ParseStatus(raw string) (Status, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	s, ok := knownStatuses[key]
	return s, ok
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, ok := ParseStatus(raw); ok {
		*s = parsed
		return nil
	}
	*s = Status(raw)
	return nil
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Blocking statuses hold their slot against new bookings.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentInsurance PaymentMethod = "insurance"
	PaymentOnline    PaymentMethod = "online"
)

type Patient struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Practitioner is the chiropractor or clinician an appointment is booked with.
type Practitioner struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Service struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Duration    int     `json:"duration,omitempty"` // minutes
	Price       float64 `json:"price"`
}

type Facility struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type Appointment struct {
	ID            string            `json:"_id"`
	Patient       Ref[Patient]      `json:"patient"`
	Practitioner  Ref[Practitioner] `json:"chiropractor"`
	Service       Ref[Service]      `json:"service"`
	Facility      Ref[Facility]     `json:"facility"`
	Date          string            `json:"appointmentDate"`
	Time          string            `json:"appointmentTime"`
	Status        Status            `json:"status"`
	PaymentStatus PaymentStatus     `json:"paymentStatus,omitempty"`
	PaymentMethod PaymentMethod     `json:"paymentMethod,omitempty"`
	PaymentAmount float64           `json:"paymentAmount"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Normalize rewrites Date to YYYY-MM-DD and Time to canonical HH:mm. Values
// that cannot be parsed are left as received.
func (a *Appointment) Normalize() {
	if d, ok := schedule.CalendarDate(a.Date); ok {
		a.Date = d
	}
	if t, err := schedule.NormalizeTime(a.Time); err == nil {
		a.Time = t
	}
}

func (a Appointment) OccupantID() string { return a.ID }
func (a Appointment) SlotDate() string   { return a.Date }
func (a Appointment) SlotTime() string   { return a.Time }
func (a Appointment) BlocksSlot() bool   { return a.Status.Blocking() }

// BookRequest is the body of POST /appointments/book.
type BookRequest struct {
	PractitionerID string `json:"chiropractorId"`
	DateTime       string `json:"dateTime"`
	ServiceID      string `json:"serviceId"`
	Notes          string `json:"notes,omitempty"`

	// PatientID is set when facility staff book on a patient's behalf.
	PatientID string `json:"patientId,omitempty"`
}

// CashBookRequest is the body of POST /appointments/book-cash.
type CashBookRequest struct {
	BookRequest
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

type EventLog struct {
	EventType     string
	AppointmentID string
	FacilityID    string
	Payload       []byte
	CreatedAt     time.Time
}
