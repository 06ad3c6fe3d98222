package mockbackend

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/facility"
	"github.com/hackgods/facility-booking/internal/schedule"
)

type SeedOptions struct {
	Facilities    int
	Practitioners int
	Patients      int
	Appointments  int

	// Seed fixes the generated data; zero means random.
	Seed uint64

	// Day is the first day appointments are spread over.
	Day time.Time
}

var specialties = []string{
	"Chiropractic",
	"Sports Rehabilitation",
	"Pediatric Chiropractic",
	"Spinal Decompression",
	"Physiotherapy",
	"Massage Therapy",
}

var serviceCatalog = []struct {
	name        string
	description string
	duration    int
	price       float64
}{
	{"Initial Consultation", "History, exam and treatment plan", 60, 90},
	{"Spinal Adjustment", "Manual adjustment", 30, 60},
	{"Follow-up Visit", "Progress check", 30, 45},
	{"Posture Assessment", "Digital posture analysis", 60, 75},
	{"Soft Tissue Therapy", "Myofascial release", 60, 80},
}

var seedStatuses = []appointment.Status{
	appointment.StatusPending,
	appointment.StatusConfirmed,
	appointment.StatusConfirmed,
	appointment.StatusCompleted,
	appointment.StatusCancelled,
	appointment.StatusNoShow,
}

// Seed fills the server with fake facilities. Seeded appointments never
// conflict with each other. It returns the facility ids created.
func (s *Server) Seed(opts SeedOptions) []string {
	if opts.Facilities <= 0 {
		opts.Facilities = 1
	}
	if opts.Day.IsZero() {
		opts.Day = time.Now()
	}
	faker := gofakeit.New(opts.Seed)
	slots := schedule.Hourly.Slots()
	taken := make(map[string]bool)

	var ids []string
	for f := 0; f < opts.Facilities; f++ {
		fac := appointment.Facility{
			ID:      uuid.NewString(),
			Name:    faker.Company() + " Chiropractic",
			Address: faker.Street() + ", " + faker.City(),
			Phone:   faker.Phone(),
		}
		s.AddFacility(fac)
		ids = append(ids, fac.ID)

		var services []appointment.Service
		for _, c := range serviceCatalog {
			svc := appointment.Service{
				ID:          uuid.NewString(),
				Name:        c.name,
				Description: c.description,
				Duration:    c.duration,
				Price:       c.price,
			}
			s.AddService(fac.ID, svc)
			services = append(services, svc)
		}

		var staff []appointment.Practitioner
		for i := 0; i < opts.Practitioners; i++ {
			doc := appointment.Practitioner{
				ID:        uuid.NewString(),
				Name:      "Dr. " + faker.Name(),
				Specialty: specialties[faker.Number(0, len(specialties)-1)],
				Email:     faker.Email(),
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			s.AddStaff(fac.ID, doc)
			s.AddUser(fac.ID, facility.User{ID: uuid.NewString(), Name: doc.Name, Email: doc.Email, Role: "chiropractor"})
			staff = append(staff, doc)
		}
		s.AddUser(fac.ID, facility.User{ID: uuid.NewString(), Name: faker.Name(), Email: faker.Email(), Role: "facility_admin"})

		var patients []appointment.Patient
		for i := 0; i < opts.Patients; i++ {
			p := appointment.Patient{
				ID:        uuid.NewString(),
				Name:      faker.Name(),
				Email:     faker.Email(),
				Phone:     faker.Phone(),
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			s.AddPatient(fac.ID, p)
			patients = append(patients, p)
		}

		if len(staff) == 0 || len(patients) == 0 {
			continue
		}
		for i := 0; i < opts.Appointments; i++ {
			doc := staff[faker.Number(0, len(staff)-1)]
			day := opts.Day.AddDate(0, 0, faker.Number(0, 6)).Format("2006-01-02")
			clock := slots[faker.Number(0, len(slots)-1)]
			key := fmt.Sprintf("%s|%s|%s", doc.ID, day, clock)
			if taken[key] {
				continue
			}
			taken[key] = true

			p := patients[faker.Number(0, len(patients)-1)]
			svc := services[faker.Number(0, len(services)-1)]
			now := time.Now().UTC()
			s.AddAppointment(appointment.Appointment{
				ID:            uuid.NewString(),
				Patient:       appointment.Populated(p.ID, p),
				Practitioner:  appointment.Populated(doc.ID, doc),
				Service:       appointment.Populated(svc.ID, svc),
				Facility:      appointment.RefTo[appointment.Facility](fac.ID),
				Date:          day,
				Time:          clock,
				Status:        seedStatuses[faker.Number(0, len(seedStatuses)-1)],
				PaymentStatus: appointment.PaymentPending,
				PaymentAmount: svc.Price,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
	}
	return ids
}
