// Command simulate drives concurrent booking traffic at the gateway so slot
// conflicts and duplicate-submission rejections can be observed under load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hackgods/facility-booking/internal/api"
	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/facility"
	"github.com/hackgods/facility-booking/internal/schedule"
	"github.com/hackgods/facility-booking/pkg/logging"
)

type SimConfig struct {
	APIBaseURL      string
	FacilityID      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	CancelRatio     float64
	RescheduleRatio float64
	ReadRatio       float64
	Days            int
}

// DataPool is what workers pick from: the facility roster loaded from the
// gateway and the appointments booked so far.
type DataPool struct {
	Practitioners []string
	Services      []string
	Patients      []string
	Days          []string
	Slots         []string

	mu           sync.RWMutex
	appointments []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  zerolog.Logger
}

func main() {
	_ = godotenv.Load()
	logger := logging.NewConsole(getEnv("LOG_LEVEL", "info"))

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("cancel", cfg.CancelRatio).
		Float64("reschedule", cfg.RescheduleRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := sim.loadDataPool(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	sim.pool = pool
	logger.Info().
		Int("practitioners", len(pool.Practitioners)).
		Int("patients", len(pool.Patients)).
		Int("slots", len(pool.Slots)*len(pool.Days)).
		Msg("data pool loaded")

	sim.Run()
	printReport(os.Stdout, sim.config, &sim.metrics)
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:      getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		FacilityID:      getEnv("SIM_FACILITY_ID", os.Getenv("FACILITY_ID")),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 10),
		BookingRatio:    getFloat("SIM_BOOKING_RATIO", 0.4),
		CancelRatio:     getFloat("SIM_CANCEL_RATIO", 0.15),
		RescheduleRatio: getFloat("SIM_RESCHEDULE_RATIO", 0.15),
		ReadRatio:       getFloat("SIM_READ_RATIO", 0.3),
		Days:            getInt("SIM_DAYS", 5),
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.CancelRatio + cfg.RescheduleRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.RescheduleRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.FacilityID == "" {
		return fmt.Errorf("SIM_FACILITY_ID or FACILITY_ID is required")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("SIM_DAYS must be > 0")
	}
	return nil
}

// loadDataPool reads the current facility aggregate from the gateway.
func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	endpoint := fmt.Sprintf("%s/facilities/%s?view=current", s.config.APIBaseURL, url.PathEscape(s.config.FacilityID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch facility: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("fetch facility: status %d: %s", resp.StatusCode, body)
	}

	var agg facility.Aggregate
	if err := json.NewDecoder(resp.Body).Decode(&agg); err != nil {
		return nil, fmt.Errorf("decode facility: %w", err)
	}

	pool := &DataPool{Slots: schedule.Hourly.Slots()}
	for _, p := range agg.Staff {
		pool.Practitioners = append(pool.Practitioners, p.ID)
	}
	for _, svc := range agg.Services {
		pool.Services = append(pool.Services, svc.ID)
	}
	for _, p := range agg.Patients {
		pool.Patients = append(pool.Patients, p.ID)
	}
	for _, a := range agg.Appointments {
		if !a.Status.Terminal() {
			pool.AddAppointment(a.ID)
		}
	}
	today := time.Now()
	for i := 1; i <= s.config.Days; i++ {
		pool.Days = append(pool.Days, today.AddDate(0, 0, i).Format("2006-01-02"))
	}

	if len(pool.Practitioners) == 0 || len(pool.Services) == 0 || len(pool.Patients) == 0 {
		return nil, fmt.Errorf("facility %s has no staff, services or patients loaded", s.config.FacilityID)
	}
	return pool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	c := s.config

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < c.BookingRatio:
				s.doBooking(ctx, rng)
			case r < c.BookingRatio+c.CancelRatio:
				s.doCancel(ctx, rng)
			case r < c.BookingRatio+c.CancelRatio+c.RescheduleRatio:
				s.doReschedule(ctx, rng)
			default:
				s.doSlots(ctx, rng)
			}
		}
	}
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.Intn(len(from))]
}

func (s *Simulator) randomDateTime(rng *rand.Rand) string {
	return schedule.Combine(pick(rng, s.pool.Days), pick(rng, s.pool.Slots))
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	body := api.BookRequest{
		FacilityID:     s.config.FacilityID,
		PractitionerID: pick(rng, s.pool.Practitioners),
		ServiceID:      pick(rng, s.pool.Services),
		PatientID:      pick(rng, s.pool.Patients),
		DateTime:       s.randomDateTime(rng),
	}

	start := time.Now()
	status, respBody, err := s.send(ctx, http.MethodPost, "/appointments/book", "patient", body)
	latency := time.Since(start)

	if err == nil && status == http.StatusCreated {
		var appt appointment.Appointment
		if json.Unmarshal(respBody, &appt) == nil && appt.ID != "" {
			s.pool.AddAppointment(appt.ID)
		}
	}
	s.metrics.Booking.Record(latency, err == nil && status == http.StatusCreated, status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/cancel", "staff", nil)
	s.metrics.Cancel.Record(time.Since(start), err == nil && status == http.StatusOK, rejected(status))
}

func (s *Simulator) doReschedule(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/reschedule", "staff",
		api.RescheduleRequest{DateTime: s.randomDateTime(rng)})
	s.metrics.Reschedule.Record(time.Since(start), err == nil && status == http.StatusOK, rejected(status))
}

func (s *Simulator) doSlots(ctx context.Context, rng *rand.Rand) {
	path := fmt.Sprintf("/practitioners/%s/slots?date=%s", url.PathEscape(pick(rng, s.pool.Practitioners)), pick(rng, s.pool.Days))

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, path, "", nil)
	s.metrics.Slots.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

// rejected reports statuses the gateway uses for expected contention: a
// taken slot, a duplicate in flight, or an appointment already closed.
func rejected(status int) bool {
	return status == http.StatusConflict || status == http.StatusForbidden
}

func (s *Simulator) send(ctx context.Context, method, path, role string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Actor-Role", role)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
