package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hackgods/facility-booking/internal/mockbackend"
	"github.com/hackgods/facility-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	logger := logging.NewConsole(getEnv("LOG_LEVEL", "info"))

	opts := mockbackend.SeedOptions{
		Facilities:    getInt("MOCK_FACILITIES", 2),
		Practitioners: getInt("MOCK_PRACTITIONERS", 4),
		Patients:      getInt("MOCK_PATIENTS", 50),
		Appointments:  getInt("MOCK_APPOINTMENTS", 120),
		Seed:          uint64(getInt("MOCK_SEED", 0)),
	}

	srv := mockbackend.New(logger.With().Str("component", "mock-backend").Logger())
	ids := srv.Seed(opts)
	for _, id := range ids {
		logger.Info().Str("facility_id", id).Msg("seeded facility")
	}

	// bookings made with this token and no patientId are made for the first
	// seeded patient
	if token := getEnv("MOCK_PATIENT_TOKEN", ""); token != "" && len(ids) > 0 {
		if patients := srv.PatientIDs(ids[0]); len(patients) > 0 {
			srv.RegisterToken(token, patients[0])
			logger.Info().Str("patient_id", patients[0]).Msg("patient token registered")
		}
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              ":" + getEnv("MOCK_PORT", "5000"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("mock backend server error")
			stop()
		}
	}()
	logger.Info().Str("addr", httpSrv.Addr).Int("facilities", len(ids)).Msg("mock backend listening")

	<-rootCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mock backend shutdown failed")
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
