package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hackgods/facility-booking/internal/appointment"
	"github.com/hackgods/facility-booking/internal/facility"
)

const defaultTimeout = 15 * time.Second

// Client talks to the booking REST API. Every response is either the
// payload, optionally wrapped in {"data": ...}, or an error carrying a human
// readable message.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

var (
	_ appointment.Backend = (*Client)(nil)
	_ facility.Fetcher    = (*Client)(nil)
)

func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logger,
	}
}

// WithToken returns a copy of the client authenticating as another actor.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) ListByPractitioner(ctx context.Context, practitionerID string) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	if err := c.doJSON(ctx, http.MethodGet, "/appointments/chiropractor/"+url.PathEscape(practitionerID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListByFacility(ctx context.Context, facilityID string) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	if err := c.doJSON(ctx, http.MethodGet, "/appointments/facility/"+url.PathEscape(facilityID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListByPatient(ctx context.Context, patientID string) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	if err := c.doJSON(ctx, http.MethodGet, "/appointments/patient/"+url.PathEscape(patientID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error) {
	var out appointment.Appointment
	if err := c.doJSON(ctx, http.MethodPost, "/appointments/book", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BookWithCash(ctx context.Context, req appointment.CashBookRequest) (*appointment.Appointment, error) {
	req.PaymentMethod = appointment.PaymentCash
	var out appointment.Appointment
	if err := c.doJSON(ctx, http.MethodPost, "/appointments/book-cash", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, id string) (*appointment.Appointment, error) {
	var out appointment.Appointment
	if err := c.doJSON(ctx, http.MethodPut, "/appointments/cancel/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reschedule(ctx context.Context, id, dateTime string) (*appointment.Appointment, error) {
	body := map[string]string{"dateTime": dateTime}
	var out appointment.Appointment
	if err := c.doJSON(ctx, http.MethodPut, "/appointments/reschedule/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Complete(ctx context.Context, id string) (*appointment.Appointment, error) {
	var out appointment.Appointment
	if err := c.doJSON(ctx, http.MethodPost, "/appointments/completed/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFacility(ctx context.Context, facilityID string) (*appointment.Facility, error) {
	var out appointment.Facility
	if err := c.doJSON(ctx, http.MethodGet, facilityPath(facilityID, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListServices(ctx context.Context, facilityID string) ([]appointment.Service, error) {
	var out []appointment.Service
	if err := c.doJSON(ctx, http.MethodGet, facilityPath(facilityID, "services"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListStaff(ctx context.Context, facilityID string) ([]appointment.Practitioner, error) {
	var out []appointment.Practitioner
	if err := c.doJSON(ctx, http.MethodGet, facilityPath(facilityID, "staff"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPatients(ctx context.Context, facilityID string) ([]appointment.Patient, error) {
	var out []appointment.Patient
	if err := c.doJSON(ctx, http.MethodGet, facilityPath(facilityID, "patients"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListUsers(ctx context.Context, facilityID string) ([]facility.User, error) {
	var out []facility.User
	if err := c.doJSON(ctx, http.MethodGet, facilityPath(facilityID, "users"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func facilityPath(facilityID, sub string) string {
	p := "/facilities/" + url.PathEscape(facilityID)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	env, envErr := decodeEnvelope(respBody)

	failed := resp.StatusCode < 200 || resp.StatusCode > 299
	if !failed && envErr == nil && env.Success != nil && !*env.Success {
		failed = true
	}
	if failed {
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}
		if envErr == nil {
			apiErr.Message = env.message()
		}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Str("body", truncate(string(respBody), 300)).
			Msg("backend API error response")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	payload := respBody
	if envErr == nil && env.hasData() {
		payload = env.Data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
