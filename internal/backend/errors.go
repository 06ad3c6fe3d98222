package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx (or success=false) response from the backend.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %s %s returned %d", e.Method, e.Path, e.StatusCode)
}

// UserMessage is the backend's human readable message, forwarded verbatim.
func (e *APIError) UserMessage() string { return e.Message }

func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }
func (e *APIError) Conflict() bool { return e.StatusCode == http.StatusConflict }

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// decodeEnvelope only succeeds for JSON objects; arrays and bare values are
// treated as unwrapped payloads by the caller.
func decodeEnvelope(body []byte) (envelope, error) {
	var env envelope
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return env, fmt.Errorf("not an envelope")
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return env, err
	}
	return env, nil
}

func (e envelope) hasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	if raw := bytes.TrimSpace(e.Error); len(raw) > 0 {
		switch raw[0] {
		case '"':
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		case '{':
			var obj struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
				return obj.Message
			}
		}
	}
	return ""
}
