package crmapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is matched by APIErrors carrying a 404.
	ErrNotFound = errors.New("crmapi: not found")
	// ErrNotConfigured is returned when a webhook URL was not provided.
	ErrNotConfigured = errors.New("crmapi: webhook not configured")
	// ErrResponseTooLarge is returned when an upstream body exceeds the read cap.
	ErrResponseTooLarge = errors.New("crmapi: response too large")
	// ErrInvalidInput wraps request validation failures caught before any call.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is a non-2xx response from the CRM webhooks.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm API returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// newAPIError extracts the upstream message from {"message": ...},
// {"error": {"message": ...}}, {"error": "..."} or a plain text body,
// falling back to the status text.
func newAPIError(status int, body []byte) *APIError {
	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "Erro na API"
	}
	return &APIError{StatusCode: status, Message: msg}
}

func extractMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		text := strings.TrimSpace(string(body))
		if len(text) > 300 {
			text = text[:300]
		}
		return text
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Error) == 0 {
		return ""
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	var plain string
	if err := json.Unmarshal(payload.Error, &plain); err == nil {
		return plain
	}
	return ""
}
