package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/odonto-crm/internal/availability"
	"github.com/wolfman30/odonto-crm/internal/booking"
	"github.com/wolfman30/odonto-crm/internal/cep"
	"github.com/wolfman30/odonto-crm/internal/crmapi"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// durationParam reads the optional ?duration= minutes parameter.
func durationParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("duration"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > availability.MinutesPerDay {
		return 0, fmt.Errorf("duration must be between 0 and %d minutes", availability.MinutesPerDay)
	}
	return n, nil
}

// writeServiceError maps domain and collaborator errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, crmapi.ErrInvalidInput),
		errors.Is(err, cep.ErrInvalidCEP):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot is no longer available")
	case errors.Is(err, cep.ErrNotFound):
		writeError(w, http.StatusNotFound, "CEP not found")
	case errors.Is(err, crmapi.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logger.Error("upstream request failed", "operation", op, "error", err)
		var apiErr *crmapi.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadGateway, apiErr.Message)
			return
		}
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	}
}

// validationMessage strips package prefixes, keeping the last clause.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		return msg[i+2:]
	}
	return msg
}
