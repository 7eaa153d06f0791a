package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/odonto-crm/internal/booking"
	"github.com/wolfman30/odonto-crm/internal/cep"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

// AvailabilityService resolves day and month availability.
type AvailabilityService interface {
	Day(ctx context.Context, date string, durationMinutes int, surface booking.Surface) (*booking.DayAvailability, error)
	Month(ctx context.Context, month string, durationMinutes int) (*booking.MonthAvailability, error)
}

// BookingService submits public booking requests.
type BookingService interface {
	Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error)
}

// ChatService relays messages to the receptionist agent.
type ChatService interface {
	SendChatMessage(ctx context.Context, message string) (string, error)
}

// AddressLookup resolves postal codes.
type AddressLookup interface {
	Lookup(ctx context.Context, raw string) (*cep.Address, error)
}

// PublicHandlerConfig wires the widget endpoints.
type PublicHandlerConfig struct {
	Availability AvailabilityService
	Bookings     BookingService
	Chat         ChatService
	CEP          AddressLookup
	Logger       *logging.Logger
}

// PublicHandler serves the booking widget and the site chat.
type PublicHandler struct {
	availability AvailabilityService
	bookings     BookingService
	chat         ChatService
	cep          AddressLookup
	logger       *logging.Logger
}

// NewPublicHandler creates the widget handler.
func NewPublicHandler(cfg PublicHandlerConfig) *PublicHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &PublicHandler{
		availability: cfg.Availability,
		bookings:     cfg.Bookings,
		chat:         cfg.Chat,
		cep:          cfg.CEP,
		logger:       logger,
	}
}

// Health reports liveness.
func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DayAvailability handles GET /availability/day?date=YYYY-MM-DD&duration=N.
func (h *PublicHandler) DayAvailability(w http.ResponseWriter, r *http.Request) {
	serveDay(w, r, h.availability, h.logger, booking.SurfacePublic)
}

func serveDay(w http.ResponseWriter, r *http.Request, svc AvailabilityService, logger *logging.Logger, surface booking.Surface) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	duration, err := durationParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := svc.Day(r.Context(), date, duration, surface)
	if err != nil {
		writeServiceError(w, logger, "availability.day", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// MonthAvailability handles GET /availability/month?month=YYYY-MM&duration=N.
func (h *PublicHandler) MonthAvailability(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}
	duration, err := durationParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	overview, err := h.availability.Month(r.Context(), month, duration)
	if err != nil {
		writeServiceError(w, h.logger, "availability.month", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// CreateBooking handles POST /bookings.
func (h *PublicHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	conf, err := h.bookings.Book(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "booking.submit", err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// ChatMessage handles POST /chat/message.
func (h *PublicHandler) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	reply, err := h.chat.SendChatMessage(r.Context(), req.Message)
	if err != nil {
		writeServiceError(w, h.logger, "chat.message", err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// LookupCEP handles GET /cep/{cep}.
func (h *PublicHandler) LookupCEP(w http.ResponseWriter, r *http.Request) {
	addr, err := h.cep.Lookup(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		writeServiceError(w, h.logger, "cep.lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}
