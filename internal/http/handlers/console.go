package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/odonto-crm/internal/booking"
	"github.com/wolfman30/odonto-crm/internal/cep"
	"github.com/wolfman30/odonto-crm/internal/crmapi"
	"github.com/wolfman30/odonto-crm/internal/quotes"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

// CRM is the subset of the CRM client the console uses.
type CRM interface {
	ListProcedures(ctx context.Context) ([]crmapi.Procedure, error)
	CreateProcedure(ctx context.Context, p crmapi.Procedure) (*crmapi.Procedure, error)
	DeleteProcedure(ctx context.Context, id crmapi.ID) error
	UpsertPatient(ctx context.Context, p crmapi.Patient) (*crmapi.Patient, error)
	ListPatients(ctx context.Context, limit int) ([]crmapi.Patient, error)
	SearchPatients(ctx context.Context, q string) ([]crmapi.Patient, error)
	AppointmentsByDay(ctx context.Context, date, tz string) ([]crmapi.Appointment, error)
	CreateAppointment(ctx context.Context, req crmapi.AppointmentRequest) (*crmapi.AppointmentResponse, error)
	RescheduleAppointment(ctx context.Context, req crmapi.RescheduleRequest) (*crmapi.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, id crmapi.ID) (*crmapi.AppointmentResponse, error)
	ListBookings(ctx context.Context) ([]crmapi.Booking, error)
	CreateQuote(ctx context.Context, req crmapi.QuoteRequest) (*crmapi.QuoteResponse, error)
}

// ConsoleHandlerConfig wires the admin console endpoints.
type ConsoleHandlerConfig struct {
	CRM          CRM
	Availability AvailabilityService
	Location     *time.Location
	Logger       *logging.Logger
}

// ConsoleHandler serves the admin console.
type ConsoleHandler struct {
	crm          CRM
	availability AvailabilityService
	location     *time.Location
	logger       *logging.Logger
	now          func() time.Time
}

// NewConsoleHandler creates the console handler.
func NewConsoleHandler(cfg ConsoleHandlerConfig) *ConsoleHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ConsoleHandler{
		crm:          cfg.CRM,
		availability: cfg.Availability,
		location:     loc,
		logger:       logger,
		now:          time.Now,
	}
}

// DayAvailability handles GET /console/availability/day.
func (h *ConsoleHandler) DayAvailability(w http.ResponseWriter, r *http.Request) {
	serveDay(w, r, h.availability, h.logger, booking.SurfaceConsole)
}

// ListProcedures handles GET /console/procedures.
func (h *ConsoleHandler) ListProcedures(w http.ResponseWriter, r *http.Request) {
	procs, err := h.crm.ListProcedures(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "procedures.list", err)
		return
	}
	writeJSON(w, http.StatusOK, procs)
}

// procedureInput accepts the duration as minutes or as a "90 min" label.
type procedureInput struct {
	Name     string          `json:"name"`
	Price    float64         `json:"price"`
	Duration json.RawMessage `json:"duration"`
	Code     string          `json:"code"`
}

func (in procedureInput) minutes() int {
	raw := bytes.TrimSpace(in.Duration)
	if len(raw) == 0 {
		return crmapi.DefaultProcedureMinutes
	}
	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		return crmapi.ParseDurationLabel(label)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return n
	}
	return crmapi.DefaultProcedureMinutes
}

// CreateProcedure handles POST /console/procedures.
func (h *ConsoleHandler) CreateProcedure(w http.ResponseWriter, r *http.Request) {
	var in procedureInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.crm.CreateProcedure(r.Context(), crmapi.Procedure{
		Name:     in.Name,
		Price:    in.Price,
		Duration: in.minutes(),
		Code:     strings.TrimSpace(in.Code),
	})
	if err != nil {
		writeServiceError(w, h.logger, "procedures.create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DeleteProcedure handles DELETE /console/procedures/{id}.
func (h *ConsoleHandler) DeleteProcedure(w http.ResponseWriter, r *http.Request) {
	id := crmapi.ID(chi.URLParam(r, "id"))
	if err := h.crm.DeleteProcedure(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "procedures.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPatients handles GET /console/patients?limit=N.
func (h *ConsoleHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}
	patients, err := h.crm.ListPatients(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, "patients.list", err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// SearchPatients handles GET /console/patients/search?q=.
func (h *ConsoleHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.crm.SearchPatients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, h.logger, "patients.search", err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// UpsertPatient handles POST /console/patients.
func (h *ConsoleHandler) UpsertPatient(w http.ResponseWriter, r *http.Request) {
	var p crmapi.Patient
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Address != nil && p.Address.CEP != "" {
		p.Address.CEP = cep.Mask(p.Address.CEP)
	}
	saved, err := h.crm.UpsertPatient(r.Context(), p)
	if err != nil {
		writeServiceError(w, h.logger, "patients.upsert", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// AppointmentsByDay handles GET /console/appointments?date=YYYY-MM-DD.
func (h *ConsoleHandler) AppointmentsByDay(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = h.now().In(h.location).Format("2006-01-02")
	}
	appts, err := h.crm.AppointmentsByDay(r.Context(), date, h.location.String())
	if err != nil {
		writeServiceError(w, h.logger, "appointments.day", err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// CreateAppointment handles POST /console/appointments. When only a
// procedure id is given, the duration comes from the catalog.
func (h *ConsoleHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req crmapi.AppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DurationMinutes <= 0 && (req.ProcedureID != "" || req.Procedure != "") {
		h.fillProcedure(r.Context(), &req)
	}
	resp, err := h.crm.CreateAppointment(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "appointments.create", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ConsoleHandler) fillProcedure(ctx context.Context, req *crmapi.AppointmentRequest) {
	procs, err := h.crm.ListProcedures(ctx)
	if err != nil {
		h.logger.Warn("procedure lookup failed, using default duration", "error", err)
		return
	}
	key := string(req.ProcedureID)
	if key == "" {
		key = req.Procedure
	}
	p, ok := crmapi.FindProcedure(procs, key)
	if !ok {
		return
	}
	req.DurationMinutes = p.DurationMinutes()
	if req.Procedure == "" {
		req.Procedure = p.Name
	}
	if req.ProcedureID == "" {
		req.ProcedureID = p.ID
	}
}

// RescheduleAppointment handles POST /console/appointments/{id}/reschedule.
func (h *ConsoleHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req crmapi.RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ID = crmapi.ID(chi.URLParam(r, "id"))
	resp, err := h.crm.RescheduleAppointment(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "appointments.reschedule", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelAppointment handles POST /console/appointments/{id}/cancel.
func (h *ConsoleHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	resp, err := h.crm.CancelAppointment(r.Context(), crmapi.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, h.logger, "appointments.cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListBookings handles GET /console/bookings?q=&range=all|today|future.
func (h *ConsoleHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.crm.ListBookings(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "bookings.list", err)
		return
	}
	q := r.URL.Query()
	filtered := booking.FilterBookings(list, booking.Filter{
		Query: q.Get("q"),
		Range: q.Get("range"),
		Now:   h.now().In(h.location),
	})
	writeJSON(w, http.StatusOK, filtered)
}

type quotePreview struct {
	Subtotal float64       `json:"subtotal"`
	Discount float64       `json:"discount"`
	Total    float64       `json:"total"`
	Totals   quotes.Totals `json:"totals"`
}

type quoteCreated struct {
	QuoteID  crmapi.ID `json:"quoteId,omitempty"`
	ShareURL string    `json:"shareUrl,omitempty"`
	quotePreview
}

func previewOf(t quotes.Totals) quotePreview {
	return quotePreview{
		Subtotal: t.Subtotal(),
		Discount: quotes.FromCents(t.DiscountCents),
		Total:    t.Total(),
		Totals:   t,
	}
}

// PreviewQuote handles POST /console/quotes/preview.
func (h *ConsoleHandler) PreviewQuote(w http.ResponseWriter, r *http.Request) {
	var req crmapi.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	totals := quotes.Calculate(req.Items, quotes.Discount{Type: req.DiscountType, Value: req.DiscountValue})
	writeJSON(w, http.StatusOK, previewOf(totals))
}

// CreateQuote handles POST /console/quotes.
func (h *ConsoleHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req crmapi.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prepared, totals, err := quotes.Prepare(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	resp, err := h.crm.CreateQuote(r.Context(), prepared)
	if err != nil {
		writeServiceError(w, h.logger, "quotes.create", err)
		return
	}
	writeJSON(w, http.StatusCreated, quoteCreated{
		QuoteID:      resp.QuoteID,
		ShareURL:     resp.ShareURL,
		quotePreview: previewOf(totals),
	})
}
