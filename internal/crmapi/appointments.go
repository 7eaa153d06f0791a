package crmapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const defaultTimezone = "America/Sao_Paulo"

// AppointmentsByDay returns the agenda for a YYYY-MM-DD date.
func (c *Client) AppointmentsByDay(ctx context.Context, date, tz string) ([]Appointment, error) {
	if tz == "" {
		tz = defaultTimezone
	}
	path := "/appointments/day" + query(map[string]string{"date": date, "tz": tz})
	raw, err := c.do(ctx, "appointments.day", http.MethodGet, c.URL(path), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: appointments by day: %w", err)
	}
	appts, err := DecodeList[Appointment](raw)
	if err != nil {
		return nil, fmt.Errorf("crmapi: appointments by day: %w", err)
	}
	return appts, nil
}

// CreateAppointment books an appointment from the console.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	if strings.TrimSpace(req.Patient) == "" {
		return nil, fmt.Errorf("crmapi: create appointment: %w: patient is required", ErrInvalidInput)
	}
	if req.PreferredChannel == "" {
		req.PreferredChannel = "WhatsApp"
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = DefaultProcedureMinutes
	}
	var resp AppointmentResponse
	if err := c.doJSON(ctx, "appointments.create", http.MethodPost, "/appointments", req, &resp); err != nil {
		return nil, fmt.Errorf("crmapi: create appointment: %w", err)
	}
	return &resp, nil
}

// RescheduleAppointment moves an appointment to a new date/time.
func (c *Client) RescheduleAppointment(ctx context.Context, req RescheduleRequest) (*AppointmentResponse, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("crmapi: reschedule appointment: %w: id is required", ErrInvalidInput)
	}
	var resp AppointmentResponse
	if err := c.doJSON(ctx, "appointments.reschedule", http.MethodPost, "/appointments/reschedule", req, &resp); err != nil {
		return nil, fmt.Errorf("crmapi: reschedule appointment: %w", err)
	}
	return &resp, nil
}

// CancelAppointment cancels an appointment by id.
func (c *Client) CancelAppointment(ctx context.Context, id ID) (*AppointmentResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("crmapi: cancel appointment: %w: id is required", ErrInvalidInput)
	}
	var resp AppointmentResponse
	if err := c.doJSON(ctx, "appointments.cancel", http.MethodPost, "/appointments/cancel", map[string]ID{"id": id}, &resp); err != nil {
		return nil, fmt.Errorf("crmapi: cancel appointment: %w", err)
	}
	return &resp, nil
}

// ListBookings returns the admin agenda cards, normalized from the raw events.
func (c *Client) ListBookings(ctx context.Context) ([]Booking, error) {
	raw, err := c.do(ctx, "bookings.list", http.MethodGet, c.URL("/bookings"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: list bookings: %w", err)
	}
	events, err := DecodeList[upstreamBooking](raw)
	if err != nil {
		return nil, fmt.Errorf("crmapi: list bookings: %w", err)
	}
	out := make([]Booking, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.normalize())
	}
	return out, nil
}

// CreateQuote stores a quote and returns its id and share link.
func (c *Client) CreateQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("crmapi: create quote: %w: at least one item is required", ErrInvalidInput)
	}
	var resp QuoteResponse
	if err := c.doJSON(ctx, "quotes.create", http.MethodPost, "/quotes", req, &resp); err != nil {
		return nil, fmt.Errorf("crmapi: create quote: %w", err)
	}
	return &resp, nil
}
