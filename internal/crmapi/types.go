// Package crmapi contains the client for the clinic CRM webhook API and the
// booking-widget webhooks, plus the payload types they exchange.
package crmapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultProcedureMinutes is assumed when a procedure has no duration.
const DefaultProcedureMinutes = 60

// ID accepts identifiers the backend sends either as strings or numbers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Procedure is a billable clinic procedure.
type Procedure struct {
	ID       ID      `json:"id,omitempty"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration int     `json:"duration"`
	Code     string  `json:"code,omitempty"`
}

// DurationMinutes returns the procedure duration, defaulting to an hour.
func (p Procedure) DurationMinutes() int {
	if p.Duration > 0 {
		return p.Duration
	}
	return DefaultProcedureMinutes
}

// ParseDurationLabel reads console duration labels such as "90 min" or "45".
func ParseDurationLabel(label string) int {
	label = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), "min"))
	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || n <= 0 {
		return DefaultProcedureMinutes
	}
	return n
}

// Address is a patient postal address.
type Address struct {
	CEP        string `json:"cep,omitempty"`
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	UF         string `json:"uf,omitempty"`
	Complement string `json:"complement,omitempty"`
}

// Patient is the CRM patient record.
type Patient struct {
	ID       ID       `json:"id,omitempty"`
	OrgID    string   `json:"org_id,omitempty"`
	FullName string   `json:"full_name,omitempty"`
	Name     string   `json:"name,omitempty"`
	CPF      string   `json:"cpf,omitempty"`
	DOB      string   `json:"dob,omitempty"`
	Sex      string   `json:"sex,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Email    string   `json:"email,omitempty"`
	Address  *Address `json:"address,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// DisplayName prefers the full name and falls back to the short name.
func (p Patient) DisplayName() string {
	if strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	return p.Name
}

// NotifyChannels selects which confirmations the workflow sends.
type NotifyChannels struct {
	WhatsApp bool `json:"whatsapp"`
	Email    bool `json:"email"`
	SMS      bool `json:"sms"`
}

// AppointmentRequest is the console's "new appointment" payload. JSON names
// follow the backend workflow contract.
type AppointmentRequest struct {
	Patient          string         `json:"paciente"`
	Phone            string         `json:"phone,omitempty"`
	Email            string         `json:"email,omitempty"`
	PreferredChannel string         `json:"canalPreferido"`
	Procedure        string         `json:"procedimento"`
	ProcedureID      ID             `json:"procedimentoId,omitempty"`
	Date             string         `json:"data"`
	Time             string         `json:"hora"`
	DurationMinutes  int            `json:"duracaoMin"`
	Dentist          string         `json:"dentista,omitempty"`
	Notes            string         `json:"obs,omitempty"`
	Confirm          bool           `json:"confirmar"`
	Notify           NotifyChannels `json:"enviar"`
}

// RescheduleRequest moves an appointment.
type RescheduleRequest struct {
	ID              ID     `json:"id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duracaoMin,omitempty"`
}

// AppointmentResponse is returned when an appointment is created or changed.
type AppointmentResponse struct {
	ID      ID     `json:"id,omitempty"`
	OK      bool   `json:"ok,omitempty"`
	Message string `json:"message,omitempty"`
}

// Appointment is one entry of the daily agenda.
type Appointment struct {
	ID              ID     `json:"id"`
	Patient         string `json:"paciente,omitempty"`
	Procedure       string `json:"procedimento,omitempty"`
	Date            string `json:"data,omitempty"`
	Time            string `json:"hora,omitempty"`
	DurationMinutes int    `json:"duracaoMin,omitempty"`
	Dentist         string `json:"dentista,omitempty"`
	Status          string `json:"status,omitempty"`
	Start           string `json:"start,omitempty"`
	End             string `json:"end,omitempty"`
}

// Booking is the normalized admin agenda card.
type Booking struct {
	ID     ID     `json:"id"`
	Title  string `json:"title"`
	Desc   string `json:"desc"`
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Client string `json:"client"`
}

// upstreamBooking is the raw /bookings event shape.
type upstreamBooking struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Client      *struct {
		Name string `json:"name"`
	} `json:"client"`
}

func (b upstreamBooking) normalize() Booking {
	client := ""
	if b.Client != nil {
		client = b.Client.Name
	}
	title := b.Title
	if title == "" {
		title = client
	}
	if title == "" {
		title = "Agendamento"
	}
	return Booking{
		ID:     b.ID,
		Title:  title,
		Desc:   b.Description,
		Date:   b.Date,
		Start:  b.StartTime,
		End:    b.EndTime,
		Client: client,
	}
}

// QuoteItem is one line of a quote.
type QuoteItem struct {
	Name string  `json:"name"`
	Qty  int     `json:"qty"`
	Unit float64 `json:"unit"`
}

// QuoteRequest is the quote ("orçamento") payload.
type QuoteRequest struct {
	Patient       string      `json:"paciente"`
	ValidUntil    string      `json:"validade,omitempty"`
	Status        string      `json:"status"`
	Channel       string      `json:"canal"`
	Notes         string      `json:"obs,omitempty"`
	DiscountValue float64     `json:"descontoValor"`
	DiscountType  string      `json:"descontoTipo"`
	Items         []QuoteItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Total         float64     `json:"total"`
}

// QuoteResponse is returned by the quote webhook.
type QuoteResponse struct {
	QuoteID  ID     `json:"quoteId,omitempty"`
	ShareURL string `json:"shareUrl,omitempty"`
}

// BookingSubmission is the public widget's booking payload.
type BookingSubmission struct {
	Name            string `json:"name"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	TZ              string `json:"tz"`
	Procedure       string `json:"procedure,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// BookingReceipt is what the booking webhook returns.
type BookingReceipt struct {
	ID      ID     `json:"id,omitempty"`
	OK      bool   `json:"ok,omitempty"`
	Message string `json:"message,omitempty"`
}
