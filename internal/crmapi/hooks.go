package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	idempotencyHeader = "Idempotency-Key"
	noReplyText       = "Sem resposta do agente"
)

// FetchAvailability returns the raw availability bag for a YYYY-MM-DD date.
// Decoding is left to the availability package, which tolerates every shape
// the workflow has produced.
func (c *Client) FetchAvailability(ctx context.Context, date, tz string) ([]byte, error) {
	if c.availabilityURL == "" {
		return nil, fmt.Errorf("crmapi: fetch availability: %w", ErrNotConfigured)
	}
	if tz == "" {
		tz = defaultTimezone
	}
	endpoint, err := withQuery(c.availabilityURL, map[string]string{"date": date, "tz": tz})
	if err != nil {
		return nil, fmt.Errorf("crmapi: fetch availability: %w", err)
	}
	raw, err := c.do(ctx, "availability.fetch", http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: fetch availability: %w", err)
	}
	return raw, nil
}

// SubmitBooking posts a public booking request. The idempotency key lets the
// workflow drop double submissions.
func (c *Client) SubmitBooking(ctx context.Context, sub BookingSubmission, idempotencyKey string) (*BookingReceipt, error) {
	if c.bookingURL == "" {
		return nil, fmt.Errorf("crmapi: submit booking: %w", ErrNotConfigured)
	}
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{idempotencyHeader: idempotencyKey}
	}
	raw, err := c.do(ctx, "booking.submit", http.MethodPost, c.bookingURL, sub, headers)
	if err != nil {
		return nil, fmt.Errorf("crmapi: submit booking: %w", err)
	}
	receipt := &BookingReceipt{OK: true}
	if len(bytes.TrimSpace(raw)) > 0 {
		// Text bodies ("Workflow was started") are accepted as success.
		_ = json.Unmarshal(raw, receipt)
	}
	return receipt, nil
}

// SendChatMessage relays a visitor message to the receptionist agent and
// returns its reply.
func (c *Client) SendChatMessage(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("crmapi: send chat message: %w: message is required", ErrInvalidInput)
	}
	if c.chatURL == "" {
		return "", fmt.Errorf("crmapi: send chat message: %w", ErrNotConfigured)
	}
	raw, err := c.do(ctx, "chat.message", http.MethodPost, c.chatURL, map[string]string{"message": message}, nil)
	if err != nil {
		return "", fmt.Errorf("crmapi: send chat message: %w", err)
	}
	return chatReply(raw), nil
}

// chatReply reads a reply from a JSON string, {"reply": ...},
// {"message": {"content": ...}} or a plain text body.
func chatReply(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return noReplyText
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return nonEmpty(s)
	}
	var obj struct {
		Reply   string          `json:"reply"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nonEmpty(string(raw))
	}
	if strings.TrimSpace(obj.Reply) != "" {
		return obj.Reply
	}
	var content struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(obj.Message, &content); err == nil && strings.TrimSpace(content.Content) != "" {
		return content.Content
	}
	return noReplyText
}

func nonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return noReplyText
	}
	return s
}

func withQuery(endpoint string, params map[string]string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
