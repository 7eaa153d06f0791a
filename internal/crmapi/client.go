package crmapi

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

	"github.com/wolfman30/odonto-crm/pkg/logging"
)

const (
	defaultBaseURL = "https://allnsnts.app.n8n.cloud/webhook/odonto"
	defaultTimeout = 15 * time.Second
	apiKeyHeader   = "x-crm-key"

	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 4 << 20
)

// UpstreamObserver records the outcome of every upstream call.
type UpstreamObserver interface {
	ObserveUpstream(operation, status string, seconds float64)
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	APIKey          string
	AvailabilityURL string
	BookingURL      string
	ChatURL         string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Observer        UpstreamObserver
}

// Client talks to the CRM webhook API that backs the console and the
// booking widget.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	availabilityURL string
	bookingURL      string
	chatURL         string
	observer        UpstreamObserver
	logger          *logging.Logger
}

// NewClient constructs a CRM API client.
func NewClient(opts Options, logger *logging.Logger) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient:      httpClient,
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          strings.TrimSpace(opts.APIKey),
		availabilityURL: strings.TrimSpace(opts.AvailabilityURL),
		bookingURL:      strings.TrimSpace(opts.BookingURL),
		chatURL:         strings.TrimSpace(opts.ChatURL),
		observer:        opts.Observer,
		logger:          logger,
	}
}

// URL joins path onto the base URL with exactly one slash between them.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// query encodes the non-empty values of params, or returns "" when none remain.
func query(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) doJSON(ctx context.Context, operation, method, path string, body interface{}, out interface{}) error {
	respBody, err := c.do(ctx, operation, method, c.URL(path), body, nil)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(respBody)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do performs the request and returns the raw response body. Non-2xx
// responses become *APIError.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, body interface{}, headers map[string]string) ([]byte, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(operation, status, time.Since(start).Seconds())
		}
	}()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil && method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(respBody) > maxResponseBytes {
		return nil, fmt.Errorf("read response: %w", ErrResponseTooLarge)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status = fmt.Sprintf("%d", resp.StatusCode)
		apiErr := newAPIError(resp.StatusCode, respBody)
		c.logger.Warn("crm API non-2xx response",
			"operation", operation,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return nil, apiErr
	}
	status = "ok"
	return respBody, nil
}
