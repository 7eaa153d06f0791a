// Package cep resolves Brazilian postal codes through ViaCEP.
package cep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

const (
	defaultBaseURL  = "https://viacep.com.br"
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 24 * time.Hour
	cacheKeyPrefix  = "cep:address:"

	// ViaCEP answers are a few hundred bytes.
	maxResponseBytes = 64 << 10
)

var (
	// ErrInvalidCEP is returned for input that does not carry exactly 8 digits.
	ErrInvalidCEP = errors.New("cep: invalid postal code")
	// ErrNotFound is returned when ViaCEP does not know the postal code.
	ErrNotFound = errors.New("cep: postal code not found")
)

// Address is the subset of the ViaCEP payload the console fills in.
type Address struct {
	CEP      string `json:"cep"`
	Street   string `json:"street"`
	District string `json:"district"`
	City     string `json:"city"`
	UF       string `json:"uf"`
}

// Observer receives lookup telemetry.
type Observer interface {
	ObserveUpstream(operation, status string, seconds float64)
	ObserveCache(cache string, hit bool)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Redis      *redis.Client
	CacheTTL   time.Duration
	Observer   Observer
}

// Client looks up addresses, caching hits in Redis when configured.
type Client struct {
	httpClient *http.Client
	baseURL    string
	redis      *redis.Client
	ttl        time.Duration
	observer   Observer
	logger     *logging.Logger
}

// NewClient constructs a ViaCEP client.
func NewClient(opts Options, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		redis:      opts.Redis,
		ttl:        ttl,
		observer:   opts.Observer,
		logger:     logger,
	}
}

// Digits strips everything but ASCII digits.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mask formats the digits of raw as 12345-678, truncating extra digits.
// Shorter input is returned partially masked, the way the console field does
// while typing.
func Mask(raw string) string {
	d := Digits(raw)
	if len(d) > 8 {
		d = d[:8]
	}
	if len(d) <= 5 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

// Lookup resolves raw to an address.
func (c *Client) Lookup(ctx context.Context, raw string) (*Address, error) {
	digits := Digits(raw)
	if len(digits) != 8 {
		return nil, ErrInvalidCEP
	}

	if addr, ok := c.cached(ctx, digits); ok {
		return addr, nil
	}

	addr, err := c.fetch(ctx, digits)
	if err != nil {
		return nil, err
	}
	c.store(ctx, digits, addr)
	return addr, nil
}

type viaCEPResponse struct {
	CEP        string          `json:"cep"`
	Logradouro string          `json:"logradouro"`
	Bairro     string          `json:"bairro"`
	Localidade string          `json:"localidade"`
	UF         string          `json:"uf"`
	Erro       json.RawMessage `json:"erro"`
}

// notFound reports ViaCEP's {"erro": true} marker, sent as a bool or a string.
func (r viaCEPResponse) notFound() bool {
	v := strings.Trim(string(bytes.TrimSpace(r.Erro)), `"`)
	return strings.EqualFold(v, "true")
}

func (c *Client) fetch(ctx context.Context, digits string) (*Address, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream("cep.lookup", status, time.Since(start).Seconds())
		}
	}()

	endpoint := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("cep: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cep: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("cep: read response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("cep: response exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status = fmt.Sprintf("%d", resp.StatusCode)
		c.logger.Warn("viacep non-2xx response", "status", resp.StatusCode, "cep", digits)
		return nil, fmt.Errorf("cep: viacep returned status %d", resp.StatusCode)
	}

	var payload viaCEPResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("cep: decode response: %w", err)
	}
	status = "ok"
	if payload.notFound() {
		return nil, ErrNotFound
	}
	return &Address{
		CEP:      Mask(digits),
		Street:   payload.Logradouro,
		District: payload.Bairro,
		City:     payload.Localidade,
		UF:       payload.UF,
	}, nil
}

func (c *Client) cached(ctx context.Context, digits string) (*Address, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKeyPrefix+digits).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cep cache read failed", "error", err)
		}
		c.observeCache(false)
		return nil, false
	}
	var addr Address
	if err := json.Unmarshal(data, &addr); err != nil {
		c.observeCache(false)
		return nil, false
	}
	c.observeCache(true)
	return &addr, true
}

func (c *Client) store(ctx context.Context, digits string, addr *Address) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKeyPrefix+digits, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cep cache write failed", "error", err)
	}
}

func (c *Client) observeCache(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache("cep", hit)
	}
}
