package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSSimpleRequests(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow string
	}{
		{name: "listed origin", allowed: []string{"https://clinica.example"}, origin: "https://clinica.example", wantAllow: "https://clinica.example"},
		{name: "case and trailing slash", allowed: []string{"https://clinica.example/"}, origin: "https://Clinica.example", wantAllow: "https://Clinica.example"},
		{name: "unknown origin", allowed: []string{"https://clinica.example"}, origin: "https://outra.example", wantAllow: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://widget.example", wantAllow: "https://widget.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/availability/day?date=2025-08-21", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(handler).ServeHTTP(rec, req)

			if !called {
				t.Fatalf("expected handler to run for non-preflight requests")
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("expected allow origin %q, got %q", tt.wantAllow, got)
			}
			if tt.wantAllow != "" && rec.Header().Get("Access-Control-Allow-Methods") == "" {
				t.Fatalf("expected allow methods header")
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	mw := CORS([]string{"https://clinica.example"})

	req := httptest.NewRequest(http.MethodOptions, "/bookings", nil)
	req.Header.Set("Origin", "https://clinica.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected preflight to stop at the middleware")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	headers := rec.Header().Get("Access-Control-Allow-Headers")
	for _, want := range []string{"Idempotency-Key", "X-CRM-Key", "Content-Type"} {
		if !strings.Contains(headers, want) {
			t.Fatalf("expected %s in allow headers, got %q", want, headers)
		}
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After") {
		t.Fatalf("expected Retry-After to be exposed")
	}

	denied := httptest.NewRequest(http.MethodOptions, "/bookings", nil)
	denied.Header.Set("Origin", "https://outra.example")
	denied.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, denied)

	if called {
		t.Fatalf("expected rejected preflight to stop at the middleware")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}
