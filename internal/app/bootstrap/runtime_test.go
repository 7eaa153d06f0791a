package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/odonto-crm/internal/availability"
	appconfig "github.com/wolfman30/odonto-crm/internal/config"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.Ping(context.Background()).Err())

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true))
}

func TestLoadLocation(t *testing.T) {
	logger := logging.New("error")

	loc := LoadLocation(&appconfig.Config{ClinicTimezone: "America/Sao_Paulo"}, logger)
	assert.Equal(t, "America/Sao_Paulo", loc.String())

	assert.Equal(t, "UTC", LoadLocation(&appconfig.Config{ClinicTimezone: "Mars/Olympus"}, logger).String())
	assert.Equal(t, "UTC", LoadLocation(nil, logger).String())
}

func TestPublicDefaults(t *testing.T) {
	logger := logging.New("error")

	d := PublicDefaults(&appconfig.Config{
		DefaultOfficeHoursStart: "10:00",
		DefaultOfficeHoursEnd:   "16:30",
		DefaultIntervalMinutes:  30,
	}, logger)
	assert.Equal(t, availability.NewTimeOfDay(10, 0), d.OfficeHours.Start)
	assert.Equal(t, availability.NewTimeOfDay(16, 30), d.OfficeHours.End)
	assert.Equal(t, 30, d.IntervalMinutes)

	inverted := PublicDefaults(&appconfig.Config{
		DefaultOfficeHoursStart: "18:00",
		DefaultOfficeHoursEnd:   "09:00",
	}, logger)
	assert.Equal(t, availability.PublicDefaults, inverted)
}

func TestBuildServesWiredRoutes(t *testing.T) {
	var availabilityCalls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/webhook/availability"):
			availabilityCalls++
			assert.Equal(t, "2025-08-21", r.URL.Query().Get("date"))
			_, _ = w.Write([]byte(`{"officeHours":{"start":"09:00","end":"12:00"},"intervalMinutes":60,"busy":[{"start":"10:00","end":"11:00"}]}`))
		case strings.HasSuffix(r.URL.Path, "/procedures"):
			_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Limpeza","duration":30}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &appconfig.Config{
		CRMAPIBase:              upstream.URL + "/webhook/odonto",
		AvailabilityHookURL:     upstream.URL + "/webhook/availability/",
		ViaCEPBaseURL:           upstream.URL,
		ClinicTimezone:          "America/Sao_Paulo",
		DefaultOfficeHoursStart: "09:00",
		DefaultOfficeHoursEnd:   "18:00",
		DefaultIntervalMinutes:  60,
		MonthFetchConcurrency:   2,
		RateLimitRPS:            100,
		RateLimitBurst:          100,
	}

	app := Build(context.Background(), cfg, logging.New("error"), Options{
		Registry: prometheus.NewRegistry(),
		Redis:    rdb,
	})
	require.NotNil(t, app.Handler)
	require.NotNil(t, app.RateLimiter)

	get := func(target string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		return rr
	}

	for i := 0; i < 2; i++ {
		rr := get("/availability/day?date=2025-08-21")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var day struct {
			Slots []struct {
				Time      string `json:"time"`
				Available bool   `json:"available"`
			} `json:"slots"`
			HasAvailability bool `json:"hasAvailability"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &day))
		require.Len(t, day.Slots, 3)
		assert.True(t, day.Slots[0].Available)
		assert.False(t, day.Slots[1].Available)
		assert.True(t, day.HasAvailability)
	}
	assert.Equal(t, 1, availabilityCalls, "second request should be served from the bag cache")

	rr := get("/console/procedures")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "Limpeza")

	metricsBody := get("/metrics").Body.String()
	assert.Contains(t, metricsBody, "odonto_upstream_requests_total")
	assert.Contains(t, metricsBody, "odonto_cache_lookups_total")

	require.NoError(t, app.Close())
}
