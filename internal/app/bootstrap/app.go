package bootstrap

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/odonto-crm/internal/api/router"
	"github.com/wolfman30/odonto-crm/internal/availability"
	"github.com/wolfman30/odonto-crm/internal/booking"
	"github.com/wolfman30/odonto-crm/internal/cep"
	appconfig "github.com/wolfman30/odonto-crm/internal/config"
	"github.com/wolfman30/odonto-crm/internal/crmapi"
	"github.com/wolfman30/odonto-crm/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/odonto-crm/internal/http/middleware"
	"github.com/wolfman30/odonto-crm/internal/observability/metrics"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

// App is the wired HTTP application.
type App struct {
	Handler     http.Handler
	RateLimiter *httpmiddleware.RateLimiter
	Redis       *redis.Client
	Metrics     *metrics.BookingMetrics
}

// Options overrides pieces of the wiring, mainly for tests.
type Options struct {
	// Registry receives the metrics; nil creates a fresh registry.
	Registry *prometheus.Registry
	// Redis skips BuildRedisClient when set.
	Redis *redis.Client
	// HTTPClient is shared by the upstream clients when set.
	HTTPClient *http.Client
}

// Build wires config into clients, services, handlers and the router.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) *App {
	if logger == nil {
		logger = logging.Default()
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	bookingMetrics := metrics.NewBookingMetrics(reg)

	redisClient := opts.Redis
	if redisClient == nil {
		redisClient = BuildRedisClient(ctx, cfg, logger, true)
	}

	loc := LoadLocation(cfg, logger)

	crmClient := crmapi.NewClient(crmapi.Options{
		BaseURL:         cfg.CRMAPIBase,
		APIKey:          cfg.CRMAPIKey,
		AvailabilityURL: cfg.AvailabilityHookURL,
		BookingURL:      cfg.BookingHookURL,
		ChatURL:         cfg.ChatHookURL,
		Timeout:         cfg.UpstreamTimeout,
		HTTPClient:      opts.HTTPClient,
		Observer:        bookingMetrics,
	}, logger.With("component", "crmapi"))

	cepClient := cep.NewClient(cep.Options{
		BaseURL:    cfg.ViaCEPBaseURL,
		Timeout:    cfg.UpstreamTimeout,
		HTTPClient: opts.HTTPClient,
		Redis:      redisClient,
		CacheTTL:   cfg.CEPCacheTTL,
		Observer:   bookingMetrics,
	}, logger.With("component", "cep"))

	bookingSvc := booking.NewService(
		crmClient,
		crmClient,
		booking.NewBagCache(redisClient, cfg.AvailabilityCacheTTL),
		booking.Config{
			Location:         loc,
			PublicDefaults:   PublicDefaults(cfg, logger),
			ConsoleDefaults:  availability.ConsoleDefaults,
			MonthConcurrency: cfg.MonthFetchConcurrency,
			Catalog:          crmClient,
		},
		bookingMetrics,
		logger.With("component", "booking"),
	)

	public := handlers.NewPublicHandler(handlers.PublicHandlerConfig{
		Availability: bookingSvc,
		Bookings:     bookingSvc,
		Chat:         crmClient,
		CEP:          cepClient,
		Logger:       logger,
	})
	console := handlers.NewConsoleHandler(handlers.ConsoleHandlerConfig{
		CRM:          crmClient,
		Availability: bookingSvc,
		Location:     loc,
		Logger:       logger,
	})

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	handler := router.New(&router.Config{
		Logger:             logger,
		Public:             public,
		Console:            console,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	return &App{
		Handler:     handler,
		RateLimiter: limiter,
		Redis:       redisClient,
		Metrics:     bookingMetrics,
	}
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}
