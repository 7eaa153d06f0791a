package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/odonto-crm/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/odonto-crm/internal/http/middleware"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Public             *handlers.PublicHandler
	Console            *handlers.ConsoleHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RateLimiter guards the public widget routes; nil disables limiting.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public widget endpoints
	r.Group(func(public chi.Router) {
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Public == nil {
			return
		}
		public.Get("/health", cfg.Public.Health)

		public.Group(func(limited chi.Router) {
			if cfg.RateLimiter != nil {
				limited.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			limited.Get("/availability/day", cfg.Public.DayAvailability)
			limited.Get("/availability/month", cfg.Public.MonthAvailability)
			limited.Post("/bookings", cfg.Public.CreateBooking)
			limited.Post("/chat/message", cfg.Public.ChatMessage)
			limited.Get("/cep/{cep}", cfg.Public.LookupCEP)
		})
	})

	// Admin console
	if cfg.Console != nil {
		r.Route("/console", func(console chi.Router) {
			console.Get("/availability/day", cfg.Console.DayAvailability)
			console.Route("/procedures", func(r chi.Router) {
				r.Get("/", cfg.Console.ListProcedures)
				r.Post("/", cfg.Console.CreateProcedure)
				r.Delete("/{id}", cfg.Console.DeleteProcedure)
			})
			console.Route("/patients", func(r chi.Router) {
				r.Get("/", cfg.Console.ListPatients)
				r.Post("/", cfg.Console.UpsertPatient)
				r.Get("/search", cfg.Console.SearchPatients)
			})
			console.Route("/appointments", func(r chi.Router) {
				r.Get("/", cfg.Console.AppointmentsByDay)
				r.Post("/", cfg.Console.CreateAppointment)
				r.Post("/{id}/reschedule", cfg.Console.RescheduleAppointment)
				r.Post("/{id}/cancel", cfg.Console.CancelAppointment)
			})
			console.Get("/bookings", cfg.Console.ListBookings)
			console.Route("/quotes", func(r chi.Router) {
				r.Post("/", cfg.Console.CreateQuote)
				r.Post("/preview", cfg.Console.PreviewQuote)
			})
		})
	}

	return r
}
