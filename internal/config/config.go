package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// CRM webhook API (procedures, patients, appointments, quotes)
	CRMAPIBase      string
	CRMAPIKey       string
	UpstreamTimeout time.Duration

	// Booking widget webhooks
	AvailabilityHookURL string
	BookingHookURL      string
	ChatHookURL         string

	// Postal code lookup
	ViaCEPBaseURL string
	CEPCacheTTL   time.Duration

	// Availability defaults
	ClinicTimezone          string
	DefaultOfficeHoursStart string
	DefaultOfficeHoursEnd   string
	DefaultIntervalMinutes  int
	AvailabilityCacheTTL    time.Duration
	MonthFetchConcurrency   int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", "json"))),

		CRMAPIBase:      strings.TrimRight(getEnv("CRM_API_BASE", "https://allnsnts.app.n8n.cloud/webhook/odonto"), "/"),
		CRMAPIKey:       getEnv("CRM_API_KEY", ""),
		UpstreamTimeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 15*time.Second),

		AvailabilityHookURL: getEnv("AVAILABILITY_HOOK_URL", "https://allnsnts.app.n8n.cloud/webhook/availability/"),
		BookingHookURL:      getEnv("BOOKING_HOOK_URL", "https://allnsnts.app.n8n.cloud/webhook/odonto/book"),
		ChatHookURL:         getEnv("CHAT_HOOK_URL", ""),

		ViaCEPBaseURL: getEnv("VIACEP_BASE_URL", "https://viacep.com.br"),
		CEPCacheTTL:   getEnvAsDuration("CEP_CACHE_TTL", 24*time.Hour),

		ClinicTimezone:          getEnv("CLINIC_TIMEZONE", "America/Sao_Paulo"),
		DefaultOfficeHoursStart: getEnv("DEFAULT_OFFICE_HOURS_START", "09:00"),
		DefaultOfficeHoursEnd:   getEnv("DEFAULT_OFFICE_HOURS_END", "18:00"),
		DefaultIntervalMinutes:  getEnvAsInt("DEFAULT_INTERVAL_MINUTES", 60),
		AvailabilityCacheTTL:    getEnvAsDuration("AVAILABILITY_CACHE_TTL", time.Minute),
		MonthFetchConcurrency:   getEnvAsInt("MONTH_FETCH_CONCURRENCY", 8),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
