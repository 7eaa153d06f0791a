package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/odonto-crm/internal/availability"
	appconfig "github.com/wolfman30/odonto-crm/internal/config"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, caching disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// LoadLocation resolves the clinic time zone, falling back to UTC.
func LoadLocation(cfg *appconfig.Config, logger *logging.Logger) *time.Location {
	if logger == nil {
		logger = logging.Default()
	}
	name := ""
	if cfg != nil {
		name = strings.TrimSpace(cfg.ClinicTimezone)
	}
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("unknown clinic timezone, using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

// PublicDefaults builds the widget's office-hour defaults from config.
// Unparsable or inverted values keep the package defaults.
func PublicDefaults(cfg *appconfig.Config, logger *logging.Logger) availability.Defaults {
	d := availability.PublicDefaults
	if cfg == nil {
		return d
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DefaultIntervalMinutes > 0 {
		d.IntervalMinutes = cfg.DefaultIntervalMinutes
	}
	start, errStart := availability.ParseTimeOfDay(cfg.DefaultOfficeHoursStart)
	end, errEnd := availability.ParseTimeOfDay(cfg.DefaultOfficeHoursEnd)
	if errStart != nil || errEnd != nil || start >= end {
		logger.Warn("invalid default office hours, using 09:00-18:00",
			"start", cfg.DefaultOfficeHoursStart,
			"end", cfg.DefaultOfficeHoursEnd,
		)
		return d
	}
	d.OfficeHours = availability.OfficeHours{Start: start, End: end}
	return d
}
