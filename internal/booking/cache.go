package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultBagTTL = time.Minute

// BagCache stores raw availability bags per day in Redis. Slots are never
// cached; they are recomputed from the bag on every request.
type BagCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewBagCache returns a cache backed by redisClient, or nil when the client is nil.
func NewBagCache(redisClient *redis.Client, ttl time.Duration) *BagCache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultBagTTL
	}
	return &BagCache{
		redis:  redisClient,
		ttl:    ttl,
		tracer: otel.Tracer("odonto.internal.booking.cache"),
	}
}

func (c *BagCache) key(date, tz string) string {
	return fmt.Sprintf("availability:bag:%s:%s", tz, date)
}

func (c *BagCache) start(ctx context.Context, name, date string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("odonto.date", date)))
}

// Get returns the cached bag and whether it was present.
func (c *BagCache) Get(ctx context.Context, date, tz string) ([]byte, bool, error) {
	ctx, span := c.start(ctx, "booking.cache_get", date)
	defer span.End()

	data, err := c.redis.Get(ctx, c.key(date, tz)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("booking: get cached bag: %w", err)
	}
	return data, true, nil
}

// Set stores raw for the day.
func (c *BagCache) Set(ctx context.Context, date, tz string, raw []byte) error {
	ctx, span := c.start(ctx, "booking.cache_set", date)
	defer span.End()

	if err := c.redis.Set(ctx, c.key(date, tz), raw, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: set cached bag: %w", err)
	}
	return nil
}

// Invalidate drops the cached bag for the day.
func (c *BagCache) Invalidate(ctx context.Context, date, tz string) error {
	ctx, span := c.start(ctx, "booking.cache_invalidate", date)
	defer span.End()

	if err := c.redis.Del(ctx, c.key(date, tz)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: invalidate cached bag: %w", err)
	}
	return nil
}
