package rate

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when a counter exceeds its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter enforces per-IP fixed-window budgets for issuance and refresh.
// A nil Limiter allows everything.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// AllowIssue counts one issuance attempt for the client IP and reports
// whether it stays within budget.
func (l *Limiter) AllowIssue(ctx context.Context, ip string) error {
	return l.allow(ctx, "mi:"+ip)
}

// AllowRefresh counts one refresh attempt for the client IP and reports
// whether it stays within budget.
func (l *Limiter) AllowRefresh(ctx context.Context, ip string) error {
	return l.allow(ctx, "mr:"+ip)
}

func (l *Limiter) allow(ctx context.Context, key string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return errors.Join(ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return errors.Join(ErrRedisUnavailable, err)
		}
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}
