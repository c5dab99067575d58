package replay

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Guard records consumed payload hashes. A nil Guard treats every payload
// as first-seen.
type Guard struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Guard keyed under the given prefix.
func New(redisClient redis.UniversalClient, prefix string) *Guard {
	return &Guard{redis: redisClient, prefix: prefix}
}

// Remember records the payload hash for the window and reports whether this
// was its first presentation. The window should match the verifier's
// staleness window: beyond it the payload is rejected as stale anyway.
func (g *Guard) Remember(ctx context.Context, hash string, window time.Duration) (bool, error) {
	if g == nil || g.redis == nil {
		return true, nil
	}
	first, err := g.redis.SetNX(ctx, g.prefix+hash, 1, window).Result()
	if err != nil {
		return false, errors.Join(ErrRedisUnavailable, err)
	}
	return first, nil
}
