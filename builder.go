package miniauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/internal/rate"
	"github.com/dirhub/miniauth/internal/replay"
	"github.com/dirhub/miniauth/token"
)

// Builder assembles an Engine. A Builder is single-use and not safe for
// concurrent use; the resulting Engine is.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	built  bool
}

// New returns a Builder pre-loaded with default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis attaches the Redis client backing the replay guard and the
// throttle. Without it both features stay disabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMetricsEnabled toggles the engine counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and constructs the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	b.config.applyDefaults()
	if err := b.config.validate(); err != nil {
		return nil, err
	}
	if b.config.Replay.Enabled && b.redis == nil {
		return nil, errors.New("miniauth: replay guard requires a redis client")
	}
	if b.config.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("miniauth: throttle requires a redis client")
	}

	verifier, err := initdata.NewVerifier(initdata.VerifyConfig{
		Secret:     b.config.InitData.Secret,
		MaxAge:     b.config.InitData.MaxAge,
		Permissive: b.config.InitData.Permissive,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret:      b.config.Token.Secret,
		TTL:         b.config.Token.TTL,
		ExtendedTTL: b.config.Token.ExtendedTTL,
		Issuer:      b.config.Token.Issuer,
		Audience:    b.config.Token.Audience,
		Leeway:      b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   b.config,
		verifier: verifier,
		tokens:   tokens,
		metrics:  NewMetrics(b.config.Metrics),
	}
	if b.config.Replay.Enabled {
		engine.replay = replay.New(b.redis, b.config.Replay.Prefix)
	}
	if b.config.Throttle.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			MaxAttempts: b.config.Throttle.MaxAttempts,
			Window:      b.config.Throttle.Window,
		})
	}
	return engine, nil
}
