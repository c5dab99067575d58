package miniauth

import (
	"errors"
	"time"

	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/token"
)

// Config assembles the engine's sub-configurations. Zero values fall back to
// the defaults documented on each field; Build validates the result.
type Config struct {
	InitData InitDataConfig
	Token    TokenConfig
	Replay   ReplayConfig
	Throttle ThrottleConfig
	Metrics  MetricsConfig
}

// InitDataConfig configures credential payload verification.
type InitDataConfig struct {
	// Secret is the shared secret issued by the host platform.
	Secret []byte
	// MaxAge is the staleness window. Zero means initdata.DefaultMaxAge.
	MaxAge time.Duration
	// Permissive bypasses verification for local development. Never
	// enabled implicitly.
	Permissive bool
}

// TokenConfig configures session token issuance and verification.
type TokenConfig struct {
	// Secret signs session tokens. May equal InitData.Secret, but a
	// separate secret keeps a payload-secret leak from forging sessions.
	Secret []byte
	// TTL is the standard session lifetime. Zero means token.DefaultTTL.
	TTL time.Duration
	// ExtendedTTL is the explicit long-lived lifetime. Zero means
	// token.DefaultExtendedTTL.
	ExtendedTTL time.Duration
	// Issuer and Audience tag every token.
	Issuer   string
	Audience string
	// Leeway is the clock-skew tolerance during verification.
	Leeway time.Duration
	// RefreshGrace bounds how recently expired a token may be and still be
	// accepted by Refresh. Zero means 1h.
	RefreshGrace time.Duration
}

// ReplayConfig configures the Redis-backed replay guard. Disabled without a
// Redis client; the verifier itself stays a pure function either way.
type ReplayConfig struct {
	Enabled bool
	// Prefix namespaces guard keys. Zero means "miniauth:seen:".
	Prefix string
}

// ThrottleConfig configures per-client-IP issuance and refresh throttling.
// Disabled without a Redis client.
type ThrottleConfig struct {
	Enabled bool
	// MaxAttempts per window. Zero means 30.
	MaxAttempts int
	// Window is the fixed counting window. Zero means 1 minute.
	Window time.Duration
}

// MetricsConfig toggles the engine's atomic counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultRefreshGrace is applied when TokenConfig.RefreshGrace is zero.
const DefaultRefreshGrace = time.Hour

func defaultConfig() Config {
	return Config{
		InitData: InitDataConfig{MaxAge: initdata.DefaultMaxAge},
		Token: TokenConfig{
			TTL:          token.DefaultTTL,
			ExtendedTTL:  token.DefaultExtendedTTL,
			Issuer:       token.DefaultIssuer,
			Audience:     token.DefaultAudience,
			RefreshGrace: DefaultRefreshGrace,
		},
		Throttle: ThrottleConfig{MaxAttempts: 30, Window: time.Minute},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

func (c *Config) applyDefaults() {
	if c.InitData.MaxAge == 0 {
		c.InitData.MaxAge = initdata.DefaultMaxAge
	}
	if c.Token.TTL == 0 {
		c.Token.TTL = token.DefaultTTL
	}
	if c.Token.ExtendedTTL == 0 {
		c.Token.ExtendedTTL = token.DefaultExtendedTTL
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = token.DefaultIssuer
	}
	if c.Token.Audience == "" {
		c.Token.Audience = token.DefaultAudience
	}
	if c.Token.RefreshGrace == 0 {
		c.Token.RefreshGrace = DefaultRefreshGrace
	}
	if c.Replay.Prefix == "" {
		c.Replay.Prefix = "miniauth:seen:"
	}
	if c.Throttle.MaxAttempts == 0 {
		c.Throttle.MaxAttempts = 30
	}
	if c.Throttle.Window == 0 {
		c.Throttle.Window = time.Minute
	}
}

func (c *Config) validate() error {
	if len(c.InitData.Secret) == 0 && !c.InitData.Permissive {
		return errors.New("miniauth: InitData.Secret required unless permissive")
	}
	if len(c.Token.Secret) == 0 {
		return errors.New("miniauth: Token.Secret required")
	}
	if c.InitData.MaxAge < 0 || c.Token.TTL < 0 || c.Token.ExtendedTTL < 0 || c.Token.RefreshGrace < 0 {
		return errors.New("miniauth: negative duration in configuration")
	}
	if c.Throttle.MaxAttempts < 0 || c.Throttle.Window < 0 {
		return errors.New("miniauth: invalid throttle configuration")
	}
	return nil
}
