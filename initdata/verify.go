package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// DefaultMaxAge is the staleness window applied when VerifyConfig.MaxAge is
// zero. Payloads whose auth_date is older than this are rejected even when
// correctly signed.
const DefaultMaxAge = 24 * time.Hour

// signingKeyLabel keys the first HMAC of the derivation chain. The value is
// fixed by the host platform; changing it breaks compatibility.
const signingKeyLabel = "WebAppData"

// VerifyConfig holds the verifier's shared secret and staleness window.
type VerifyConfig struct {
	// Secret is the shared secret issued by the host platform.
	Secret []byte
	// MaxAge bounds how old auth_date may be. Zero means DefaultMaxAge.
	MaxAge time.Duration
	// Permissive disables verification entirely. It exists for local
	// development only and is never enabled implicitly; every payload is
	// accepted without a signature or freshness check.
	Permissive bool
}

// Verifier checks the authenticity and freshness of credential payloads.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	config VerifyConfig
}

// NewVerifier validates the configuration and returns a Verifier.
func NewVerifier(cfg VerifyConfig) (*Verifier, error) {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxAge < 0 {
		return nil, errors.New("initdata: negative MaxAge")
	}
	if len(cfg.Secret) == 0 && !cfg.Permissive {
		return nil, errors.New("initdata: verifier requires a shared secret")
	}
	return &Verifier{config: cfg}, nil
}

// Permissive reports whether verification is bypassed.
func (v *Verifier) Permissive() bool { return v.config.Permissive }

// Verify checks the payload's signature and freshness against now.
// It is a pure function over the payload, the configured secret, and now;
// all returned errors are terminal for this payload.
func (v *Verifier) Verify(p *Payload, now time.Time) error {
	if v.config.Permissive {
		return nil
	}

	got := p.Hash()
	if got == "" {
		return ErrMissingHash
	}

	mac := hmac.New(sha256.New, []byte(signingKeyLabel))
	mac.Write(v.config.Secret)
	signingKey := mac.Sum(nil)

	mac = hmac.New(sha256.New, signingKey)
	mac.Write([]byte(p.checkString()))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(got)) {
		return ErrSignatureMismatch
	}

	authDate, err := p.AuthDate()
	if err != nil {
		return err
	}
	if now.Sub(authDate) > v.config.MaxAge {
		return ErrExpired
	}
	return nil
}
