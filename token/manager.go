package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dirhub/miniauth/initdata"
)

const (
	// DefaultTTL is the lifetime of a standard session token.
	DefaultTTL = 24 * time.Hour
	// DefaultExtendedTTL is the lifetime of the long-lived variant. It is
	// never applied implicitly; callers opt in through IssueExtended.
	DefaultExtendedTTL = 7 * 24 * time.Hour

	// DefaultIssuer and DefaultAudience tag every issued token.
	DefaultIssuer   = "miniauth"
	DefaultAudience = "miniapp"
)

var (
	// ErrExpired is returned for a well-signed token past its expiry.
	// Recoverable through the refresh flow.
	ErrExpired = errors.New("session token expired")
	// ErrInvalid is returned for a bad signature, wrong issuer or audience,
	// or an otherwise unusable token. Not recoverable; the client must
	// re-authenticate from scratch.
	ErrInvalid = errors.New("session token invalid")
)

// Config holds the signing secret, lifetimes, and tag values.
type Config struct {
	Secret      []byte
	TTL         time.Duration // zero means DefaultTTL
	ExtendedTTL time.Duration // zero means DefaultExtendedTTL
	Issuer      string        // zero means DefaultIssuer
	Audience    string        // zero means DefaultAudience
	Leeway      time.Duration // clock-skew tolerance during verification
}

// Claims is the decoded body of a session token.
type Claims struct {
	ExternalID string `json:"eid"`
	FirstName  string `json:"fn"`
	LastName   string `json:"ln,omitempty"`
	Handle     string `json:"handle,omitempty"`
	Privileged bool   `json:"priv,omitempty"`
	Locale     string `json:"locale,omitempty"`
	jwt.RegisteredClaims
}

// Identity rebuilds the canonical identity carried by the claims.
func (c *Claims) Identity() initdata.Identity {
	return initdata.Identity{
		ExternalID: c.ExternalID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Handle:     c.Handle,
		Privileged: c.Privileged,
		Locale:     c.Locale,
	}
}

// Manager signs and verifies session tokens. It only reads its configuration
// and is safe for concurrent use without locking.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: signing secret required")
	}
	if cfg.TTL < 0 || cfg.ExtendedTTL < 0 {
		return nil, errors.New("token: negative TTL configuration")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ExtendedTTL == 0 {
		cfg.ExtendedTTL = DefaultExtendedTTL
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	return &Manager{config: cfg}, nil
}

// TTL returns the standard token lifetime.
func (m *Manager) TTL() time.Duration { return m.config.TTL }

// Issue mints a standard-lifetime token for the identity.
func (m *Manager) Issue(identity initdata.Identity, subjectID string, now time.Time) (string, error) {
	return m.issue(identity, subjectID, now, m.config.TTL)
}

// IssueExtended mints a token with the long-lived TTL. The extended lifetime
// is an explicit choice for refresh-token-style use.
func (m *Manager) IssueExtended(identity initdata.Identity, subjectID string, now time.Time) (string, error) {
	return m.issue(identity, subjectID, now, m.config.ExtendedTTL)
}

func (m *Manager) issue(identity initdata.Identity, subjectID string, now time.Time, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("token: empty subject id")
	}
	if identity.ExternalID == "" {
		return "", errors.New("token: identity missing external id")
	}
	claims := Claims{
		ExternalID: identity.ExternalID,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Handle:     identity.Handle,
		Privileged: identity.Privileged,
		Locale:     identity.Locale,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify checks the token's signature, issuer, audience, and expiry against
// now. Expiry failures return ErrExpired; everything else returns ErrInvalid.
func (m *Manager) Verify(tokenStr string, now time.Time) (*Claims, error) {
	return m.verify(tokenStr, now, 0)
}

// VerifyWithGrace behaves like Verify but tolerates tokens expired by at
// most grace. The refresh endpoint uses it to accept recently expired tokens
// while still rejecting anything with a bad signature outright.
func (m *Manager) VerifyWithGrace(tokenStr string, now time.Time, grace time.Duration) (*Claims, error) {
	if grace < 0 {
		return nil, errors.New("token: negative grace")
	}
	return m.verify(tokenStr, now, grace)
}

func (m *Manager) verify(tokenStr string, now time.Time, grace time.Duration) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Claims are validated manually below so that expiry within the
		// grace window can be told apart from a hard failure.
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}

	if claims.Issuer != m.config.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalid)
	}
	if !audienceContains(claims.Audience, m.config.Audience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalid)
	}
	if claims.ExternalID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalid)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalid)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now.Add(m.config.Leeway).Add(5*time.Minute)) {
		return nil, fmt.Errorf("%w: issued in the future", ErrInvalid)
	}

	deadline := claims.ExpiresAt.Time.Add(m.config.Leeway).Add(grace)
	if now.After(deadline) {
		return nil, ErrExpired
	}
	return claims, nil
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
