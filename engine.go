package miniauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/internal/rate"
	"github.com/dirhub/miniauth/internal/replay"
	"github.com/dirhub/miniauth/token"
)

// subjectNamespace derives stable internal subject ids from platform user
// ids. Rotating it would re-key every subject, so it is fixed.
var subjectNamespace = uuid.MustParse("5f7f9c1e-8c3a-4a6b-9e41-2d6b1c9a7f50")

// Engine is the server side of the protocol: it authenticates credential
// payloads, validates bearer tokens, and refreshes sessions. Engines hold
// no per-session state and are safe for concurrent use.
type Engine struct {
	config   Config
	verifier *initdata.Verifier
	tokens   *token.Manager
	replay   *replay.Guard
	limiter  *rate.Limiter
	metrics  *Metrics
}

// Permissive reports whether payload verification is bypassed.
func (e *Engine) Permissive() bool {
	return e != nil && e.verifier.Permissive()
}

// MetricsSnapshot copies the engine counters for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e != nil {
		e.metrics.Inc(id)
	}
}

// SubjectID derives the stable internal id for a platform user.
func SubjectID(externalID string) string {
	return uuid.NewSHA1(subjectNamespace, []byte(externalID)).String()
}

// Authenticate verifies a raw credential payload and exchanges it for a
// session token. clientIP feeds the optional throttle and may be empty.
// Verification errors from the initdata package pass through unwrapped so
// callers can map them to protocol error codes.
func (e *Engine) Authenticate(ctx context.Context, rawPayload, clientIP string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	now := time.Now()

	if err := e.limiter.AllowIssue(ctx, clientIP); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricIssueRateLimited)
			return nil, ErrIssueRateLimited
		}
		// Redis being down must not take authentication with it.
	}

	payload, err := initdata.Parse(rawPayload)
	if err != nil {
		e.metricInc(MetricIssueMalformed)
		return nil, err
	}
	if err := e.verifier.Verify(payload, now); err != nil {
		e.countVerifyFailure(err)
		return nil, err
	}

	// Replay is checked only after the signature holds, so attackers cannot
	// burn someone else's payload hash with a forged submission.
	if payload.Hash() != "" {
		first, err := e.replay.Remember(ctx, payload.Hash(), e.config.InitData.MaxAge)
		if err == nil && !first {
			e.metricInc(MetricReplayDetected)
			return nil, ErrReplayDetected
		}
	}

	identity, err := initdata.ParseIdentity(payload)
	if err != nil {
		e.metricInc(MetricIssueMalformed)
		return nil, err
	}

	result, err := e.issue(*identity, now)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricIssueSuccess)
	return result, nil
}

func (e *Engine) countVerifyFailure(err error) {
	switch {
	case errors.Is(err, initdata.ErrExpired):
		e.metricInc(MetricIssueExpired)
	case errors.Is(err, initdata.ErrSignatureMismatch), errors.Is(err, initdata.ErrMissingHash):
		e.metricInc(MetricIssueSignatureMismatch)
	default:
		e.metricInc(MetricIssueMalformed)
	}
}

func (e *Engine) issue(identity initdata.Identity, now time.Time) (*AuthResult, error) {
	subjectID := SubjectID(identity.ExternalID)
	signed, err := e.tokens.Issue(identity, subjectID, now)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &AuthResult{
		Token:     signed,
		SubjectID: subjectID,
		Identity:  identity,
		ExpiresAt: now.Add(e.config.Token.TTL),
	}, nil
}

// IssueExtended mints a long-lived token for an already-verified identity.
// The extended TTL is an explicit choice, never a default.
func (e *Engine) IssueExtended(identity initdata.Identity) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	now := time.Now()
	subjectID := SubjectID(identity.ExternalID)
	signed, err := e.tokens.IssueExtended(identity, subjectID, now)
	if err != nil {
		return nil, fmt.Errorf("issue extended session token: %w", err)
	}
	return &AuthResult{
		Token:     signed,
		SubjectID: subjectID,
		Identity:  identity,
		ExpiresAt: now.Add(e.config.Token.ExtendedTTL),
	}, nil
}

// ValidateAccess verifies a bearer token presented on an authenticated
// request. Expired tokens return ErrTokenExpired, everything else
// ErrTokenInvalid.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.Verify(tokenStr, time.Now())
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, mapTokenError(err)
	}
	e.metricInc(MetricValidateSuccess)
	return resultFromClaims(claims), nil
}

// Refresh exchanges a valid or recently expired token for a fresh one.
// Tokens expired beyond the grace window return ErrTokenExpired and the
// client must restart from extraction; invalid tokens return ErrTokenInvalid
// and force full re-authentication.
func (e *Engine) Refresh(ctx context.Context, tokenStr, clientIP string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	now := time.Now()

	if err := e.limiter.AllowRefresh(ctx, clientIP); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricRefreshRateLimited)
			return nil, ErrRefreshRateLimited
		}
	}

	claims, err := e.tokens.VerifyWithGrace(tokenStr, now, e.config.Token.RefreshGrace)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, mapTokenError(err)
	}

	result, err := e.issue(claims.Identity(), now)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	e.metricInc(MetricRefreshSuccess)
	return result, nil
}

func resultFromClaims(claims *token.Claims) *AuthResult {
	return &AuthResult{
		SubjectID: claims.Subject,
		Identity:  claims.Identity(),
		ExpiresAt: claims.ExpiresAt.Time,
		Claims:    claims,
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
