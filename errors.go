package miniauth

import "errors"

var (
	// ErrEngineNotReady is returned when a nil or unbuilt engine is used.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrReplayDetected is returned when a correctly signed payload is
	// presented a second time within the staleness window.
	ErrReplayDetected = errors.New("credential payload replayed")
	// ErrIssueRateLimited is returned when issuance attempts from one
	// client exceed the configured budget.
	ErrIssueRateLimited = errors.New("session issuance rate limited")
	// ErrRefreshRateLimited is returned when refresh attempts from one
	// client exceed the configured budget.
	ErrRefreshRateLimited = errors.New("session refresh rate limited")
	// ErrTokenInvalid is returned for tokens that fail signature, issuer,
	// or audience checks. Terminal: the client must re-authenticate.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrTokenExpired is returned for well-signed tokens past their expiry
	// and, on the refresh path, past the grace window.
	ErrTokenExpired = errors.New("session token expired")
)
