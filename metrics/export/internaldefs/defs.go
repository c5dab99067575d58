package internaldefs

import (
	miniauth "github.com/dirhub/miniauth"
)

// CounterDef maps one engine counter to its exported name.
type CounterDef struct {
	ID   miniauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: miniauth.MetricIssueSuccess, Name: "miniauth_issue_success_total", Help: "Successful payload-to-token exchanges."},
	{ID: miniauth.MetricIssueSignatureMismatch, Name: "miniauth_issue_signature_mismatch_total", Help: "Payloads rejected for a bad signature."},
	{ID: miniauth.MetricIssueExpired, Name: "miniauth_issue_expired_total", Help: "Payloads rejected as stale."},
	{ID: miniauth.MetricIssueMalformed, Name: "miniauth_issue_malformed_total", Help: "Payloads rejected as unparseable."},
	{ID: miniauth.MetricIssueRateLimited, Name: "miniauth_issue_rate_limited_total", Help: "Throttled issuance attempts."},
	{ID: miniauth.MetricReplayDetected, Name: "miniauth_replay_detected_total", Help: "Detected payload replays."},
	{ID: miniauth.MetricValidateSuccess, Name: "miniauth_validate_success_total", Help: "Accepted bearer tokens."},
	{ID: miniauth.MetricValidateFailure, Name: "miniauth_validate_failure_total", Help: "Rejected bearer tokens."},
	{ID: miniauth.MetricRefreshSuccess, Name: "miniauth_refresh_success_total", Help: "Successful token refreshes."},
	{ID: miniauth.MetricRefreshFailure, Name: "miniauth_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: miniauth.MetricRefreshRateLimited, Name: "miniauth_refresh_rate_limited_total", Help: "Throttled refresh attempts."},
}
