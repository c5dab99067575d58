// Package httpapi exposes the session protocol over HTTP.
//
// POST /auth/session exchanges a raw credential payload for a session token.
// POST /auth/refresh exchanges a valid or recently expired bearer token for
// a fresh one. GET /auth/me echoes the verified claims behind the guard.
// Failures return a structured error code; internal error kinds are never
// surfaced verbatim and raw payload contents are never logged.
//
// Client implements the same protocol from the caller's side and satisfies
// refresh.Exchanger.
package httpapi
