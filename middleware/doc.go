// Package middleware guards HTTP routes with session token verification.
//
// Guard parses the Authorization header strictly: a missing or malformed
// Bearer header is rejected as unauthenticated, never fallback-parsed. The
// verified result is injected into the request context for handlers.
package middleware
