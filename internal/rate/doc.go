// Package rate provides the Redis-backed fixed-window counters behind
// issuance and refresh throttling.
//
// Counters use INCR plus a conditional EXPIRE on first hit. Key prefixes:
//   - mi: — issuance attempts per client IP
//   - mr: — refresh attempts per client IP
//
// The package carries no policy; the engine decides when a limit applies.
// Not importable outside the miniauth module.
package rate
