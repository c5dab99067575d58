// Package miniauth turns platform-signed credential payloads into verified
// identities and stateless session tokens for mini applications embedded in
// a host messaging client.
//
// The server-side Engine verifies a payload's HMAC signature and freshness,
// parses the canonical identity, and mints a signed session token; later
// requests present the token for verification or refresh. Sessions are fully
// self-describing: there is no server-side session store, so revocation
// happens only through TTLs and signing-secret rotation. Optional
// Redis-backed replay detection and issuance throttling harden the entry
// point without changing that model.
//
// Engines are built through [Builder] and are safe for concurrent use after
// [Builder.Build]. The client side of the protocol lives in the launch and
// refresh packages.
package miniauth
