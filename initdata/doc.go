// Package initdata parses and verifies the signed credential payload a host
// messaging client hands to an embedded mini application.
//
// The payload is an opaque application/x-www-form-urlencoded string carrying
// a JSON-encoded user record, a unix auth_date, and a hex HMAC-SHA256
// signature. Verification derives the signing key as
// HMAC-SHA256("WebAppData", sharedSecret), rebuilds the check string from the
// lexicographically sorted key=value pairs (hash removed, newline separated),
// and compares the computed signature in constant time. Payloads older than
// the configured staleness window are rejected regardless of signature.
//
// Verification and parsing fail independently: a cryptographically valid
// payload can still fail identity parsing, and in permissive development
// mode an unverified payload can still parse.
package initdata
