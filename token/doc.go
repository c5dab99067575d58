// Package token issues and verifies the self-contained session tokens that
// prove a previously-established mini-app identity on subsequent requests.
//
// Tokens are HS256 JWTs carrying the canonical identity fields plus fixed
// issuer and audience tags. The issuer holds no server-side session store:
// a token is valid until it expires or the signing secret rotates. Verify
// distinguishes an expired token, which the caller may recover from through
// a refresh, from an invalid one, which forces full re-authentication.
package token
