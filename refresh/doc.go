// Package refresh owns the client side of the session lifecycle: it runs the
// extraction cascade at bootstrap, exchanges the payload for a session token,
// and proactively renews the token before it expires.
//
// A session moves Fresh -> NearExpiry -> Refreshing -> Fresh again, or to
// LoggedOut when the exchange fails. Refreshes are single-flight: concurrent
// triggers share the one in-flight exchange instead of racing. Bootstraps
// are generation-counted so a superseded attempt can never install a stale
// identity over a newer one.
package refresh
