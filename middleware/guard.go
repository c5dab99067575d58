package middleware

import (
	"context"
	"net/http"
	"strings"

	miniauth "github.com/dirhub/miniauth"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the verified session injected by Guard.
func AuthResultFromContext(ctx context.Context) (*miniauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*miniauth.AuthResult)
	return res, ok
}

// Guard wraps a handler with bearer-token verification against the engine.
func Guard(engine *miniauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header value. It
// accepts exactly the "Bearer <token>" shape.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}
