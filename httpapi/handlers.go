package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	miniauth "github.com/dirhub/miniauth"
	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/internal/logutil"
	"github.com/dirhub/miniauth/middleware"
)

const maxBodyBytes = 64 * 1024

// Identity is the wire shape of a canonical identity.
type Identity struct {
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Handle     string `json:"handle,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	Privileged bool   `json:"privileged,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// SessionResponse is returned by the issuance and refresh endpoints.
type SessionResponse struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionRequest struct {
	InitData string `json:"init_data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler builds the router for the session endpoints. The context supplies
// the logger used for request diagnostics.
func Handler(ctx context.Context, engine *miniauth.Engine) http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodPost, "/auth/session", createSession(ctx, engine))
	router.HandlerFunc(http.MethodPost, "/auth/refresh", refreshSession(ctx, engine))
	router.Handler(http.MethodGet, "/auth/me", middleware.Guard(engine)(http.HandlerFunc(me)))
	return router
}

func createSession(ctx context.Context, engine *miniauth.Engine) http.HandlerFunc {
	log := logutil.GetOrDefault(ctx)
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed")
			return
		}

		res, err := engine.Authenticate(r.Context(), req.InitData, clientIP(r))
		if err != nil {
			code, status := mapError(err)
			// Payload contents can carry personal data; log length only.
			log.Warn().
				Err(err).
				Str("code", code).
				Int("payload_len", len(req.InitData)).
				Msg("session issuance rejected")
			writeError(w, status, code)
			return
		}

		log.Info().
			Str("subject", res.SubjectID).
			Time("expires_at", res.ExpiresAt).
			Msg("session issued")
		writeJSON(w, http.StatusOK, toResponse(res))
	}
}

func refreshSession(ctx context.Context, engine *miniauth.Engine) http.HandlerFunc {
	log := logutil.GetOrDefault(ctx)
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		res, err := engine.Refresh(r.Context(), token, clientIP(r))
		if err != nil {
			code, status := mapError(err)
			log.Warn().Err(err).Str("code", code).Msg("session refresh rejected")
			writeError(w, status, code)
			return
		}

		log.Info().Str("subject", res.SubjectID).Msg("session refreshed")
		writeJSON(w, http.StatusOK, toResponse(res))
	}
}

func me(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		SubjectID string   `json:"subject_id"`
		Identity  Identity `json:"identity"`
	}{res.SubjectID, toIdentity(res.Identity)})
}

func toResponse(res *miniauth.AuthResult) SessionResponse {
	return SessionResponse{
		Token:     res.Token,
		Identity:  toIdentity(res.Identity),
		ExpiresAt: res.ExpiresAt,
	}
}

func toIdentity(id initdata.Identity) Identity {
	return Identity{
		ExternalID: id.ExternalID,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		Handle:     id.Handle,
		AvatarURL:  id.AvatarURL,
		Privileged: id.Privileged,
		Locale:     id.Locale,
	}
}

// mapError translates engine errors into the protocol's error codes. The
// generic user-facing guidance lives client-side; these codes are for the
// client runtime, not for display.
func mapError(err error) (code string, status int) {
	switch {
	case errors.Is(err, initdata.ErrSignatureMismatch), errors.Is(err, initdata.ErrMissingHash):
		return "invalid_signature", http.StatusUnauthorized
	case errors.Is(err, initdata.ErrExpired), errors.Is(err, miniauth.ErrTokenExpired):
		return "expired", http.StatusUnauthorized
	case errors.Is(err, initdata.ErrMalformedPayload),
		errors.Is(err, initdata.ErrMalformedIdentity),
		errors.Is(err, initdata.ErrNoIdentity):
		return "malformed", http.StatusBadRequest
	case errors.Is(err, miniauth.ErrReplayDetected):
		return "replayed", http.StatusUnauthorized
	case errors.Is(err, miniauth.ErrIssueRateLimited), errors.Is(err, miniauth.ErrRefreshRateLimited):
		return "rate_limited", http.StatusTooManyRequests
	case errors.Is(err, miniauth.ErrTokenInvalid):
		return "invalid_token", http.StatusUnauthorized
	default:
		return "internal", http.StatusInternalServerError
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}
