package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	miniauth "github.com/dirhub/miniauth"
	"github.com/dirhub/miniauth/initdata"
)

var (
	payloadSecret = []byte("guard-test-payload-secret")
	tokenSecret   = []byte("guard-test-token-secret")
)

func newGuardedServer(t *testing.T) (*miniauth.Engine, http.Handler) {
	t.Helper()
	engine, err := miniauth.New().WithConfig(miniauth.Config{
		InitData: miniauth.InitDataConfig{Secret: payloadSecret},
		Token:    miniauth.TokenConfig{Secret: tokenSecret},
	}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			t.Fatal("guarded handler missing auth result")
		}
		_, _ = w.Write([]byte(res.Identity.ExternalID))
	})
	return engine, Guard(engine)(inner)
}

func loginToken(t *testing.T, engine *miniauth.Engine) string {
	t.Helper()
	pairs := url.Values{}
	pairs.Set("user", `{"id":42,"first_name":"Ann"}`)
	pairs.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	res, err := engine.Authenticate(httptest.NewRequest("GET", "/", nil).Context(),
		initdata.Sign(pairs, payloadSecret), "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return res.Token
}

func TestGuardAcceptsValidBearer(t *testing.T) {
	engine, handler := newGuardedServer(t)
	token := loginToken(t, engine)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "42" {
		t.Fatalf("expected external id in body, got %q", rec.Body.String())
	}
}

func TestGuardRejectsMissingAndMalformedHeaders(t *testing.T) {
	engine, handler := newGuardedServer(t)
	token := loginToken(t, engine)

	headers := []string{
		"",
		"Bearer",
		"Bearer ",
		"bearer " + token,
		"Basic " + token,
		token,
	}
	for _, h := range headers {
		req := httptest.NewRequest("GET", "/me", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", h, rec.Code)
		}
	}
}

func TestGuardRejectsBadToken(t *testing.T) {
	_, handler := newGuardedServer(t)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
