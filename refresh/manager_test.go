package refresh

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/launch"
)

type fakeEnv struct {
	mu       sync.Mutex
	initData string
}

func (f *fakeEnv) setInitData(raw string) {
	f.mu.Lock()
	f.initData = raw
	f.mu.Unlock()
}

func (f *fakeEnv) WaitReady(ctx context.Context) error { return nil }

func (f *fakeEnv) InitData(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initData, nil
}

func (f *fakeEnv) LaunchParams(ctx context.Context) (*launch.Params, error) { return nil, nil }

func (f *fakeEnv) RuntimeInitData(ctx context.Context) (string, error) { return "", nil }

func (f *fakeEnv) Signals() launch.Signals { return launch.Signals{} }

type fakeExchanger struct {
	authCalls    atomic.Int64
	refreshCalls atomic.Int64

	refreshDelay time.Duration
	refreshErr   error
	authErr      error
	ttl          time.Duration

	gate chan struct{} // when set, Authenticate blocks until closed
}

func (f *fakeExchanger) session(tag string) Session {
	ttl := f.ttl
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return Session{
		Token:     "token-" + tag,
		Identity:  initdata.Identity{ExternalID: "42", FirstName: "Ann"},
		ExpiresAt: time.Now().Add(ttl),
	}
}

func (f *fakeExchanger) Authenticate(ctx context.Context, raw string) (Session, error) {
	n := f.authCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}
	}
	if f.authErr != nil {
		return Session{}, f.authErr
	}
	return f.session("auth-" + strconv.FormatInt(n, 10)), nil
}

func (f *fakeExchanger) Refresh(ctx context.Context, token string) (Session, error) {
	n := f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		select {
		case <-time.After(f.refreshDelay):
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}
	}
	if f.refreshErr != nil {
		return Session{}, f.refreshErr
	}
	return f.session("refresh-" + strconv.FormatInt(n, 10)), nil
}

var refreshSecret = []byte("refresh-test-secret")

func signedRaw(t *testing.T) string {
	t.Helper()
	pairs := url.Values{}
	pairs.Set("user", `{"id":42,"first_name":"Ann"}`)
	pairs.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	return initdata.Sign(pairs, refreshSecret)
}

func newTestManager(t *testing.T, env launch.Environment, exch Exchanger, cfg Config) *Manager {
	t.Helper()
	if cfg.Cascade.ReadyTimeout == 0 {
		cfg.Cascade.ReadyTimeout = -1
	}
	if cfg.ExtractRetryDelay == 0 {
		cfg.ExtractRetryDelay = time.Millisecond
	}
	m, err := NewManager(env, exch, cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestBootstrapEstablishesSession(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	exch := &fakeExchanger{}
	m := newTestManager(t, env, exch, Config{})

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if m.Token() == "" {
		t.Fatal("expected a token after bootstrap")
	}
	if got := m.Status(); got != StatusFresh {
		t.Fatalf("expected fresh status, got %v", got)
	}
	id, ok := m.Identity()
	if !ok || id.ExternalID != "42" {
		t.Fatalf("unexpected identity %+v ok=%v", id, ok)
	}
}

func TestBootstrapAwaitingPlatform(t *testing.T) {
	env := &fakeEnv{} // no payload anywhere
	exch := &fakeExchanger{}
	m := newTestManager(t, env, exch, Config{ExtractAttempts: 2})

	err := m.Bootstrap(context.Background())
	if !errors.Is(err, ErrAwaitingPlatform) {
		t.Fatalf("expected ErrAwaitingPlatform, got %v", err)
	}
	if m.Status() != StatusLoggedOut {
		t.Fatal("failed bootstrap must leave manager logged out")
	}
	if exch.authCalls.Load() != 0 {
		t.Fatal("no authenticate call expected without a payload")
	}
}

func TestBootstrapRetriesUntilPayloadArrives(t *testing.T) {
	env := &fakeEnv{}
	exch := &fakeExchanger{}
	m := newTestManager(t, env, exch, Config{ExtractAttempts: 5, ExtractRetryDelay: 10 * time.Millisecond})

	go func() {
		time.Sleep(15 * time.Millisecond)
		env.setInitData(signedRaw(t))
	}()

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
}

func TestBootstrapSupersededDiscardsStaleResult(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	gate := make(chan struct{})
	exch := &fakeExchanger{gate: gate}
	m := newTestManager(t, env, exch, Config{})

	first := make(chan error, 1)
	go func() { first <- m.Bootstrap(context.Background()) }()

	// Wait for the first attempt to reach the blocked exchange, then start
	// a newer bootstrap that wins the generation race.
	for exch.authCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	second := make(chan error, 1)
	go func() { second <- m.Bootstrap(context.Background()) }()
	for exch.authCalls.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	close(gate)

	errFirst := <-first
	if err := <-second; err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	if !errors.Is(errFirst, ErrSuperseded) {
		t.Fatalf("expected first bootstrap superseded, got %v", errFirst)
	}
	// The surviving token belongs to the second attempt.
	if tok := m.Token(); tok != "token-auth-2" {
		t.Fatalf("expected newer attempt's token installed, got %q", tok)
	}
}

func TestSyntheticBootstrapOptIn(t *testing.T) {
	env := &fakeEnv{}
	exch := &fakeExchanger{}
	m := newTestManager(t, env, exch, Config{
		ExtractAttempts: 1,
		Cascade:         launch.Config{ReadyTimeout: -1, AllowSynthetic: true},
	})

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	id, ok := m.Identity()
	if !ok || !id.Synthetic {
		t.Fatalf("expected synthetic identity, got %+v ok=%v", id, ok)
	}
	if m.Token() != "" {
		t.Fatal("synthetic session must not carry a token")
	}
	if exch.authCalls.Load() != 0 {
		t.Fatal("synthetic session must not hit the network")
	}
	// Nothing to refresh for a synthetic session.
	if err := m.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh on synthetic session: %v", err)
	}
}

func TestEnsureFreshNoopWhileFresh(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	exch := &fakeExchanger{ttl: 24 * time.Hour}
	m := newTestManager(t, env, exch, Config{})

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := m.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh failed: %v", err)
	}
	if exch.refreshCalls.Load() != 0 {
		t.Fatal("fresh session must not trigger a refresh")
	}
}

func TestEnsureFreshSingleFlight(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	exch := &fakeExchanger{ttl: time.Hour, refreshDelay: 30 * time.Millisecond}
	m := newTestManager(t, env, exch, Config{NearExpiry: 2 * time.Hour})

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if m.Status() != StatusNearExpiry {
		t.Fatalf("expected near-expiry status, got %v", m.Status())
	}

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			errs <- m.EnsureFresh(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureFresh failed: %v", err)
		}
	}
	if got := exch.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	if m.Status() != StatusFresh {
		t.Fatalf("expected fresh after refresh, got %v", m.Status())
	}
}

func TestEnsureFreshFailureLogsOut(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	exch := &fakeExchanger{ttl: time.Hour, refreshErr: errors.New("invalid_token")}
	m := newTestManager(t, env, exch, Config{NearExpiry: 2 * time.Hour})

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := m.EnsureFresh(context.Background()); err == nil {
		t.Fatal("expected refresh failure to propagate")
	}
	if m.Status() != StatusLoggedOut {
		t.Fatalf("failed refresh must clear local state, got %v", m.Status())
	}
	if m.Token() != "" {
		t.Fatal("token must be discarded after failed refresh")
	}
}

func TestEnsureFreshExpiredReRunsCascade(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	exch := &fakeExchanger{ttl: -time.Minute} // already expired on arrival
	m := newTestManager(t, env, exch, Config{NearExpiry: 2 * time.Hour})

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	exch.ttl = time.Hour * 24

	if err := m.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh failed: %v", err)
	}
	if exch.refreshCalls.Load() != 0 {
		t.Fatal("expired token must not be re-presented to the refresh endpoint")
	}
	if exch.authCalls.Load() != 2 {
		t.Fatalf("expected a second authenticate via the cascade, got %d", exch.authCalls.Load())
	}
}

func TestEnsureFreshRequiresSession(t *testing.T) {
	env := &fakeEnv{}
	m := newTestManager(t, env, &fakeExchanger{}, Config{})
	if err := m.EnsureFresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestCloseCancelsInFlightRefresh(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	exch := &fakeExchanger{ttl: time.Hour, refreshDelay: time.Minute}
	m := newTestManager(t, env, exch, Config{NearExpiry: 2 * time.Hour})

	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.EnsureFresh(context.Background()) }()
	for m.Status() != StatusRefreshing {
		time.Sleep(time.Millisecond)
	}
	m.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancelled refresh to error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not unwind after Close")
	}
	if m.Token() != "" {
		t.Fatal("closed manager must hold no token")
	}
}

func TestLogoutClearsState(t *testing.T) {
	env := &fakeEnv{initData: signedRaw(t)}
	m := newTestManager(t, env, &fakeExchanger{}, Config{})
	if err := m.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	m.Logout()
	if m.Status() != StatusLoggedOut || m.Token() != "" {
		t.Fatal("logout must clear all held state")
	}
}
