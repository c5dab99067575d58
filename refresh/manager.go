package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/launch"
)

var (
	// ErrNotAuthenticated is returned when no session is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAwaitingPlatform is returned when the cascade exhausted its retry
	// budget without finding a payload. The caller should surface an
	// open-inside-the-host-application message.
	ErrAwaitingPlatform = errors.New("awaiting platform data")
	// ErrSuperseded is returned to an attempt whose result was discarded
	// because a newer bootstrap started while it was in flight.
	ErrSuperseded = errors.New("attempt superseded by newer bootstrap")
	// ErrClosed is returned after the manager has been torn down.
	ErrClosed = errors.New("session manager closed")
)

// Status is the lifecycle state of the held session.
type Status int

const (
	// StatusLoggedOut means no usable session is held.
	StatusLoggedOut Status = iota
	// StatusFresh means the held token has comfortable lifetime left.
	StatusFresh
	// StatusNearExpiry means remaining lifetime dropped below the
	// configured threshold and a refresh is due.
	StatusNearExpiry
	// StatusRefreshing means a token exchange is in flight.
	StatusRefreshing
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusNearExpiry:
		return "near_expiry"
	case StatusRefreshing:
		return "refreshing"
	default:
		return "logged_out"
	}
}

// Session is the client's view of an established session. For synthetic
// identities Token is empty and ExpiresAt is zero.
type Session struct {
	Token     string
	Identity  initdata.Identity
	ExpiresAt time.Time
}

// Exchanger performs the network round-trips against the issuing service.
type Exchanger interface {
	// Authenticate presents a raw credential payload and returns a session.
	Authenticate(ctx context.Context, rawPayload string) (Session, error)
	// Refresh presents the current token and returns a replacement.
	Refresh(ctx context.Context, token string) (Session, error)
}

// DefaultNearExpiry is the remaining-lifetime threshold below which a
// proactive refresh is triggered.
const DefaultNearExpiry = 2 * time.Hour

// Config tunes the manager.
type Config struct {
	// NearExpiry overrides DefaultNearExpiry when positive.
	NearExpiry time.Duration
	// ExtractAttempts bounds how many cascade runs one bootstrap makes
	// before giving up with ErrAwaitingPlatform. Zero means 3.
	ExtractAttempts int
	// ExtractRetryDelay separates cascade retries. Zero means 500ms.
	ExtractRetryDelay time.Duration
	// Cascade configures each extraction run.
	Cascade launch.Config
}

type inflight struct {
	done chan struct{}
	sess Session
	err  error
}

// Manager holds one session and serializes its lifecycle transitions.
// All methods are safe for concurrent use.
type Manager struct {
	config Config
	env    launch.Environment
	exch   Exchanger

	closeCtx context.Context
	close    context.CancelFunc

	mu         sync.Mutex
	session    Session
	loggedIn   bool
	refreshing *inflight
	generation uint64
}

// NewManager builds a manager around an embedding surface and an exchanger.
func NewManager(env launch.Environment, exch Exchanger, cfg Config) (*Manager, error) {
	if env == nil {
		return nil, errors.New("refresh: nil environment")
	}
	if exch == nil {
		return nil, errors.New("refresh: nil exchanger")
	}
	if cfg.NearExpiry <= 0 {
		cfg.NearExpiry = DefaultNearExpiry
	}
	if cfg.ExtractAttempts <= 0 {
		cfg.ExtractAttempts = 3
	}
	if cfg.ExtractRetryDelay <= 0 {
		cfg.ExtractRetryDelay = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:   cfg,
		env:      env,
		exch:     exch,
		closeCtx: ctx,
		close:    cancel,
	}, nil
}

// Close tears the manager down. In-flight extractions and exchanges are
// cancelled and can no longer write into session state.
func (m *Manager) Close() {
	m.close()
	m.mu.Lock()
	m.loggedIn = false
	m.session = Session{}
	m.generation++
	m.mu.Unlock()
}

// Token returns the held token, or "" when logged out or synthetic.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loggedIn {
		return ""
	}
	return m.session.Token
}

// Identity returns the held identity and whether one exists.
func (m *Manager) Identity() (initdata.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Identity, m.loggedIn
}

// Status reports the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked(time.Now())
}

func (m *Manager) statusLocked(now time.Time) Status {
	if m.refreshing != nil {
		return StatusRefreshing
	}
	if !m.loggedIn {
		return StatusLoggedOut
	}
	if m.session.Identity.Synthetic {
		return StatusFresh
	}
	if m.session.ExpiresAt.Sub(now) <= m.config.NearExpiry {
		return StatusNearExpiry
	}
	return StatusFresh
}

// Bootstrap locates a credential payload and exchanges it for a session.
// Re-running it supersedes any earlier attempt still in flight: the newer
// attempt's generation wins and the older result is discarded.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	sess, err := m.resolve(ctx)
	if err != nil {
		return err
	}
	return m.install(gen, sess)
}

// Logout discards all locally held session state.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.loggedIn = false
	m.session = Session{}
	m.generation++
	m.mu.Unlock()
}

// EnsureFresh refreshes the session when its remaining lifetime has dropped
// below the threshold. Concurrent calls while a refresh is in flight await
// that refresh instead of starting another. On a failed exchange all local
// session state is cleared and the caller must bootstrap again.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	m.mu.Lock()
	if !m.loggedIn {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	if m.session.Identity.Synthetic {
		m.mu.Unlock()
		return nil
	}
	now := time.Now()
	if m.session.ExpiresAt.Sub(now) > m.config.NearExpiry {
		m.mu.Unlock()
		return nil
	}
	if fl := m.refreshing; fl != nil {
		m.mu.Unlock()
		return m.await(ctx, fl)
	}

	fl := &inflight{done: make(chan struct{})}
	m.refreshing = fl
	gen := m.generation
	token := m.session.Token
	expired := now.After(m.session.ExpiresAt)
	m.mu.Unlock()

	go m.runRefresh(fl, gen, token, expired)
	return m.await(ctx, fl)
}

func (m *Manager) await(ctx context.Context, fl *inflight) error {
	select {
	case <-fl.done:
		return fl.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runRefresh(fl *inflight, gen uint64, token string, expired bool) {
	ctx := m.closeCtx
	var sess Session
	var err error
	if expired {
		// The token is already gone; only a fresh payload can help.
		sess, err = m.resolve(ctx)
	} else {
		sess, err = m.exch.Refresh(ctx, token)
	}

	m.mu.Lock()
	m.refreshing = nil
	switch {
	case err != nil && isCancellation(err):
		// Torn down mid-flight: report, but do not touch held state.
		fl.err = err
	case err != nil:
		// Failed exchange logs the session out; the caller restarts from
		// the extraction cascade.
		if m.generation == gen {
			m.loggedIn = false
			m.session = Session{}
		}
		fl.err = err
	case m.generation != gen:
		fl.err = ErrSuperseded
	default:
		m.session = sess
		m.loggedIn = true
		fl.sess = sess
	}
	m.mu.Unlock()
	close(fl.done)
}

// resolve runs the extraction cascade, retrying transient no-source
// outcomes, and exchanges the payload for a session. Synthetic results
// yield an identity-only session without a network round-trip.
func (m *Manager) resolve(ctx context.Context) (Session, error) {
	if err := m.closeCtx.Err(); err != nil {
		return Session{}, ErrClosed
	}

	for attempt := 0; attempt < m.config.ExtractAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(m.config.ExtractRetryDelay):
			case <-ctx.Done():
				return Session{}, ctx.Err()
			case <-m.closeCtx.Done():
				return Session{}, ErrClosed
			}
		}

		res, err := launch.Extract(ctx, m.env, m.config.Cascade)
		if errors.Is(err, launch.ErrNoSource) {
			continue
		}
		if err != nil {
			return Session{}, err
		}

		if res.Synthetic() {
			return Session{Identity: *res.Identity}, nil
		}
		return m.exch.Authenticate(ctx, res.Payload.Raw())
	}
	return Session{}, ErrAwaitingPlatform
}

func (m *Manager) install(gen uint64, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeCtx.Err() != nil {
		return ErrClosed
	}
	if m.generation != gen {
		return ErrSuperseded
	}
	m.session = sess
	m.loggedIn = true
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrClosed)
}
