package launch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dirhub/miniauth/initdata"
)

// ErrNoSource is returned when every extraction candidate fails and the
// synthetic fallback is disabled. It is transient: the host runtime may
// simply not have delivered the payload yet, so callers surface an
// awaiting-platform-data state rather than a hard failure.
var ErrNoSource = errors.New("no credential payload source available")

// Source identifies which candidate produced a payload.
type Source string

const (
	// SourceInitChannel is the raw payload string from the runtime's
	// initialization channel.
	SourceInitChannel Source = "init_channel"
	// SourceLaunchParams is the structured launch parameters object.
	SourceLaunchParams Source = "launch_params"
	// SourceRuntimeObject is the direct read off the runtime's global
	// application object.
	SourceRuntimeObject Source = "runtime_object"
	// SourceSynthetic is the opt-in placeholder identity fabricated when
	// no platform source exists.
	SourceSynthetic Source = "synthetic"
)

// Attempt records one candidate trial. Attempts are transient diagnostics;
// they are never persisted.
type Attempt struct {
	Source Source
	OK     bool
	Detail string
}

// Result is the tagged outcome of one cascade run. Exactly one of Payload or
// Identity is set: Payload for a real platform source, Identity only for the
// synthetic fallback.
type Result struct {
	Source   Source
	Payload  *initdata.Payload
	Identity *initdata.Identity
	Signals  Signals
	Attempts []Attempt
}

// Synthetic reports whether the result is the placeholder fallback.
func (r *Result) Synthetic() bool { return r.Source == SourceSynthetic }

// DefaultReadyTimeout bounds how long Extract waits for the runtime to
// signal readiness before falling through to synchronous candidates.
const DefaultReadyTimeout = 1500 * time.Millisecond

// Config tunes one cascade run.
type Config struct {
	// ReadyTimeout bounds the readiness wait. Zero means
	// DefaultReadyTimeout; negative skips the wait entirely.
	ReadyTimeout time.Duration
	// AllowSynthetic enables the placeholder-identity fallback. Off by
	// default: a misbehaving host runtime must surface as ErrNoSource, not
	// silently authenticate a placeholder user.
	AllowSynthetic bool
}

// Extract runs the candidate cascade against env. The first candidate that
// yields a parseable payload wins. Extract mutates nothing outside its
// return value and may be re-run whenever the caller believes the
// environment has changed.
func Extract(ctx context.Context, env Environment, cfg Config) (*Result, error) {
	signals := env.Signals()
	result := &Result{Signals: signals}

	if cfg.ReadyTimeout >= 0 {
		timeout := cfg.ReadyTimeout
		if timeout == 0 {
			timeout = DefaultReadyTimeout
		}
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := env.WaitReady(waitCtx)
		cancel()
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A readiness timeout is not fatal; candidates that respond
		// synchronously are still worth trying.
	}

	if payload, ok := tryRaw(ctx, result, SourceInitChannel, env.InitData); ok {
		result.Source = SourceInitChannel
		result.Payload = payload
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if payload, ok := tryLaunchParams(ctx, result, env); ok {
		result.Source = SourceLaunchParams
		result.Payload = payload
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// The direct runtime read is only justified when the global object is
	// present and marked ready; the signals gate the attempt, nothing more.
	if signals.RuntimeObject && signals.RuntimeReady {
		if payload, ok := tryRaw(ctx, result, SourceRuntimeObject, env.RuntimeInitData); ok {
			result.Source = SourceRuntimeObject
			result.Payload = payload
			return result, nil
		}
	} else {
		result.Attempts = append(result.Attempts, Attempt{
			Source: SourceRuntimeObject,
			Detail: "skipped: runtime object absent or not ready",
		})
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if cfg.AllowSynthetic {
		identity := SyntheticIdentity()
		result.Source = SourceSynthetic
		result.Identity = identity
		result.Attempts = append(result.Attempts, Attempt{Source: SourceSynthetic, OK: true})
		return result, nil
	}

	return nil, fmt.Errorf("%w: %d candidates failed", ErrNoSource, len(result.Attempts))
}

// SyntheticIdentity fabricates the placeholder identity used to keep the UI
// usable outside the host platform. The marker must survive every
// downstream conversion.
func SyntheticIdentity() *initdata.Identity {
	return &initdata.Identity{
		ExternalID: "0",
		FirstName:  "Guest",
		Handle:     "guest-" + uuid.NewString()[:8],
		Locale:     initdata.DefaultLocale,
		Synthetic:  true,
	}
}

func tryRaw(ctx context.Context, result *Result, source Source, read func(context.Context) (string, error)) (*initdata.Payload, bool) {
	raw, err := read(ctx)
	if err != nil {
		result.Attempts = append(result.Attempts, Attempt{Source: source, Detail: err.Error()})
		return nil, false
	}
	if raw == "" {
		result.Attempts = append(result.Attempts, Attempt{Source: source, Detail: "empty"})
		return nil, false
	}
	payload, err := initdata.Parse(raw)
	if err != nil {
		result.Attempts = append(result.Attempts, Attempt{Source: source, Detail: "unparseable payload"})
		return nil, false
	}
	result.Attempts = append(result.Attempts, Attempt{Source: source, OK: true})
	return payload, true
}

func tryLaunchParams(ctx context.Context, result *Result, env Environment) (*initdata.Payload, bool) {
	params, err := env.LaunchParams(ctx)
	if err != nil {
		result.Attempts = append(result.Attempts, Attempt{Source: SourceLaunchParams, Detail: err.Error()})
		return nil, false
	}
	if params == nil || (!params.HasUser() && params.InitDataRaw == "") {
		result.Attempts = append(result.Attempts, Attempt{Source: SourceLaunchParams, Detail: "no user object"})
		return nil, false
	}
	raw, err := params.Encode()
	if err != nil {
		result.Attempts = append(result.Attempts, Attempt{Source: SourceLaunchParams, Detail: err.Error()})
		return nil, false
	}
	payload, err := initdata.Parse(raw)
	if err != nil {
		result.Attempts = append(result.Attempts, Attempt{Source: SourceLaunchParams, Detail: "unparseable payload"})
		return nil, false
	}
	result.Attempts = append(result.Attempts, Attempt{Source: SourceLaunchParams, OK: true})
	return payload, true
}
