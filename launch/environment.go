package launch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Signals is the set of boolean observations computed about the embedding
// surface before extraction. They exist for diagnostics and for gating the
// direct runtime read; they carry no authentication weight.
type Signals struct {
	// RuntimeObject reports whether the host runtime's global application
	// object is present.
	RuntimeObject bool
	// RuntimeReady reports whether that object has signalled readiness and
	// exposes non-empty init data.
	RuntimeReady bool
	// URLMarkers reports platform-specific markers in the page URL.
	URLMarkers bool
	// UserAgentMarker reports a platform-identifying user-agent string.
	UserAgentMarker bool
	// ReferrerMarker reports a platform-identifying referrer.
	ReferrerMarker bool
}

// Embedded reports whether any signal suggests a platform-hosted context.
// Diagnostic only.
func (s Signals) Embedded() bool {
	return s.RuntimeObject || s.URLMarkers || s.UserAgentMarker || s.ReferrerMarker
}

// Environment abstracts one embedding surface. Implementations wrap whatever
// bridge connects the process to the host client; tests substitute fakes.
// All blocking calls honor their context.
type Environment interface {
	// WaitReady blocks until the host runtime reports readiness or the
	// context ends. Extraction bounds the wait; a slow runtime falls
	// through to whatever candidates respond synchronously.
	WaitReady(ctx context.Context) error
	// InitData returns the raw payload exposed by the runtime's
	// initialization channel, or "" when that channel is empty.
	InitData(ctx context.Context) (string, error)
	// LaunchParams returns the structured launch parameters object, or nil
	// when the runtime does not expose one.
	LaunchParams(ctx context.Context) (*Params, error)
	// RuntimeInitData reads the raw payload directly off the runtime's
	// global application object. Only consulted when Signals report the
	// object present and ready.
	RuntimeInitData(ctx context.Context) (string, error)
	// Signals returns the current environment observations.
	Signals() Signals
}

// Params is the structured launch parameters object some surfaces expose
// instead of a raw payload string. Field names arrive in snake_case from
// older runtimes and camelCase from newer ones; decoding tolerates both.
type Params struct {
	InitDataRaw  string
	User         json.RawMessage
	AuthDate     string
	Hash         string
	QueryID      string
	StartParam   string
	ChatType     string
	ChatInstance string
}

// UnmarshalJSON accepts both snake_case and camelCase field names, with the
// snake_case spelling winning when both are present.
func (p *Params) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.InitDataRaw = pickString(fields, "init_data_raw", "initDataRaw")
	p.User = pickRaw(fields, "user", "user")
	p.AuthDate = pickString(fields, "auth_date", "authDate")
	p.Hash = pickString(fields, "hash", "hash")
	p.QueryID = pickString(fields, "query_id", "queryId")
	p.StartParam = pickString(fields, "start_param", "startParam")
	p.ChatType = pickString(fields, "chat_type", "chatType")
	p.ChatInstance = pickString(fields, "chat_instance", "chatInstance")

	// Tolerate auth_date arriving as a JSON number.
	if p.AuthDate == "" {
		if raw := pickRaw(fields, "auth_date", "authDate"); raw != nil {
			var n json.Number
			if err := json.Unmarshal(raw, &n); err == nil {
				p.AuthDate = n.String()
			}
		}
	}
	return nil
}

// HasUser reports whether the params carry a user-bearing sub-object.
func (p *Params) HasUser() bool {
	return p != nil && len(p.User) > 0 && string(p.User) != "null"
}

// Encode flattens the structured params into the canonical query-encoded
// payload shape. When the runtime already provided the raw string it is
// returned untouched so the signature stays verifiable.
func (p *Params) Encode() (string, error) {
	if p.InitDataRaw != "" {
		return p.InitDataRaw, nil
	}
	if !p.HasUser() {
		return "", fmt.Errorf("launch params carry no user object")
	}
	values := url.Values{}
	values.Set("user", string(p.User))
	setIfPresent(values, "auth_date", p.AuthDate)
	setIfPresent(values, "hash", p.Hash)
	setIfPresent(values, "query_id", p.QueryID)
	setIfPresent(values, "start_param", p.StartParam)
	setIfPresent(values, "chat_type", p.ChatType)
	setIfPresent(values, "chat_instance", p.ChatInstance)
	return values.Encode(), nil
}

func setIfPresent(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	}
}

func pickString(fields map[string]json.RawMessage, snake, camel string) string {
	raw := pickRaw(fields, snake, camel)
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func pickRaw(fields map[string]json.RawMessage, snake, camel string) json.RawMessage {
	if raw, ok := fields[snake]; ok {
		return raw
	}
	if raw, ok := fields[camel]; ok {
		return raw
	}
	return nil
}
