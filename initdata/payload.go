package initdata

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Payload is a decoded credential payload. It is immutable once parsed and
// is never persisted as-is.
type Payload struct {
	values url.Values
	raw    string
}

// Parse decodes a raw query-encoded credential payload. It performs no
// verification; the result must still pass [Verifier.Verify] before its
// identity is trusted.
func Parse(raw string) (*Payload, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &Payload{values: values, raw: raw}, nil
}

// Raw returns the payload exactly as received.
func (p *Payload) Raw() string { return p.raw }

// Len returns the length of the raw payload. Log this, never the contents.
func (p *Payload) Len() int { return len(p.raw) }

// Hash returns the hex signature field, or "" when absent.
func (p *Payload) Hash() string { return p.values.Get("hash") }

// User returns the JSON-encoded user field, or "" when absent.
func (p *Payload) User() string { return p.values.Get("user") }

// QueryID returns the optional query_id field.
func (p *Payload) QueryID() string { return p.values.Get("query_id") }

// StartParam returns the optional start_param field.
func (p *Payload) StartParam() string { return p.values.Get("start_param") }

// ChatType returns the optional chat_type field.
func (p *Payload) ChatType() string { return p.values.Get("chat_type") }

// ChatInstance returns the optional chat_instance field.
func (p *Payload) ChatInstance() string { return p.values.Get("chat_instance") }

// AuthDate returns the unix auth_date field as a time. A missing or
// unparseable auth_date is reported as ErrMalformedPayload.
func (p *Payload) AuthDate() (time.Time, error) {
	field := p.values.Get("auth_date")
	if field == "" {
		return time.Time{}, fmt.Errorf("%w: missing auth_date", ErrMalformedPayload)
	}
	unix, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad auth_date: %v", ErrMalformedPayload, err)
	}
	return time.Unix(unix, 0), nil
}

// checkString rebuilds the signing input: every key=value pair except hash,
// sorted lexicographically by key and joined by newlines. Keys that the host
// platform repeats contribute one line per value, in received order.
func (p *Payload) checkString() string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		for j, v := range p.values[k] {
			if i > 0 || j > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}
