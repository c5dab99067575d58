package initdata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultLocale is assumed when the user record carries no language code.
const DefaultLocale = "en"

// Identity is the canonical user record derived from a credential payload.
// It is constructed only after verification succeeds, except in permissive
// mode or through the synthetic fallback, which sets Synthetic.
type Identity struct {
	// ExternalID is the stable per-platform-user id, always a non-empty
	// string of digits.
	ExternalID string
	FirstName  string
	LastName   string
	Handle     string
	AvatarURL  string
	Privileged bool
	Locale     string
	// Synthetic marks a placeholder identity fabricated outside the host
	// platform. Synthetic identities never come from a verified payload.
	Synthetic bool
}

type userRecord struct {
	ID         json.Number `json:"id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Username   string      `json:"username"`
	PhotoURL   string      `json:"photo_url"`
	Language   string      `json:"language_code"`
	IsPremium  bool        `json:"is_premium"`
	IsAdmin    bool        `json:"is_admin"`
}

// ParseIdentity extracts the canonical identity from a payload. A missing
// user field with a bare id field yields a degraded identity with an unknown
// first name. Parsing is independent of verification.
func ParseIdentity(p *Payload) (*Identity, error) {
	raw := p.User()
	if raw == "" {
		// Degraded hosts omit the user object but still pass a bare id.
		id := p.values.Get("id")
		if id == "" {
			return nil, ErrNoIdentity
		}
		if !allDigits(id) {
			return nil, fmt.Errorf("%w: non-numeric id", ErrMalformedIdentity)
		}
		return &Identity{ExternalID: id, Locale: DefaultLocale}, nil
	}

	var user userRecord
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}

	id := user.ID.String()
	if id == "" || !allDigits(id) {
		return nil, fmt.Errorf("%w: missing or non-numeric user id", ErrMalformedIdentity)
	}

	locale := user.Language
	if locale == "" {
		locale = DefaultLocale
	}

	return &Identity{
		ExternalID: id,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Handle:     user.Username,
		AvatarURL:  user.PhotoURL,
		Privileged: user.IsPremium || user.IsAdmin,
		Locale:     locale,
	}, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
