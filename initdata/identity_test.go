package initdata

import (
	"errors"
	"net/url"
	"testing"
)

func payloadWithUser(t *testing.T, user string) *Payload {
	t.Helper()
	p, err := Parse("user=" + url.QueryEscape(user) + "&auth_date=1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return p
}

func TestParseIdentityBasic(t *testing.T) {
	p := payloadWithUser(t, `{"id":42,"first_name":"Ann"}`)
	id, err := ParseIdentity(p)
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}
	if id.ExternalID != "42" {
		t.Fatalf("expected external id 42, got %q", id.ExternalID)
	}
	if id.FirstName != "Ann" {
		t.Fatalf("expected first name Ann, got %q", id.FirstName)
	}
	if id.Locale != DefaultLocale {
		t.Fatalf("expected locale default %q, got %q", DefaultLocale, id.Locale)
	}
	if id.Privileged || id.Synthetic {
		t.Fatal("expected unprivileged, non-synthetic identity")
	}
}

func TestParseIdentityFullRecord(t *testing.T) {
	p := payloadWithUser(t, `{"id":99820672,"first_name":"Ann","last_name":"Lee","username":"annlee","photo_url":"https://cdn.example/a.jpg","language_code":"de","is_premium":true}`)
	id, err := ParseIdentity(p)
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}
	if id.ExternalID != "99820672" || id.LastName != "Lee" || id.Handle != "annlee" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.AvatarURL != "https://cdn.example/a.jpg" {
		t.Fatalf("unexpected avatar url %q", id.AvatarURL)
	}
	if id.Locale != "de" {
		t.Fatalf("expected locale de, got %q", id.Locale)
	}
	if !id.Privileged {
		t.Fatal("expected privileged identity")
	}
}

func TestParseIdentityBareID(t *testing.T) {
	p, err := Parse("id=7&auth_date=1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id, err := ParseIdentity(p)
	if err != nil {
		t.Fatalf("ParseIdentity failed: %v", err)
	}
	if id.ExternalID != "7" {
		t.Fatalf("expected external id 7, got %q", id.ExternalID)
	}
	if id.FirstName != "" {
		t.Fatalf("degraded identity should have unknown first name, got %q", id.FirstName)
	}
	if id.Locale != DefaultLocale {
		t.Fatalf("expected default locale, got %q", id.Locale)
	}
}

func TestParseIdentityMissing(t *testing.T) {
	p, err := Parse("auth_date=1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := ParseIdentity(p); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestParseIdentityMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `not-json`,
		"missing id":     `{"first_name":"Ann"}`,
		"non-numeric id": `{"id":"abc"}`,
		"negative id":    `{"id":-5}`,
	}
	for name, user := range cases {
		p := payloadWithUser(t, user)
		if _, err := ParseIdentity(p); !errors.Is(err, ErrMalformedIdentity) {
			t.Fatalf("%s: expected ErrMalformedIdentity, got %v", name, err)
		}
	}
}

func TestParseIdentityBareIDNonNumeric(t *testing.T) {
	p, err := Parse("id=abc&auth_date=1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := ParseIdentity(p); !errors.Is(err, ErrMalformedIdentity) {
		t.Fatalf("expected ErrMalformedIdentity, got %v", err)
	}
}
