package initdata

import "errors"

var (
	// ErrMissingHash is returned when the payload carries no hash field.
	ErrMissingHash = errors.New("init data missing hash")
	// ErrSignatureMismatch is returned when the computed signature does not
	// match the hash field.
	ErrSignatureMismatch = errors.New("init data signature mismatch")
	// ErrExpired is returned when auth_date falls outside the staleness window.
	ErrExpired = errors.New("init data expired")
	// ErrMalformedPayload is returned when the payload cannot be decoded as a
	// query string or its auth_date is missing or unparseable.
	ErrMalformedPayload = errors.New("malformed init data payload")

	// ErrNoIdentity is returned when the payload carries neither a user field
	// nor a bare id field.
	ErrNoIdentity = errors.New("init data carries no identity")
	// ErrMalformedIdentity is returned when the user field is not valid JSON
	// or lacks a usable numeric id.
	ErrMalformedIdentity = errors.New("malformed init data identity")
)
