package miniauth

import (
	"time"

	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/token"
)

// AuthResult is returned by [Engine.Authenticate], [Engine.ValidateAccess],
// and [Engine.Refresh]. Token is the serialized session token the client
// owns from here on; Identity is the canonical record backing it.
type AuthResult struct {
	Token     string
	SubjectID string
	Identity  initdata.Identity
	ExpiresAt time.Time
	Claims    *token.Claims
}
