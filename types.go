package authgate

import (
	"time"

	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/jwt"
)

// TokenType selects which kind of token a validation expects.
type TokenType = jwt.TokenType

const (
	TokenAccess  TokenType = jwt.TypeAccess
	TokenRefresh TokenType = jwt.TypeRefresh
	// TokenAny accepts either type. The forward-auth endpoint validates in this mode.
	TokenAny TokenType = ""
)

// Claims is the decoded token payload.
type Claims = jwt.Claims

// TokenPair is what register, login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Identity is the caller identity propagated to downstream handlers and services.
type Identity struct {
	UserID    string
	Email     string
	Type      TokenType
	ExpiresAt time.Time
	Claims    *Claims
}

func identityFromClaims(c *jwt.Claims) *Identity {
	id := &Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Type:   c.Type,
		Claims: c,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

// FailureKind is the internal validation taxonomy. It is never sent to clients.
type FailureKind = flows.ValidateFailureKind

const (
	FailureNone             = flows.ValidateFailureNone
	FailureMissing          = flows.ValidateFailureMissing
	FailureMalformed        = flows.ValidateFailureMalformed
	FailureSignature        = flows.ValidateFailureSignature
	FailureExpired          = flows.ValidateFailureExpired
	FailureClaims           = flows.ValidateFailureClaims
	FailureTypeMismatch     = flows.ValidateFailureTypeMismatch
	FailureRevoked          = flows.ValidateFailureRevoked
	FailureStoreUnavailable = flows.ValidateFailureStoreUnavailable
)

// ValidationReport is the tagged validation outcome returned by Engine.Inspect.
type ValidationReport struct {
	Failure FailureKind
	Err     error
	Claims  *Claims
}

// Valid reports whether the token passed every check.
func (r ValidationReport) Valid() bool {
	return r.Failure == FailureNone && r.Claims != nil
}
