package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType tells access tokens apart from refresh tokens. It is fixed at mint time.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Valid reports whether t is one of the mintable token types.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

// Claims is the payload carried by every token.
type Claims struct {
	Email string    `json:"email"`
	Type  TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Validate is invoked by the parser after the registered claims pass.
func (c Claims) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown token type %q", ErrClaimsInvalid, c.Type)
	}
	if c.Subject == "" {
		return fmt.Errorf("%w: missing subject", ErrClaimsInvalid)
	}
	if c.IssuedAt != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(c.IssuedAt.Time) {
		return fmt.Errorf("%w: exp must be after iat", ErrClaimsInvalid)
	}
	return nil
}
