package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// RevocationStore is the subset of revocation.Store the flows rely on.
type RevocationStore interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	RevokeOnce(ctx context.Context, token string, ttl time.Duration) (bool, error)
}

// Deps groups flow dependency sets. The engine builds this once.
type Deps struct {
	Validate ValidateDeps
	Revoke   RevokeDeps
	Refresh  RefreshDeps
}

// IssuePairFunc mints an access token and a refresh token for one subject.
type IssuePairFunc func(subject, email string) (access, refresh string, err error)

// DecodeFunc verifies a token string and returns its claims.
type DecodeFunc func(token string) (*jwt.Claims, error)
