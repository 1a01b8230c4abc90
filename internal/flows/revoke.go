package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// RevokeResult reports the marker TTL that was written.
type RevokeResult struct {
	TTL    time.Duration
	Claims *jwt.Claims
	Err    error
}

// RevokeDeps captures revocation dependencies.
type RevokeDeps struct {
	Decode             DecodeFunc
	Now                func() time.Time
	TTL                time.Duration
	CoverTokenLifetime bool
	Leeway             time.Duration
	Store              RevocationStore
}

// RevocationTTL picks the marker lifetime for a token. With cover set, the marker outlives
// the token's own exp (plus leeway); otherwise the configured TTL is used as is.
func RevocationTTL(claims *jwt.Claims, now time.Time, ttl time.Duration, cover bool, leeway time.Duration) time.Duration {
	if !cover || claims == nil || claims.ExpiresAt == nil {
		return ttl
	}
	remaining := claims.ExpiresAt.Time.Add(leeway).Sub(now)
	if rem := remaining % time.Second; rem > 0 {
		remaining += time.Second - rem
	}
	if remaining > ttl {
		return remaining
	}
	return ttl
}

func (d RevokeDeps) ttlFor(tokenStr string) (time.Duration, *jwt.Claims) {
	claims, err := d.Decode(tokenStr)
	if err != nil {
		// Unverifiable tokens still get a marker, with the fixed TTL.
		return d.TTL, nil
	}
	return RevocationTTL(claims, d.Now(), d.TTL, d.CoverTokenLifetime, d.Leeway), claims
}

// RunRevoke writes a revocation marker for tokenStr. Revoking twice is harmless.
func RunRevoke(ctx context.Context, tokenStr string, deps RevokeDeps) RevokeResult {
	ttl, claims := deps.ttlFor(tokenStr)
	if err := deps.Store.Revoke(ctx, tokenStr, ttl); err != nil {
		return RevokeResult{Claims: claims, Err: err}
	}
	return RevokeResult{TTL: ttl, Claims: claims}
}

// RunRevokeOnce writes the marker only if none exists. first is false when another caller
// already revoked tokenStr.
func RunRevokeOnce(ctx context.Context, tokenStr string, deps RevokeDeps) (first bool, res RevokeResult) {
	ttl, claims := deps.ttlFor(tokenStr)
	first, err := deps.Store.RevokeOnce(ctx, tokenStr, ttl)
	if err != nil {
		return false, RevokeResult{Claims: claims, Err: err}
	}
	return first, RevokeResult{TTL: ttl, Claims: claims}
}
