package flows

import (
	"context"

	"github.com/MrEthical07/authgate/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureInvalid
	RefreshFailureStoreUnavailable
	RefreshFailureIssue
	RefreshFailureReuse
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Validation   ValidateFailureKind
	Err          error
	Claims       *jwt.Claims
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Validate  ValidateDeps
	Revoke    RevokeDeps
	IssuePair IssuePairFunc
}

// RunRefresh rotates a refresh token: the presented token must validate as a refresh token,
// a new pair is minted, and the presented token is revoked. The revocation is written with
// SET NX so that of two concurrent rotations of the same token only one returns a pair.
// A failing step returns no tokens.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	v := RunValidate(ctx, refreshToken, jwt.TypeRefresh, deps.Validate)
	if !v.OK() {
		failure := RefreshFailureInvalid
		if v.Failure == ValidateFailureStoreUnavailable {
			failure = RefreshFailureStoreUnavailable
		}
		return RefreshResult{
			Failure:    failure,
			Validation: v.Failure,
			Err:        v.Err,
			Claims:     v.Claims,
		}
	}

	access, refresh, err := deps.IssuePair(v.Claims.Subject, v.Claims.Email)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Claims: v.Claims}
	}

	first, rev := RunRevokeOnce(ctx, refreshToken, deps.Revoke)
	if rev.Err != nil {
		return RefreshResult{Failure: RefreshFailureStoreUnavailable, Err: rev.Err, Claims: v.Claims}
	}
	if !first {
		return RefreshResult{Failure: RefreshFailureReuse, Validation: ValidateFailureRevoked, Claims: v.Claims}
	}

	return RefreshResult{
		Claims:       v.Claims,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
