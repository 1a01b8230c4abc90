package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/revocation"
)

// ValidateFailureKind classifies validation failures for logging and boundary mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureMalformed
	ValidateFailureSignature
	ValidateFailureExpired
	ValidateFailureClaims
	ValidateFailureTypeMismatch
	ValidateFailureRevoked
	ValidateFailureStoreUnavailable
)

var validateFailureNames = [...]string{
	ValidateFailureNone:             "none",
	ValidateFailureMissing:          "credential_missing",
	ValidateFailureMalformed:        "credential_malformed",
	ValidateFailureSignature:        "credential_signature_invalid",
	ValidateFailureExpired:          "credential_expired",
	ValidateFailureClaims:           "credential_claims_invalid",
	ValidateFailureTypeMismatch:     "credential_type_mismatch",
	ValidateFailureRevoked:          "credential_revoked",
	ValidateFailureStoreUnavailable: "store_unavailable",
}

func (k ValidateFailureKind) String() string {
	if k < 0 || int(k) >= len(validateFailureNames) {
		return "unknown"
	}
	return validateFailureNames[k]
}

// ValidateResult carries either decoded claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// OK reports whether the token passed every check.
func (r ValidateResult) OK() bool {
	return r.Failure == ValidateFailureNone && r.Claims != nil
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Decode      DecodeFunc
	Revocations RevocationStore
}

// RunValidate decodes tokenStr, enforces the expected type (empty means any type) and
// consults the revocation store. Store errors fail closed.
func RunValidate(ctx context.Context, tokenStr string, expected jwt.TokenType, deps ValidateDeps) ValidateResult {
	if tokenStr == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}

	claims, err := deps.Decode(tokenStr)
	if err != nil {
		return ValidateResult{Failure: decodeFailure(err), Err: err}
	}

	if expected != "" && claims.Type != expected {
		return ValidateResult{Failure: ValidateFailureTypeMismatch, Claims: claims}
	}

	revoked, err := deps.Revocations.IsRevoked(ctx, tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStoreUnavailable, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: ValidateFailureRevoked, Claims: claims}
	}

	return ValidateResult{Claims: claims}
}

func decodeFailure(err error) ValidateFailureKind {
	switch {
	case errors.Is(err, jwt.ErrMalformedToken):
		return ValidateFailureMalformed
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return ValidateFailureSignature
	case errors.Is(err, jwt.ErrExpired):
		return ValidateFailureExpired
	case errors.Is(err, revocation.ErrStoreUnavailable):
		return ValidateFailureStoreUnavailable
	default:
		return ValidateFailureClaims
	}
}
