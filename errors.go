package authgate

import "errors"

var (
	// ErrTokenInvalid covers every credential failure at the engine boundary.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrTokenMissing is returned by adapters when no bearer credential was presented.
	ErrTokenMissing = errors.New("token missing")
	// ErrStoreUnavailable means revocation state could not be read or written.
	ErrStoreUnavailable = errors.New("revocation store unavailable")
	// ErrIssueFailed means a token could not be signed.
	ErrIssueFailed = errors.New("token issuance failed")
	// ErrInvalidCredentials is returned by login when the identity store rejects the pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when the identity store has no matching record.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned on duplicate registration.
	ErrAccountExists = errors.New("account already exists")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
