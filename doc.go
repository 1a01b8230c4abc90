// Package authgate issues, validates and revokes short-lived bearer credentials.
//
// An [Engine] mints access and refresh tokens through the jwt package, keeps a TTL-bounded
// set of revoked token fingerprints in Redis through the revocation package, and rotates
// refresh tokens one time each. Engine methods are safe to call from multiple goroutines
// after [Builder.Build]; the engine holds no per-token state in process.
//
// # Boundary contract
//
// Validation failures are collapsed at this boundary: every credential problem (bad
// structure, bad signature, expiry, wrong type, revocation) surfaces as [ErrTokenInvalid].
// The one exception is [ErrStoreUnavailable], returned when revocation status could not be
// determined; callers must treat it as a rejection too. [Engine.Inspect] exposes the full
// taxonomy for logs and tests.
package authgate
