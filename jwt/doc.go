// Package jwt signs and verifies the self-describing bearer tokens handed out by authgate.
//
// A [Manager] is built once from an immutable [Config] holding the shared HMAC secret and
// is safe for concurrent use. Decode failures are reported as one of the package sentinels
// ([ErrMalformedToken], [ErrSignatureInvalid], [ErrExpired], [ErrClaimsInvalid]) so callers
// can log the cause while exposing a single invalid outcome.
package jwt
