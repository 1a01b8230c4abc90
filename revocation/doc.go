// Package revocation records revoked token fingerprints in Redis with a TTL.
//
// Only negative state is stored: a token is revoked while its marker key exists, and the
// marker disappears on its own when the TTL elapses. Nothing here ever deletes a marker.
//
// # Known limitation
//
// The marker TTL is chosen by the caller and is independent of the token's exp claim. A marker
// shorter than the token's remaining lifetime lets the token validate again once the marker
// expires. The engine avoids this by default by covering the token lifetime; see
// authgate.RevocationConfig.
package revocation
