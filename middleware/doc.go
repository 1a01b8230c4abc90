// Package middleware adapts authgate.Engine validation to net/http.
//
// # Adapters
//
//   - [Guard] protects API routes: the bearer token must be a valid access token.
//   - [ForwardAuth] answers reverse-proxy forward-auth subrequests, accepting any token type,
//     and reports the caller identity through response headers.
//   - [RequestID] tags each request with a correlation id for logs and audit events.
//
// Every rejection is a 401 with a generic message. The reason a token failed is never sent
// to the client.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Validator calls. It does not parse tokens or
// talk to Redis.
package middleware
