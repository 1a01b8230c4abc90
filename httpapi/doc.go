// Package httpapi serves the JSON auth API: register, login, refresh, logout, profile lookup
// and the forward-auth check, plus liveness routes.
//
// Every JSON response uses [Envelope]. Credential failures are uniform 401s; the reason a
// token was rejected only reaches the logs.
package httpapi
