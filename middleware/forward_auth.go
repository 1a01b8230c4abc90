package middleware

import (
	"net/http"

	"github.com/MrEthical07/authgate"
)

const (
	HeaderUserID     = "X-User-Id"
	HeaderUserEmail  = "X-User-Email"
	HeaderAuthStatus = "X-Auth-Status"
)

// ForwardAuth serves the forward-auth check. A valid token of either type yields 200 "OK" with
// the identity headers set for the proxy to copy onto the upstream request. Anything else yields
// 401 and no identity headers.
func ForwardAuth(v Validator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok || v == nil {
			forwardDenied(w)
			return
		}

		id, err := v.Validate(r.Context(), token, authgate.TokenAny)
		if err != nil {
			forwardDenied(w)
			return
		}

		h := w.Header()
		h.Set(HeaderUserID, id.UserID)
		h.Set(HeaderUserEmail, id.Email)
		h.Set(HeaderAuthStatus, "validated")
		h.Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func forwardDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("Unauthorized"))
}
