package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MrEthical07/authgate"
)

// HeaderRequestID is read from requests and echoed on responses.
const HeaderRequestID = "X-Request-Id"

// RequestID propagates an inbound X-Request-Id or mints a new one, and echoes it on the
// response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(authgate.WithRequestID(r.Context(), id)))
	})
}
