package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/authgate"
)

// Validator is the subset of *authgate.Engine the adapters need.
type Validator interface {
	Validate(ctx context.Context, token string, expected authgate.TokenType) (*authgate.Identity, error)
}

const (
	MessageTokenMissing = "Access token is missing"
	MessageTokenInvalid = "Invalid or expired token"
)

type tokenContextKey struct{}

// IdentityFromContext returns the identity attached by Guard.
func IdentityFromContext(ctx context.Context) (*authgate.Identity, bool) {
	return authgate.IdentityFromContext(ctx)
}

// TokenFromContext returns the raw bearer token Guard accepted. Logout uses it to revoke the
// presented access token.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenContextKey{}).(string)
	return tok
}

// Guard rejects requests without a valid access token and attaches the caller identity to the
// request context otherwise.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				unauthorized(w, MessageTokenMissing)
				return
			}
			if v == nil {
				unauthorized(w, MessageTokenInvalid)
				return
			}

			id, err := v.Validate(r.Context(), token, authgate.TokenAccess)
			if err != nil {
				unauthorized(w, MessageTokenInvalid)
				return
			}

			ctx := authgate.WithIdentity(r.Context(), id)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	const bearer = "Bearer "
	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

// rejection mirrors the API response envelope.
type rejection struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Status  int    `json:"status"`
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(rejection{
		Success: false,
		Message: message,
		Status:  http.StatusUnauthorized,
	})
}
