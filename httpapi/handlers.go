package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/identity"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/MrEthical07/authgate/password"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		invalid(w, http.StatusUnprocessableEntity, map[string][]string{
			"body": {"Request body must be a JSON object."},
		})
		return false
	}
	return true
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.validate(a.minPassword); errs != nil {
		invalid(w, http.StatusUnprocessableEntity, errs)
		return
	}

	log := a.log.With(zap.String("request_id", authgate.RequestIDFromContext(r.Context())))
	log.Info("registration attempt", zap.String("email", req.Email))

	user, err := a.users.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, authgate.ErrAccountExists):
		writeJSON(w, http.StatusConflict, Envelope{
			Message: msgValidationFailed,
			Errors:  map[string][]string{"email": {"This email is already taken."}},
		})
		return
	case errors.Is(err, password.ErrPasswordTooShort):
		// The hasher's minimum can exceed the one this router was given.
		invalid(w, http.StatusUnprocessableEntity, map[string][]string{
			"password": {"Password is too short."},
		})
		return
	case errors.Is(err, password.ErrPasswordTooLong):
		invalid(w, http.StatusUnprocessableEntity, map[string][]string{
			"password": {"Password is too long."},
		})
		return
	default:
		log.Error("registration failed", zap.String("email", req.Email), zap.Error(err))
		failure(w, http.StatusInternalServerError, msgRegisterFailed)
		return
	}

	pair, err := a.tokens.IssuePair(r.Context(), user.ID, user.Email)
	if err != nil {
		log.Error("registration token issuance failed", zap.String("user_id", user.ID), zap.Error(err))
		failure(w, http.StatusInternalServerError, msgRegisterFailed)
		return
	}

	log.Info("user registered", zap.String("user_id", user.ID))
	success(w, http.StatusCreated, msgRegistered, map[string]any{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.validate(); errs != nil {
		invalid(w, http.StatusUnprocessableEntity, errs)
		return
	}

	log := a.log.With(zap.String("request_id", authgate.RequestIDFromContext(r.Context())))
	email := identity.NormalizeEmail(req.Email)
	ip := clientIP(r)

	if a.throttle != nil {
		if err := a.throttle.Check(r.Context(), email, ip); err != nil {
			a.throttled(w, log, email, err)
			return
		}
	}

	user, err := a.users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, authgate.ErrInvalidCredentials) {
		log.Warn("invalid login attempt", zap.String("email", req.Email))
		if a.throttle != nil {
			if err := a.throttle.Fail(r.Context(), email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				log.Warn("login throttle update failed", zap.Error(err))
			}
		}
		failure(w, http.StatusUnauthorized, msgInvalidCreds)
		return
	}
	if err != nil {
		log.Error("login failed", zap.Error(err))
		failure(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if a.throttle != nil {
		if err := a.throttle.Reset(r.Context(), email, ip); err != nil {
			log.Warn("login throttle reset failed", zap.Error(err))
		}
	}

	pair, err := a.tokens.IssuePair(r.Context(), user.ID, user.Email)
	if err != nil {
		log.Error("login token issuance failed", zap.String("user_id", user.ID), zap.Error(err))
		failure(w, http.StatusInternalServerError, msgInternal)
		return
	}

	log.Info("user logged in", zap.String("user_id", user.ID))
	success(w, http.StatusOK, msgLoginOK, pair)
}

// handleRefresh reads the refresh token from the bearer header, or from a JSON body
// {"refresh_token": "..."} when no header is sent.
func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok && r.ContentLength != 0 {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token = body.RefreshToken
		}
	}
	if token == "" {
		failure(w, http.StatusUnauthorized, msgRefreshInvalid)
		return
	}

	pair, err := a.tokens.Refresh(r.Context(), token)
	switch {
	case err == nil:
		success(w, http.StatusOK, msgRefreshed, pair)
	case errors.Is(err, authgate.ErrStoreUnavailable):
		failure(w, http.StatusServiceUnavailable, msgServiceUnavailable)
	case errors.Is(err, authgate.ErrTokenInvalid):
		failure(w, http.StatusUnauthorized, msgRefreshInvalid)
	default:
		a.log.Error("refresh failed", zap.Error(err))
		failure(w, http.StatusInternalServerError, msgInternal)
	}
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := a.tokens.Logout(r.Context(), middleware.TokenFromContext(r.Context()))
	if err != nil {
		a.log.Error("logout revocation failed", zap.Error(err))
		failure(w, http.StatusServiceUnavailable, msgServiceUnavailable)
		return
	}
	success(w, http.StatusOK, msgLoggedOut, nil)
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		failure(w, http.StatusUnauthorized, middleware.MessageTokenInvalid)
		return
	}

	user, err := a.users.Get(r.Context(), id.UserID)
	if errors.Is(err, authgate.ErrUserNotFound) {
		a.log.Warn("profile lookup for missing user", zap.String("user_id", id.UserID))
		failure(w, http.StatusNotFound, msgUserNotFound)
		return
	}
	if err != nil {
		a.log.Error("profile lookup failed", zap.Error(err))
		failure(w, http.StatusInternalServerError, msgInternal)
		return
	}
	success(w, http.StatusOK, msgProfile, user)
}

func (a *api) throttled(w http.ResponseWriter, log *zap.Logger, email string, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		log.Warn("login throttled", zap.String("email", email))
		w.Header().Set("Retry-After", a.retryAfter)
		failure(w, http.StatusTooManyRequests, msgTooManyAttempts)
		return
	}
	log.Warn("login throttle unavailable", zap.Error(err))
	failure(w, http.StatusServiceUnavailable, msgServiceUnavailable)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
