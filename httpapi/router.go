package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/identity"
	"github.com/MrEthical07/authgate/middleware"
)

// Tokens is the token lifecycle surface the API needs. *authgate.Engine satisfies it.
type Tokens interface {
	middleware.Validator
	IssuePair(ctx context.Context, userID, email string) (authgate.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (authgate.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// Users is the account surface the API needs. *identity.Service satisfies it.
type Users interface {
	Register(ctx context.Context, name, email, password string) (identity.User, error)
	Authenticate(ctx context.Context, email, password string) (identity.User, error)
	Get(ctx context.Context, id string) (identity.User, error)
}

// LoginThrottle limits failed logins. *rate.Limiter satisfies it.
type LoginThrottle interface {
	Check(ctx context.Context, email, ip string) error
	Fail(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email, ip string) error
}

// Deps wires the router. Throttle, Metrics and Health are optional.
type Deps struct {
	Tokens   Tokens
	Users    Users
	Throttle LoginThrottle
	Logger   *zap.Logger
	Metrics  http.Handler
	Health   func(context.Context) error

	// PasswordMinLength is the registration minimum; set it to the hasher's MinLength.
	// Zero means 6.
	PasswordMinLength int
	// RetryAfter is sent with 429 responses, rounded up to whole seconds. Zero means 60s.
	RetryAfter time.Duration
}

const (
	apiPrefix    = "/api/v1"
	maxBodyBytes = 1 << 20

	defaultPasswordMinLength = 6
	defaultRetryAfter        = time.Minute
)

type api struct {
	tokens   Tokens
	users    Users
	throttle LoginThrottle
	log      *zap.Logger
	health   func(context.Context) error

	minPassword int
	retryAfter  string
}

// NewRouter returns the HTTP handler for the whole service.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &api{tokens: d.Tokens, users: d.Users, throttle: d.Throttle, log: log.Named("http"), health: d.Health}
	a.minPassword = d.PasswordMinLength
	if a.minPassword <= 0 {
		a.minPassword = defaultPasswordMinLength
	}
	a.retryAfter = retryAfterSeconds(d.RetryAfter)
	guard := middleware.Guard(d.Tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /health/", a.handleHealth)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	mux.HandleFunc("POST "+apiPrefix+"/auth/register", a.handleRegister)
	mux.HandleFunc("POST "+apiPrefix+"/auth/login", a.handleLogin)
	mux.HandleFunc("POST "+apiPrefix+"/auth/refresh", a.handleRefresh)
	mux.Handle("POST "+apiPrefix+"/auth/logout", guard(http.HandlerFunc(a.handleLogout)))

	forward := middleware.ForwardAuth(d.Tokens)
	mux.Handle("GET "+apiPrefix+"/auth/validate-token", forward)
	mux.Handle("POST "+apiPrefix+"/auth/validate-token", forward)

	mux.Handle("GET "+apiPrefix+"/me", guard(http.HandlerFunc(a.handleMe)))

	return middleware.RequestID(accessLog(a.log, mux))
}

func (a *api) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "API is Running!...")
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := a.health(ctx); err != nil {
			a.log.Warn("health check failed", zap.Error(err))
			writeStatus(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	writeStatus(w, http.StatusOK, "Server is Healthy!...")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"status":"` + status + `"}` + "\n"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", authgate.RequestIDFromContext(r.Context())),
		)
	})
}

func retryAfterSeconds(d time.Duration) string {
	if d <= 0 {
		d = defaultRetryAfter
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return strconv.FormatInt(secs, 10)
}
