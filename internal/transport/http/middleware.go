package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/app"
	"github.com/rs/zerolog"
)

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Authenticator resolves the caller's identity. The real lookup lives in an
// external auth service; this interface treats it as opaque.
type Authenticator interface {
	UserID(r *http.Request) (int64, error)
}

// HeaderAuth trusts the X-User-ID header set by the auth gateway in front of
// this service.
type HeaderAuth struct{}

func (HeaderAuth) UserID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingIdentity
	}
	return id, nil
}

var errMissingIdentity = &authError{"missing or invalid caller identity"}

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }

type userIDKey struct{}

// Authenticate resolves the caller and stores the user id on the request
// context; unauthenticated requests are rejected before any handler runs.
func Authenticate(auth Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFrom returns the authenticated caller's id, if any.
func UserIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}

// RateLimitChecker is the admission gate applied before handler logic.
type RateLimitChecker interface {
	Check(ctx context.Context, scope app.Scope, userID, activityID int64) error
}

// GlobalRateLimit rejects requests once the shared window counter is
// exhausted; it runs before any business logic.
func GlobalRateLimit(limiter RateLimitChecker, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := limiter.Check(r.Context(), app.ScopeGlobal, 0, 0); err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
