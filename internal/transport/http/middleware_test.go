package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/app"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFrom(r.Context())
		if !ok {
			t.Fatal("expected user id on context")
		}
		if id != 7 {
			t.Fatalf("expected user 7, got %d", id)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("passes the header identity through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders", nil)
		req.Header.Set("X-User-ID", "7")
		rec := httptest.NewRecorder()

		Authenticate(HeaderAuth{}, next).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("rejects missing or malformed identities", func(t *testing.T) {
		for _, raw := range []string{"", "abc", "-1", "0"} {
			req := httptest.NewRequest("GET", "/orders", nil)
			if raw != "" {
				req.Header.Set("X-User-ID", raw)
			}
			rec := httptest.NewRecorder()

			Authenticate(HeaderAuth{}, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatalf("handler must not run for identity %q", raw)
			})).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("identity %q: expected 401, got %d", raw, rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != codeUnauthorized {
				t.Fatalf("identity %q: expected code %q, got %q", raw, codeUnauthorized, code)
			}
		}
	})
}

func TestGlobalRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("admits under the limit", func(t *testing.T) {
		limiter := &fakeLimiter{}
		rec := httptest.NewRecorder()

		GlobalRateLimit(limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(rec, httptest.NewRequest("GET", "/orders", nil))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if limiter.checks != 1 {
			t.Fatalf("expected one check, got %d", limiter.checks)
		}
	})

	t.Run("rejects exhausted windows before the handler", func(t *testing.T) {
		rec := httptest.NewRecorder()

		GlobalRateLimit(&fakeLimiter{err: domain.ErrRateLimited}, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler must not run when rate limited")
		})).ServeHTTP(rec, httptest.NewRequest("GET", "/orders", nil))

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	})
}

func TestUserIDFrom(t *testing.T) {
	t.Parallel()

	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatal("expected no user id on an empty context")
	}
}

var _ RateLimitChecker = (*app.RateLimiter)(nil)
