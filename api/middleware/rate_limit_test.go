package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serviplace/serviplace-backend/pkg/config"
)

type stubWindowStore struct {
	allowed bool
	err     error
	scopes  []string
}

func (s *stubWindowStore) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, 1, s.err
}

func rateLimitTestConfig() config.RateLimitConfig {
	return config.RateLimitConfig{GlobalWindow: time.Minute, GlobalLimit: 10}
}

func TestRateLimitScopesByUserWhenAuthenticated(t *testing.T) {
	store := &stubWindowStore{allowed: true}
	handler := RateLimit(rateLimitTestConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(WithUserID(req.Context(), "9f1c7f0a-3a70-4f3e-9d0e-5a4f8b3c2d10"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got status %d", rec.Code)
	}
	if len(store.scopes) != 1 || store.scopes[0] != "user:9f1c7f0a-3a70-4f3e-9d0e-5a4f8b3c2d10" {
		t.Fatalf("unexpected scopes %v", store.scopes)
	}
}

func TestRateLimitFallsBackToIPScope(t *testing.T) {
	store := &stubWindowStore{allowed: true}
	handler := RateLimit(rateLimitTestConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.RemoteAddr = "203.0.113.9:51423"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(store.scopes) != 1 || store.scopes[0] != "ip:203.0.113.9" {
		t.Fatalf("unexpected scopes %v", store.scopes)
	}
}

func TestRateLimitBlocksWhenWindowExhausted(t *testing.T) {
	store := &stubWindowStore{allowed: false}
	handler := RateLimit(rateLimitTestConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	store := &stubWindowStore{allowed: false, err: errors.New("redis down")}
	handler := RateLimit(rateLimitTestConfig(), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected fail-open pass-through, got %d", rec.Code)
	}
}
