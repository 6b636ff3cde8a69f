package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:5000"); code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, code)
		}
	}

	if code := do("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the burst is spent, got %d", code)
	}

	if code := do("10.0.0.2:5000"); code != http.StatusNoContent {
		t.Errorf("other clients must not share the bucket, got %d", code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen != "abc-123" {
		t.Errorf("expected caller request id to be kept, got %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected request id echoed in response header")
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}
