package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestRateLimit(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("throttles bursts of mutating requests", func(t *testing.T) {
		handler := RateLimit(rate.Limit(1), 2, nil)(okHandler)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/events/evt-1/registrations", nil)
			req.RemoteAddr = "203.0.113.1:4000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}

		if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
			t.Fatalf("expected first two requests within burst, got %v", codes)
		}
		if codes[2] != http.StatusTooManyRequests {
			t.Fatalf("expected third request limited, got %v", codes)
		}
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		handler := RateLimit(rate.Limit(1), 1, nil)(okHandler)

		first := httptest.NewRequest(http.MethodPost, "/events/evt-1/registrations", nil)
		first.RemoteAddr = "203.0.113.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected first client admitted, got %d", rec.Code)
		}

		second := httptest.NewRequest(http.MethodPost, "/events/evt-1/registrations", nil)
		second.RemoteAddr = "203.0.113.2:4000"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected second client admitted, got %d", rec.Code)
		}
	})

	t.Run("never throttles reads", func(t *testing.T) {
		handler := RateLimit(rate.Limit(1), 1, nil)(okHandler)

		for i := 0; i < 10; i++ {
			req := httptest.NewRequest(http.MethodGet, "/attendance", nil)
			req.RemoteAddr = "203.0.113.1:4000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("expected read %d to pass through, got %d", i, rec.Code)
			}
		}
	})
}

func TestRequestLogger(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Error("expected a request scoped logger in the context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
