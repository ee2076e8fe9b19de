package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/giygas/tpn-api/config"
	"github.com/giygas/tpn-api/metrics"
)

func TestTokenCost(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		expected int64
	}{
		{http.MethodGet, "/health", 5},
		{http.MethodGet, "/metrics", 5},
		{http.MethodGet, "/v1/solutions", 5},
		{http.MethodGet, "/v1/solutions/KCl", 5},
		{http.MethodPost, "/v1/calculations", 20},
		{http.MethodPost, "/v1/validations", 10},
		{http.MethodGet, "/unknown", 10},
		{http.MethodGet, "/", 10},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := tokenCost(httptest.NewRequest(tt.method, tt.path, nil))
			if got != tt.expected {
				t.Errorf("tokenCost(%s) = %d, want %d", tt.path, got, tt.expected)
			}
			if got > config.MaxRequestCost {
				t.Errorf("tokenCost(%s) = %d exceeds MaxRequestCost %d", tt.path, got, config.MaxRequestCost)
			}
		})
	}
}

func TestRateLimiterMinimumCapacityAdmitsCalculation(t *testing.T) {
	rl := NewRateLimiter(5, config.MaxRequestCost)
	handler := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/calculations", nil)
	req.RemoteAddr = "192.0.2.50:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected a full minimum bucket to admit a calculation, got %d", rr.Code)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	// capacity for two calculations, negligible refill
	rl := NewRateLimiter(1, 40)
	handler := rl.Middleware(okHandler())

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/calculations", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := range 2 {
		if rr := send("10.0.0.1:5000"); rr.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, rr.Code)
		}
	}

	rr := send("10.0.0.1:5001")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 once the bucket is empty, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" || rr.Header().Get("Retry-After") == "" {
		t.Errorf("Expected rate limit headers, got %v", rr.Header())
	}
	if !strings.Contains(rr.Body.String(), `"code":429`) {
		t.Errorf("Expected JSON error body, got %s", rr.Body.String())
	}

	// another client has its own bucket
	if rr := send("10.0.0.2:5000"); rr.Code != http.StatusOK {
		t.Errorf("Expected a fresh bucket for a new client, got %d", rr.Code)
	}
	if rl.Len() != 2 {
		t.Errorf("Expected 2 tracked clients, got %d", rl.Len())
	}
}

func TestRateLimiterHeaders(t *testing.T) {
	rl := NewRateLimiter(3, 1000)
	rr := httptest.NewRecorder()
	rl.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/solutions", nil))

	if rr.Header().Get("X-RateLimit-Limit") != "1000" || rr.Header().Get("X-RateLimit-Rate") != "3" {
		t.Errorf("Unexpected limit headers %v", rr.Header())
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "995" {
		t.Errorf("Expected 995 remaining, got %s", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiterPrune(t *testing.T) {
	now := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1000)
	rl.now = func() time.Time { return now }

	// full bucket: dropped
	rl.getBucket("10.0.0.1")
	// drained and recent: kept
	rl.getBucket("10.0.0.2").TakeAvailable(500)
	// drained but idle: dropped
	rl.getBucket("10.0.0.3").TakeAvailable(500)
	rl.clients["10.0.0.3"].lastSeen = now.Add(-time.Hour)

	if removed := rl.Prune(10 * time.Minute); removed != 2 {
		t.Errorf("Expected 2 clients pruned, got %d", removed)
	}
	if _, ok := rl.clients["10.0.0.2"]; !ok || rl.Len() != 1 {
		t.Errorf("Expected only the active client to remain, got %d", rl.Len())
	}
	if testutil.ToFloat64(metrics.RateLimiterBuckets) != 1 {
		t.Errorf("Expected bucket gauge 1, got %v", testutil.ToFloat64(metrics.RateLimiterBuckets))
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 32, MaxHeaderSize: 64}
	handler := RequestSizeMiddleware(cfg)(okHandler())

	t.Run("within limits", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/calculations", strings.NewReader(`{}`)))
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rr.Code)
		}
	})

	t.Run("body too large", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/calculations", strings.NewReader(strings.Repeat("x", 33))))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413, got %d", rr.Code)
		}
	})

	t.Run("headers too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/solutions", nil)
		req.Header.Set("X-Padding", strings.Repeat("x", 100))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestHeaderFieldsTooLarge {
			t.Errorf("Expected 431, got %d", rr.Code)
		}
	})

	t.Run("unknown length is capped while reading", func(t *testing.T) {
		var readErr error
		capped := RequestSizeMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, 64)
			for readErr == nil {
				_, readErr = r.Body.Read(buf)
			}
		}))

		req := httptest.NewRequest(http.MethodPost, "/v1/calculations", strings.NewReader(strings.Repeat("x", 100)))
		req.ContentLength = -1
		capped.ServeHTTP(httptest.NewRecorder(), req)

		var maxErr *http.MaxBytesError
		if !errors.As(readErr, &maxErr) {
			t.Errorf("Expected MaxBytesError, got %v", readErr)
		}
	})
}
