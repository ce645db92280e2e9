package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vdb2/vdb2/internal/config"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	for i := range 5 {
		result := l.Allow("test:key")
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if result.Limit != 5 {
			t.Errorf("expected Limit=5, got %d", result.Limit)
		}
	}
	result := l.Allow("test:key")
	if result.Allowed {
		t.Error("6th request should be rate limited")
	}
	if result.RetryAfter < time.Second {
		t.Errorf("expected RetryAfter >= 1s, got %v", result.RetryAfter)
	}
	if result.Remaining != 0 {
		t.Errorf("expected Remaining=0, got %d", result.Remaining)
	}

	// Other keys keep their full quota.
	if !l.Allow("other").Allowed {
		t.Error("other key should not be rate limited")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter(600, time.Minute, 10)
	defer l.Close()
	l.Allow("a")
	l.Allow("b")
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	l.cleanup(time.Now())
	if l.Len() != 2 {
		t.Errorf("recent buckets removed: Len() = %d", l.Len())
	}
	l.cleanup(time.Now().Add(time.Hour))
	if l.Len() != 0 {
		t.Errorf("stale buckets kept: Len() = %d", l.Len())
	}
}

func TestConfig_Match(t *testing.T) {
	c := NewConfig(config.RateLimits{WriteRatePerMin: 60, ReadRatePerMin: 0})
	defer c.Close()
	tests := []struct {
		method, path string
		want         string
	}{
		{http.MethodPost, "/api/vdbs", "write"},
		{http.MethodPost, "/api/vdbs/1/entries", "write"},
		{http.MethodGet, "/api/vdbs", ""},
		{http.MethodGet, "/api/health", ""},
		{http.MethodOptions, "/api/vdbs", ""},
	}
	for _, tt := range tests {
		got := ""
		if tier := c.Match(tt.method, tt.path); tier != nil {
			got = tier.Name
		}
		if got != tt.want {
			t.Errorf("Match(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
	var nilConfig *Config
	if nilConfig.Match(http.MethodPost, "/api/vdbs") != nil {
		t.Error("nil config should not limit")
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewResponseWriter(rec, Result{Allowed: false, Limit: 60, Remaining: 0, ResetAt: time.Unix(100, 0), RetryAfter: 2 * time.Second})
	w.WriteHeader(http.StatusTooManyRequests)
	h := rec.Header()
	for k, want := range map[string]string{
		"X-RateLimit-Limit":     "60",
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     "100",
		"Retry-After":           "2",
	} {
		if got := h.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if got := BuildKey(ScopeIP, "1.2.3.4", "write"); got != "ip:1.2.3.4:write" {
		t.Errorf("BuildKey() = %q", got)
	}
}
