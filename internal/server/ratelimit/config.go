// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"time"

	"github.com/vdb2/vdb2/internal/config"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds rate limiters for the read and write tiers. A nil tier is
// unlimited.
type Config struct {
	Write *Tier
	Read  *Tier
}

// NewConfig creates the tiers from per-minute limits. Burst is a sixth of the
// per-minute rate, at least 1.
func NewConfig(limits config.RateLimits) *Config {
	return &Config{
		Write: newTier("write", limits.WriteRatePerMin),
		Read:  newTier("read", limits.ReadRatePerMin),
	}
}

func newTier(name string, perMin int) *Tier {
	if perMin <= 0 {
		return nil
	}
	return &Tier{
		Name:    name,
		Limiter: NewLimiter(perMin, time.Minute, max(perMin/6, 1)),
		Scope:   ScopeIP,
	}
}

// Match returns the tier for a request.
// Returns nil for requests that should not be rate limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/api/health" {
		return nil
	}
	switch method {
	case http.MethodPost:
		return c.Write
	case http.MethodGet, http.MethodHead:
		return c.Read
	default:
		return nil
	}
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	if c == nil {
		return
	}
	for _, t := range []*Tier{c.Write, c.Read} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}
