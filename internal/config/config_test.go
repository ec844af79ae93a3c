package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HOST", "PORT", "PRICING_DEBOUNCE", "PRICING_CACHE_SIZE", "SEARCH_MIN_SCORE", "ALLOW_ORIGINS", "PRICING_SESSION_TTL", "PRICING_MAX_SESSIONS"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "127.0.0.1:8082", cfg.Addr())
	assert.Equal(t, 300*time.Millisecond, cfg.PricingDebounce)
	assert.Equal(t, 50, cfg.PricingCacheSize)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 1000, cfg.MaxSessions)
	assert.Equal(t, 0.1, cfg.SearchMinScore)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PRICING_DEBOUNCE", "150ms")
	t.Setenv("PRICING_TIMEOUT", "bogus")
	t.Setenv("SEARCH_MIN_SCORE", "0.25")
	t.Setenv("PRICING_SESSION_TTL", "5m")
	t.Setenv("ALLOW_ORIGINS", "http://a.test, http://b.test")

	cfg := Load()

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 150*time.Millisecond, cfg.PricingDebounce)
	assert.Equal(t, 10*time.Second, cfg.PricingTimeout, "invalid duration falls back to default")
	assert.Equal(t, 0.25, cfg.SearchMinScore)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowOrigins)
}
