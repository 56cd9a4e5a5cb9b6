package config

import (
	"strings"
	"time"
)

// CacheConfig controls the response cache in front of the public
// availability endpoints. When Enabled is false or no Redis client
// could be connected, caching is skipped entirely. The TTL should stay
// short; availability changes on every submission and the cache only
// absorbs the calendar-view read burst.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // "route_query" or "path_query"
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* environment variables with defaults
// tuned for availability responses.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 15*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "avail"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
