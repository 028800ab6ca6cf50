package config

import "time"

// CacheConfig drives the response cache in front of the public catalog.
// Caching is off when Enabled is false or Redis is unreachable.
type CacheConfig struct {
	Enabled bool
	Methods map[string]bool
	TTL     time.Duration
	// KeyStrategy is one of route_query (default), route, path or
	// method_route_query.
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      envSet("CACHE_METHODS", "GET"),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "boxoffice:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	// entries without a TTL would outlive every purge window
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}
