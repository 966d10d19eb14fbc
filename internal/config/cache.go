package config

import "time"

// CacheConfig defines settings for the read-projection cache.  When
// Enabled is false or no Redis client is configured, caching is
// disabled and every read falls through to the database.  Prefix is the
// root of the hierarchical key namespace that the pattern invalidator
// clears; TTL bounds how long a projection can outlive a missed
// invalidation.
type CacheConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		Prefix:  envStr("CACHE_PREFIX", "cache"),
		TTL:     envDur("CACHE_TTL", 30*time.Second),
	}
}
