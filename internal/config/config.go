// Package config loads the engine's runtime configuration from environment
// variables, with an optional .env file for local runs and an optional YAML
// overrides file for assumption tuning.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every tunable the engine reads at process start.
type Config struct {
	CacheMaxEntries         int
	CacheTTLSeconds         int
	CacheSaveIntervalSeconds int
	CacheDir                string
	CacheFile               string
	CacheDisabled           bool

	SimDefaultTrials int
	SimMinTrials     int
	SimMaxTrials     int // 0 means no ceiling
	SimDefaultSeed   int64

	AssumptionsOverridesPath string // optional YAML file, see internal/assumptions

	AnalysisConcurrencyLimit int // 0 means unbounded; caps concurrent in-flight analyses

	LogLevel string
}

// Load reads configuration from the environment, defaulting every key that
// is left unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		CacheMaxEntries:          getEnvAsInt("CACHE_MAX_ENTRIES", 100),
		CacheTTLSeconds:          getEnvAsInt("CACHE_TTL_SECONDS", 3600),
		CacheSaveIntervalSeconds: getEnvAsInt("CACHE_SAVE_INTERVAL_SECONDS", 300),
		CacheDir:                 getEnv("CACHE_DIR", "data/cache"),
		CacheFile:                getEnv("CACHE_FILE", "mc_cache.bin"),
		CacheDisabled:            getEnvAsBool("CACHE_DISABLED", false),

		SimDefaultTrials: getEnvAsInt("SIM_DEFAULT_TRIALS", 1000),
		SimMinTrials:     getEnvAsInt("SIM_MIN_TRIALS", 500),
		SimMaxTrials:     getEnvAsInt("SIM_MAX_TRIALS", 0),
		SimDefaultSeed:   int64(getEnvAsInt("SIM_DEFAULT_SEED", 42)),

		AssumptionsOverridesPath: getEnv("ASSUMPTIONS_OVERRIDES_PATH", ""),

		AnalysisConcurrencyLimit: getEnvAsInt("ANALYSIS_CONCURRENCY_LIMIT", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the engine assumes hold.
func (c *Config) Validate() error {
	if c.SimMinTrials < 1 {
		return fmt.Errorf("SIM_MIN_TRIALS must be positive, got %d", c.SimMinTrials)
	}
	if c.SimMaxTrials != 0 && c.SimMaxTrials < c.SimMinTrials {
		return fmt.Errorf("SIM_MAX_TRIALS (%d) must be ≥ SIM_MIN_TRIALS (%d)", c.SimMaxTrials, c.SimMinTrials)
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.CacheMaxEntries)
	}
	if c.AnalysisConcurrencyLimit < 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY_LIMIT must be non-negative, got %d", c.AnalysisConcurrencyLimit)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
