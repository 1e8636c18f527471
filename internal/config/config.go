// Package config loads the engine's configuration: a JSON file on disk,
// then environment-variable overrides, matching the teacher's own
// file-then-env Load() pattern, restructured to the keys spec.md §6 names.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"marketanalysis/internal/candle"
)

// AnalysisDepth is a tagged enum: fast/standard/deep signal-count tiers.
type AnalysisDepth string

const (
	Fast     AnalysisDepth = "fast"
	Standard AnalysisDepth = "standard"
	Deep     AnalysisDepth = "deep"
)

// ExplanationVerbosity controls how much free text accompanies a result.
type ExplanationVerbosity string

const (
	Minimal  ExplanationVerbosity = "minimal"
	Concise  ExplanationVerbosity = "concise"
	Detailed ExplanationVerbosity = "detailed"
)

// BridgeConfig configures the terminal-bridge connection. Address is the
// base URL of the HTTP-shaped bridge sidecar; when empty, the engine runs
// against the in-memory Mock bridge instead (useful for local/dev runs
// with no live terminal).
type BridgeConfig struct {
	Address string        `json:"address"`
	Timeout time.Duration `json:"timeout"`
}

// VaultConfig configures optional Vault-backed credential retrieval for
// the bridge connection. When Enabled is false, credentials come from
// BridgeConfig / environment only.
type VaultConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	Token   string `json:"token"`
	Path    string `json:"path"`
}

// RedisConfig configures the optional distributed-cache mirror.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// ServerConfig configures the HTTP/WebSocket surface.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// Config is the full set of recognized options from spec.md §6's table.
type Config struct {
	AnalysisDepth            AnalysisDepth         `json:"analysis_depth"`
	ExplanationVerbosity     ExplanationVerbosity  `json:"explanation_verbosity"`
	MinPatternConfidence     float64               `json:"min_pattern_confidence"`
	PatternWeight            float64               `json:"pattern_weight"`
	MinConfidenceThreshold   float64               `json:"min_confidence_threshold"`
	TimeframeWeights         map[candle.Timeframe]float64 `json:"timeframe_weights"`
	PollIntervalSecs         int                   `json:"poll_interval_secs"`
	FullRefreshIntervalMins  int                   `json:"full_refresh_interval_mins"`
	CacheStalenessFactor     float64               `json:"cache_staleness_factor"`
	MaxRetries               int                   `json:"max_retries"`
	RetryDelaySecs           int                   `json:"retry_delay_secs"`
	RetryBackoff             float64               `json:"retry_backoff"`
	SessionPollSecs          int                   `json:"session_poll_secs"`
	AnalysisOnlyMode         bool                  `json:"analysis_only_mode"`

	Bridge BridgeConfig `json:"bridge"`
	Vault  VaultConfig  `json:"vault"`
	Redis  RedisConfig  `json:"redis"`
	Server ServerConfig `json:"server"`
}

// Default returns the spec-mandated defaults.
func Default() Config {
	return Config{
		AnalysisDepth:           Standard,
		ExplanationVerbosity:    Concise,
		MinPatternConfidence:    50,
		PatternWeight:           0.60,
		MinConfidenceThreshold:  40,
		TimeframeWeights:        nil, // nil means "use internal/mtf.DefaultWeights"
		PollIntervalSecs:        30,
		FullRefreshIntervalMins: 60,
		CacheStalenessFactor:    1.5,
		MaxRetries:              3,
		RetryDelaySecs:          1,
		RetryBackoff:            2,
		SessionPollSecs:         5,
		AnalysisOnlyMode:        true,
		Bridge:                  BridgeConfig{Timeout: 10 * time.Second},
		Server:                  ServerConfig{Addr: ":8080"},
	}
}

// Load builds a Config starting from defaults, then a JSON file at path
// (if non-empty and it exists), then environment-variable overrides.
// analysis_only_mode can never be overridden to false: spec.md §6 requires
// it "must always be true".
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnvOverrides(&cfg)
	cfg.AnalysisOnlyMode = true
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANALYSIS_DEPTH"); v != "" {
		cfg.AnalysisDepth = AnalysisDepth(v)
	}
	cfg.MinPatternConfidence = getEnvFloatOrDefault("MIN_PATTERN_CONFIDENCE", cfg.MinPatternConfidence)
	cfg.PatternWeight = getEnvFloatOrDefault("PATTERN_WEIGHT", cfg.PatternWeight)
	cfg.MinConfidenceThreshold = getEnvFloatOrDefault("MIN_CONFIDENCE_THRESHOLD", cfg.MinConfidenceThreshold)
	cfg.PollIntervalSecs = getEnvIntOrDefault("POLL_INTERVAL_SECS", cfg.PollIntervalSecs)
	cfg.FullRefreshIntervalMins = getEnvIntOrDefault("FULL_REFRESH_INTERVAL_MINS", cfg.FullRefreshIntervalMins)
	cfg.CacheStalenessFactor = getEnvFloatOrDefault("CACHE_STALENESS_FACTOR", cfg.CacheStalenessFactor)
	cfg.MaxRetries = getEnvIntOrDefault("MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryDelaySecs = getEnvIntOrDefault("RETRY_DELAY_SECS", cfg.RetryDelaySecs)
	cfg.RetryBackoff = getEnvFloatOrDefault("RETRY_BACKOFF", cfg.RetryBackoff)
	cfg.SessionPollSecs = getEnvIntOrDefault("SESSION_POLL_SECS", cfg.SessionPollSecs)

	cfg.Server.Addr = getEnvOrDefault("SERVER_ADDR", cfg.Server.Addr)
	cfg.Bridge.Address = getEnvOrDefault("BRIDGE_ADDR", cfg.Bridge.Address)

	// Vault/Redis connection details may also be set in the JSON config
	// file; the environment variables below override whatever it set.
	if v := os.Getenv("VAULT_ENABLED"); v == "true" {
		cfg.Vault.Enabled = true
	}
	cfg.Vault.Address = getEnvOrDefault("VAULT_ADDR", cfg.Vault.Address)
	cfg.Vault.Token = getEnvOrDefault("VAULT_TOKEN", cfg.Vault.Token)
	cfg.Vault.Path = getEnvOrDefault("VAULT_BRIDGE_SECRET_PATH", cfg.Vault.Path)

	if v := os.Getenv("REDIS_ENABLED"); v == "true" {
		cfg.Redis.Enabled = true
	}
	cfg.Redis.Address = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Address)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
