// Package config defines the engine configuration. A single
// EngineConfig structure covers execution, scanning, and caching, and
// is loaded from YAML with environment variable overrides.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// EngineConfig is the unified configuration for the query engine.
type EngineConfig struct {
	// Execution settings control collect-time parallelism.
	Execution ExecutionConfig `yaml:"execution" json:"execution" mapstructure:"execution"`

	// Scan settings control file ingestion.
	Scan ScanConfig `yaml:"scan" json:"scan" mapstructure:"scan"`

	// Cache settings control the engine-owned scan cache.
	Cache CacheConfig `yaml:"cache" json:"cache" mapstructure:"cache"`
}

// ExecutionConfig contains collect-time execution settings.
type ExecutionConfig struct {
	// Workers is the number of goroutines materializing independent
	// plan inputs. Zero means one per CPU.
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// RechunkAfterConcat merges chunks into one contiguous chunk per
	// column after a concat when the caller does not say otherwise.
	RechunkAfterConcat bool `yaml:"rechunk_after_concat" json:"rechunk_after_concat" mapstructure:"rechunk_after_concat"`
}

// ScanConfig contains file ingestion settings.
type ScanConfig struct {
	// BatchSize is the row count per decoded chunk.
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	// InferHeader treats the first CSV row as column names.
	InferHeader bool `yaml:"infer_header" json:"infer_header" mapstructure:"infer_header"`
}

// CacheConfig contains scan cache settings.
type CacheConfig struct {
	// Enabled turns the scan cache on.
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// MaxEntries bounds the number of cached scan results.
	MaxEntries int `yaml:"max_entries" json:"max_entries" mapstructure:"max_entries"`
}

// Default returns the engine defaults.
func Default() *EngineConfig {
	return &EngineConfig{
		Execution: ExecutionConfig{
			Workers:            runtime.GOMAXPROCS(0),
			RechunkAfterConcat: true,
		},
		Scan: ScanConfig{
			BatchSize:   8192,
			InferHeader: true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 32,
		},
	}
}

// Load reads an EngineConfig from a YAML file. Environment variables
// prefixed QUASAR_ override file values (QUASAR_EXECUTION_WORKERS and
// so on). Missing fields keep their defaults.
func Load(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("QUASAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills computed defaults.
func (c *EngineConfig) Validate() error {
	if c.Execution.Workers < 0 {
		return fmt.Errorf("execution.workers must be >= 0, got %d", c.Execution.Workers)
	}
	if c.Execution.Workers == 0 {
		c.Execution.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be > 0, got %d", c.Scan.BatchSize)
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0 when the cache is enabled, got %d", c.Cache.MaxEntries)
	}
	return nil
}
