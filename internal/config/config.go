// Package config provides configuration management for the trade ledger.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Import    ImportConfig    `mapstructure:"import"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// AnalyticsConfig holds analytics configuration.
type AnalyticsConfig struct {
	NeutralExits []string `mapstructure:"neutral_exits"`
	DisplayMode  string   `mapstructure:"display_mode"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// ImportConfig holds broker statement import configuration.
type ImportConfig struct {
	TimeframeThresholds []TimeframeThreshold `mapstructure:"timeframe_thresholds"`
	LongTimeframe       string               `mapstructure:"long_timeframe"`
}

// TimeframeThreshold labels holds of at most MaxSeconds.
type TimeframeThreshold struct {
	MaxSeconds float64 `mapstructure:"max_seconds"`
	Timeframe  string  `mapstructure:"timeframe"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-ledger"
	}
	return filepath.Join(home, ".config", "trade-ledger")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config file is replaced by a commented template and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if _, err := writeTemplateConfig(configDir, "config"); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}
	cfg.Dir = configDir

	applyEnvOverrides(cfg)
	cfg.fillPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfig, err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.Dir = configDir
	cfg.fillPaths()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.db_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", true)
	v.SetDefault("log.max_size", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("analytics.neutral_exits", []string{"BE", "breakeven"})
	v.SetDefault("analytics.display_mode", string(models.DisplayCurrency))
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.dir", "")
	v.SetDefault("import.timeframe_thresholds", []map[string]interface{}{
		{"max_seconds": 300, "timeframe": "5min"},
		{"max_seconds": 1800, "timeframe": "30min"},
		{"max_seconds": 3600, "timeframe": "1H"},
		{"max_seconds": 14400, "timeframe": "4H"},
	})
	v.SetDefault("import.long_timeframe", "1D")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADELOG_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("TRADELOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) fillPaths() {
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.Dir, "ledger.db")
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = filepath.Join(c.Dir, "audit")
	}
}

// LogFilePath returns the rotating log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Dir, "logs", "tradelog.log")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", c.Log.Level)
	}

	switch models.DisplayMode(c.Analytics.DisplayMode) {
	case models.DisplayCurrency, models.DisplayPercent:
	default:
		return fmt.Errorf("invalid display_mode: %s (must be 'currency' or 'percent')", c.Analytics.DisplayMode)
	}

	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		return fmt.Errorf("log rotation limits must be non-negative")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	prev := 0.0
	for i, th := range c.Import.TimeframeThresholds {
		if th.Timeframe == "" || th.MaxSeconds <= prev {
			return fmt.Errorf("import.timeframe_thresholds[%d]: thresholds must be labelled and strictly increasing", i)
		}
		prev = th.MaxSeconds
	}

	return nil
}
