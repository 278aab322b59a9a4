// Package config loads ncfstore settings from an optional YAML file,
// NCFSTORE_* environment variables and built-in defaults, in that order of
// precedence from lowest to highest: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vegasq/ncfstore/internal/logger"
	"github.com/vegasq/ncfstore/ncf"
)

// EnvPrefix is prepended to every environment override, e.g.
// NCFSTORE_SERVER_ADDR for server.addr.
const EnvPrefix = "NCFSTORE"

// Config is the full runtime configuration.
type Config struct {
	DataDir       string        `mapstructure:"data_dir"`
	Compression   string        `mapstructure:"compression"`
	SaveInterval  time.Duration `mapstructure:"save_interval"`
	RetentionDays int           `mapstructure:"retention_days"`
	Log           LogConfig     `mapstructure:"log"`
	Server        ServerConfig  `mapstructure:"server"`
	Output        OutputConfig  `mapstructure:"output"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// OutputConfig configures CLI rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("compression", "lz4")
	v.SetDefault("save_interval", 5*time.Minute)
	v.SetDefault("retention_days", 90)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("output.format", "jsonl")
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults always validate.
		panic(err)
	}
	return cfg
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply; a non-empty path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if len(c.Compression) > ncf.MaxCompressionLabel {
		errs = append(errs, fmt.Errorf("compression label %q is longer than %d bytes", c.Compression, ncf.MaxCompressionLabel))
	}
	if c.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("retention_days must be non-negative, got %d", c.RetentionDays))
	}
	if c.SaveInterval < 0 {
		errs = append(errs, fmt.Errorf("save_interval must be non-negative, got %s", c.SaveInterval))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger converts the log section to a logger.Config.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development,
		Encoding:    c.Log.Encoding,
	}
}
