// Package config loads process configuration from flags, environment
// variables (prefixed KSQLPLAN_) and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. KSQLPLAN_PORT.
const EnvPrefix = "KSQLPLAN"

// Config is the resolved configuration.
type Config struct {
	Port          int           `mapstructure:"port"`
	Catalog       string        `mapstructure:"catalog"`      // CUE file or directory
	DatabaseURL   string        `mapstructure:"database_url"` // SQLite DSN
	SessionIdle   time.Duration `mapstructure:"session_idle"`
	SessionMaxAge time.Duration `mapstructure:"session_max_age"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:          8080,
		SessionIdle:   30 * time.Minute,
		SessionMaxAge: 24 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "logfmt",
	}
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.Int("port", d.Port, "HTTP listen port")
	fs.String("catalog", "", "CUE catalog file or directory")
	fs.String("database-url", "", "SQLite DSN of the persisted catalog")
	fs.Duration("session-idle", d.SessionIdle, "REPL session idle timeout")
	fs.Duration("session-max-age", d.SessionMaxAge, "REPL session maximum age")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.String("log-format", d.LogFormat, "log format: logfmt or json")
	fs.String("config", "", "config file (yaml, json or toml)")
}

// Load resolves the configuration. Flags set on the command line win over
// environment variables, which win over the config file, which wins over
// defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("port", d.Port)
	v.SetDefault("catalog", "")
	v.SetDefault("database_url", "")
	v.SetDefault("session_idle", d.SessionIdle)
	v.SetDefault("session_max_age", d.SessionMaxAge)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if fs != nil {
		for key, flag := range map[string]string{
			"port":            "port",
			"catalog":         "catalog",
			"database_url":    "database-url",
			"session_idle":    "session-idle",
			"session_max_age": "session-max-age",
			"log_level":       "log-level",
			"log_format":      "log-format",
		} {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("binding flag %s: %w", flag, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.SessionIdle <= 0 || c.SessionMaxAge <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "logfmt", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
