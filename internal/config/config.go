// Package config loads the gateway's runtime configuration from a YAML
// file with MATCHENGINE_* environment overrides. The matching core
// itself (internal/book, internal/engine, internal/eventbus) takes no
// dependency on this package, and neither does internal/gateway; only
// cmd/server reads it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level gateway configuration. Maps directly to the
// YAML file structure.
type Config struct {
	Host    string   `mapstructure:"host"`
	Port    int      `mapstructure:"port"`
	Symbols []string `mapstructure:"symbols"`

	// ShutdownTimeout bounds how long the gateway waits for in-flight
	// requests and websocket teardown once a stop signal arrives.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Logging  LoggingConfig  `mapstructure:"logging"`
	EventBus EventBusConfig `mapstructure:"eventbus"`
}

// LoggingConfig controls the zerolog level used across the gateway and
// cmd entrypoints.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// EventBusConfig tunes the per-subscriber channel capacity.
type EventBusConfig struct {
	SubscriberBufferSize int `mapstructure:"subscriber_buffer_size"`
}

// defaults mirrors what an operator gets with no config file at all:
// any symbol accepted, a sane HTTP port, info-level logging.
func defaults() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 5 * time.Second,
		Logging: LoggingConfig{
			Level: "info",
		},
		EventBus: EventBusConfig{
			SubscriberBufferSize: 256,
		},
	}
}

// Load reads config from a YAML file at path, with MATCHENGINE_*
// environment variables overriding any matching key (e.g.
// MATCHENGINE_LOGGING_LEVEL overrides logging.level). path may be empty
// to run on defaults plus env alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	cfg := defaults()
	v.SetEnvPrefix("MATCHENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("eventbus.subscriber_buffer_size", cfg.EventBus.SubscriberBufferSize)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// AutomaticEnv + Unmarshal does not reliably bind nested keys, so
	// the handful of operator-facing overrides are re-applied
	// explicitly after Unmarshal.
	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("host") {
		cfg.Host = v.GetString("host")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("eventbus.subscriber_buffer_size") {
		cfg.EventBus.SubscriberBufferSize = v.GetInt("eventbus.subscriber_buffer_size")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.EventBus.SubscriberBufferSize <= 0 {
		return fmt.Errorf("config: eventbus.subscriber_buffer_size must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: shutdown_timeout must be > 0")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "fatal", "panic", "trace", "":
	default:
		return fmt.Errorf("config: logging.level %q not recognized", c.Logging.Level)
	}
	return nil
}

// Addr returns the host:port pair the gateway should listen on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
