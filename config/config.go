// Package config loads service settings from defaults, an optional config
// file, a .env file and TODO_WEB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TODO_WEB_UPSTREAM_BASE_URL.
const EnvPrefix = "TODO_WEB"

// Config is the full service configuration.
type Config struct {
	Listen   string         `mapstructure:"listen"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Dedupe   DedupeConfig   `mapstructure:"dedupe"`
	Rate     RateConfig     `mapstructure:"rate"`
	TimeZone string         `mapstructure:"time_zone"`
	Log      LogConfig      `mapstructure:"log"`
}

// UpstreamConfig describes the todo REST API.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// RedisConfig enables the snapshot cache and submission deduper when URL is set.
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type DedupeConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateConfig limits requests per client IP. A zero limit disables it.
type RateConfig struct {
	Limit float64 `mapstructure:"limit"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Upstream: UpstreamConfig{
			BaseURL: "http://localhost:3000",
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			TTL: 30 * time.Second,
		},
		Dedupe: DedupeConfig{
			TTL: 10 * time.Minute,
		},
		Rate: RateConfig{
			Burst: 20,
		},
		TimeZone: "Local",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key on v so environment overrides are picked up
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("listen", d.Listen)

	v.SetDefault("upstream.base_url", d.Upstream.BaseURL)
	v.SetDefault("upstream.token", d.Upstream.Token)
	v.SetDefault("upstream.timeout", d.Upstream.Timeout)

	v.SetDefault("breaker.max_failures", d.Breaker.MaxFailures)
	v.SetDefault("breaker.open_timeout", d.Breaker.OpenTimeout)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("dedupe.ttl", d.Dedupe.TTL)

	v.SetDefault("rate.limit", d.Rate.Limit)
	v.SetDefault("rate.burst", d.Rate.Burst)

	v.SetDefault("time_zone", d.TimeZone)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an optional YAML, TOML or JSON file.
	ConfigFile string
	// EnvFile is loaded into the process environment if it exists.
	EnvFile string
}

// Load reads the configuration. A missing .env file is ignored; a missing
// explicit config file is an error.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Upstream.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream.base_url %q must be an absolute http(s) URL", c.Upstream.BaseURL)
	}
	durations := map[string]time.Duration{
		"upstream.timeout":     c.Upstream.Timeout,
		"breaker.open_timeout": c.Breaker.OpenTimeout,
		"redis.ttl":            c.Redis.TTL,
		"dedupe.ttl":           c.Dedupe.TTL,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	if c.Rate.Limit < 0 {
		return errors.New("rate.limit must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// Location resolves TimeZone. "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.TimeZone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time_zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
