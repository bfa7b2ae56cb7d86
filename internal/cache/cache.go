// Package cache stores final extraction results keyed by document content.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Backend       string        `mapstructure:"backend" yaml:"backend" json:"backend"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries" yaml:"max_entries" json:"max_entries"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password" json:"-"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db" json:"redis_db"`
	Prefix        string        `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
}

// DefaultConfig returns the defaults; caching is off.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMemory,
		TTL:        24 * time.Hour,
		MaxEntries: 10000,
		RedisAddr:  "localhost:6379",
		Prefix:     "filingocr:",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q (want memory or redis)", c.Backend)
	}
	if c.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if strings.EqualFold(c.Backend, BackendRedis) && c.Enabled && c.RedisAddr == "" {
		return errors.New("redis_addr is required for the redis cache backend")
	}
	return nil
}

// New builds the configured backend. It returns nil, nil when caching is
// disabled.
func New(ctx context.Context, cfg Config) (Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Backend, BackendRedis) {
		r, err := NewRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return NewMemory(cfg.MaxEntries), nil
}
