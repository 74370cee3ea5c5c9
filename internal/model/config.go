package model

import (
	"time"

	"github.com/jerometseng/requestlog/internal/docpath"
)

// Config is the complete requestlog configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Docs      DocsConfig      `yaml:"docs" mapstructure:"docs"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ContextPath  string        `yaml:"context_path" mapstructure:"context_path"`
	MaxConns     int           `yaml:"max_conns" mapstructure:"max_conns"` // 0 = unlimited
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// DocsConfig describes documentation resources
type DocsConfig struct {
	Markers []string `yaml:"markers" mapstructure:"markers"`
	Path    string   `yaml:"path" mapstructure:"path"` // Appended to the docs URL in the banner
	Banner  bool     `yaml:"banner" mapstructure:"banner"`
}

// LogConfig controls the request logger
type LogConfig struct {
	Level     string   `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format    string   `yaml:"format" mapstructure:"format"` // json, text
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// RateLimitConfig controls per-client rate limiting
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`

	// Peers whose X-Forwarded-For is trusted for the limiter key (IPs or CIDRs)
	TrustedProxies []string      `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CacheConfig controls the classifier verdict cache
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	MaxEntries      int           `yaml:"max_entries" mapstructure:"max_entries"` // 0 = unbounded
}

// AuditConfig controls batch classification
type AuditConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	markers := make([]string, len(docpath.DefaultMarkers))
	copy(markers, docpath.DefaultMarkers)

	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ContextPath:  "",
			MaxConns:     0,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Docs: DocsConfig{
			Markers: markers,
			Path:    "/doc.html",
			Banner:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 50,
			Burst:             100,
			IdleTimeout:       10 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             10 * time.Minute,
			CleanupInterval: 5 * time.Minute,
			MaxEntries:      10000,
		},
		Audit: AuditConfig{
			Workers: 4,
		},
	}
}
