// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Per-row bounds accepted from configuration and from the perline query parameter.
const (
	MinPerRow = 1
	MaxPerRow = 50
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Cache      CacheConfig      `yaml:"cache"`
	Index      IndexConfig      `yaml:"index"`
	Layout     LayoutConfig     `yaml:"layout"`
	Output     OutputConfig     `yaml:"output"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"ICONSMD_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"ICONSMD_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"ICONSMD_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ICONSMD_SHUTDOWN_TIMEOUT"`
	// HTTPCacheMaxAge is sent as Cache-Control max-age on composite images.
	HTTPCacheMaxAge time.Duration `yaml:"http_cache_max_age" env:"ICONSMD_HTTP_CACHE_MAX_AGE"`
}

type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url" env:"ICONSMD_UPSTREAM_URL"`
	IndexPath      string        `yaml:"index_path" env:"ICONSMD_UPSTREAM_INDEX_PATH"`
	IconPath       string        `yaml:"icon_path" env:"ICONSMD_UPSTREAM_ICON_PATH"` // must contain {name}
	Timeout        time.Duration `yaml:"timeout" env:"ICONSMD_UPSTREAM_TIMEOUT"`
	MaxConcurrency int           `yaml:"max_concurrency" env:"ICONSMD_UPSTREAM_MAX_CONCURRENCY"`
	MaxIconBytes   int64         `yaml:"max_icon_bytes" env:"ICONSMD_UPSTREAM_MAX_ICON_BYTES"`
	UserAgent      string        `yaml:"user_agent" env:"ICONSMD_UPSTREAM_USER_AGENT"`
}

type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl" env:"ICONSMD_CACHE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"ICONSMD_CACHE_SWEEP_INTERVAL"`
	Shards        int           `yaml:"shards" env:"ICONSMD_CACHE_SHARDS"`
}

type IndexConfig struct {
	// RefreshInterval of zero refreshes only once at startup.
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"ICONSMD_INDEX_REFRESH_INTERVAL"`
}

type LayoutConfig struct {
	DisplaySize int  `yaml:"display_size" env:"ICONSMD_DISPLAY_SIZE"`
	ContentSize int  `yaml:"content_size" env:"ICONSMD_CONTENT_SIZE"`
	Gap         int  `yaml:"gap" env:"ICONSMD_GAP"`
	MaxPerRow   int  `yaml:"max_per_row" env:"ICONSMD_MAX_PER_ROW"`
	RowOnly     bool `yaml:"row_only" env:"ICONSMD_ROW_ONLY"`
}

type OutputConfig struct {
	Format      string `yaml:"format" env:"ICONSMD_FORMAT"` // svg or webp
	NoOptimize  bool   `yaml:"no_optimize" env:"ICONSMD_NO_OPTIMIZE"`
	RasterScale int    `yaml:"raster_scale" env:"ICONSMD_RASTER_SCALE"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ICONSMD_METRICS_ENABLED"`
	MetricsPath string `yaml:"metrics_path" env:"ICONSMD_METRICS_PATH"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"ICONSMD_LOG_LEVEL"`
	Format string `yaml:"format" env:"ICONSMD_LOG_FORMAT"`
}

// Load reads filename (if it exists), applies ICONSMD_* environment overrides,
// fills defaults and validates the result.
func Load(filename string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := newConfig()
	setDefaults(cfg)
	return cfg
}

// newConfig seeds the fields for which zero is a meaningful setting, so the
// file and environment can still set them to zero.
func newConfig() *Config {
	return &Config{
		Layout: LayoutConfig{Gap: 8},
	}
}

func loadConfigFile(filename string) (*Config, error) {
	config := newConfig()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return config, nil
}

func setDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":3000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.HTTPCacheMaxAge == 0 {
		cfg.Server.HTTPCacheMaxAge = time.Hour
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://raw.githubusercontent.com/homarr-labs/dashboard-icons/main"
	}
	if cfg.Upstream.IndexPath == "" {
		cfg.Upstream.IndexPath = "tree.json"
	}
	if cfg.Upstream.IconPath == "" {
		cfg.Upstream.IconPath = "svg/{name}.svg"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 10 * time.Second
	}
	if cfg.Upstream.MaxConcurrency == 0 {
		cfg.Upstream.MaxConcurrency = 16
	}
	if cfg.Upstream.MaxIconBytes == 0 {
		cfg.Upstream.MaxIconBytes = 1 << 20
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = "iconsmd/1.0"
	}

	// Cache defaults
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 7 * 24 * time.Hour
	}
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = 24 * time.Hour
	}
	if cfg.Cache.Shards == 0 {
		cfg.Cache.Shards = 16
	}

	// Layout defaults
	if cfg.Layout.DisplaySize == 0 {
		cfg.Layout.DisplaySize = 48
	}
	if cfg.Layout.ContentSize == 0 {
		cfg.Layout.ContentSize = 36
	}
	if cfg.Layout.MaxPerRow == 0 {
		cfg.Layout.MaxPerRow = 15
	}

	// Output defaults
	if cfg.Output.Format == "" {
		cfg.Output.Format = "svg"
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.RasterScale == 0 {
		cfg.Output.RasterScale = 1
	}

	// Prometheus defaults
	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if !isValidURL(cfg.Upstream.BaseURL) {
		return fmt.Errorf("upstream.base_url must be a valid http(s) URL")
	}
	if !strings.Contains(cfg.Upstream.IconPath, "{name}") {
		return fmt.Errorf("upstream.icon_path must contain the {name} placeholder")
	}
	if cfg.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout cannot be negative")
	}
	if cfg.Upstream.MaxConcurrency < 1 {
		return fmt.Errorf("upstream.max_concurrency must be at least 1")
	}
	if cfg.Upstream.MaxIconBytes < 1 {
		return fmt.Errorf("upstream.max_icon_bytes must be positive")
	}

	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	if cfg.Cache.SweepInterval < 0 {
		return fmt.Errorf("cache.sweep_interval cannot be negative")
	}
	if cfg.Cache.Shards < 1 {
		return fmt.Errorf("cache.shards must be at least 1")
	}
	if cfg.Index.RefreshInterval < 0 {
		return fmt.Errorf("index.refresh_interval cannot be negative")
	}

	// Validate layout
	if cfg.Layout.DisplaySize < 1 {
		return fmt.Errorf("layout.display_size must be positive")
	}
	if cfg.Layout.ContentSize < 1 || cfg.Layout.ContentSize > cfg.Layout.DisplaySize {
		return fmt.Errorf("layout.content_size must be between 1 and display_size (%d)", cfg.Layout.DisplaySize)
	}
	if cfg.Layout.Gap < 0 {
		return fmt.Errorf("layout.gap cannot be negative")
	}
	if !ValidPerRow(cfg.Layout.MaxPerRow) {
		return fmt.Errorf("layout.max_per_row must be between %d and %d", MinPerRow, MaxPerRow)
	}

	// Validate output
	switch cfg.Output.Format {
	case "svg", "webp":
	default:
		return fmt.Errorf("output.format must be svg or webp, got %q", cfg.Output.Format)
	}
	if cfg.Output.RasterScale < 1 || cfg.Output.RasterScale > 8 {
		return fmt.Errorf("output.raster_scale must be between 1 and 8")
	}

	if !strings.HasPrefix(cfg.Prometheus.MetricsPath, "/") {
		return fmt.Errorf("prometheus.metrics_path must start with /")
	}

	return nil
}

// ValidPerRow reports whether n is an acceptable icons-per-row bound.
func ValidPerRow(n int) bool {
	return n >= MinPerRow && n <= MaxPerRow
}

// isValidURL checks if a string is an absolute http or https URL
func isValidURL(str string) bool {
	u, err := url.Parse(str)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
