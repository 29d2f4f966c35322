// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Auth      AuthConfig           `mapstructure:"auth"`
	Crawler   CrawlerConfig        `mapstructure:"crawler"`
	Filter    crawler.FilterPolicy `mapstructure:"filter"`
	Sources   []SourceConfig       `mapstructure:"sources"`
	Headless  HeadlessConfig       `mapstructure:"headless"`
	DB        DBConfig             `mapstructure:"db"`
	Redis     RedisConfig          `mapstructure:"redis"`
	PubSub    PubSubConfig         `mapstructure:"pubsub"`
	Snapshots SnapshotConfig       `mapstructure:"snapshots"`
	Logging   LoggingConfig        `mapstructure:"logging"`
	Telemetry TelemetryConfig      `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig guards the crawl trigger with a static API key.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs fetching, pacing and paging.
type CrawlerConfig struct {
	UserAgent             string  `mapstructure:"user_agent"`
	AcceptLanguage        string  `mapstructure:"accept_language"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	EntryDelayMs          int     `mapstructure:"entry_delay_ms"`
	PageDelayMs           int     `mapstructure:"page_delay_ms"`
	MaxPages              int     `mapstructure:"max_pages"`
	MaxParallelSources    int     `mapstructure:"max_parallel_sources"`
	RequestsPerSecond     float64 `mapstructure:"requests_per_second"`
	Burst                 int     `mapstructure:"burst"`
	RespectRobots         bool    `mapstructure:"respect_robots"`
	FetchDetails          bool    `mapstructure:"fetch_details"`
	ExcerptLength         int     `mapstructure:"excerpt_length"`
}

// SourceConfig enables and tunes one job board.
type SourceConfig struct {
	Name           string                   `mapstructure:"name"`
	Enabled        bool                     `mapstructure:"enabled"`
	BaseURL        string                   `mapstructure:"base_url"`
	SearchLocation string                   `mapstructure:"search_location"`
	Headless       bool                     `mapstructure:"headless"`
	Categories     []crawler.CategoryTarget `mapstructure:"categories"`
}

// HeadlessConfig configures the chromedp fetcher used by headless sources.
type HeadlessConfig struct {
	MaxParallel       int    `mapstructure:"max_parallel"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	WaitSelector      string `mapstructure:"wait_selector"`
	SettleMs          int    `mapstructure:"settle_ms"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory
// store.
type DBConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
	EnsureSchema           bool   `mapstructure:"ensure_schema"`
}

// RedisConfig enables the distributed dedup lock when URL is set.
type RedisConfig struct {
	URL            string `mapstructure:"url"`
	KeyPrefix      string `mapstructure:"key_prefix"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
}

// PubSubConfig holds metadata for job-created notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SnapshotConfig controls where listing snapshots are written. GCSBucket
// wins over LocalDir; with neither set snapshots stay in memory.
type SnapshotConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	// Exporter is "none" or "stdout".
	Exporter string `mapstructure:"exporter"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 900)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("crawler.user_agent", "jobcrawler/1.0 (+https://github.com/JakeFAU/jobcrawler)")
	v.SetDefault("crawler.accept_language", "es-ES,es;q=0.9,en;q=0.8")
	v.SetDefault("crawler.request_timeout_seconds", 10)
	v.SetDefault("crawler.entry_delay_ms", 1000)
	v.SetDefault("crawler.page_delay_ms", 3000)
	v.SetDefault("crawler.max_pages", 3)
	v.SetDefault("crawler.max_parallel_sources", 2)
	v.SetDefault("crawler.requests_per_second", 1.0)
	v.SetDefault("crawler.burst", 1)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.fetch_details", true)
	v.SetDefault("crawler.excerpt_length", 300)
	v.SetDefault("filter.role_keywords", []string{"ux", "ui designer", "ui/ux", "ux/ui", "product designer", "diseñador", "diseñadora"})
	v.SetDefault("filter.excluded_title_keywords", []string{"engineer", "developer", "desarrollador"})
	v.SetDefault("filter.location_keywords", []string{"madrid", "barcelona", "españa", "spain"})
	v.SetDefault("filter.allow_remote", true)
	v.SetDefault("sources", []map[string]any{
		{"name": "linkedin", "enabled": true, "search_location": "Spain"},
		{"name": "domestika", "enabled": true},
	})
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.wait_selector", "body")
	v.SetDefault("headless.settle_ms", 0)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("db.ensure_schema", true)
	v.SetDefault("redis.key_prefix", "jobcrawler:lock:")
	v.SetDefault("redis.lock_ttl_seconds", 30)
	v.SetDefault("snapshots.enabled", true)
	v.SetDefault("snapshots.prefix", "snapshots")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("telemetry.service_name", "jobcrawler")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.exporter", "none")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be > 0"))
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		errs = append(errs, errors.New("auth.api_key must be set when auth is enabled"))
	}
	if c.Crawler.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("crawler.request_timeout_seconds must be > 0"))
	}
	if c.Crawler.MaxPages <= 0 {
		errs = append(errs, errors.New("crawler.max_pages must be > 0"))
	}
	if c.Crawler.MaxParallelSources <= 0 {
		errs = append(errs, errors.New("crawler.max_parallel_sources must be > 0"))
	}
	if c.Crawler.EntryDelayMs < 0 || c.Crawler.PageDelayMs < 0 {
		errs = append(errs, errors.New("crawler delays must be >= 0"))
	}
	if c.Crawler.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("crawler.requests_per_second must be >= 0"))
	}
	if len(c.Filter.RoleKeywords) == 0 {
		errs = append(errs, errors.New("filter.role_keywords must not be empty"))
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		name := strings.ToLower(strings.TrimSpace(src.Name))
		if name == "" {
			errs = append(errs, fmt.Errorf("sources[%d].name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate source %q", i, name))
		}
		seen[name] = true
	}
	if c.usesHeadless() && c.Headless.MaxParallel <= 0 {
		errs = append(errs, errors.New("headless.max_parallel must be > 0 when a source is headless"))
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		errs = append(errs, errors.New("pubsub.project_id must be set when pubsub.topic_name is set"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio must be within [0, 1]"))
	}
	switch c.Telemetry.Exporter {
	case "", "none", "stdout":
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter %q must be none or stdout", c.Telemetry.Exporter))
	}
	return errors.Join(errs...)
}

// EnabledSources returns the enabled source entries in configured order.
func (c Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, src := range c.Sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}

func (c Config) usesHeadless() bool {
	for _, src := range c.EnabledSources() {
		if src.Headless {
			return true
		}
	}
	return false
}

// RequestTimeout is the per-request fetch timeout.
func (c CrawlerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// EntryDelay is the pause after every entry.
func (c CrawlerConfig) EntryDelay() time.Duration {
	return time.Duration(c.EntryDelayMs) * time.Millisecond
}

// PageDelay is the pause between listing pages.
func (c CrawlerConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}
