package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Paths struct {
	Recommendations string `mapstructure:"recommendations"`
	Output          string `mapstructure:"output"`
}

type Yahoo struct {
	BaseURL           string `mapstructure:"base_url"`
	UserAgent         string `mapstructure:"user_agent"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`

	// SnapshotSource picks the second tier's backend: "chart" reads the
	// chart metadata, "quote" goes through finance-go.
	SnapshotSource  string `mapstructure:"snapshot_source"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_sec"`
	CacheMaxItems   int    `mapstructure:"cache_max_items"`
	// SymbolSearch retries unresolved symbols on a looked-up listing,
	// preferring German venues.
	SymbolSearch bool `mapstructure:"symbol_search"`
}

type Throttle struct {
	MinRequestIntervalMs int `mapstructure:"min_request_interval_ms"`
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute"`
	Burst                int `mapstructure:"burst"`
}

type Logger struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

type Redis struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTLSec    int    `mapstructure:"ttl_sec"`
}

type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	Paths    Paths    `mapstructure:"paths"`
	Yahoo    Yahoo    `mapstructure:"yahoo"`
	Throttle Throttle `mapstructure:"throttle"`
	Logger   Logger   `mapstructure:"logger"`
	Redis    Redis    `mapstructure:"redis"`
	Kafka    Kafka    `mapstructure:"kafka"`
}

const (
	SnapshotChart = "chart"
	SnapshotQuote = "quote"
)

func Default() Config {
	dataDir := filepath.Join("investitionsdetails", "data")
	return Config{
		Paths: Paths{
			Recommendations: filepath.Join(dataDir, "recommendations.json"),
			Output:          filepath.Join(dataDir, "prices.json"),
		},
		Yahoo: Yahoo{
			BaseURL:           "https://query1.finance.yahoo.com",
			RequestTimeoutSec: 15,
			SnapshotSource:    SnapshotChart,
			CacheTTLSeconds:   60,
			CacheMaxItems:     1000,
		},
		Throttle: Throttle{
			MinRequestIntervalMs: 200,
			Burst:                1,
		},
		Logger: Logger{Level: "info", Encoding: "console"},
		Redis: Redis{
			Addr:      "localhost:6379",
			KeyPrefix: "prices:",
		},
		Kafka: Kafka{
			Brokers: []string{"localhost:9092"},
			Topic:   "price-snapshots",
		},
	}
}

// Load reads configuration in increasing precedence: defaults, the JSON file
// at path (or ./config.json when path is empty and the file exists), then
// environment variables. A .env file in the working directory is loaded into
// the environment first when present.
//
// Env keys are the upper-cased config keys with dots replaced by underscores,
// e.g. PATHS_OUTPUT or YAHOO_SNAPSHOT_SOURCE.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Default(), fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Default(), fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key); err != nil {
			return Default(), fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	cfg.Kafka.Brokers = splitCSV(cfg.Kafka.Brokers)
	cfg.Yahoo.SnapshotSource = strings.ToLower(strings.TrimSpace(cfg.Yahoo.SnapshotSource))
	return cfg, nil
}

// Validate rejects settings the run cannot start with.
func (c Config) Validate() error {
	var errs []string
	if c.Paths.Recommendations == "" {
		errs = append(errs, "paths.recommendations is required")
	}
	if c.Paths.Output == "" {
		errs = append(errs, "paths.output is required")
	}
	if c.Yahoo.RequestTimeoutSec <= 0 {
		errs = append(errs, "yahoo.request_timeout_sec must be positive")
	}
	switch c.Yahoo.SnapshotSource {
	case SnapshotChart, SnapshotQuote:
	default:
		errs = append(errs, fmt.Sprintf("yahoo.snapshot_source %q must be %q or %q", c.Yahoo.SnapshotSource, SnapshotChart, SnapshotQuote))
	}
	if c.Throttle.MinRequestIntervalMs < 0 || c.Throttle.MaxRequestsPerMinute < 0 {
		errs = append(errs, "throttle values must not be negative")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, "kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("paths.recommendations", d.Paths.Recommendations)
	v.SetDefault("paths.output", d.Paths.Output)

	v.SetDefault("yahoo.base_url", d.Yahoo.BaseURL)
	v.SetDefault("yahoo.user_agent", d.Yahoo.UserAgent)
	v.SetDefault("yahoo.request_timeout_sec", d.Yahoo.RequestTimeoutSec)
	v.SetDefault("yahoo.snapshot_source", d.Yahoo.SnapshotSource)
	v.SetDefault("yahoo.cache_ttl_sec", d.Yahoo.CacheTTLSeconds)
	v.SetDefault("yahoo.cache_max_items", d.Yahoo.CacheMaxItems)
	v.SetDefault("yahoo.symbol_search", d.Yahoo.SymbolSearch)

	v.SetDefault("throttle.min_request_interval_ms", d.Throttle.MinRequestIntervalMs)
	v.SetDefault("throttle.max_requests_per_minute", d.Throttle.MaxRequestsPerMinute)
	v.SetDefault("throttle.burst", d.Throttle.Burst)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.encoding", d.Logger.Encoding)
	v.SetDefault("logger.development", d.Logger.Development)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("redis.ttl_sec", d.Redis.TTLSec)

	v.SetDefault("kafka.enabled", d.Kafka.Enabled)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
}

// splitCSV flattens comma-separated entries and drops blanks.
func splitCSV(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
