package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	LogFormat   string           `mapstructure:"log_format"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	CCXT        CCXTConfig       `mapstructure:"ccxt"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	Scoring     ScoringConfig    `mapstructure:"scoring"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password" json:"-" yaml:"-"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int    `mapstructure:"max_conns"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password" json:"-" yaml:"-"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// CCXTConfig points at the CCXT HTTP service. Timeout is in seconds.
type CCXTConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
	Exchange   string `mapstructure:"exchange"`
	Quote      string `mapstructure:"quote"`
}

// MarketDataConfig guards snapshot provider calls.
type MarketDataConfig struct {
	Timeout            string  `mapstructure:"timeout"`
	RateLimit          float64 `mapstructure:"rate_limit"` // requests per second
	Burst              int     `mapstructure:"burst"`
	BreakerMaxRequests uint32  `mapstructure:"breaker_max_requests"`
	BreakerInterval    string  `mapstructure:"breaker_interval"`
	BreakerTimeout     string  `mapstructure:"breaker_timeout"`
	BreakerFailures    uint32  `mapstructure:"breaker_failures"`
	CacheTTL           string  `mapstructure:"cache_ttl"`
}

type ScoringConfig struct {
	ActorStatsTTL        string   `mapstructure:"actor_stats_ttl"`
	ActorSampleSize      int      `mapstructure:"actor_sample_size"`
	AssetSampleSize      int      `mapstructure:"asset_sample_size"`
	TimelineDefaultLimit int      `mapstructure:"timeline_default_limit"`
	TimelineMaxLimit     int      `mapstructure:"timeline_max_limit"`
	TopActors            int      `mapstructure:"top_actors"`
	KnownTickers         []string `mapstructure:"known_tickers"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Exporter     string `mapstructure:"exporter"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads config.yaml from ./configs or the working directory, then applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing default config is fine; an explicit one must exist.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Environment = strings.ToLower(config.Environment)
	config.Database.Driver = strings.ToLower(config.Database.Driver)
	config.Telemetry.Exporter = strings.ToLower(config.Telemetry.Exporter)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "celebrum_ips")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.sqlite_path", "ips.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	v.SetDefault("ccxt.service_url", "http://localhost:3001")
	v.SetDefault("ccxt.timeout", 30)
	v.SetDefault("ccxt.exchange", "binance")
	v.SetDefault("ccxt.quote", "USDT")

	v.SetDefault("market_data.timeout", "10s")
	v.SetDefault("market_data.rate_limit", 5.0)
	v.SetDefault("market_data.burst", 10)
	v.SetDefault("market_data.breaker_max_requests", 3)
	v.SetDefault("market_data.breaker_interval", "60s")
	v.SetDefault("market_data.breaker_timeout", "30s")
	v.SetDefault("market_data.breaker_failures", 5)
	v.SetDefault("market_data.cache_ttl", "24h")

	v.SetDefault("scoring.actor_stats_ttl", "5m")
	v.SetDefault("scoring.actor_sample_size", 100)
	v.SetDefault("scoring.asset_sample_size", 500)
	v.SetDefault("scoring.timeline_default_limit", 100)
	v.SetDefault("scoring.timeline_max_limit", 500)
	v.SetDefault("scoring.top_actors", 10)
	v.SetDefault("scoring.known_tickers", []string{})

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "celebrum-ips")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks enumerations, durations and sample sizes.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Telemetry.Exporter {
	case "stdout", "otlp", "none":
	default:
		return fmt.Errorf("unsupported telemetry exporter %q", c.Telemetry.Exporter)
	}

	durations := map[string]string{
		"market_data.timeout":          c.MarketData.Timeout,
		"market_data.breaker_interval": c.MarketData.BreakerInterval,
		"market_data.breaker_timeout":  c.MarketData.BreakerTimeout,
		"market_data.cache_ttl":        c.MarketData.CacheTTL,
		"scoring.actor_stats_ttl":      c.Scoring.ActorStatsTTL,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s duration: %w", key, err)
		}
	}

	sizes := map[string]int{
		"scoring.actor_sample_size":      c.Scoring.ActorSampleSize,
		"scoring.asset_sample_size":      c.Scoring.AssetSampleSize,
		"scoring.timeline_default_limit": c.Scoring.TimelineDefaultLimit,
		"scoring.timeline_max_limit":     c.Scoring.TimelineMaxLimit,
		"scoring.top_actors":             c.Scoring.TopActors,
	}
	for key, value := range sizes {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, value)
		}
	}

	if c.Scoring.TimelineDefaultLimit > c.Scoring.TimelineMaxLimit {
		return fmt.Errorf("scoring.timeline_default_limit (%d) exceeds scoring.timeline_max_limit (%d)",
			c.Scoring.TimelineDefaultLimit, c.Scoring.TimelineMaxLimit)
	}

	if c.MarketData.RateLimit <= 0 {
		return errors.New("market_data.rate_limit must be positive")
	}
	return nil
}

// IsDevelopment reports whether the environment is development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// GetTimeout returns the CCXT timeout, 30s when unset
func (c *CCXTConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// Symbol builds the exchange symbol for an asset, e.g. BTC/USDT.
func (c *CCXTConfig) Symbol(asset string) string {
	quote := c.Quote
	if quote == "" {
		quote = "USDT"
	}
	return asset + "/" + quote
}

// TimeoutDuration returns the per-call snapshot timeout.
func (c *MarketDataConfig) TimeoutDuration() time.Duration {
	return mustDuration(c.Timeout)
}

func (c *MarketDataConfig) BreakerIntervalDuration() time.Duration {
	return mustDuration(c.BreakerInterval)
}

func (c *MarketDataConfig) BreakerTimeoutDuration() time.Duration {
	return mustDuration(c.BreakerTimeout)
}

func (c *MarketDataConfig) CacheTTLDuration() time.Duration {
	return mustDuration(c.CacheTTL)
}

func (c *ScoringConfig) ActorStatsTTLDuration() time.Duration {
	return mustDuration(c.ActorStatsTTL)
}

// mustDuration parses a duration already checked by Validate; invalid input yields 0.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
