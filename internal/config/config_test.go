package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithDefaults(t *testing.T) {
	config, err := Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "development", config.Environment)
	assert.True(t, config.IsDevelopment())
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, "celebrum_ips", config.Database.DBName)
	assert.Equal(t, 10, config.Database.MaxConns)
	assert.Equal(t, "ips.db", config.Database.SQLitePath)
	assert.Equal(t, 6379, config.Redis.Port)
	assert.True(t, config.Redis.Enabled)
	assert.Equal(t, "http://localhost:3001", config.CCXT.ServiceURL)
	assert.Equal(t, "binance", config.CCXT.Exchange)
	assert.Equal(t, 10*time.Second, config.MarketData.TimeoutDuration())
	assert.Equal(t, 60*time.Second, config.MarketData.BreakerIntervalDuration())
	assert.Equal(t, 30*time.Second, config.MarketData.BreakerTimeoutDuration())
	assert.Equal(t, 24*time.Hour, config.MarketData.CacheTTLDuration())
	assert.Equal(t, uint32(5), config.MarketData.BreakerFailures)
	assert.Equal(t, 5*time.Minute, config.Scoring.ActorStatsTTLDuration())
	assert.Equal(t, 100, config.Scoring.ActorSampleSize)
	assert.Equal(t, 500, config.Scoring.AssetSampleSize)
	assert.Equal(t, 100, config.Scoring.TimelineDefaultLimit)
	assert.Equal(t, 500, config.Scoring.TimelineMaxLimit)
	assert.Equal(t, 10, config.Scoring.TopActors)
	assert.Empty(t, config.Scoring.KnownTickers)
	assert.False(t, config.Telemetry.Enabled)
	assert.Equal(t, "stdout", config.Telemetry.Exporter)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, ":9090", config.Metrics.Addr)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_DRIVER", "SQLITE")
	t.Setenv("DATABASE_SQLITE_PATH", "/var/lib/ips/ips.db")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("CCXT_SERVICE_URL", "http://prod-ccxt.example.com:3000")
	t.Setenv("CCXT_TIMEOUT", "60")
	t.Setenv("MARKET_DATA_TIMEOUT", "3s")
	t.Setenv("SCORING_ACTOR_STATS_TTL", "1m")
	t.Setenv("METRICS_ENABLED", "true")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.False(t, config.IsDevelopment())
	assert.Equal(t, "error", config.LogLevel)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "/var/lib/ips/ips.db", config.Database.SQLitePath)
	assert.False(t, config.Redis.Enabled)
	assert.Equal(t, "http://prod-ccxt.example.com:3000", config.CCXT.ServiceURL)
	assert.Equal(t, 60*time.Second, config.CCXT.GetTimeout())
	assert.Equal(t, 3*time.Second, config.MarketData.TimeoutDuration())
	assert.Equal(t, time.Minute, config.Scoring.ActorStatsTTLDuration())
	assert.True(t, config.Metrics.Enabled)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ips.yaml")
	content := `
environment: staging
database:
  driver: sqlite
  sqlite_path: ` + filepath.Join(dir, "ips.db") + `
scoring:
  top_actors: 5
  known_tickers: [BTC, ETH, KAS]
telemetry:
  exporter: none
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", config.Environment)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, 5, config.Scoring.TopActors)
	assert.Equal(t, []string{"BTC", "ETH", "KAS"}, config.Scoring.KnownTickers)
	assert.Equal(t, "none", config.Telemetry.Exporter)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql"}},
		{"unknown exporter", map[string]string{"TELEMETRY_EXPORTER": "zipkin"}},
		{"bad duration", map[string]string{"MARKET_DATA_TIMEOUT": "soon"}},
		{"zero sample", map[string]string{"SCORING_ACTOR_SAMPLE_SIZE": "0"}},
		{"default above max", map[string]string{"SCORING_TIMELINE_DEFAULT_LIMIT": "600"}},
		{"zero rate", map[string]string{"MARKET_DATA_RATE_LIMIT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestCCXTConfig_GetTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, (&CCXTConfig{Timeout: 30}).GetTimeout())
	assert.Equal(t, 30*time.Second, (&CCXTConfig{}).GetTimeout())
	assert.Equal(t, 5*time.Second, (&CCXTConfig{Timeout: 5}).GetTimeout())
}

func TestCCXTConfig_Symbol(t *testing.T) {
	assert.Equal(t, "BTC/USDT", (&CCXTConfig{}).Symbol("BTC"))
	assert.Equal(t, "ETH/USDC", (&CCXTConfig{Quote: "USDC"}).Symbol("ETH"))
}
