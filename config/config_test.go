package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvKeys = []string{
	"DATABASE_URL",
	"MASSIVE_API_KEY",
	"MASSIVE_BASE_URL",
	"MASSIVE_RATE_LIMIT",
	"MASSIVE_RATE_WINDOW",
	"FMP_API_KEY",
	"FMP_BASE_URL",
	"FMP_RATE_LIMIT",
	"FMP_RATE_WINDOW",
	"ALPACA_API_KEY",
	"ALPACA_API_SECRET",
	"SYMBOL_ALIASES",
	"RETRY_MAX_RETRIES",
	"RETRY_BACKOFF",
	"BACKTEST_INITIAL_INVESTMENT",
	"BACKTEST_DEFAULT_YEARS",
	"BACKTEST_MAX_YEARS",
	"BACKTEST_EQUITY_STRIDE",
	"BACKTEST_QUARTERLY_LIMIT",
	"BACKTEST_ANNUAL_LIMIT",
	"BACKTEST_WARMUP_DAYS",
	"CACHE_BACKEND",
	"CACHE_TTL",
	"CACHE_PURGE_INTERVAL",
	"REDIS_ADDR",
	"REDIS_DB",
	"LOG_LEVEL",
	"LOG_PRODUCTION",
	"HTTP_ADDR",
	"CORS_ALLOWED_ORIGINS",
	"HTTP_REQUEST_TIMEOUT",
	"CONCURRENCY_LIMIT",
}

// clearEnv blanks every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.massive.com", cfg.Massive.BaseURL)
	assert.Equal(t, 5, cfg.Massive.RateLimit)
	assert.Equal(t, time.Minute, cfg.Massive.RateWindow)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 12*time.Second, cfg.Retry.Backoff)
	assert.Equal(t, 10000.0, cfg.Backtest.InitialInvestment)
	assert.Equal(t, 3, cfg.Backtest.DefaultYears)
	assert.Equal(t, 21, cfg.Backtest.EquityStride)
	assert.Equal(t, 20, cfg.Backtest.QuarterlyLimit)
	assert.Equal(t, 5, cfg.Backtest.AnnualLimit)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.PurgeInterval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.RequestTimeout)
	assert.Equal(t, 4, cfg.HTTP.ConcurrencyLimit)
	assert.Equal(t, "BRK.B", cfg.Symbols.Aliases["BRK-B"])

	assert.False(t, cfg.HasDatabase())
	assert.False(t, cfg.HasMassive())
	assert.False(t, cfg.HasFMP())
	assert.False(t, cfg.HasAlpaca())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)

	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("MASSIVE_API_KEY", "massive-key")
	t.Setenv("MASSIVE_RATE_LIMIT", "100")
	t.Setenv("MASSIVE_RATE_WINDOW", "1s")
	t.Setenv("FMP_API_KEY", "fmp-key")
	t.Setenv("ALPACA_API_KEY", "alpaca-key")
	t.Setenv("ALPACA_API_SECRET", "alpaca-secret")
	t.Setenv("RETRY_BACKOFF", "500ms")
	t.Setenv("BACKTEST_INITIAL_INVESTMENT", "25000")
	t.Setenv("BACKTEST_DEFAULT_YEARS", "5")
	t.Setenv("BACKTEST_EQUITY_STRIDE", "5")
	t.Setenv("CACHE_BACKEND", "Postgres")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("CACHE_PURGE_INTERVAL", "1m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRODUCTION", "true")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CONCURRENCY_LIMIT", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/test", cfg.Database.URL)
	assert.Equal(t, "massive-key", cfg.Massive.APIKey)
	assert.Equal(t, 100, cfg.Massive.RateLimit)
	assert.Equal(t, time.Second, cfg.Massive.RateWindow)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.Backoff)
	assert.Equal(t, 25000.0, cfg.Backtest.InitialInvestment)
	assert.Equal(t, 5, cfg.Backtest.DefaultYears)
	assert.Equal(t, 5, cfg.Backtest.EquityStride)
	assert.Equal(t, CacheBackendPostgres, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, time.Minute, cfg.Cache.PurgeInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Production)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 8, cfg.HTTP.ConcurrencyLimit)

	assert.True(t, cfg.HasDatabase())
	assert.True(t, cfg.HasMassive())
	assert.True(t, cfg.HasFMP())
	assert.True(t, cfg.HasAlpaca())
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)

	t.Setenv("MASSIVE_RATE_LIMIT", "-3")
	t.Setenv("MASSIVE_RATE_WINDOW", "soon")
	t.Setenv("BACKTEST_INITIAL_INVESTMENT", "0")
	t.Setenv("LOG_PRODUCTION", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Massive.RateLimit)
	assert.Equal(t, time.Minute, cfg.Massive.RateWindow)
	assert.Equal(t, 10000.0, cfg.Backtest.InitialInvestment)
	assert.False(t, cfg.Log.Production)
}

func TestLoad_SymbolAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYMBOL_ALIASES", " goog-l = GOOGL , bad-entry, RDS-A=SHEL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "GOOGL", cfg.Symbols.Aliases["GOOG-L"])
	assert.Equal(t, "SHEL", cfg.Symbols.Aliases["RDS-A"])
	assert.Equal(t, "BRK.B", cfg.Symbols.Aliases["BRK-B"], "defaults are kept")
	_, ok := cfg.Symbols.Aliases["BAD-ENTRY"]
	assert.False(t, ok)

	// defaults are copied, never mutated
	assert.NotContains(t, DefaultSymbolAliases, "GOOG-L")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "test config is valid",
			mutate: func(*Config) {},
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.Massive.RateLimit = 0 },
			wantErr: "MASSIVE_RATE_LIMIT",
		},
		{
			name:    "default years above max",
			mutate:  func(c *Config) { c.Backtest.DefaultYears = 20 },
			wantErr: "BACKTEST_DEFAULT_YEARS",
		},
		{
			name:    "zero equity stride",
			mutate:  func(c *Config) { c.Backtest.EquityStride = 0 },
			wantErr: "BACKTEST_EQUITY_STRIDE",
		},
		{
			name:    "quarterly limit too small for growth",
			mutate:  func(c *Config) { c.Backtest.QuarterlyLimit = 4 },
			wantErr: "BACKTEST_QUARTERLY_LIMIT",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: "CACHE_BACKEND",
		},
		{
			name:    "postgres cache without database",
			mutate:  func(c *Config) { c.Cache.Backend = CacheBackendPostgres },
			wantErr: "DATABASE_URL",
		},
		{
			name: "postgres cache with database",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendPostgres
				c.Database.URL = "postgres://localhost/span"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
