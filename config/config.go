package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Market data sources
	Massive MassiveConfig
	FMP     FMPConfig
	Alpaca  AlpacaConfig

	// Symbol aliasing
	Symbols SymbolConfig

	// Upstream call resilience
	Retry RetryConfig

	// Backtest configuration
	Backtest BacktestConfig

	// Cache configuration
	Cache CacheConfig

	// Logging configuration
	Log LogConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// MassiveConfig holds configuration for the primary (quarterly) market data API
type MassiveConfig struct {
	APIKey     string
	BaseURL    string
	RateLimit  int           // requests allowed per window
	RateWindow time.Duration // rolling window length
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey     string
	BaseURL    string
	RateLimit  int
	RateWindow time.Duration
}

// AlpacaConfig holds Alpaca market data configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
}

// SymbolConfig holds share-class alias configuration
type SymbolConfig struct {
	Aliases map[string]string
}

// RetryConfig holds retry configuration for throttled upstream calls
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// BacktestConfig holds backtest simulator configuration
type BacktestConfig struct {
	InitialInvestment float64
	DefaultYears      int
	MaxYears          int
	EquityStride      int // sample the equity curve every N trading days
	QuarterlyLimit    int // records requested from the high-frequency source
	AnnualLimit       int // records requested from the low-frequency source
	WarmupDays        int // calendar days of bars loaded before the window for indicators
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	Backend       string // memory, redis or postgres
	TTL           time.Duration
	PurgeInterval time.Duration
	RedisAddr     string
	RedisDB       int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level      string
	Production bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins string
	RequestTimeout     time.Duration
	ConcurrencyLimit   int // analyses and backtests allowed to run at once
}

// Cache backends
const (
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// DefaultSymbolAliases maps common share-class spellings to the canonical dotted form
var DefaultSymbolAliases = map[string]string{
	"BRK-B": "BRK.B",
	"BRK/B": "BRK.B",
	"BRK-A": "BRK.A",
	"BRK/A": "BRK.A",
	"BF-B":  "BF.B",
	"BF/B":  "BF.B",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Massive: MassiveConfig{
			APIKey:     os.Getenv("MASSIVE_API_KEY"),
			BaseURL:    getEnvString("MASSIVE_BASE_URL", "https://api.massive.com"),
			RateLimit:  getEnvInt("MASSIVE_RATE_LIMIT", 5),
			RateWindow: getEnvDuration("MASSIVE_RATE_WINDOW", time.Minute),
		},
		FMP: FMPConfig{
			APIKey:     os.Getenv("FMP_API_KEY"),
			BaseURL:    getEnvString("FMP_BASE_URL", "https://financialmodelingprep.com/api/v3"),
			RateLimit:  getEnvInt("FMP_RATE_LIMIT", 250),
			RateWindow: getEnvDuration("FMP_RATE_WINDOW", 24*time.Hour),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
		},
		Symbols: SymbolConfig{
			Aliases: getEnvAliases("SYMBOL_ALIASES", DefaultSymbolAliases),
		},
		Retry: RetryConfig{
			MaxRetries: getEnvInt("RETRY_MAX_RETRIES", 3),
			Backoff:    getEnvDuration("RETRY_BACKOFF", 12*time.Second),
		},
		Backtest: BacktestConfig{
			InitialInvestment: getEnvFloatRange("BACKTEST_INITIAL_INVESTMENT", 10000, 1, 1e12),
			DefaultYears:      getEnvInt("BACKTEST_DEFAULT_YEARS", 3),
			MaxYears:          getEnvInt("BACKTEST_MAX_YEARS", 10),
			EquityStride:      getEnvInt("BACKTEST_EQUITY_STRIDE", 21),
			QuarterlyLimit:    getEnvInt("BACKTEST_QUARTERLY_LIMIT", 20),
			AnnualLimit:       getEnvInt("BACKTEST_ANNUAL_LIMIT", 5),
			WarmupDays:        getEnvInt("BACKTEST_WARMUP_DAYS", 120),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnvString("CACHE_BACKEND", CacheBackendMemory)),
			TTL:           getEnvDuration("CACHE_TTL", 6*time.Hour),
			PurgeInterval: getEnvDuration("CACHE_PURGE_INTERVAL", 10*time.Minute),
			RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
			RedisDB:       getEnvIntAllowZero("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Production: getEnvBool("LOG_PRODUCTION", false),
		},
		HTTP: HTTPConfig{
			Addr:               getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeout:     getEnvDuration("HTTP_REQUEST_TIMEOUT", 2*time.Minute),
			ConcurrencyLimit:   getEnvInt("CONCURRENCY_LIMIT", 4),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Massive.RateLimit <= 0 {
		return fmt.Errorf("MASSIVE_RATE_LIMIT must be positive, got %d", c.Massive.RateLimit)
	}
	if c.Massive.RateWindow <= 0 {
		return fmt.Errorf("MASSIVE_RATE_WINDOW must be positive, got %s", c.Massive.RateWindow)
	}
	if c.FMP.RateLimit <= 0 {
		return fmt.Errorf("FMP_RATE_LIMIT must be positive, got %d", c.FMP.RateLimit)
	}

	if c.Backtest.DefaultYears <= 0 || c.Backtest.DefaultYears > c.Backtest.MaxYears {
		return fmt.Errorf("BACKTEST_DEFAULT_YEARS must be between 1 and %d, got %d",
			c.Backtest.MaxYears, c.Backtest.DefaultYears)
	}
	if c.Backtest.EquityStride <= 0 {
		return fmt.Errorf("BACKTEST_EQUITY_STRIDE must be positive, got %d", c.Backtest.EquityStride)
	}
	if c.Backtest.QuarterlyLimit < 8 {
		return fmt.Errorf("BACKTEST_QUARTERLY_LIMIT must be at least 8, got %d", c.Backtest.QuarterlyLimit)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	case CacheBackendPostgres:
		if !c.HasDatabase() {
			return fmt.Errorf("CACHE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory, redis or postgres, got %q", c.Cache.Backend)
	}

	for from, to := range c.Symbols.Aliases {
		if from == "" || to == "" {
			return fmt.Errorf("SYMBOL_ALIASES contains an empty entry %q=%q", from, to)
		}
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasMassive returns true if the primary market data API is configured
func (c *Config) HasMassive() bool {
	return c.Massive.APIKey != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntAllowZero(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// getEnvAliases parses "FROM=TO,FROM=TO" pairs. Parsed pairs are merged over the defaults.
func getEnvAliases(key string, defaults map[string]string) map[string]string {
	aliases := make(map[string]string, len(defaults))
	for k, v := range defaults {
		aliases[k] = v
	}
	val := os.Getenv(key)
	if val == "" {
		return aliases
	}
	for _, pair := range strings.Split(val, ",") {
		from, to, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		from = strings.ToUpper(strings.TrimSpace(from))
		to = strings.ToUpper(strings.TrimSpace(to))
		if from == "" || to == "" {
			continue
		}
		aliases[from] = to
	}
	return aliases
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	aliases := make(map[string]string, len(DefaultSymbolAliases))
	for k, v := range DefaultSymbolAliases {
		aliases[k] = v
	}
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		Massive: MassiveConfig{
			BaseURL:    "https://api.massive.com",
			RateLimit:  5,
			RateWindow: time.Minute,
		},
		FMP: FMPConfig{
			BaseURL:    "https://financialmodelingprep.com/api/v3",
			RateLimit:  250,
			RateWindow: 24 * time.Hour,
		},
		Alpaca: AlpacaConfig{},
		Symbols: SymbolConfig{
			Aliases: aliases,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			Backoff:    10 * time.Millisecond,
		},
		Backtest: BacktestConfig{
			InitialInvestment: 10000,
			DefaultYears:      3,
			MaxYears:          10,
			EquityStride:      21,
			QuarterlyLimit:    20,
			AnnualLimit:       5,
			WarmupDays:        120,
		},
		Cache: CacheConfig{
			Backend:       CacheBackendMemory,
			TTL:           time.Hour,
			PurgeInterval: time.Minute,
			RedisAddr:     "localhost:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
			RequestTimeout:     time.Minute,
			ConcurrencyLimit:   4,
		},
	}
}
