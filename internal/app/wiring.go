package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"span-screener/backtest"
	"span-screener/cache"
	"span-screener/config"
	"span-screener/observability"
	"span-screener/repository"
	"span-screener/screener"
	"span-screener/services"
)

// Alpaca's free market data tier allows 200 requests per minute
const (
	alpacaRateLimit  = 200
	alpacaRateWindow = time.Minute
)

// ErrNoProvider is returned when neither financial data source has credentials
var ErrNoProvider = errors.New("no market data provider configured: set MASSIVE_API_KEY or FMP_API_KEY")

// Open builds a fully wired App from configuration: providers, analyzer,
// simulator, cache backend and, when DATABASE_URL is set, the repository.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	metrics := observability.GetMetrics()
	breakers := services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig, metrics)

	provider, err := NewProvider(cfg, breakers, metrics)
	if err != nil {
		return nil, err
	}

	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		observability.Info("database connected")
	}

	backend, err := newStore(ctx, cfg, repo)
	if err != nil {
		if repo != nil {
			repo.Close()
		}
		return nil, err
	}

	deps := Deps{
		Analyzer:   screener.NewAnalyzer(provider, metrics, screener.WithFinancialLimit(cfg.Backtest.QuarterlyLimit)),
		Backtester: backtest.NewSimulator(provider, cfg.Backtest, metrics),
		Cache:      cache.New(backend.store, backend.name, cfg.Cache.TTL, metrics),
		Breakers:   breakers,
		Resolver:   services.NewSymbolResolver(cfg.Symbols.Aliases),
		Metrics:    metrics,
		Purge:      backend.purge,
	}
	if repo != nil {
		deps.Repo = repo
	}

	a := New(cfg, deps)
	if backend.close != nil {
		a.closers = append(a.closers, backend.close)
	}
	observability.Info("application initialized",
		"cache_backend", backend.name,
		"massive", cfg.HasMassive(),
		"fmp", cfg.HasFMP(),
		"alpaca", cfg.HasAlpaca(),
		"database", repo != nil)
	return a, nil
}

// NewProvider composes the market data sources that have credentials.
// Massive is the high-frequency source and FMP the low-frequency one; with both
// configured their financials are merged. Alpaca, when configured, backs up daily bars.
func NewProvider(cfg *config.Config, breakers *services.CircuitBreakerRegistry, metrics *observability.Metrics) (services.MarketDataProvider, error) {
	retry := services.RetryConfig{MaxRetries: cfg.Retry.MaxRetries, Backoff: cfg.Retry.Backoff}

	var massive, fmp services.MarketDataProvider
	if cfg.HasMassive() {
		limiter := services.NewRateLimiter(cfg.Massive.RateLimit, cfg.Massive.RateWindow)
		upstream := services.NewUpstream(services.BreakerMassive, limiter, breakers, retry, metrics)
		massive = services.NewMassiveProvider(cfg.Massive.APIKey, cfg.Massive.BaseURL, upstream)
	}
	if cfg.HasFMP() {
		limiter := services.NewRateLimiter(cfg.FMP.RateLimit, cfg.FMP.RateWindow)
		upstream := services.NewUpstream(services.BreakerFMP, limiter, breakers, retry, metrics)
		fmp = services.NewFMPProvider(cfg.FMP.APIKey, cfg.FMP.BaseURL, upstream)
	}

	var provider services.MarketDataProvider
	switch {
	case massive != nil && fmp != nil:
		provider = services.NewCompositeProvider(massive, fmp, metrics).
			WithLimits(cfg.Backtest.QuarterlyLimit, cfg.Backtest.AnnualLimit)
	case massive != nil:
		provider = massive
	case fmp != nil:
		provider = fmp
	default:
		return nil, ErrNoProvider
	}

	if cfg.HasAlpaca() {
		limiter := services.NewRateLimiter(alpacaRateLimit, alpacaRateWindow)
		provider = &services.BarFallbackProvider{
			Primary:  provider,
			Fallback: services.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, limiter, breakers, retry, metrics),
			Metrics:  metrics,
		}
	}
	return provider, nil
}

// cacheBackend is the store behind the result cache plus its lifecycle hooks
type cacheBackend struct {
	store cache.Store
	name  string
	close func()
	purge PurgeFunc
}

// newStore selects the cache backend. An unreachable Redis falls back to memory.
func newStore(ctx context.Context, cfg *config.Config, repo *repository.Repository) (cacheBackend, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		rs, err := cache.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		if err != nil {
			observability.Warn("redis unavailable, using in-memory cache", "addr", cfg.Cache.RedisAddr, "error", err)
			return memoryBackend(), nil
		}
		return cacheBackend{
			store: rs,
			name:  config.CacheBackendRedis,
			close: func() { _ = rs.Close() },
		}, nil
	case config.CacheBackendPostgres:
		if repo == nil {
			return cacheBackend{}, fmt.Errorf("cache backend %q requires a database", cfg.Cache.Backend)
		}
		return cacheBackend{store: repo, name: config.CacheBackendPostgres, purge: repo.CleanExpiredCache}, nil
	default:
		return memoryBackend(), nil
	}
}

func memoryBackend() cacheBackend {
	ms := cache.NewMemoryStore()
	return cacheBackend{
		store: ms,
		name:  config.CacheBackendMemory,
		purge: func(context.Context) (int64, error) { return int64(ms.Purge()), nil },
	}
}
