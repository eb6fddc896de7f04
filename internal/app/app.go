package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"span-screener/cache"
	"span-screener/config"
	"span-screener/models"
	"span-screener/observability"
	"span-screener/services"
)

var (
	// ErrBusy is returned when every analysis slot is taken
	ErrBusy = errors.New("analysis queue full, too many concurrent requests - try again later")

	// ErrNoDatabase is returned by history operations when no database is configured
	ErrNoDatabase = errors.New("database not initialized")

	// ErrInvalidNamespace is returned when evicting from an unknown cache namespace
	ErrInvalidNamespace = errors.New("invalid cache namespace")

	// ErrInvalidID is returned for malformed run IDs
	ErrInvalidID = errors.New("invalid UUID")
)

// Analyzer runs the live screening rubric for one symbol
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.ScreeningResult, error)
}

// Backtester replays the rubric over a symbol's history
type Backtester interface {
	Run(ctx context.Context, symbol string, yearsBack int) (*models.BacktestResult, error)
}

// RepositoryInterface defines the repository operations needed by App
type RepositoryInterface interface {
	Close()
	Health(ctx context.Context) error
	CreateBacktestRun(ctx context.Context, run *models.BacktestRun) error
	GetBacktestRun(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetBacktestRuns(ctx context.Context, symbol string, limit int) ([]models.BacktestRun, error)
}

// Deps are the collaborators an App is built from. Only Analyzer and Backtester are required.
type Deps struct {
	Analyzer   Analyzer
	Backtester Backtester
	Cache      *cache.Cache
	Repo       RepositoryInterface
	Breakers   *services.CircuitBreakerRegistry
	Resolver   *services.SymbolResolver
	Metrics    *observability.Metrics
	// Purge drops expired cache entries for stores without native expiry
	Purge PurgeFunc
}

// PurgeFunc removes expired cache entries and reports how many were dropped
type PurgeFunc func(ctx context.Context) (int64, error)

// App holds application dependencies using interfaces for testability
type App struct {
	cfg         *config.Config
	analyzer    Analyzer
	backtester  Backtester
	cache       *cache.Cache
	repo        RepositoryInterface
	breakers    *services.CircuitBreakerRegistry
	resolver    *services.SymbolResolver
	metrics     *observability.Metrics
	analysisSem chan struct{}
	closers     []func()
	purge       PurgeFunc
}

// New creates a new App from already constructed dependencies
func New(cfg *config.Config, deps Deps) *App {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = services.NewSymbolResolver(cfg.Symbols.Aliases)
	}
	limit := cfg.HTTP.ConcurrencyLimit
	if limit <= 0 {
		limit = 1
	}
	return &App{
		cfg:         cfg,
		analyzer:    deps.Analyzer,
		backtester:  deps.Backtester,
		cache:       deps.Cache,
		repo:        deps.Repo,
		breakers:    deps.Breakers,
		resolver:    resolver,
		metrics:     deps.Metrics,
		analysisSem: make(chan struct{}, limit),
		purge:       deps.Purge,
	}
}

// Shutdown releases the database pool and cache connections
func (a *App) Shutdown(ctx context.Context) {
	if a.repo != nil {
		a.repo.Close()
	}
	for _, closeFn := range a.closers {
		closeFn()
	}
}

// Config returns the configuration the app was built with
func (a *App) Config() *config.Config {
	return a.cfg
}

// Repo returns the repository interface for API handlers. Nil when no database is configured.
func (a *App) Repo() RepositoryInterface {
	return a.repo
}

func (a *App) acquire() (func(), error) {
	select {
	case a.analysisSem <- struct{}{}:
		return func() { <-a.analysisSem }, nil
	default:
		return nil, ErrBusy
	}
}

// Analyze screens a symbol now, serving repeated requests from the analysis cache
func (a *App) Analyze(ctx context.Context, rawSymbol string) (*models.ScreeningResult, error) {
	if a.analyzer == nil {
		return nil, fmt.Errorf("analyzer not initialized")
	}
	symbol, err := a.resolver.Resolve(rawSymbol)
	if err != nil {
		return nil, err
	}

	release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return cache.GetOrCompute(ctx, a.cache, cache.NamespaceAnalysis, symbol,
		func(ctx context.Context) (*models.ScreeningResult, error) {
			return a.analyzer.Analyze(ctx, symbol)
		})
}

// Backtest replays the rubric over the last yearsBack years. Zero selects the configured default.
// Freshly computed results are recorded in the run history when a database is configured.
func (a *App) Backtest(ctx context.Context, rawSymbol string, yearsBack int) (*models.BacktestResult, error) {
	if a.backtester == nil {
		return nil, fmt.Errorf("backtester not initialized")
	}
	symbol, err := a.resolver.Resolve(rawSymbol)
	if err != nil {
		return nil, err
	}
	if yearsBack == 0 {
		yearsBack = a.cfg.Backtest.DefaultYears
	}
	if yearsBack < 1 || yearsBack > a.cfg.Backtest.MaxYears {
		return nil, fmt.Errorf("%w: %d (allowed 1-%d)", models.ErrInvalidYears, yearsBack, a.cfg.Backtest.MaxYears)
	}

	release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return cache.GetOrCompute(ctx, a.cache, cache.NamespaceBacktest, backtestKey(symbol, yearsBack),
		func(ctx context.Context) (*models.BacktestResult, error) {
			start := time.Now()
			result, err := a.backtester.Run(ctx, symbol, yearsBack)
			if err != nil {
				return nil, err
			}
			a.recordRun(ctx, symbol, yearsBack, result, time.Since(start))
			return result, nil
		})
}

func backtestKey(symbol string, yearsBack int) string {
	return fmt.Sprintf("%s:%d", symbol, yearsBack)
}

// recordRun persists a finished backtest. Failures are logged, never returned.
func (a *App) recordRun(ctx context.Context, symbol string, yearsBack int, result *models.BacktestResult, elapsed time.Duration) {
	if a.repo == nil {
		return
	}
	run := models.NewBacktestRun(symbol, yearsBack, result, elapsed.Milliseconds())
	if err := a.repo.CreateBacktestRun(ctx, run); err != nil {
		log := observability.WithError(err)
		log.Warn().Str("symbol", symbol).Int("years", yearsBack).Msg("failed to record backtest run")
	}
}

// BacktestHistory returns recorded runs, newest first. An empty symbol lists all symbols.
func (a *App) BacktestHistory(ctx context.Context, rawSymbol string, limit int) ([]models.BacktestRun, error) {
	if a.repo == nil {
		return nil, ErrNoDatabase
	}
	symbol := ""
	if rawSymbol != "" {
		resolved, err := a.resolver.Resolve(rawSymbol)
		if err != nil {
			return nil, err
		}
		symbol = resolved
	}
	return a.repo.GetBacktestRuns(ctx, symbol, limit)
}

// BacktestRun returns one recorded run, or nil if the ID is unknown
func (a *App) BacktestRun(ctx context.Context, id string) (*models.BacktestRun, error) {
	if a.repo == nil {
		return nil, ErrNoDatabase
	}
	parsed, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}
	return a.repo.GetBacktestRun(ctx, parsed)
}

// CacheStats returns the cache counters
func (a *App) CacheStats() cache.Stats {
	return a.cache.Stats()
}

// Evict drops cached results for a symbol. Backtest entries are dropped for every lookback.
func (a *App) Evict(ctx context.Context, namespace, rawSymbol string) error {
	symbol, err := a.resolver.Resolve(rawSymbol)
	if err != nil {
		return err
	}

	switch namespace {
	case cache.NamespaceAnalysis:
		return a.cache.Evict(ctx, namespace, symbol)
	case cache.NamespaceBacktest:
		var errs []error
		for years := 1; years <= a.cfg.Backtest.MaxYears; years++ {
			if err := a.cache.Evict(ctx, namespace, backtestKey(symbol, years)); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
}

// RunJanitor purges expired cache entries every interval until ctx is done.
// It returns immediately when the cache backend expires entries itself.
func (a *App) RunJanitor(ctx context.Context, interval time.Duration) {
	if a.purge == nil || interval <= 0 {
		return
	}
	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(func() { a.purgeExpired(ctx) }))
	c.Start()
	observability.Debug("cache janitor started", "interval", interval.String())

	<-ctx.Done()
	<-c.Stop().Done()
}

func (a *App) purgeExpired(ctx context.Context) {
	removed, err := a.purge(ctx)
	if err != nil {
		if ctx.Err() == nil {
			observability.Warn("cache purge failed", "error", err)
		}
		return
	}
	if removed > 0 {
		observability.Debug("purged expired cache entries", "removed", removed)
	}
}

// BreakerStatus reports the state of each upstream circuit breaker
func (a *App) BreakerStatus() []services.CircuitBreakerStatus {
	if a.breakers == nil {
		return []services.CircuitBreakerStatus{}
	}
	return a.breakers.Status()
}

// ParseUUID parses a string UUID
func ParseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	return parsed, nil
}

// AnalysisSemCapacity returns the capacity of the analysis semaphore (for testing)
func (a *App) AnalysisSemCapacity() int {
	return cap(a.analysisSem)
}
