package repository

import (
	"context"

	"github.com/google/uuid"

	"span-screener/cache"
	"span-screener/models"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	cache.Store

	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// Backtest history
	CreateBacktestRun(ctx context.Context, run *models.BacktestRun) error
	GetBacktestRun(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetBacktestRuns(ctx context.Context, symbol string, limit int) ([]models.BacktestRun, error)

	// Cache maintenance
	CleanExpiredCache(ctx context.Context) (int64, error)
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
