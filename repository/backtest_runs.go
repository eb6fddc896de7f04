package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"span-screener/models"
	"span-screener/observability"
)

// DefaultRunLimit caps history queries that do not specify a limit
const DefaultRunLimit = 50

// CreateBacktestRun stores a completed backtest
func (r *Repository) CreateBacktestRun(ctx context.Context, run *models.BacktestRun) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "backtest_runs")

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result: %w", err)
	}

	var strategyReturn, benchReturn float64
	if run.Result != nil {
		strategyReturn = run.Result.StrategyReturnPct
		benchReturn = run.Result.BuyAndHoldReturnPct
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO backtest_runs (id, symbol, years_back, strategy_return_pct, buy_and_hold_return_pct, result, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.Symbol, run.YearsBack, strategyReturn, benchReturn, resultJSON, run.DurationMs, run.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "backtest_runs")
		return fmt.Errorf("failed to create backtest run: %w", err)
	}
	return nil
}

// GetBacktestRun returns a backtest run by ID, or nil if it does not exist
func (r *Repository) GetBacktestRun(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "backtest_runs")

	run, err := scanBacktestRun(r.db.QueryRow(ctx, `
		SELECT id, symbol, years_back, result, duration_ms, created_at
		FROM backtest_runs
		WHERE id = $1
	`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "backtest_runs")
		return nil, fmt.Errorf("failed to get backtest run: %w", err)
	}
	return run, nil
}

// GetBacktestRuns returns the most recent runs, newest first. An empty symbol matches all symbols.
func (r *Repository) GetBacktestRuns(ctx context.Context, symbol string, limit int) ([]models.BacktestRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "backtest_runs")

	rows, err := r.db.Query(ctx, `
		SELECT id, symbol, years_back, result, duration_ms, created_at
		FROM backtest_runs
		WHERE $1 = '' OR symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		metrics.RecordDBError("select", "backtest_runs")
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	runs := []models.BacktestRun{}
	for rows.Next() {
		run, err := scanBacktestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backtest runs: %w", err)
	}
	return runs, nil
}

func scanBacktestRun(row pgx.Row) (*models.BacktestRun, error) {
	var run models.BacktestRun
	var resultJSON []byte

	if err := row.Scan(&run.ID, &run.Symbol, &run.YearsBack, &resultJSON, &run.DurationMs, &run.CreatedAt); err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal backtest result: %w", err)
		}
	}
	return &run, nil
}
