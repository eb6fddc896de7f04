package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"span-screener/observability"
)

// Get returns a cached value. Expiry is checked by the database to avoid clock skew.
func (r *Repository) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := r.checkDB(); err != nil {
		return nil, false, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "market_data_cache")

	var data []byte
	err := r.db.QueryRow(ctx, `
		SELECT data FROM market_data_cache
		WHERE namespace = $1 AND cache_key = $2 AND expires_at > NOW()
	`, namespace, key).Scan(&data)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "market_data_cache")
		return nil, false, fmt.Errorf("failed to query cache: %w", err)
	}
	return data, true, nil
}

// Set stores a value with a TTL, replacing any existing entry
func (r *Repository) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("upsert", "market_data_cache")

	_, err := r.db.Exec(ctx, `
		INSERT INTO market_data_cache (namespace, cache_key, data, expires_at)
		VALUES ($1, $2, $3, NOW() + make_interval(secs => $4))
		ON CONFLICT (namespace, cache_key)
		DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, created_at = NOW()
	`, namespace, key, value, ttl.Seconds())

	if err != nil {
		metrics.RecordDBError("upsert", "market_data_cache")
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete removes a cached value
func (r *Repository) Delete(ctx context.Context, namespace, key string) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("delete", "market_data_cache")

	_, err := r.db.Exec(ctx, `
		DELETE FROM market_data_cache WHERE namespace = $1 AND cache_key = $2
	`, namespace, key)

	if err != nil {
		metrics.RecordDBError("delete", "market_data_cache")
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// CleanExpiredCache removes all expired cache entries
func (r *Repository) CleanExpiredCache(ctx context.Context) (int64, error) {
	if err := r.checkDB(); err != nil {
		return 0, err
	}
	result, err := r.db.Exec(ctx, `DELETE FROM market_data_cache WHERE expires_at < NOW()`)
	if err != nil {
		observability.GetMetrics().RecordDBError("delete", "market_data_cache")
		return 0, fmt.Errorf("failed to clean expired cache: %w", err)
	}
	return result.RowsAffected(), nil
}
