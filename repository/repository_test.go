package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"span-screener/models"
)

// fakeRow returns canned values from Scan
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = r.values[i].([]byte)
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *int64:
			*p = r.values[i].(int64)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

// fakeDB records statements and answers QueryRow with row
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execErr  error
	row      fakeRow
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.NewCommandTag("DELETE 3"), f.execErr
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func TestRepository_NoDatabase(t *testing.T) {
	ctx := context.Background()
	var nilRepo *Repository
	empty := &Repository{}

	for _, r := range []*Repository{nilRepo, empty} {
		_, _, err := r.Get(ctx, "analysis", "ACME")
		assert.ErrorIs(t, err, ErrNoDatabase)
		assert.ErrorIs(t, r.Set(ctx, "analysis", "ACME", nil, time.Minute), ErrNoDatabase)
		assert.ErrorIs(t, r.Delete(ctx, "analysis", "ACME"), ErrNoDatabase)
		assert.ErrorIs(t, r.CreateBacktestRun(ctx, &models.BacktestRun{}), ErrNoDatabase)
		_, err = r.GetBacktestRuns(ctx, "", 0)
		assert.ErrorIs(t, err, ErrNoDatabase)
		_, err = r.CleanExpiredCache(ctx)
		assert.ErrorIs(t, err, ErrNoDatabase)
		assert.ErrorIs(t, r.Migrate(ctx), ErrNoDatabase)
	}
	assert.ErrorIs(t, empty.Health(ctx), ErrNoDatabase)
}

func TestRepository_CacheGet(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		r := &Repository{db: &fakeDB{row: fakeRow{values: []any{[]byte(`{"a":1}`)}}}}
		data, found, err := r.Get(ctx, "analysis", "ACME")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `{"a":1}`, string(data))
	})

	t.Run("miss", func(t *testing.T) {
		r := &Repository{db: &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}}
		data, found, err := r.Get(ctx, "analysis", "ACME")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, data)
	})

	t.Run("error", func(t *testing.T) {
		r := &Repository{db: &fakeDB{row: fakeRow{err: errors.New("conn reset")}}}
		_, found, err := r.Get(ctx, "analysis", "ACME")
		assert.False(t, found)
		assert.ErrorContains(t, err, "failed to query cache")
	})
}

func TestRepository_CacheSetAndDelete(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	r := &Repository{db: db}

	require.NoError(t, r.Set(ctx, "backtest", "ACME:3", []byte("{}"), 90*time.Minute))
	require.Len(t, db.execArgs, 1)
	assert.Equal(t, []any{"backtest", "ACME:3", []byte("{}"), 5400.0}, db.execArgs[0])
	assert.Contains(t, db.execSQL[0], "ON CONFLICT (namespace, cache_key)")

	require.NoError(t, r.Delete(ctx, "backtest", "ACME:3"))
	assert.Equal(t, []any{"backtest", "ACME:3"}, db.execArgs[1])

	removed, err := r.CleanExpiredCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	db.execErr = errors.New("read only")
	assert.ErrorContains(t, r.Set(ctx, "backtest", "ACME:3", nil, time.Minute), "failed to set cache")
}

func TestRepository_CreateBacktestRun(t *testing.T) {
	db := &fakeDB{}
	r := &Repository{db: db}
	result := &models.BacktestResult{Symbol: "ACME", StrategyReturnPct: 12.5, BuyAndHoldReturnPct: 8}
	run := models.NewBacktestRun("ACME", 3, result, 420)

	require.NoError(t, r.CreateBacktestRun(context.Background(), run))
	args := db.execArgs[0]
	assert.Equal(t, run.ID, args[0])
	assert.Equal(t, "ACME", args[1])
	assert.Equal(t, 3, args[2])
	assert.Equal(t, 12.5, args[3])
	assert.Equal(t, 8.0, args[4])

	var stored models.BacktestResult
	require.NoError(t, json.Unmarshal(args[5].([]byte), &stored))
	assert.Equal(t, "ACME", stored.Symbol)
}

func TestRepository_GetBacktestRun(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	r := &Repository{db: &fakeDB{row: fakeRow{values: []any{
		id, "ACME", 3, []byte(`{"symbol":"ACME","total_trades":4}`), int64(250), created,
	}}}}
	run, err := r.GetBacktestRun(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, 3, run.YearsBack)
	assert.Equal(t, int64(250), run.DurationMs)
	require.NotNil(t, run.Result)
	assert.Equal(t, 4, run.Result.TotalTrades)

	missing := &Repository{db: &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}}
	run, err = missing.GetBacktestRun(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, run)
}

func TestRepository_GetBacktestRunsQueryError(t *testing.T) {
	r := &Repository{db: &fakeDB{queryErr: errors.New("timeout")}}
	_, err := r.GetBacktestRuns(context.Background(), "ACME", 10)
	assert.ErrorContains(t, err, "failed to query backtest runs")
}

var (
	pgOnce      sync.Once
	pgContainer *postgres.PostgresContainer
	pgDSN       string
	pgErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

// testDatabaseURL prefers DATABASE_URL and otherwise starts a disposable Postgres container
func testDatabaseURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		ctx := context.Background()
		pgContainer, pgErr = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("span_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if pgErr != nil {
			return
		}
		pgDSN, pgErr = pgContainer.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, pgErr, "failed to start postgres container")
	return pgDSN
}

// getTestDB returns a migrated repository connected to the test database
func getTestDB(t *testing.T) *Repository {
	t.Helper()

	connString := testDatabaseURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := NewRepository(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return repo
}

func cleanup(t *testing.T, repo *Repository) {
	t.Helper()
	ctx := context.Background()
	_, _ = repo.pool.Exec(ctx, "DELETE FROM backtest_runs WHERE symbol LIKE 'TEST%'")
	_, _ = repo.pool.Exec(ctx, "DELETE FROM market_data_cache WHERE cache_key LIKE 'TEST%'")
}

func TestRepository_Integration_Cache(t *testing.T) {
	repo := getTestDB(t)
	defer repo.Close()
	defer cleanup(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "analysis", "TESTACME", []byte(`{"x":1}`), time.Minute))
	data, found, err := repo.Get(ctx, "analysis", "TESTACME")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"x":1}`, string(data))

	require.NoError(t, repo.Set(ctx, "analysis", "TESTEXPIRED", []byte(`{}`), -time.Minute))
	_, found, err = repo.Get(ctx, "analysis", "TESTEXPIRED")
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := repo.CleanExpiredCache(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	require.NoError(t, repo.Delete(ctx, "analysis", "TESTACME"))
	_, found, err = repo.Get(ctx, "analysis", "TESTACME")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRepository_Integration_BacktestRuns(t *testing.T) {
	repo := getTestDB(t)
	defer repo.Close()
	defer cleanup(t, repo)
	ctx := context.Background()

	older := models.NewBacktestRun("TESTACME", 2, &models.BacktestResult{Symbol: "TESTACME"}, 10)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := models.NewBacktestRun("TESTACME", 3, &models.BacktestResult{Symbol: "TESTACME", TotalTrades: 2}, 20)
	other := models.NewBacktestRun("TESTOTHER", 1, &models.BacktestResult{Symbol: "TESTOTHER"}, 5)
	for _, run := range []*models.BacktestRun{older, newer, other} {
		require.NoError(t, repo.CreateBacktestRun(ctx, run))
	}

	runs, err := repo.GetBacktestRuns(ctx, "TESTACME", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Result.TotalTrades)

	got, err := repo.GetBacktestRun(ctx, other.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "TESTOTHER", got.Symbol)
}
