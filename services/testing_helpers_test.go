package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"span-screener/models"
)

// testUpstream builds an Upstream pointed at an httptest server with fast retries
func testUpstream(name string) *Upstream {
	return NewUpstream(name, nil, NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig, nil),
		RetryConfig{MaxRetries: 2, Backoff: time.Millisecond}, nil)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func day(s string) time.Time {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeProvider is an in-memory MarketDataProvider
type fakeProvider struct {
	bars       []models.DailyBar
	barsErr    error
	financials []models.QuarterlyFinancial
	finErr     error
	profile    *models.CompanyProfile
	profileErr error

	barCalls  int
	finLimits []int
	profCalls int
}

func (f *fakeProvider) GetDailyBars(_ context.Context, _ string, _, _ time.Time) ([]models.DailyBar, error) {
	f.barCalls++
	return f.bars, f.barsErr
}

func (f *fakeProvider) GetQuarterlyFinancials(_ context.Context, _ string, limit int) ([]models.QuarterlyFinancial, error) {
	f.finLimits = append(f.finLimits, limit)
	return f.financials, f.finErr
}

func (f *fakeProvider) GetCompanyProfile(_ context.Context, _ string) (*models.CompanyProfile, error) {
	f.profCalls++
	return f.profile, f.profileErr
}
