package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"span-screener/observability"
)

func TestUpstream_GetJSON_RecordsMetrics(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"value": 7}`))
	})

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	u := NewUpstream("test", NewRateLimiter(10, time.Second), NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig, metrics),
		RetryConfig{MaxRetries: 1, Backoff: time.Millisecond}, metrics)

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, u.GetJSON(context.Background(), "op", "ACME", server.URL, &out))
	assert.Equal(t, 7, out.Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExternalAPIRequestsTotal.WithLabelValues("test", "op")))
	assert.Equal(t, 1, u.Limiter.InFlight())
}

func TestUpstream_GetJSON_ThrottledExhaustsRetries(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	u := NewUpstream("test", nil, nil, RetryConfig{MaxRetries: 2, Backoff: time.Millisecond}, metrics)

	var out map[string]any
	err := u.GetJSON(context.Background(), "op", "ACME", server.URL, &out)
	require.Error(t, err)
	assert.True(t, IsThrottled(err))

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ExternalAPIErrorsTotal.WithLabelValues("test", "op", "throttled")))
}

func TestUpstream_GetJSON_DecodeError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	u := NewUpstream("test", nil, nil, RetryConfig{}, nil)
	var out map[string]any
	err := u.GetJSON(context.Background(), "op", "ACME", server.URL, &out)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "test", perr.Provider)
	assert.Contains(t, err.Error(), "decode")
}

func TestUpstream_NotFoundIsNoData(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	u := NewUpstream("test", nil, nil, RetryConfig{}, nil)
	var out map[string]any
	err := u.GetJSON(context.Background(), "op", "ZZZZ", server.URL, &out)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{Provider: "fmp", Op: "GetCompanyProfile", Symbol: "AAPL", StatusCode: 500, Err: ErrNoData}
	assert.Equal(t, "fmp GetCompanyProfile AAPL: status 500: upstream returned no data", err.Error())

	err = &ProviderError{Provider: "fmp", Op: "GetCompanyProfile", Symbol: "AAPL", Err: ErrThrottled}
	assert.Equal(t, "fmp GetCompanyProfile AAPL: upstream throttled the request", err.Error())
}
