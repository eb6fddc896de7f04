package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"span-screener/config"
	"span-screener/internal/app"
	"span-screener/models"
	"span-screener/observability"
	"span-screener/repository"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
			"cache":    h.app.CacheStats().Backend,
		},
	}

	if h.app.Repo() != nil {
		if err := h.app.Repo().Health(r.Context()); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	cbStatus := h.app.BreakerStatus()
	status["circuit_breakers"] = cbStatus

	// Any open breaker means an upstream is being skipped
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleRecommendation screens a ticker and returns its signal, confidence and checks
func (h *Handler) HandleRecommendation(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Analyze(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.appError(w, err)
		return
	}
	h.jsonResponse(w, result)
}

// HandleBacktest replays the rubric over ?years=N of history
func (h *Handler) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	years := 0
	if raw := r.URL.Query().Get("years"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.jsonError(w, "years must be an integer", http.StatusBadRequest)
			return
		}
		years = parsed
		if years == 0 {
			h.appError(w, models.ErrInvalidYears)
			return
		}
	}

	result, err := h.app.Backtest(r.Context(), chi.URLParam(r, "symbol"), years)
	if err != nil {
		h.appError(w, err)
		return
	}
	h.jsonResponse(w, result)
}

// HandleGetBacktests lists recorded backtest runs, optionally filtered by ?symbol=
func (h *Handler) HandleGetBacktests(w http.ResponseWriter, r *http.Request) {
	limit := h.ParseLimitParam(r, repository.DefaultRunLimit)

	runs, err := h.app.BacktestHistory(r.Context(), r.URL.Query().Get("symbol"), limit)
	if err != nil {
		h.appError(w, err)
		return
	}
	h.jsonResponse(w, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// HandleGetBacktest returns one recorded run
func (h *Handler) HandleGetBacktest(w http.ResponseWriter, r *http.Request) {
	run, err := h.app.BacktestRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.appError(w, err)
		return
	}
	if run == nil {
		h.jsonError(w, "backtest run not found", http.StatusNotFound)
		return
	}
	h.jsonResponse(w, run)
}

// HandleCacheStats returns cache hit and miss counters
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.CacheStats())
}

// HandleCacheEvict drops a symbol's cached results from one namespace
func (h *Handler) HandleCacheEvict(w http.ResponseWriter, r *http.Request) {
	err := h.app.Evict(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "symbol"))
	if err != nil {
		h.appError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

// StatusCode maps an application error to an HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidSymbol),
		errors.Is(err, models.ErrInvalidYears),
		errors.Is(err, app.ErrInvalidNamespace),
		errors.Is(err, app.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, app.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, app.ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) appError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		observability.Warn("request failed", "status", status, "error", err)
	}
	h.jsonError(w, err.Error(), status)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
