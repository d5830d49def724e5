package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/usecase"
)

// SyncController starts runs and exposes their outcome
type SyncController interface {
	Start(ctx context.Context, opts domain.SyncOptions) (string, error)
	Running() bool
	LatestSummary() *domain.SyncSummary
	History(ctx context.Context, limit int) ([]domain.SyncSummary, error)
}

// FeedStatsProvider returns feed counts
type FeedStatsProvider interface {
	Stats(ctx context.Context) (*domain.FeedStats, error)
}

// StatusChecker probes external dependencies
type StatusChecker interface {
	Check(ctx context.Context) *usecase.ConnectionStatus
}

// CatalogLister reads the whole remote catalog
type CatalogLister interface {
	FetchAllPaged(ctx context.Context) ([]domain.RemoteProduct, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sync           SyncController
	feed           FeedStatsProvider
	status         StatusChecker
	catalog        CatalogLister
	defaultOptions domain.SyncOptions
	requestTimeout time.Duration
}

// HandlerConfig holds handler settings
type HandlerConfig struct {
	DefaultOptions domain.SyncOptions
	RequestTimeout time.Duration
}

// NewHandler creates a new HTTP handler. Any dependency may be nil; its
// endpoints then answer 501.
func NewHandler(sync SyncController, feed FeedStatsProvider, status StatusChecker, catalog CatalogLister, cfg HandlerConfig) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	return &Handler{
		sync:           sync,
		feed:           feed,
		status:         status,
		catalog:        catalog,
		defaultOptions: cfg.DefaultOptions,
		requestTimeout: cfg.RequestTimeout,
	}
}

// RunSyncRequest is the body of POST /api/v1/sync/run
type RunSyncRequest struct {
	Options *domain.SyncOptions `json:"options"`
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "feedsync",
		"version": "1.0.0",
	})
}

// RunSync starts a background sync run
func (h *Handler) RunSync(c *gin.Context) {
	if h.sync == nil {
		notImplemented(c)
		return
	}

	opts := h.defaultOptions
	if c.Request.ContentLength != 0 {
		var req RunSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, errors.Join(domain.ErrInvalidRequest, err))
			return
		}
		if req.Options != nil {
			opts = *req.Options
		}
	}

	runID, err := h.sync.Start(c.Request.Context(), opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "started",
		"runId":   runID,
		"options": opts.Normalize(),
	})
}

// GetSyncSummary returns the latest run summary
func (h *Handler) GetSyncSummary(c *gin.Context) {
	if h.sync == nil {
		notImplemented(c)
		return
	}

	summary := h.sync.LatestSummary()
	if summary == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no sync has run yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"running": h.sync.Running(),
		"summary": summary,
	})
}

// ListSyncRuns returns finished runs, newest first. Query: limit (1-100, default 20).
func (h *Handler) ListSyncRuns(c *gin.Context) {
	if h.sync == nil {
		notImplemented(c)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(c, fmt.Errorf("%w: limit must be between 1 and 100", domain.ErrInvalidRequest))
			return
		}
		limit = n
	}

	runs, err := h.sync.History(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"runs":  runs,
	})
}

// GetFeedStats returns product and variant counts of the vendor feed
func (h *Handler) GetFeedStats(c *gin.Context) {
	if h.feed == nil {
		notImplemented(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	stats, err := h.feed.Stats(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetStatus reports feed and shop connectivity
func (h *Handler) GetStatus(c *gin.Context) {
	if h.status == nil {
		notImplemented(c)
		return
	}

	status := h.status.Check(c.Request.Context())
	code := http.StatusOK
	if !status.OK() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// ListCatalogProducts returns every product of the remote catalog
func (h *Handler) ListCatalogProducts(c *gin.Context) {
	if h.catalog == nil {
		notImplemented(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	products, err := h.catalog.FetchAllPaged(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if products == nil {
		products = []domain.RemoteProduct{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(products),
		"products": products,
	})
}

// writeError maps domain errors to HTTP status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSyncInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrFeedUnavailable),
		errors.Is(err, domain.ErrFeedMalformed),
		errors.Is(err, domain.ErrRemoteAPI):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func notImplemented(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "endpoint not configured"})
}
