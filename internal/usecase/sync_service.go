package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/logging"
)

// SyncServiceConfig holds configuration for the sync orchestrator
type SyncServiceConfig struct {
	// ProductDelay is the fixed pause between products. Zero disables pacing.
	ProductDelay time.Duration
	// CallTimeout bounds each individual remote call
	CallTimeout time.Duration
	// RunTimeout bounds runs launched with Start
	RunTimeout time.Duration
	// Sink receives progress messages in addition to the structured logger
	Sink domain.LogSink
	// Runs persists summaries; nil keeps only the latest in memory
	Runs domain.RunRepository
}

// SyncService runs reconciliation passes of the vendor feed against the remote catalog.
// At most one run is active at a time.
type SyncService struct {
	catalog    domain.CatalogClient
	feed       *FeedService
	normalizer *Normalizer

	productDelay time.Duration
	callTimeout  time.Duration
	runTimeout   time.Duration
	sink         domain.LogSink
	runs         domain.RunRepository
	logger       zerolog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	latest  *domain.SyncSummary

	now func() time.Time
}

// productOutcome classifies the result of syncing one product
type productOutcome int

const (
	outcomeCreated productOutcome = iota
	outcomeUpdated
	outcomeFailed
)

// NewSyncService creates a new sync orchestrator with dependencies
func NewSyncService(
	feed *FeedService,
	normalizer *Normalizer,
	catalog domain.CatalogClient,
	config SyncServiceConfig,
) *SyncService {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}

	callTimeout := config.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	runTimeout := config.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 4 * time.Hour
	}
	productDelay := config.ProductDelay
	if productDelay < 0 {
		productDelay = 0
	}

	logger := logging.Component("sync")
	return &SyncService{
		catalog:      catalog,
		feed:         feed,
		normalizer:   normalizer,
		productDelay: productDelay,
		callTimeout:  callTimeout,
		runTimeout:   runTimeout,
		sink:         logging.Tee(logging.Sink(logger), config.Sink),
		runs:         config.Runs,
		logger:       logger,
		now:          time.Now,
	}
}

// Running reports whether a run is in progress
func (s *SyncService) Running() bool {
	return s.running.Load()
}

// LatestSummary returns the summary of the most recent finished run, or nil.
func (s *SyncService) LatestSummary() *domain.SyncSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	summary := *s.latest
	return &summary
}

// Restore loads the latest persisted summary so it survives restarts.
func (s *SyncService) Restore(ctx context.Context) error {
	if s.runs == nil {
		return nil
	}
	latest, err := s.runs.Latest(ctx)
	if err != nil {
		return fmt.Errorf("restore latest run: %w", err)
	}

	s.mu.Lock()
	if s.latest == nil {
		s.latest = latest
	}
	s.mu.Unlock()
	return nil
}

// History returns up to limit finished runs, newest first. Without a run
// repository only the in-memory latest run is available.
func (s *SyncService) History(ctx context.Context, limit int) ([]domain.SyncSummary, error) {
	if s.runs != nil {
		return s.runs.List(ctx, limit)
	}
	if latest := s.LatestSummary(); latest != nil {
		return []domain.SyncSummary{*latest}, nil
	}
	return []domain.SyncSummary{}, nil
}

// RunSync executes one full reconciliation pass. It returns ErrSyncInProgress
// immediately when another run is active. Per-product failures are counted in
// the summary; only a feed failure or cancellation fails the run.
func (s *SyncService) RunSync(ctx context.Context, opts domain.SyncOptions) (*domain.SyncSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer s.running.Store(false)

	return s.run(ctx, uuid.NewString(), opts)
}

// Start launches a run in the background and returns its id. The run is
// detached from ctx cancellation and bounded by the configured run timeout.
func (s *SyncService) Start(ctx context.Context, opts domain.SyncOptions) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", domain.ErrSyncInProgress
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
	go func() {
		defer s.running.Store(false)
		defer cancel()
		_, _ = s.run(runCtx, runID, opts)
	}()
	return runID, nil
}

func (s *SyncService) run(ctx context.Context, runID string, opts domain.SyncOptions) (*domain.SyncSummary, error) {
	opts = opts.Normalize()
	summary := &domain.SyncSummary{
		RunID:     runID,
		Options:   opts,
		StartedAt: s.now(),
	}

	s.sink(fmt.Sprintf("Sync started (run %s, options %s)", summary.RunID, DescribeOptions(opts)), domain.LevelInfo)

	products, err := s.loadProducts(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrFeedFailure, err)
		s.sink("Could not load feed: "+err.Error(), domain.LevelError)
		return s.finish(summary, err), err
	}

	s.sink(fmt.Sprintf("%d products to process", len(products)), domain.LevelInfo)

	for i := range products {
		if err := ctx.Err(); err != nil {
			s.sink("Sync cancelled", domain.LevelWarn)
			return s.finish(summary, err), err
		}

		product := &products[i]
		s.sink(fmt.Sprintf("[%d/%d] Processing: %s", i+1, len(products), product.Title), domain.LevelInfo)

		outcome, skipped := s.syncProduct(ctx, product, opts)
		summary.SkippedCount += skipped
		switch outcome {
		case outcomeCreated:
			summary.CreatedCount++
		case outcomeUpdated:
			summary.UpdatedCount++
		case outcomeFailed:
			summary.ErrorCount++
		}

		if s.productDelay > 0 && i < len(products)-1 {
			if err := sleep(ctx, s.productDelay); err != nil {
				s.sink("Sync cancelled", domain.LevelWarn)
				return s.finish(summary, err), err
			}
		}
	}

	summary = s.finish(summary, nil)
	s.sink(fmt.Sprintf("Sync finished in %.1fs: %d created, %d updated, %d skipped, %d errors",
		summary.DurationSeconds, summary.CreatedCount, summary.UpdatedCount, summary.SkippedCount, summary.ErrorCount),
		domain.LevelSuccess)
	return summary, nil
}

// loadProducts fetches, parses and normalizes the feed, reporting unmapped categories once.
func (s *SyncService) loadProducts(ctx context.Context) ([]domain.Product, error) {
	parsed, err := s.feed.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := s.normalizer.Normalize(parsed.Products)
	if result.Excluded > 0 {
		s.sink(fmt.Sprintf("%d feed products without SKU variants excluded", result.Excluded), domain.LevelInfo)
	}
	for _, path := range result.Unmapped {
		s.sink(fmt.Sprintf("No category mapping for %q", path), domain.LevelWarn)
	}
	return result.Products, nil
}

// syncProduct runs lookup, plan and apply for one product. Errors never escape.
// The second result is the number of new variants left out of a non-full run.
// A matched product whose plan writes nothing still counts as updated.
func (s *SyncService) syncProduct(ctx context.Context, product *domain.Product, opts domain.SyncOptions) (productOutcome, int) {
	var remote *domain.RemoteProduct
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		remote, err = s.catalog.FindByHandle(ctx, product.Handle)
		return err
	})
	if err != nil {
		s.reportItemError(&domain.ItemError{Title: product.Title, Operation: "lookup", Err: err})
		return outcomeFailed, 0
	}

	plan := Plan(*product, remote, opts)

	if plan.Action == domain.ActionCreate {
		err := s.call(ctx, func(ctx context.Context) error {
			return s.catalog.CreateProduct(ctx, product)
		})
		if err != nil {
			s.reportItemError(&domain.ItemError{Title: product.Title, Operation: "create", Err: err})
			return outcomeFailed, 0
		}
		s.sink(fmt.Sprintf("Created: %s (%d variants)", product.Title, len(product.Variants)), domain.LevelSuccess)
		return outcomeCreated, 0
	}

	for _, sku := range plan.SkippedVariants {
		s.sink(fmt.Sprintf("Skipped new variant %s of %s (full sync required)", sku, product.Title), domain.LevelInfo)
	}

	skipped := len(plan.SkippedVariants)
	if plan.IsEmpty() {
		s.sink("No changes: "+product.Title, domain.LevelInfo)
		return outcomeUpdated, skipped
	}

	if errs := s.applyUpdate(ctx, &plan); len(errs) > 0 {
		for _, e := range errs {
			s.reportItemError(e)
		}
		return outcomeFailed, skipped
	}

	s.sink("Updated: "+product.Title, domain.LevelSuccess)
	return outcomeUpdated, skipped
}

// applyUpdate performs every write of an update plan. A failed call does not
// stop the remaining calls; all failures are returned.
func (s *SyncService) applyUpdate(ctx context.Context, plan *domain.Plan) []*domain.ItemError {
	var errs []*domain.ItemError
	title := plan.Product.Title

	if !plan.ProductUpdate.IsEmpty() {
		err := s.call(ctx, func(ctx context.Context) error {
			return s.catalog.UpdateProduct(ctx, plan.RemoteID, plan.ProductUpdate)
		})
		if err != nil {
			errs = append(errs, &domain.ItemError{Title: title, Operation: "update product", Err: err})
		}
	}

	for _, u := range plan.VariantUpdates {
		err := s.call(ctx, func(ctx context.Context) error {
			return s.catalog.UpdateVariant(ctx, u)
		})
		if err != nil {
			errs = append(errs, &domain.ItemError{Title: title, SKU: u.SKU, Operation: "update variant", Err: err})
		}
	}

	for _, v := range plan.NewVariants {
		err := s.call(ctx, func(ctx context.Context) error {
			return s.catalog.CreateVariant(ctx, plan.RemoteID, v)
		})
		if err != nil {
			errs = append(errs, &domain.ItemError{Title: title, SKU: v.SKU, Operation: "create variant", Err: err})
		}
	}

	return errs
}

// call runs fn under its own timeout derived from ctx
func (s *SyncService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return fn(callCtx)
}

func (s *SyncService) reportItemError(err *domain.ItemError) {
	s.sink("Error: "+err.Error(), domain.LevelError)
}

// finish stamps timing and status and publishes the summary as the latest.
func (s *SyncService) finish(summary *domain.SyncSummary, runErr error) *domain.SyncSummary {
	summary.FinishedAt = s.now()
	summary.DurationSeconds = summary.FinishedAt.Sub(summary.StartedAt).Seconds()
	summary.Status = domain.RunCompleted
	if runErr != nil {
		summary.Status = domain.RunFailed
		summary.Error = runErr.Error()
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			summary.Error = "cancelled: " + runErr.Error()
		}
	}

	s.mu.Lock()
	s.latest = summary
	s.mu.Unlock()

	s.persist(summary)

	s.logger.Info().
		Str("run_id", summary.RunID).
		Str("status", string(summary.Status)).
		Int("created", summary.CreatedCount).
		Int("updated", summary.UpdatedCount).
		Int("skipped", summary.SkippedCount).
		Int("errors", summary.ErrorCount).
		Float64("duration_s", summary.DurationSeconds).
		Msg("Sync run recorded")

	return summary
}

// persist stores a copy of the summary. Storage failures are logged only.
func (s *SyncService) persist(summary *domain.SyncSummary) {
	if s.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	stored := *summary
	if err := s.runs.Save(ctx, &stored); err != nil {
		s.logger.Warn().Err(err).Str("run_id", summary.RunID).Msg("Failed to persist sync run")
	}
}

// DescribeOptions renders options for logs, e.g. "full" or "price,images".
func DescribeOptions(o domain.SyncOptions) string {
	if o.Full {
		return "full"
	}
	var parts []string
	if o.Price {
		parts = append(parts, "price")
	}
	if o.Inventory {
		parts = append(parts, "inventory")
	}
	if o.Details {
		parts = append(parts, "details")
	}
	if o.Images {
		parts = append(parts, "images")
	}
	return strings.Join(parts, ",")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
