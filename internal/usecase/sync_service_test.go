package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vervegrand/feedsync/internal/domain"
)

func newTestSyncService(products []domain.FeedProduct, catalog *MockCatalogClient, rec *sinkRecorder) (*SyncService, *MockFeedSource) {
	source := &MockFeedSource{data: []byte("<Urunler/>"), contentType: "application/xml"}
	parser := &MockFeedParser{feed: &domain.Feed{Schema: "test", Products: products}}
	feedService := NewFeedService(source, parser, nil, FeedServiceConfig{})

	config := SyncServiceConfig{CallTimeout: time.Second}
	if rec != nil {
		config.Sink = rec.sink
	}
	return NewSyncService(feedService, NewNormalizer(nil), catalog, config), source
}

func TestNewSyncService(t *testing.T) {
	t.Run("creates service with default values", func(t *testing.T) {
		svc := NewSyncService(nil, nil, NewMockCatalogClient(), SyncServiceConfig{ProductDelay: -time.Second})
		if svc.callTimeout != 30*time.Second {
			t.Errorf("callTimeout = %v, want 30s", svc.callTimeout)
		}
		if svc.productDelay != 0 {
			t.Errorf("productDelay = %v, want 0", svc.productDelay)
		}
		if svc.normalizer == nil {
			t.Error("expected default normalizer")
		}
		if svc.LatestSummary() != nil {
			t.Error("LatestSummary() before first run should be nil")
		}
	})

	t.Run("creates service with custom values", func(t *testing.T) {
		svc := NewSyncService(nil, nil, NewMockCatalogClient(), SyncServiceConfig{
			ProductDelay: 300 * time.Millisecond,
			CallTimeout:  5 * time.Second,
		})
		if svc.productDelay != 300*time.Millisecond {
			t.Errorf("productDelay = %v, want 300ms", svc.productDelay)
		}
		if svc.callTimeout != 5*time.Second {
			t.Errorf("callTimeout = %v, want 5s", svc.callTimeout)
		}
	})
}

func TestRunSync_CreatesMissingProducts(t *testing.T) {
	catalog := NewMockCatalogClient()
	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "Keten Gömlek", "KADIN > GİYİM > Gömlek", "100", "0", feedVariant("KG-S", "3", "S")),
	}, catalog, nil)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Price: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.CreatedCount != 1 || summary.UpdatedCount != 0 || summary.ErrorCount != 0 {
		t.Errorf("summary = %+v, want 1 created", summary)
	}
	if len(catalog.created) != 1 || catalog.created[0].Handle != "keten-gomlek-1" {
		t.Fatalf("created = %+v", catalog.created)
	}
	if len(catalog.created[0].Variants) != 1 {
		t.Error("created product should carry all variants regardless of options")
	}
	if summary.Status != domain.RunCompleted {
		t.Errorf("Status = %v, want completed", summary.Status)
	}
	if summary.RunID == "" {
		t.Error("RunID not set")
	}
}

func TestRunSync_FullSyncMergesVariants(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.remote["keten-gomlek-101"] = remoteProduct()

	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("101", "Keten Gömlek", "KADIN > GİYİM > Gömlek", "150", "120",
			feedVariant("X1", "4", "S"),
			feedVariant("X3", "2", "L")),
	}, catalog, nil)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Full: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.UpdatedCount != 1 || summary.ErrorCount != 0 {
		t.Errorf("summary = %+v, want 1 updated", summary)
	}
	if len(catalog.productUpdates) != 1 {
		t.Errorf("product updates = %d, want 1", len(catalog.productUpdates))
	}
	if len(catalog.variantUpdates) != 1 || catalog.variantUpdates[0].SKU != "X1" {
		t.Fatalf("variant updates = %+v, want X1 only", catalog.variantUpdates)
	}
	if !catalog.variantUpdates[0].Price.Equal(dec("120")) {
		t.Errorf("X1 price = %s, want 120", catalog.variantUpdates[0].Price)
	}
	if len(catalog.newVariants) != 1 || catalog.newVariants[0].variant.SKU != "X3" {
		t.Errorf("new variants = %+v, want X3", catalog.newVariants)
	}
	if catalog.newVariants[0].productID != "gid://shopify/Product/9" {
		t.Errorf("new variant product = %q", catalog.newVariants[0].productID)
	}
}

func TestRunSync_PriceOnlyTouchesOnlyPrices(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.remote["keten-gomlek-101"] = remoteProduct()

	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("101", "Keten Gömlek", "", "150", "0",
			feedVariant("X1", "4", "S", "https://cdn.example.com/1.jpg"),
			feedVariant("X3", "2", "L")),
	}, catalog, nil)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Price: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.UpdatedCount != 1 {
		t.Errorf("UpdatedCount = %d, want 1", summary.UpdatedCount)
	}
	if len(catalog.productUpdates) != 0 {
		t.Errorf("product updates = %+v, want none", catalog.productUpdates)
	}
	if len(catalog.newVariants) != 0 {
		t.Errorf("new variants = %+v, want none", catalog.newVariants)
	}
	for _, u := range catalog.variantUpdates {
		if u.InventoryQuantity != nil {
			t.Errorf("variant %s has inventory on price-only sync", u.SKU)
		}
	}
}

func TestRunSync_OneFailureDoesNotAbort(t *testing.T) {
	catalog := NewMockCatalogClient()
	var records []domain.FeedProduct
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("%d", i)
		records = append(records, feedProduct(id, "Urun", "", "10", "0", feedVariant("SKU-"+id, "1", "Std")))
		catalog.remote["urun-"+id] = &domain.RemoteProduct{
			ID:       "gid://shopify/Product/" + id,
			Variants: []domain.RemoteVariant{{ID: "v" + id, SKU: "SKU-" + id}},
		}
	}
	catalog.updateProductErr["gid://shopify/Product/4"] = &domain.APIError{Operation: "updateProduct", StatusCode: 500, Message: "boom"}

	rec := &sinkRecorder{}
	svc, _ := newTestSyncService(records, catalog, rec)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Full: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", summary.ErrorCount)
	}
	if summary.UpdatedCount+summary.CreatedCount != 9 {
		t.Errorf("updated+created = %d, want 9", summary.UpdatedCount+summary.CreatedCount)
	}
	if len(catalog.lookups) != 10 {
		t.Errorf("lookups = %d, want all 10 products processed", len(catalog.lookups))
	}
	if rec.count(domain.LevelError) != 1 {
		t.Errorf("error messages = %d, want 1", rec.count(domain.LevelError))
	}
}

func TestRunSync_VariantFailureMarksProductErrored(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.remote["elbise-5"] = &domain.RemoteProduct{
		ID: "gid://shopify/Product/5",
		Variants: []domain.RemoteVariant{
			{ID: "v1", SKU: "E-S"},
			{ID: "v2", SKU: "E-M"},
			{ID: "v3", SKU: "E-L"},
		},
	}
	catalog.updateVariantErr["E-M"] = &domain.APIError{Operation: "updateVariant", StatusCode: 422, Message: "invalid"}

	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("5", "Elbise", "", "10", "0",
			feedVariant("E-S", "1", "S"),
			feedVariant("E-M", "1", "M"),
			feedVariant("E-L", "1", "L")),
	}, catalog, nil)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Inventory: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.ErrorCount != 1 || summary.UpdatedCount != 0 {
		t.Errorf("summary = %+v, want 1 error, 0 updated", summary)
	}
	if len(catalog.variantUpdates) != 2 {
		t.Errorf("successful variant updates = %d, want siblings E-S and E-L applied", len(catalog.variantUpdates))
	}
}

func TestRunSync_NoChangesCountsUpdated(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.remote["tayt-3"] = &domain.RemoteProduct{ID: "gid://shopify/Product/3"}

	rec := &sinkRecorder{}
	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("3", "Tayt", "", "10", "0", feedVariant("T-NEW", "1", "S")),
	}, catalog, rec)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Price: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.UpdatedCount != 1 || summary.SkippedCount != 1 || summary.ErrorCount != 0 {
		t.Errorf("summary = %+v, want 1 updated with 1 skipped variant", summary)
	}
	if len(catalog.newVariants) != 0 {
		t.Error("variant created without full sync")
	}
}

func TestRunSync_LookupFailureIsPerItem(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.findErr["a-1"] = errors.New("network down")

	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "A", "", "10", "0", feedVariant("A1", "1", "S")),
		feedProduct("2", "B", "", "10", "0", feedVariant("B1", "1", "S")),
	}, catalog, nil)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ErrorCount != 1 || summary.CreatedCount != 1 {
		t.Errorf("summary = %+v, want 1 error and 1 created", summary)
	}
	if !summary.Options.Full {
		t.Error("empty options should normalize to full")
	}
}

func TestRunSync_CallTimeoutIsPerItem(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.findBlock = make(chan struct{})
	defer close(catalog.findBlock)

	source := &MockFeedSource{}
	parser := &MockFeedParser{feed: &domain.Feed{Products: []domain.FeedProduct{
		feedProduct("1", "A", "", "10", "0", feedVariant("A1", "1", "S")),
	}}}
	svc := NewSyncService(NewFeedService(source, parser, nil, FeedServiceConfig{}), nil, catalog, SyncServiceConfig{
		CallTimeout: 20 * time.Millisecond,
	})

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Full: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", summary.ErrorCount)
	}
}

func TestRunSync_FeedFailure(t *testing.T) {
	catalog := NewMockCatalogClient()
	svc, source := newTestSyncService(nil, catalog, nil)
	source.err = fmt.Errorf("%w: status 503", domain.ErrFeedUnavailable)

	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Full: true})

	if !errors.Is(err, domain.ErrFeedFailure) {
		t.Errorf("error = %v, want ErrFeedFailure", err)
	}
	if !errors.Is(err, domain.ErrFeedUnavailable) {
		t.Errorf("error = %v, want wrapped ErrFeedUnavailable", err)
	}
	if summary == nil || summary.Status != domain.RunFailed {
		t.Fatalf("summary = %+v, want failed", summary)
	}
	if !strings.Contains(summary.Error, "503") {
		t.Errorf("summary.Error = %q, want cause", summary.Error)
	}

	latest := svc.LatestSummary()
	if latest == nil || latest.RunID != summary.RunID {
		t.Errorf("LatestSummary() = %+v, want failed run retained", latest)
	}
	if len(catalog.lookups) != 0 {
		t.Error("no remote calls expected after feed failure")
	}
}

func TestRunSync_RejectsConcurrentRun(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.findBlock = make(chan struct{})
	catalog.findEnter = make(chan struct{}, 1)

	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "A", "", "10", "0", feedVariant("A1", "1", "S")),
	}, catalog, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunSync(context.Background(), domain.SyncOptions{Full: true})
		done <- err
	}()

	select {
	case <-catalog.findEnter:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the catalog")
	}

	if !svc.Running() {
		t.Error("Running() = false during a run")
	}
	if _, err := svc.RunSync(context.Background(), domain.SyncOptions{Full: true}); !errors.Is(err, domain.ErrSyncInProgress) {
		t.Errorf("second RunSync error = %v, want ErrSyncInProgress", err)
	}

	close(catalog.findBlock)
	if err := <-done; err != nil {
		t.Errorf("first run error = %v", err)
	}
	if svc.Running() {
		t.Error("Running() = true after run finished")
	}
}

func TestRunSync_Cancelled(t *testing.T) {
	catalog := NewMockCatalogClient()
	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "A", "", "10", "0", feedVariant("A1", "1", "S")),
	}, catalog, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.RunSync(ctx, domain.SyncOptions{Full: true})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if summary == nil || summary.Status != domain.RunFailed {
		t.Errorf("summary = %+v, want failed", summary)
	}
}

func TestRunSync_ReportsUnmappedCategoriesOnce(t *testing.T) {
	catalog := NewMockCatalogClient()
	rec := &sinkRecorder{}
	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "Tabak", "EV > Mutfak", "10", "0", feedVariant("T1", "1", "Std")),
		feedProduct("2", "Kase", "EV > Mutfak", "10", "0", feedVariant("K1", "1", "Std")),
	}, catalog, rec)

	if _, err := svc.RunSync(context.Background(), domain.SyncOptions{Full: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.count(domain.LevelWarn) != 1 {
		t.Errorf("warn messages = %d, want 1", rec.count(domain.LevelWarn))
	}
}

func TestRunSync_LatestSummaryReplaced(t *testing.T) {
	catalog := NewMockCatalogClient()
	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "A", "", "10", "0", feedVariant("A1", "1", "S")),
	}, catalog, nil)

	first, _ := svc.RunSync(context.Background(), domain.SyncOptions{Full: true})
	second, _ := svc.RunSync(context.Background(), domain.SyncOptions{Full: true})

	latest := svc.LatestSummary()
	if latest.RunID != second.RunID || latest.RunID == first.RunID {
		t.Errorf("LatestSummary().RunID = %s, want second run %s", latest.RunID, second.RunID)
	}

	latest.CreatedCount = 999
	if svc.LatestSummary().CreatedCount == 999 {
		t.Error("LatestSummary() must return a copy")
	}
}

func TestStart_RunsInBackground(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.findBlock = make(chan struct{})
	catalog.findEnter = make(chan struct{}, 1)

	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "A", "", "10", "0", feedVariant("A1", "1", "S")),
	}, catalog, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runID, err := svc.Start(ctx, domain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID == "" {
		t.Error("Start() returned empty run id")
	}
	// The run must survive the caller's context going away
	cancel()

	<-catalog.findEnter
	if _, err := svc.Start(context.Background(), domain.SyncOptions{}); !errors.Is(err, domain.ErrSyncInProgress) {
		t.Errorf("second Start() error = %v, want ErrSyncInProgress", err)
	}
	close(catalog.findBlock)

	deadline := time.Now().Add(2 * time.Second)
	for svc.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	latest := svc.LatestSummary()
	if latest == nil || latest.RunID != runID {
		t.Fatalf("LatestSummary() = %+v, want run %s", latest, runID)
	}
	if latest.Status != domain.RunCompleted || latest.CreatedCount != 1 {
		t.Errorf("summary = %+v, want completed with 1 created", latest)
	}
}

func TestRunSync_MatchedAndCreatedCoverAllProducts(t *testing.T) {
	catalog := NewMockCatalogClient()
	catalog.remote["bluz-1"] = &domain.RemoteProduct{ID: "gid://shopify/Product/1"}
	catalog.remote["etek-2"] = &domain.RemoteProduct{ID: "gid://shopify/Product/2"}

	svc, _ := newTestSyncService([]domain.FeedProduct{
		feedProduct("1", "Bluz", "", "10", "0", feedVariant("B1", "1", "S")),
		feedProduct("2", "Etek", "", "10", "0", feedVariant("E1", "1", "S")),
		feedProduct("3", "Ceket", "", "10", "0", feedVariant("C1", "1", "S")),
	}, catalog, nil)

	// images only, and no product carries images: both updates are no-ops
	summary, err := svc.RunSync(context.Background(), domain.SyncOptions{Images: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.CreatedCount+summary.UpdatedCount != 3-summary.ErrorCount {
		t.Errorf("summary = %+v, want created+updated == products-errors", summary)
	}
	if summary.UpdatedCount != 2 || summary.CreatedCount != 1 {
		t.Errorf("summary = %+v, want 2 updated, 1 created", summary)
	}
	if len(catalog.productUpdates) != 0 {
		t.Errorf("product updates = %d, want none", len(catalog.productUpdates))
	}
}
