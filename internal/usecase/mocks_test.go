package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vervegrand/feedsync/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = payload
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockFeedSource is a mock implementation of domain.FeedSource
type MockFeedSource struct {
	data        []byte
	contentType string
	err         error
	calls       int
}

func (m *MockFeedSource) Fetch(ctx context.Context) ([]byte, string, error) {
	m.calls++
	if m.err != nil {
		return nil, "", m.err
	}
	return m.data, m.contentType, nil
}

// MockFeedParser is a mock implementation of domain.FeedParser
type MockFeedParser struct {
	feed *domain.Feed
	err  error
}

func (m *MockFeedParser) Parse(data []byte, contentType string) (*domain.Feed, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.feed, nil
}

type productUpdateCall struct {
	productID string
	update    domain.ProductUpdate
}

type newVariantCall struct {
	productID string
	variant   domain.Variant
}

// MockCatalogClient is an in-memory implementation of domain.CatalogClient
type MockCatalogClient struct {
	mu sync.Mutex

	remote map[string]*domain.RemoteProduct // by handle

	findErr          map[string]error // by handle
	createErr        map[string]error // by handle
	updateProductErr map[string]error // by remote id
	updateVariantErr map[string]error // by sku
	createVariantErr map[string]error // by sku

	// findBlock, when set, makes FindByHandle wait for it or for ctx
	findBlock chan struct{}
	findEnter chan struct{}

	shop    *domain.ShopInfo
	shopErr error

	lookups        []string
	created        []domain.Product
	productUpdates []productUpdateCall
	variantUpdates []domain.VariantUpdate
	newVariants    []newVariantCall
}

func NewMockCatalogClient() *MockCatalogClient {
	return &MockCatalogClient{
		remote:           make(map[string]*domain.RemoteProduct),
		findErr:          make(map[string]error),
		createErr:        make(map[string]error),
		updateProductErr: make(map[string]error),
		updateVariantErr: make(map[string]error),
		createVariantErr: make(map[string]error),
	}
}

func (m *MockCatalogClient) FindByHandle(ctx context.Context, handle string) (*domain.RemoteProduct, error) {
	if m.findEnter != nil {
		select {
		case m.findEnter <- struct{}{}:
		default:
		}
	}
	if m.findBlock != nil {
		select {
		case <-m.findBlock:
		case <-ctx.Done():
			return nil, &domain.APIError{Operation: "findByHandle", Message: ctx.Err().Error(), Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, handle)
	if err := m.findErr[handle]; err != nil {
		return nil, err
	}
	return m.remote[handle], nil
}

func (m *MockCatalogClient) FetchAllPaged(ctx context.Context) ([]domain.RemoteProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RemoteProduct, 0, len(m.remote))
	for _, p := range m.remote {
		out = append(out, *p)
	}
	return out, nil
}

func (m *MockCatalogClient) CreateProduct(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErr[product.Handle]; err != nil {
		return err
	}
	m.created = append(m.created, *product)
	return nil
}

func (m *MockCatalogClient) UpdateProduct(ctx context.Context, productID string, update domain.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateProductErr[productID]; err != nil {
		return err
	}
	m.productUpdates = append(m.productUpdates, productUpdateCall{productID: productID, update: update})
	return nil
}

func (m *MockCatalogClient) UpdateVariant(ctx context.Context, update domain.VariantUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateVariantErr[update.SKU]; err != nil {
		return err
	}
	m.variantUpdates = append(m.variantUpdates, update)
	return nil
}

func (m *MockCatalogClient) CreateVariant(ctx context.Context, productID string, variant domain.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createVariantErr[variant.SKU]; err != nil {
		return err
	}
	m.newVariants = append(m.newVariants, newVariantCall{productID: productID, variant: variant})
	return nil
}

func (m *MockCatalogClient) ShopInfo(ctx context.Context) (*domain.ShopInfo, error) {
	if m.shopErr != nil {
		return nil, m.shopErr
	}
	return m.shop, nil
}

// sinkRecorder captures log sink messages
type sinkRecorder struct {
	mu      sync.Mutex
	entries []sinkEntry
}

type sinkEntry struct {
	message string
	level   domain.LogLevel
}

func (r *sinkRecorder) sink(message string, level domain.LogLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, sinkEntry{message: message, level: level})
}

func (r *sinkRecorder) count(level domain.LogLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func feedProduct(id, name, category string, list, discounted string, variants ...domain.FeedVariant) domain.FeedProduct {
	return domain.FeedProduct{
		ID:              id,
		Name:            name,
		CategoryPath:    category,
		ListPrice:       dec(list),
		DiscountedPrice: dec(discounted),
		Description:     "<p>" + name + "</p>",
		Variants:        variants,
	}
}

func feedVariant(sku, stock, size string, images ...string) domain.FeedVariant {
	return domain.FeedVariant{SKU: sku, Stock: stock, OptionValue: size, Images: images}
}

// MockRunRepository is an in-memory domain.RunRepository
type MockRunRepository struct {
	mu      sync.Mutex
	runs    []domain.SyncSummary
	saveErr error
	listErr error
}

func (m *MockRunRepository) Save(ctx context.Context, summary *domain.SyncSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.runs = append(m.runs, *summary)
	return nil
}

func (m *MockRunRepository) Latest(ctx context.Context) (*domain.SyncSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	if len(m.runs) == 0 {
		return nil, nil
	}
	latest := m.runs[len(m.runs)-1]
	return &latest, nil
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]domain.SyncSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.SyncSummary
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}
