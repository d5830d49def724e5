package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching encoded payloads
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// FeedSource fetches the raw vendor feed
type FeedSource interface {
	// Fetch returns the raw body and the declared content type.
	Fetch(ctx context.Context) ([]byte, string, error)
}

// FeedParser turns raw feed bytes into structured records
type FeedParser interface {
	Parse(data []byte, contentType string) (*Feed, error)
}

// CatalogClient is the remote e-commerce catalog used by the sync engine
type CatalogClient interface {
	FindByHandle(ctx context.Context, handle string) (*RemoteProduct, error)
	FetchAllPaged(ctx context.Context) ([]RemoteProduct, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, productID string, update ProductUpdate) error
	UpdateVariant(ctx context.Context, update VariantUpdate) error
	CreateVariant(ctx context.Context, productID string, variant Variant) error
	ShopInfo(ctx context.Context) (*ShopInfo, error)
}

// RunRepository persists finished sync summaries
type RunRepository interface {
	Save(ctx context.Context, summary *SyncSummary) error
	// Latest returns the most recently started run, or nil when none is stored.
	Latest(ctx context.Context) (*SyncSummary, error)
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]SyncSummary, error)
}
