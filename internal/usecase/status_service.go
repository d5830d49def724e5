package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vervegrand/feedsync/internal/domain"
)

// FeedStatus reports whether the vendor feed is reachable and parseable
type FeedStatus struct {
	OK    bool              `json:"ok"`
	URL   string            `json:"url,omitempty"`
	Stats *domain.FeedStats `json:"stats,omitempty"`
	Error string            `json:"error,omitempty"`
}

// ShopStatus reports whether the remote catalog accepts our credentials
type ShopStatus struct {
	OK    bool             `json:"ok"`
	Shop  *domain.ShopInfo `json:"shop,omitempty"`
	Error string           `json:"error,omitempty"`
}

// ConnectionStatus is the combined result of the connectivity probes
type ConnectionStatus struct {
	Feed      FeedStatus `json:"feed"`
	Shop      ShopStatus `json:"shop"`
	SyncBusy  bool       `json:"syncRunning"`
	CheckedAt time.Time  `json:"checkedAt"`
}

// OK reports whether every probe succeeded
func (s *ConnectionStatus) OK() bool {
	return s.Feed.OK && s.Shop.OK
}

// StatusService probes the feed and the remote catalog.
type StatusService struct {
	feed    *FeedService
	catalog domain.CatalogClient
	sync    *SyncService
	feedURL string
	timeout time.Duration
}

// NewStatusService creates a status service. syncService may be nil.
func NewStatusService(feed *FeedService, catalog domain.CatalogClient, syncService *SyncService, feedURL string, timeout time.Duration) *StatusService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StatusService{
		feed:    feed,
		catalog: catalog,
		sync:    syncService,
		feedURL: feedURL,
		timeout: timeout,
	}
}

// Check runs both probes concurrently. Probe failures are reported in the
// result, never returned as an error.
func (s *StatusService) Check(ctx context.Context) *ConnectionStatus {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status := &ConnectionStatus{
		Feed: FeedStatus{URL: s.feedURL},
	}

	var g errgroup.Group

	g.Go(func() error {
		stats, err := s.feed.Stats(ctx)
		if err != nil {
			status.Feed.Error = err.Error()
			return nil
		}
		status.Feed.OK = true
		status.Feed.Stats = stats
		return nil
	})

	g.Go(func() error {
		info, err := s.catalog.ShopInfo(ctx)
		if err != nil {
			status.Shop.Error = err.Error()
			return nil
		}
		status.Shop.OK = true
		status.Shop.Shop = info
		return nil
	})

	_ = g.Wait()

	if s.sync != nil {
		status.SyncBusy = s.sync.Running()
	}
	status.CheckedAt = time.Now()
	return status
}
