package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/infrastructure/feed"
	"github.com/vervegrand/feedsync/internal/logging"
)

// feedStatsCacheKey is the cache key for the latest feed counts
const feedStatsCacheKey = "feed:stats"

// FeedServiceConfig holds configuration for the feed service
type FeedServiceConfig struct {
	StatsTTL time.Duration
}

// FeedService fetches and parses the vendor feed.
type FeedService struct {
	source   domain.FeedSource
	parser   domain.FeedParser
	cache    domain.CacheRepository
	statsTTL time.Duration
	logger   zerolog.Logger
}

// NewFeedService creates a feed service. cache may be nil to disable stats caching.
func NewFeedService(
	source domain.FeedSource,
	parser domain.FeedParser,
	cache domain.CacheRepository,
	config FeedServiceConfig,
) *FeedService {
	statsTTL := config.StatsTTL
	if statsTTL == 0 {
		statsTTL = 5 * time.Minute
	}

	return &FeedService{
		source:   source,
		parser:   parser,
		cache:    cache,
		statsTTL: statsTTL,
		logger:   logging.Component("feed"),
	}
}

// Load fetches and parses the feed. Errors wrap ErrFeedUnavailable or ErrFeedMalformed.
func (s *FeedService) Load(ctx context.Context) (*domain.Feed, error) {
	data, contentType, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.Parse(data, contentType)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("schema", parsed.Schema).
		Int("bytes", len(data)).
		Int("products", len(parsed.Products)).
		Msg("Feed loaded")

	return parsed, nil
}

// Stats returns product and variant counts, served from cache while fresh.
// Flow: check cache -> load feed -> count -> cache -> return
func (s *FeedService) Stats(ctx context.Context) (*domain.FeedStats, error) {
	if cached, err := s.getFromCache(ctx); err == nil {
		return cached, nil
	}

	parsed, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	stats := feed.Stats(parsed)
	if err := s.setInCache(ctx, &stats); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache feed stats")
	}
	return &stats, nil
}

// InvalidateStats drops cached stats so the next call re-reads the feed.
func (s *FeedService) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, feedStatsCacheKey)
}

func (s *FeedService) getFromCache(ctx context.Context) (*domain.FeedStats, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	payload, err := s.cache.Get(ctx, feedStatsCacheKey)
	if err != nil {
		return nil, err
	}

	var stats domain.FeedStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheMiss, err)
	}
	return &stats, nil
}

func (s *FeedService) setInCache(ctx context.Context, stats *domain.FeedStats) error {
	if s.cache == nil {
		return nil
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, feedStatsCacheKey, payload, s.statsTTL)
}
