package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/logging"
)

// Source fetches the vendor feed over HTTP.
type Source struct {
	client *resty.Client
	url    string
	logger zerolog.Logger
}

// NewSource creates a feed source for url; the timeout bounds the whole download.
func NewSource(url string, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; FeedSync/1.0)").
		SetHeader("Accept", "application/xml, text/xml, */*")

	return &Source{
		client: client,
		url:    url,
		logger: logging.Component("feed"),
	}
}

// URL returns the configured feed location
func (s *Source) URL() string {
	return s.url
}

// Fetch downloads the raw feed body
func (s *Source) Fetch(ctx context.Context) ([]byte, string, error) {
	if s.url == "" {
		return nil, "", fmt.Errorf("%w: feed URL not configured", domain.ErrFeedUnavailable)
	}

	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		s.logger.Error().Err(err).Str("url", s.url).Msg("Feed request failed")
		return nil, "", fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		s.logger.Error().Int("status", resp.StatusCode()).Str("url", s.url).Msg("Feed returned non-200 status")
		return nil, "", fmt.Errorf("%w: status %d", domain.ErrFeedUnavailable, resp.StatusCode())
	}

	s.logger.Debug().
		Int("bytes", len(resp.Body())).
		Dur("elapsed", time.Since(start)).
		Msg("Feed downloaded")

	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
