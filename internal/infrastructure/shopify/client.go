package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/logging"
)

// DefaultAPIVersion is the Admin API version used when none is configured
const DefaultAPIVersion = "2024-07"

// Config holds Shopify Admin API connection settings
type Config struct {
	StoreURL    string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	MaxRetries  int
	RateLimit   float64 // requests per second
	RateBurst   int
}

// Client handles communication with the Shopify Admin REST and GraphQL APIs
type Client struct {
	http        *resty.Client
	rateLimiter *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	debug       bool
	logger      zerolog.Logger
}

var _ domain.CatalogClient = (*Client)(nil)

// NewClient creates a new Shopify API client
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	// Shopify REST allows a leaky bucket of 2 requests/second
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 4
	}

	httpClient := resty.New().
		SetBaseURL(BaseURL(cfg.StoreURL, cfg.APIVersion)).
		SetTimeout(cfg.Timeout).
		SetHeader("X-Shopify-Access-Token", cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "FeedSync/1.0")

	return &Client{
		http:        httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		maxRetries:  cfg.MaxRetries,
		backoffBase: 500 * time.Millisecond,
		logger:      logging.Component("shopify"),
	}
}

// BaseURL builds the Admin API root for a store domain. A bare domain gets https.
func BaseURL(storeURL, version string) string {
	storeURL = strings.TrimRight(strings.TrimSpace(storeURL), "/")
	if !strings.HasPrefix(storeURL, "http://") && !strings.HasPrefix(storeURL, "https://") {
		storeURL = "https://" + storeURL
	}
	return fmt.Sprintf("%s/admin/api/%s", storeURL, version)
}

// SetDebug enables request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns base * 2^(attempt-1)
func exponentialBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<(attempt-1))
}

// request describes one API call made through execute
type request struct {
	op     string
	method string
	path   string
	body   interface{}
	// decode handles a 2xx body. A retryable *domain.APIError leads to another attempt.
	decode func(body []byte) error
	// idempotent calls also retry network errors and 5xx. Others only retry 429,
	// since a lost response to a create may still have created the resource.
	idempotent bool
}

func (r request) retryable(err *domain.APIError) bool {
	if !err.Retryable() {
		return false
	}
	return r.idempotent || err.StatusCode == http.StatusTooManyRequests
}

// do executes a REST call and decodes the response into out. POST is treated
// as non-idempotent.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	return c.execute(ctx, request{
		op:         op,
		method:     method,
		path:       path,
		body:       body,
		decode:     jsonDecoder(out),
		idempotent: method != http.MethodPost,
	})
}

func jsonDecoder(out interface{}) func([]byte) error {
	return func(body []byte) error {
		if out == nil {
			return nil
		}
		return json.Unmarshal(body, out)
	}
}

// execute runs a request with rate limiting and the bounded retry policy.
// Network errors, 429 and 5xx are retried per request.retryable; other
// statuses fail immediately.
func (c *Client) execute(ctx context.Context, r request) error {
	var lastErr *domain.APIError
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return &domain.APIError{Operation: r.op, Message: "rate limiter: " + err.Error(), Err: err}
		}

		req := c.http.R().SetContext(ctx)
		if r.body != nil {
			req.SetBody(r.body)
		}

		if c.debug {
			c.logger.Debug().Str("op", r.op).Str("method", r.method).Str("path", r.path).Int("attempt", attempt).Msg("Request")
		}

		resp, err := req.Execute(r.method, r.path)
		switch {
		case err != nil:
			lastErr = &domain.APIError{Operation: r.op, Message: err.Error(), Err: err}
			if ctx.Err() != nil {
				return lastErr
			}
			c.logger.Warn().Err(err).Str("op", r.op).Int("attempt", attempt).Msg("Request error")
		case resp.StatusCode() >= http.StatusMultipleChoices:
			lastErr = &domain.APIError{
				Operation:  r.op,
				StatusCode: resp.StatusCode(),
				Message:    truncate(string(resp.Body()), 300),
			}
			c.logger.Warn().Str("op", r.op).Int("status", resp.StatusCode()).Int("attempt", attempt).Msg("API error")
		default:
			err := r.decode(resp.Body())
			if err == nil {
				return nil
			}
			if !errors.As(err, &lastErr) {
				return &domain.APIError{Operation: r.op, StatusCode: resp.StatusCode(), Message: "decode response: " + err.Error(), Err: err}
			}
			// errors reported in a 2xx body carry its status unless they name their own
			if lastErr.StatusCode == 0 {
				lastErr.StatusCode = resp.StatusCode()
			}
			c.logger.Warn().Str("op", r.op).Int("status", lastErr.StatusCode).Int("attempt", attempt).Msg("API error in response body")
		}

		if !r.retryable(lastErr) {
			return lastErr
		}

		if attempt < c.maxRetries {
			if err := sleep(ctx, exponentialBackoff(c.backoffBase, attempt)); err != nil {
				return lastErr
			}
		}
	}

	c.logger.Error().Err(lastErr).Str("op", r.op).Msg("All retries failed")
	return lastErr
}

// graphQL posts a query and decodes its data member into out. Queries are
// read-only, so every retryable failure is retried, including a THROTTLED
// error returned with status 200.
func (c *Client) graphQL(ctx context.Context, op, query string, variables map[string]interface{}, out interface{}) error {
	return c.execute(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/graphql.json",
		body:   graphQLRequest{Query: query, Variables: variables},
		decode: func(body []byte) error {
			var envelope graphQLResponse
			if err := json.Unmarshal(body, &envelope); err != nil {
				return err
			}
			if len(envelope.Errors) > 0 {
				return envelope.asError(op)
			}
			if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
				return &domain.APIError{Operation: op, Message: "empty data"}
			}
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return &domain.APIError{Operation: op, Message: "decode data: " + err.Error(), Err: err}
			}
			return nil
		},
		idempotent: true,
	})
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
