// Package marketdata fetches live quotes from an external REST quote feed.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client is a rate-limited quote feed client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the request rate. Non-positive values keep the default.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a quote feed client for baseURL
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-200 response from the feed
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type quoteResponse struct {
	Ticker    string          `json:"ticker"`
	Ask       decimal.Decimal `json:"ask"`
	Bid       decimal.Decimal `json:"bid"`
	Currency  string          `json:"currency"`
	Exchange  string          `json:"exchange"`
	Timestamp time.Time       `json:"timestamp"`
}

// Quote fetches the latest quote for a ticker. An unknown ticker returns
// models.ErrListingNotFound.
func (c *Client) Quote(ctx context.Context, ticker string) (*models.Listing, error) {
	var q quoteResponse
	err := c.get(ctx, "/quotes/"+url.PathEscape(strings.ToUpper(ticker)), &q)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("ticker %s: %w", ticker, models.ErrListingNotFound)
		}
		return nil, err
	}

	code, err := models.ParseCurrencyCode(q.Currency)
	if err != nil {
		return nil, fmt.Errorf("quote for %s: %w", ticker, err)
	}
	if !q.Ask.IsPositive() {
		return nil, fmt.Errorf("quote for %s has no ask price", ticker)
	}

	refreshed := q.Timestamp
	if refreshed.IsZero() {
		refreshed = time.Now()
	}
	return &models.Listing{
		Ask:         q.Ask,
		Bid:         q.Bid,
		Currency:    code,
		Exchange:    q.Exchange,
		LastRefresh: refreshed,
	}, nil
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	if c.apiKey != "" {
		params.Set("api_token", c.apiKey)
	}
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("market data request", zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
