// Package exchange normalizes claim amounts into a company's base currency
// using a public exchange-rate API. Rates are fetched as one USD-based table
// and cross rates derived from it, so a single upstream call an hour covers
// every currency pair.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"go.uber.org/zap"
)

const (
	pivotCurrency = "USD"
	defaultTTL    = time.Hour
)

// RateCache stores a fetched rate table keyed by its base currency. A nil
// table with a nil error is a miss.
type RateCache interface {
	Get(ctx context.Context, base string) (map[string]float64, error)
	Set(ctx context.Context, base string, rates map[string]float64, ttl time.Duration) error
}

// Client implements port.CurrencyNormalizer against an exchangerate-api
// compatible endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      RateCache
	ttl        time.Duration
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithCache sets the rate cache used between upstream fetches
func WithCache(cache RateCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithTTL overrides how long a fetched rate table stays fresh
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithHTTPClient overrides the HTTP client used for upstream calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an exchange rate client
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      NewMemoryCache(),
		ttl:        defaultTTL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert returns the amount converted from one currency to another and the
// rate that was applied.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, float64, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	return amount * rate, rate, nil
}

// Rate returns the exchange rate between two currencies, crossing through
// the USD table when neither side is USD.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return 1, nil
	}

	rates, err := c.table(ctx)
	if err != nil {
		return 0, err
	}

	fromRate, err := pivotRate(rates, from)
	if err != nil {
		return 0, err
	}
	toRate, err := pivotRate(rates, to)
	if err != nil {
		return 0, err
	}
	return toRate / fromRate, nil
}

func pivotRate(rates map[string]float64, currency string) (float64, error) {
	if currency == pivotCurrency {
		return 1, nil
	}
	rate, ok := rates[currency]
	if !ok || rate == 0 {
		return 0, fmt.Errorf("unsupported currency: %s", currency)
	}
	return rate, nil
}

func (c *Client) table(ctx context.Context) (map[string]float64, error) {
	if cached, err := c.cache.Get(ctx, pivotCurrency); err != nil {
		c.logger.Warn("Rate cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	rates, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, pivotCurrency, rates, c.ttl); err != nil {
		c.logger.Warn("Rate cache write failed", zap.Error(err))
	}
	return rates, nil
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) fetch(ctx context.Context) (map[string]float64, error) {
	url := fmt.Sprintf("%s/latest/%s", c.baseURL, pivotCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Exchange rate fetch failed", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate API returned status %d", resp.StatusCode)
	}

	var parsed ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate API returned no rates")
	}
	return parsed.Rates, nil
}

// Verify interface compliance
var _ port.CurrencyNormalizer = (*Client)(nil)
