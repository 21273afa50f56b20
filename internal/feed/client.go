// Package feed polls the external mutation service that is our only source of
// truth for "money arrived". The service is unauthenticated, pull-only, and
// flaky; every call is bounded by a timeout and a small retry budget.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DirectionIn is the status flag marking an inbound credit. Anything else
// (debits, reversals) never matches an order.
const DirectionIn = "IN"

// Transaction is one mutation row as the feed reports it. Amounts arrive as
// strings with dot thousands separators ("15.060").
type Transaction struct {
	ID        string `json:"id"`
	Date      string `json:"tanggal"`
	Credit    string `json:"kredit"`
	Status    string `json:"status"`
	Note      string `json:"keterangan,omitempty"`
	BrandName string `json:"-"`
}

type brand struct {
	Name string `json:"name"`
}

type feedTransaction struct {
	Transaction
	Brand *brand `json:"brand,omitempty"`
}

type feedResponse struct {
	QRISHistory struct {
		Results []feedTransaction `json:"results"`
	} `json:"qris_history"`
}

// ErrUnavailable reports that the feed could not be reached or returned
// garbage after all retries. Callers degrade to the last stored order state;
// they never treat this as payment confirmation.
var ErrUnavailable = errors.New("feed: unavailable")

// Client fetches recent inbound transactions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries overrides the attempt budget.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithRetryDelay overrides the base backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient returns a feed client for baseURL with the given per-attempt
// timeout.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retries:    3,
		retryDelay: 2 * time.Second,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRecentInbound returns the feed's recent transactions filtered to inbound
// credits, in feed order. Failures after the retry budget surface as
// ErrUnavailable.
func (c *Client) ListRecentInbound(ctx context.Context) ([]Transaction, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		txs, err := c.fetch(ctx)
		if err == nil {
			return txs, nil
		}
		lastErr = err
		c.log.Warn("feed fetch failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.retries),
			zap.Error(err))

		if attempt < c.retries {
			// linear backoff, same cadence the upstream provider tolerates
			select {
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) fetch(ctx context.Context) ([]Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "okhttp/4.12.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	txs := make([]Transaction, 0, len(body.QRISHistory.Results))
	for _, ft := range body.QRISHistory.Results {
		tx := ft.Transaction
		if ft.Brand != nil {
			tx.BrandName = ft.Brand.Name
		}
		if tx.Status != DirectionIn {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
