// Package yahoo is a minimal client for the Yahoo Finance option chain
// API. It owns the outbound rate limit and retry policy; callers get
// typed errors and decoded listings.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrNotFound    = errors.New("ticker not found")
	ErrRateLimited = errors.New("rate limited by API")
)

// Quote carries the price fields used to establish the current price.
type Quote struct {
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	Symbol                     string  `json:"symbol"`
}

// Contract is one listed option contract on either side of the chain.
type Contract struct {
	Strike       float64 `json:"strike"`
	OpenInterest int64   `json:"openInterest"`
	LastPrice    float64 `json:"lastPrice"`
	Volume       int64   `json:"volume"`
}

// Listing holds the call-side and put-side contracts of one expiration.
type Listing struct {
	ExpirationDate int64      `json:"expirationDate"`
	Calls          []Contract `json:"calls"`
	Puts           []Contract `json:"puts"`
}

// ChainResult is the per-ticker payload of the option chain endpoint.
type ChainResult struct {
	UnderlyingSymbol string    `json:"underlyingSymbol"`
	ExpirationDates  []int64   `json:"expirationDates"`
	Quote            Quote     `json:"quote"`
	Options          []Listing `json:"options"`
}

type chainEnvelope struct {
	OptionChain struct {
		Result []ChainResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewClient(baseURL string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:    100,
		MaxConnsPerHost: 10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Quote returns the current price fields for a ticker.
func (c *Client) Quote(ctx context.Context, ticker string) (*Quote, error) {
	result, err := c.fetchChain(ctx, ticker, nil)
	if err != nil {
		return nil, err
	}
	return &result.Quote, nil
}

// Expirations lists the expiration dates the API offers for a ticker.
func (c *Client) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	result, err := c.fetchChain(ctx, ticker, nil)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(result.ExpirationDates))
	for _, unix := range result.ExpirationDates {
		dates = append(dates, time.Unix(unix, 0).UTC())
	}
	return dates, nil
}

// OptionChain returns the call and put listings for one expiration.
func (c *Client) OptionChain(ctx context.Context, ticker string, expiration time.Time) (*Listing, error) {
	result, err := c.fetchChain(ctx, ticker, &expiration)
	if err != nil {
		return nil, err
	}
	if len(result.Options) == 0 {
		return nil, fmt.Errorf("no option listing for %s at %s", ticker, expiration.Format("2006-01-02"))
	}
	return &result.Options[0], nil
}

func (c *Client) fetchChain(ctx context.Context, ticker string, expiration *time.Time) (*ChainResult, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v7/finance/options/%s", c.baseURL, url.PathEscape(ticker))
	if expiration != nil {
		endpoint = fmt.Sprintf("%s?date=%d", endpoint, expiration.Unix())
	}
	c.logger.Debug("requesting", zap.String("url", endpoint))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		var envelope chainEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}

		if envelope.OptionChain.Error != nil {
			return nil, fmt.Errorf("api error %s: %s",
				envelope.OptionChain.Error.Code, envelope.OptionChain.Error.Description)
		}
		if len(envelope.OptionChain.Result) == 0 {
			return nil, ErrNotFound
		}

		return &envelope.OptionChain.Result[0], nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
