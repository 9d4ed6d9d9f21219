package oracle

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

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/metrics"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.frankfurter.app"

var (
	ErrNetworkFailure    = errors.New("rate oracle network failure")
	ErrMalformedResponse = errors.New("rate oracle malformed response")
)

// RateOracle is the external service the widget delegates every rate to.
type RateOracle interface {
	Latest(ctx context.Context) (*LatestRates, error)
	PairRate(ctx context.Context, from, to string) (decimal.Decimal, error)
	Basket(ctx context.Context, amount decimal.Decimal, from string, to []string) (map[string]decimal.Decimal, error)
}

type LatestRates struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Client issues exactly one request per call; there is no retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
	metrics    *metrics.Metrics
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger, m *metrics.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		metrics:    m,
	}
}

func (c *Client) Latest(ctx context.Context) (*LatestRates, error) {
	var data LatestRates
	if err := c.get(ctx, "latest", nil, &data); err != nil {
		return nil, err
	}
	if data.Base == "" || data.Rates == nil {
		return nil, fmt.Errorf("%w: missing base or rates", ErrMalformedResponse)
	}
	return &data, nil
}

func (c *Client) PairRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	var data LatestRates
	if err := c.get(ctx, "pair", q, &data); err != nil {
		return decimal.Zero, err
	}
	rate, ok := data.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate for %s", ErrMalformedResponse, to)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: invalid rate %s for %s", ErrMalformedResponse, rate, to)
	}
	return rate, nil
}

func (c *Client) Basket(ctx context.Context, amount decimal.Decimal, from string, to []string) (map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("amount", amount.String())
	q.Set("from", from)
	q.Set("to", strings.Join(to, ","))

	var data LatestRates
	if err := c.get(ctx, "basket", q, &data); err != nil {
		return nil, err
	}
	if data.Rates == nil {
		return nil, fmt.Errorf("%w: missing rates", ErrMalformedResponse)
	}
	return data.Rates, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out interface{}) error {
	u := c.baseURL + "/latest"
	if len(q) > 0 {
		// keep the comma list readable, the oracle accepts both forms
		u += "?" + strings.ReplaceAll(q.Encode(), "%2C", ",")
	}

	start := time.Now()
	outcome := "ok"
	defer func() {
		c.metrics.ObserveOracle(endpoint, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		outcome = "network_failure"
		return fmt.Errorf("%w: build request: %v", ErrNetworkFailure, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "network_failure"
		c.log.Warn("Rate oracle request failed",
			logger.StringField("endpoint", endpoint),
			logger.ErrorField("error", err))
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "network_failure"
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("Rate oracle returned non-2xx",
			logger.StringField("endpoint", endpoint),
			logger.IntField("status", resp.StatusCode))
		return fmt.Errorf("%w: HTTP %d: %s", ErrNetworkFailure, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = "malformed"
		c.log.Warn("Rate oracle response could not be decoded",
			logger.StringField("endpoint", endpoint),
			logger.ErrorField("error", err))
		return fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	return nil
}
