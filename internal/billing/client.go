// Package billing provides an HTTP client for an upstream cloud billing API.
// The client implements source.ConsumptionSource.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 8 << 20 // 8 MB
	consumptionAPI = "/v1/consumption"
	userAgent      = "cloudburn/1.0"
)

var (
	// ErrUnauthorized indicates the API key is missing, expired or invalid.
	ErrUnauthorized = errors.New("billing: unauthorized (api key expired or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("billing: rate limited")
	// ErrNoAPIKey is returned by NewClient when no key is configured.
	ErrNoAPIKey = errors.New("billing: no api key configured")
)

// Options configures a Client. Zero values pick defaults.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RequestsPerSecond limits outgoing requests; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int

	HTTPClient *http.Client
}

// Client fetches consumption from the billing API.
type Client struct {
	base    *url.URL
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	http    *http.Client
}

// NewClient creates a client for opts.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("billing: invalid base url %q", opts.BaseURL)
	}

	c := &Client{
		base:    base,
		apiKey:  apiKey,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// Fetch implements source.ConsumptionSource. The upstream to date is
// exclusive, like q.Span.To.
func (c *Client) Fetch(ctx context.Context, q source.Query) (*source.Result, error) {
	params := url.Values{}
	params.Set("from", q.Span.From.String())
	params.Set("to", q.Span.To.String())
	if q.Region != "" {
		params.Set("region", q.Region)
	}
	if q.Account != "" {
		params.Set("account", q.Account)
	}

	body, err := c.get(ctx, consumptionAPI, params)
	if err != nil {
		return nil, err
	}

	var raw ConsumptionResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("billing: parsing consumption: %w", err)
	}

	res := &source.Result{Currency: raw.Currency, Entries: make([]model.ConsumptionEntry, 0, len(raw.Entries))}
	for i, re := range raw.Entries {
		e, err := parseEntry(re)
		if err != nil {
			return nil, fmt.Errorf("billing: entry %d: %w", i, err)
		}
		res.Entries = append(res.Entries, e)
	}
	return res, nil
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("billing: waiting for rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.base
	u.Path += path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("billing: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("billing: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && (er.Message != "" || er.Error != "") {
			msg := er.Message
			if msg == "" {
				msg = er.Error
			}
			return nil, fmt.Errorf("billing: unexpected status %d: %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("billing: unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func parseEntry(re RawEntry) (model.ConsumptionEntry, error) {
	e := model.ConsumptionEntry{ResourceType: re.ResourceType, Region: re.Region, Account: re.Account}

	var err error
	if e.From, err = calendar.ParseDate(re.FromDate); err != nil {
		return e, err
	}
	if re.ToDate == "" {
		e.To = e.From.AddDays(1)
	} else if e.To, err = calendar.ParseDate(re.ToDate); err != nil {
		return e, err
	}

	var ok bool
	if e.Quantity, ok = parseAmount(re.Quantity); !ok {
		return e, fmt.Errorf("unparseable quantity %s", string(re.Quantity))
	}
	if e.UnitPrice, ok = parseAmount(re.UnitPrice); !ok {
		return e, fmt.Errorf("unparseable unit_price %s", string(re.UnitPrice))
	}
	return e, nil
}

// parseAmount defensively parses a polymorphic numeric field.
// Handles numbers (3, 0.25) and decimal strings ("0.25").
func parseAmount(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	// Try number first (covers both int and float JSON)
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}

	return 0, false
}
