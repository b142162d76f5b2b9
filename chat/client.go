// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/parleyhq/parley/lib/netutil"
)

// DefaultBaseURL is the public Slack Web API root.
const DefaultBaseURL = "https://slack.com/api/"

// defaultRateLimit paces Web API calls at the Tier 3 method budget
// (50 calls/minute) with a small burst. Most methods Parley uses are
// Tier 3; pacing everything at the strictest common tier keeps one
// shared limiter instead of per-method bookkeeping.
func defaultRateLimit() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/50), 5)
}

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BotToken is the xoxb- token every Web API call authenticates
	// with. Required.
	BotToken string

	// BaseURL is the Web API root. Empty means the public endpoint.
	BaseURL string

	// HTTPClient is used for all requests. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// Limiter paces outgoing calls. Nil means a default limiter sized
	// for Slack's Tier 3 method budget.
	Limiter *rate.Limiter

	// Logger receives structured request logging. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Client is a Slack Web API client. All methods are safe for
// concurrent use; calls share one rate limiter.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Slack Web API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("chat: BotToken is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("chat: invalid BaseURL %q: %w", baseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limiter := config.Limiter
	if limiter == nil {
		limiter = defaultRateLimit()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		botToken:   config.BotToken,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// CloseIdleConnections drops pooled HTTP connections. Call after a
// network disruption so the next request opens a fresh socket instead
// of reusing a poisoned one.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// callMethod invokes one Web API method with form-encoded parameters
// and decodes the response into result (which may be nil when the
// caller only needs the ok/error envelope). The Web API accepts
// form encoding on every method, including the handful that reject
// JSON bodies, so all calls go through this one shape.
func (c *Client) callMethod(ctx context.Context, method string, params url.Values, result any) error {
	return c.callMethodWithToken(ctx, c.botToken, method, params, result)
}

// callMethodWithToken is callMethod with an explicit bearer token.
// Socket Mode's apps.connections.open authenticates with the
// app-level token rather than the bot token; everything else about
// the call (rate limiting, envelope, errors) is identical.
func (c *Client) callMethodWithToken(ctx context.Context, token, method string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("chat: %s: %w", method, err)
	}

	if params == nil {
		params = url.Values{}
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("chat: %s: creating request: %w", method, err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("chat: %s: %w", method, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(response.Header.Get("Retry-After"))
		return &APIError{
			Code:       ErrCodeRateLimited,
			StatusCode: response.StatusCode,
			RetryAfter: time.Duration(retryAfter) * time.Second,
		}
	}

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("chat: %s: reading response: %w", method, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("chat: %s: unexpected HTTP %d: %s", method, response.StatusCode, string(body))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("chat: %s: parsing response: %w", method, err)
	}
	if !envelope.OK {
		return &APIError{Code: envelope.Error, StatusCode: response.StatusCode}
	}
	if envelope.Warning != "" {
		c.logger.Debug("slack api warning", "method", method, "warning", envelope.Warning)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("chat: %s: parsing result: %w", method, err)
		}
	}
	return nil
}
