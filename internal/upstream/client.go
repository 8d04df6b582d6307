// Package upstream is the HTTP client for the third-party market-price
// API. It performs the raw fetches the cache coalesces; it never caches
// anything itself.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_upstream_requests_total",
		Help: "Total upstream requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proxy_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})
)

// Config configures the Client.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client

	// Breaker gates requests against the shared, Redis-backed error budget.
	// Nil disables it: every request proceeds straight to retry/fetch.
	Breaker *Breaker
}

// Client fetches aggregated prices and static reference lists from the
// upstream API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retryCfg   retryConfig
	breaker    *Breaker
	logger     zerolog.Logger
}

// New builds a Client.
func New(cfg Config, logger zerolog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = NewBreaker(nil, logger)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		retryCfg:   defaultRetryConfig(maxRetries),
		breaker:    breaker,
		logger:     logger,
	}
}

// FetchAggregated fetches the price aggregate for a datacenter/world and a
// set of item ids.
func (c *Client) FetchAggregated(ctx context.Context, datacenter string, ids []int) ([]byte, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.Itoa(id)
	}
	path := fmt.Sprintf("/api/v2/aggregated/%s/%s", datacenter, strings.Join(strs, ","))
	return c.get(ctx, "aggregated", path)
}

// FetchDataCenters fetches the static list of datacenters.
func (c *Client) FetchDataCenters(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "data-centers", "/api/v2/data-centers")
}

// FetchWorlds fetches the static list of worlds.
func (c *Client) FetchWorlds(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "worlds", "/api/v2/worlds")
}

func (c *Client) get(ctx context.Context, endpointLabel, path string) ([]byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpointLabel).Observe(time.Since(start).Seconds())
	}()

	if !c.breaker.Allow(ctx) {
		requestsTotal.WithLabelValues(endpointLabel, string(KindRateLimited)).Inc()
		return nil, rateLimited()
	}

	data, err := withRetry(ctx, c.retryCfg, c.logger, func() ([]byte, error) {
		return c.doOnce(ctx, path)
	})

	if err != nil {
		outcome := "error"
		if upstreamErr, ok := err.(*Error); ok {
			outcome = string(upstreamErr.Kind)
			if upstreamErr.Kind == KindRateLimited {
				c.breaker.RecordRateLimited(ctx)
			}
		}
		requestsTotal.WithLabelValues(endpointLabel, outcome).Inc()
		return nil, err
	}

	requestsTotal.WithLabelValues(endpointLabel, "success").Inc()
	return data, nil
}

func (c *Client) doOnce(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, rateLimited()
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, statusError(resp.StatusCode, resp.Status)
	default:
		return body, nil
	}
}
