package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

const maxBodyBytes = 1 << 20

// Options configures a Client.
type Options struct {
	BaseURL   string
	Country   string // ISO 3166-1 alpha-2, lower case
	UserAgent string
	Timeout   time.Duration
	RateLimit float64 // requests per second
}

// Client implements domain.Geocoder using the Nominatim search API.
//
// The public Nominatim instance requires an identifying User-Agent and at most
// one request per second, so every request carries Options.UserAgent and waits
// on a token bucket first.
type Client struct {
	baseURL    string
	country    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim geocoding client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   opts.BaseURL,
		country:   opts.Country,
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Resolve looks up a postal code restricted to the configured country.
func (c *Client) Resolve(ctx context.Context, postalCode string) (domain.Coordinate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Coordinate{}, fmt.Errorf("geocode rate limiter: %w: %w", domain.ErrTransientFetch, err)
	}

	params := url.Values{
		"format":       {"json"},
		"postalcode":   {postalCode},
		"countrycodes": {c.country},
		"limit":        {"1"},
	}

	start := time.Now()
	coord, outcome, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.UpstreamDuration.WithLabelValues("geocode").Observe(time.Since(start).Seconds())
	c.metrics.UpstreamRequests.WithLabelValues("geocode", outcome).Inc()

	if err != nil && outcome == "error" {
		c.logger.Warn("geocode request failed", "postal_code", postalCode, "error", err)
	}
	return coord, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Coordinate, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("geocode request: %w: %w", domain.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("read geocode response: %w: %w", domain.ErrTransientFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Coordinate{}, "error", fmt.Errorf("nominatim API error: status %d: %s: %w", resp.StatusCode, body, domain.ErrTransientFetch)
	}

	// An unparsable payload is treated the same as no match.
	var results []place
	if err := json.Unmarshal(body, &results); err != nil {
		return domain.Coordinate{}, "not_found", fmt.Errorf("decode geocode response: %w: %w", domain.ErrNotFound, err)
	}
	if len(results) == 0 {
		return domain.Coordinate{}, "not_found", domain.ErrNotFound
	}

	coord, err := results[0].coordinate()
	if err != nil {
		return domain.Coordinate{}, "not_found", fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return coord, "success", nil
}

// Nominatim API response types.

type place struct {
	Lat         string `json:"lat"` // string-encoded float
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p place) coordinate() (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}
