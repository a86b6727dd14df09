package power

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

// Parameter is the all-sky surface shortwave downward irradiance series.
const Parameter = "ALLSKY_SFC_SW_DWN"

const maxBodyBytes = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL   string
	Community string
	Timeout   time.Duration
}

// Client implements domain.IrradianceSource against the NASA POWER daily
// point endpoint.
type Client struct {
	baseURL    string
	community  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a POWER client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    opts.BaseURL,
		community:  opts.Community,
		httpClient: &http.Client{Timeout: opts.Timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch returns the raw daily series for the coordinate, sorted by date.
// Fill values are passed through.
func (c *Client) Fetch(ctx context.Context, coord domain.Coordinate, dateRange domain.DateRange) (domain.IrradianceSeries, error) {
	params := url.Values{
		"parameters": {Parameter},
		"community":  {c.community},
		"longitude":  {strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
		"latitude":   {strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"start":      {dateRange.StartCompact()},
		"end":        {dateRange.EndCompact()},
		"format":     {"JSON"},
	}

	start := time.Now()
	series, outcome, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.UpstreamDuration.WithLabelValues("irradiance").Observe(time.Since(start).Seconds())
	c.metrics.UpstreamRequests.WithLabelValues("irradiance", outcome).Inc()

	if err != nil {
		c.logger.Warn("irradiance request failed",
			"lat", coord.Lat, "lon", coord.Lon,
			"start", dateRange.StartISO(), "end", dateRange.EndISO(),
			"error", err,
		)
	}
	return series, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.IrradianceSeries, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, "error", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "error", fmt.Errorf("irradiance request: %w: %w", domain.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "error", fmt.Errorf("read irradiance response: %w: %w", domain.ErrTransientFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "unavailable", fmt.Errorf("power API error: status %d: %w", resp.StatusCode, domain.ErrDataUnavailable)
	}

	series, err := decodeSeries(body)
	if err != nil {
		return nil, "unavailable", err
	}
	return series, "success", nil
}

// POWER API response types.

type response struct {
	Properties struct {
		Parameter map[string]map[string]*float64 `json:"parameter"`
	} `json:"properties"`
}

func decodeSeries(body []byte) (domain.IrradianceSeries, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode irradiance response: %w: %w", domain.ErrDataUnavailable, err)
	}

	daily, ok := resp.Properties.Parameter[Parameter]
	if !ok {
		return nil, fmt.Errorf("response has no %s series: %w", Parameter, domain.ErrDataUnavailable)
	}

	series := make(domain.IrradianceSeries, 0, len(daily))
	for key, v := range daily {
		date, err := domain.ParseCompactDate(key)
		if err != nil {
			return nil, fmt.Errorf("bad date key %q: %w", key, domain.ErrDataUnavailable)
		}
		// A null day is a missing observation, same as the fill value.
		value := domain.SentinelThreshold
		if v != nil {
			value = *v
		}
		series = append(series, domain.IrradianceSample{Date: date, Value: value})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}
