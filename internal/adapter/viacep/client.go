// Package viacep resolves Brazilian postal codes (CEP) to street addresses.
package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
	"github.com/couchcryptid/solar-feasibility-service/internal/registry"
)

// Client implements registry.AddressLookup.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a ViaCEP client. baseURL has no trailing slash.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Lookup fetches the address for a CEP. Malformed or unknown codes return
// registry.ErrInvalidAddress.
func (c *Client) Lookup(ctx context.Context, postalCode string) (registry.Address, error) {
	digits := onlyDigits(postalCode)
	if len(digits) != 8 {
		return registry.Address{}, registry.ErrInvalidAddress
	}

	start := time.Now()
	addr, outcome, err := c.doRequest(ctx, fmt.Sprintf("%s/%s/json/", c.baseURL, digits))
	c.metrics.UpstreamDuration.WithLabelValues("address").Observe(time.Since(start).Seconds())
	c.metrics.UpstreamRequests.WithLabelValues("address", outcome).Inc()

	if err != nil && outcome == "error" {
		c.logger.Warn("address lookup failed", "postal_code", postalCode, "error", err)
	}
	return addr, err
}

func (c *Client) doRequest(ctx context.Context, url string) (registry.Address, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return registry.Address{}, "error", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return registry.Address{}, "error", fmt.Errorf("address request: %w", err)
	}
	defer resp.Body.Close()

	// ViaCEP answers 400 for malformed codes.
	if resp.StatusCode == http.StatusBadRequest {
		return registry.Address{}, "not_found", registry.ErrInvalidAddress
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return registry.Address{}, "error", fmt.Errorf("viacep API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return registry.Address{}, "error", fmt.Errorf("decode address response: %w", err)
	}
	if payload.Erro {
		return registry.Address{}, "not_found", registry.ErrInvalidAddress
	}

	return registry.Address{
		Street:     payload.Logradouro,
		PostalCode: payload.CEP,
		District:   payload.Bairro,
		City:       payload.Localidade,
		State:      payload.UF,
	}, "success", nil
}

// ViaCEP API response types.

type response struct {
	CEP        string    `json:"cep"`
	Logradouro string    `json:"logradouro"`
	Bairro     string    `json:"bairro"`
	Localidade string    `json:"localidade"`
	UF         string    `json:"uf"`
	Erro       flexError `json:"erro"`
}

// flexError accepts both `true` and `"true"`; the API has used both.
type flexError bool

func (f *flexError) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*f = flexError(s == "true")
	return nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
