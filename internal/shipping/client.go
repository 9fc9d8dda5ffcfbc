// Package shipping talks to the external shipping-rate provider: domestic
// cost quotes plus the province/city/district lookups the storefront's
// address picker proxies through.
package shipping

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/raditya/toko-backend/internal/domain/order"
)

// Config holds the rate-provider endpoints and credentials.
type Config struct {
	// BaseURL is the cost-calculation API root.
	BaseURL string
	// APIKey authorizes cost calculations.
	APIKey string
	// GeoBaseURL is the destination-lookup API root.
	GeoBaseURL string
	// GeoAPIKey authorizes destination lookups.
	GeoAPIKey string
	// OriginID is the store warehouse's destination id, the fixed origin of
	// every shipment.
	OriginID string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// Client implements order.RateQuoter against the provider's HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ order.RateQuoter = (*Client)(nil)

// NewClient creates a Client with an instrumented, timeout-bounded transport.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// costResponse is the provider's quote envelope. Only the fields the
// checkout needs are decoded.
type costResponse struct {
	Data []costEntry `json:"data"`
}

type costEntry struct {
	Name    string          `json:"name"`
	Service string          `json:"service"`
	Cost    decimal.Decimal `json:"cost"`
}

// Quote returns the first rate the provider offers for the destination,
// weight (grams), and courier. An empty result set or any transport failure
// is an *order.UpstreamError; there is no retry here.
func (c *Client) Quote(ctx context.Context, destinationID string, weight int, courier string) (*order.Quote, error) {
	form := url.Values{}
	form.Set("origin", c.cfg.OriginID)
	form.Set("destination", destinationID)
	form.Set("weight", strconv.Itoa(weight))
	form.Set("courier", courier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/calculate/domestic-cost", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &order.UpstreamError{Provider: "shipping", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &order.UpstreamError{
			Provider: "shipping",
			Err:      errors.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	var cr costResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, &order.UpstreamError{Provider: "shipping", Err: errors.Wrap(err, "decode response")}
	}
	if len(cr.Data) == 0 {
		return nil, &order.UpstreamError{Provider: "shipping", Err: errors.New("no service available")}
	}

	first := cr.Data[0]
	return &order.Quote{
		Cost:        first.Cost,
		CourierName: first.Name,
		Service:     first.Service,
	}, nil
}

// Provinces returns the provider's raw province list.
func (c *Client) Provinces(ctx context.Context) (json.RawMessage, error) {
	return c.lookup(ctx, "/destination/province")
}

// Cities returns the provider's raw city list for a province.
func (c *Client) Cities(ctx context.Context, provinceID string) (json.RawMessage, error) {
	return c.lookup(ctx, "/destination/city/"+url.PathEscape(provinceID))
}

// Districts returns the provider's raw district list for a city.
func (c *Client) Districts(ctx context.Context, cityID string) (json.RawMessage, error) {
	return c.lookup(ctx, "/destination/district/"+url.PathEscape(cityID))
}

// lookup proxies a destination read and returns the data array untouched.
func (c *Client) lookup(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GeoBaseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("key", c.cfg.GeoAPIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &order.UpstreamError{Provider: "shipping", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &order.UpstreamError{
			Provider: "shipping",
			Err:      errors.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &order.UpstreamError{Provider: "shipping", Err: errors.Wrap(err, "decode response")}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return json.RawMessage("[]"), nil
	}
	return envelope.Data, nil
}
