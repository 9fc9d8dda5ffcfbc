// Package midtrans is a minimal client for the payment gateway's Snap API:
// it creates transactions and returns the client-facing payment token, and
// verifies webhook signatures.
package midtrans

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/raditya/toko-backend/internal/domain/order"
)

// enabledPayments is the fixed set of payment channels offered at checkout.
var enabledPayments = []string{"gopay", "shopeepay", "bank_transfer", "indomaret", "alfamart"}

// Config holds the gateway endpoint and credentials.
type Config struct {
	// SnapURL is the Snap API root, e.g. the sandbox
	// https://app.sandbox.midtrans.com/snap/v1.
	SnapURL string
	// ServerKey authenticates API calls and signs webhook payloads.
	ServerKey string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// Client implements order.PaymentIssuer against the Snap API.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ order.PaymentIssuer = (*Client)(nil)

// NewClient creates a Client with an instrumented, timeout-bounded transport.
// Construct it once at process start and inject it; there is no package
// level shared instance.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type itemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type shippingAddress struct {
	Address string `json:"address"`
}

type customerDetails struct {
	ShippingAddress shippingAddress `json:"shipping_address"`
}

type snapRequest struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	ItemDetails        []itemDetail       `json:"item_details"`
	CustomerDetails    customerDetails    `json:"customer_details"`
	EnabledPayments    []string           `json:"enabled_payments"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// IssueToken creates a Snap transaction and returns its payment token. The
// declared gross amount and item lines come straight from the request; the
// gateway validates that the gross equals the line sum, so callers are
// responsible for keeping them consistent.
func (c *Client) IssueToken(ctx context.Context, req order.IssueRequest) (string, error) {
	items := make([]itemDetail, len(req.Lines))
	for i, line := range req.Lines {
		items[i] = itemDetail{
			ID:       line.ID,
			Price:    line.Price.IntPart(),
			Quantity: line.Quantity,
			Name:     line.Name,
		}
	}

	body, err := json.Marshal(snapRequest{
		TransactionDetails: transactionDetails{
			OrderID:     req.OrderID,
			GrossAmount: req.GrossAmount.IntPart(),
		},
		ItemDetails: items,
		CustomerDetails: customerDetails{
			ShippingAddress: shippingAddress{Address: req.ShippingAddress},
		},
		EnabledPayments: enabledPayments,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.SnapURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	httpReq.SetBasicAuth(c.cfg.ServerKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &order.UpstreamError{Provider: "midtrans", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &order.UpstreamError{
			Provider: "midtrans",
			Err:      errors.Errorf("status %d: %s", resp.StatusCode, raw),
		}
	}

	var sr snapResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", &order.UpstreamError{Provider: "midtrans", Err: errors.Wrap(err, "decode response")}
	}
	if sr.Token == "" {
		return "", &order.UpstreamError{Provider: "midtrans", Err: errors.New("empty token in response")}
	}

	return sr.Token, nil
}

// ValidSignature checks a webhook signature key: the gateway signs
// SHA-512(order_id + status_code + gross_amount + server_key).
func (c *Client) ValidSignature(orderID, statusCode, grossAmount, signature string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + c.cfg.ServerKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
