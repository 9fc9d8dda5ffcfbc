package midtrans

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raditya/toko-backend/internal/domain/order"
)

func issueRequest() order.IssueRequest {
	return order.IssueRequest{
		OrderID:         "order-123",
		GrossAmount:     decimal.NewFromInt(29000),
		ShippingAddress: "Jl. Merdeka No. 7, Bandung",
		Lines: []order.PaymentLine{
			{ID: "p1", Price: decimal.NewFromInt(10000), Quantity: 2, Name: "Kopi Gayo"},
			{ID: "shipping-fee", Price: decimal.NewFromInt(9000), Quantity: 1, Name: "Shipping Fee"},
		},
	}
}

func TestIssueToken(t *testing.T) {
	var captured snapRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transactions", r.URL.Path)

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "server-key", user)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"snap-abc","redirect_url":"https://pay.example/abc"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SnapURL: srv.URL, ServerKey: "server-key"})
	token, err := c.IssueToken(context.Background(), issueRequest())
	require.NoError(t, err)
	assert.Equal(t, "snap-abc", token)

	assert.Equal(t, "order-123", captured.TransactionDetails.OrderID)
	assert.Equal(t, int64(29000), captured.TransactionDetails.GrossAmount)
	assert.Equal(t, "Jl. Merdeka No. 7, Bandung", captured.CustomerDetails.ShippingAddress.Address)
	assert.Equal(t, enabledPayments, captured.EnabledPayments)

	// Declared gross equals the sum of the item lines.
	var sum int64
	for _, item := range captured.ItemDetails {
		sum += item.Price * int64(item.Quantity)
	}
	assert.Equal(t, captured.TransactionDetails.GrossAmount, sum)
}

func TestIssueToken_GatewayRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_messages":["Access denied"]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SnapURL: srv.URL, ServerKey: "wrong-key"})
	_, err := c.IssueToken(context.Background(), issueRequest())

	var upErr *order.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "midtrans", upErr.Provider)
	assert.Contains(t, upErr.Error(), "401")
}

func TestIssueToken_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SnapURL: srv.URL, ServerKey: "server-key"})
	_, err := c.IssueToken(context.Background(), issueRequest())

	var upErr *order.UpstreamError
	require.ErrorAs(t, err, &upErr)
}

func TestValidSignature(t *testing.T) {
	c := NewClient(Config{ServerKey: "server-key"})

	sum := sha512.Sum512([]byte("order-123" + "200" + "29000.00" + "server-key"))
	good := hex.EncodeToString(sum[:])

	assert.True(t, c.ValidSignature("order-123", "200", "29000.00", good))
	assert.False(t, c.ValidSignature("order-123", "200", "29000.00", "forged"))
	assert.False(t, c.ValidSignature("order-999", "200", "29000.00", good))
}
