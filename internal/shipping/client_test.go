package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raditya/toko-backend/internal/domain/order"
)

func newTestClient(costURL, geoURL string) *Client {
	return NewClient(Config{
		BaseURL:    costURL,
		APIKey:     "cost-key",
		GeoBaseURL: geoURL,
		GeoAPIKey:  "geo-key",
		OriginID:   "5296",
	})
}

func TestQuote_FirstServiceWins(t *testing.T) {
	var gotForm map[string]string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/calculate/domestic-cost", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotKey = r.Header.Get("key")
		gotForm = map[string]string{
			"origin":      r.PostFormValue("origin"),
			"destination": r.PostFormValue("destination"),
			"weight":      r.PostFormValue("weight"),
			"courier":     r.PostFormValue("courier"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"name":"jne","service":"REG","cost":9000,"etd":"2-3 day"},
			{"name":"jne","service":"YES","cost":21000,"etd":"1 day"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	q, err := c.Quote(context.Background(), "1234", 2000, "jne")
	require.NoError(t, err)

	assert.True(t, q.Cost.Equal(decimal.NewFromInt(9000)), "cost %s", q.Cost)
	assert.Equal(t, "jne", q.CourierName)
	assert.Equal(t, "REG", q.Service)

	assert.Equal(t, "cost-key", gotKey)
	assert.Equal(t, map[string]string{
		"origin":      "5296",
		"destination": "1234",
		"weight":      "2000",
		"courier":     "jne",
	}, gotForm)
}

func TestQuote_NoServiceAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	_, err := c.Quote(context.Background(), "1234", 1000, "jne")

	var upErr *order.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "shipping", upErr.Provider)
}

func TestQuote_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"meta":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	_, err := c.Quote(context.Background(), "1234", 1000, "jne")

	var upErr *order.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Contains(t, upErr.Error(), "401")
}

func TestLookups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geo-key", r.Header.Get("key"))
		switch r.URL.Path {
		case "/destination/province":
			_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Bali"}]}`))
		case "/destination/city/1":
			_, _ = w.Write([]byte(`{"data":[{"id":17,"name":"Denpasar"}]}`))
		case "/destination/district/17":
			_, _ = w.Write([]byte(`{"data":null}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	ctx := context.Background()

	provinces, err := c.Provinces(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"name":"Bali"}]`, string(provinces))

	cities, err := c.Cities(ctx, "1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":17,"name":"Denpasar"}]`, string(cities))

	// A null data field comes back as an empty list, never nil.
	districts, err := c.Districts(ctx, "17")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(districts))
}
