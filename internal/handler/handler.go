// Package handler exposes the HTTP surface: catalog reads, checkout,
// shipping quotes and destination lookups, the payment-gateway webhook, and
// the role-gated order administration endpoints.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raditya/toko-backend/internal/domain/auth"
	"github.com/raditya/toko-backend/internal/domain/order"
	"github.com/raditya/toko-backend/internal/domain/product"
)

// CheckoutService runs the checkout pipeline.
type CheckoutService interface {
	Checkout(ctx context.Context, req order.CheckoutRequest) (*order.CheckoutResult, error)
	UpdateStatus(ctx context.Context, req order.UpdateStatusRequest) (*order.Order, error)
	Dashboard(ctx context.Context) (*order.Aggregates, []order.AdminOrder, error)
	OrdersOf(ctx context.Context, userID string) ([]order.UserOrder, error)
}

// WebhookReconciler applies gateway delivery notifications.
type WebhookReconciler interface {
	Apply(ctx context.Context, n order.Notification) error
}

// ShippingGateway quotes shipping costs and proxies destination lookups.
type ShippingGateway interface {
	Quote(ctx context.Context, destinationID string, weight int, courier string) (*order.Quote, error)
	Provinces(ctx context.Context) (json.RawMessage, error)
	Cities(ctx context.Context, provinceID string) (json.RawMessage, error)
	Districts(ctx context.Context, cityID string) (json.RawMessage, error)
}

// SignatureVerifier checks payment-gateway webhook signatures.
type SignatureVerifier interface {
	ValidSignature(orderID, statusCode, grossAmount, signature string) bool
}

// Config holds non-dependency handler configuration.
type Config struct {
	// VerifyWebhookSignature rejects webhook deliveries whose signature key
	// does not match. The gateway documents the scheme but the storefront
	// can run without it for local testing.
	VerifyWebhookSignature bool
}

// Handler carries the dependencies of every route.
type Handler struct {
	cfg        Config
	orders     CheckoutService
	reconciler WebhookReconciler
	shipping   ShippingGateway
	signatures SignatureVerifier
	products   product.Repository
	sessions   auth.Repository
}

// NewHandler constructs a Handler with the required collaborators.
func NewHandler(
	cfg Config,
	orders CheckoutService,
	reconciler WebhookReconciler,
	shipping ShippingGateway,
	signatures SignatureVerifier,
	products product.Repository,
	sessions auth.Repository,
) *Handler {
	return &Handler{
		cfg:        cfg,
		orders:     orders,
		reconciler: reconciler,
		shipping:   shipping,
		signatures: signatures,
		products:   products,
		sessions:   sessions,
	}
}

// Routes mounts every endpoint under /products, matching the storefront's
// route layout.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)

		r.Get("/shipping/provinces", h.provinces)
		r.Get("/shipping/cities/{id}", h.cities)
		r.Get("/shipping/districts/{id}", h.districts)
		r.Post("/shipping/cost", h.shippingCost)

		r.Post("/midtrans-webhook", h.webhook)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/orders", h.checkout)
			r.Get("/orders/my-orders", h.myOrders)
			r.Patch("/order-status/{id}", h.updateOrderStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth, h.requireAdmin)
			r.Get("/stats", h.stats)
		})

		// Parameterized catalog route goes last so the fixed prefixes above
		// keep matching first.
		r.Get("/{id}", h.getProduct)
	})

	return r
}
