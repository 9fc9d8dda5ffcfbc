package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/raditya/toko-backend/internal/domain/product"
)

// defaultItemWeight is assumed (in grams) for cart items that do not carry
// an explicit weight.
const defaultItemWeight = 1000

// maxItemNameLen is the longest product name the payment gateway accepts
// per item line.
const maxItemNameLen = 50

// Quote is an authoritative shipping cost for one courier service.
type Quote struct {
	Cost        decimal.Decimal
	CourierName string
	Service     string
}

// RateQuoter obtains a shipping quote from the external rate provider.
// Implementations fail fast: no result or transport failure yields an
// *UpstreamError and no retry.
type RateQuoter interface {
	Quote(ctx context.Context, destinationID string, weight int, courier string) (*Quote, error)
}

// PaymentLine is one declared item line of a payment-gateway transaction.
type PaymentLine struct {
	ID       string
	Price    decimal.Decimal
	Quantity int
	Name     string
}

// IssueRequest describes the gateway transaction to create. GrossAmount
// always equals the sum of Lines (price * quantity); gateways reject
// declarations where the two disagree.
type IssueRequest struct {
	OrderID         string
	GrossAmount     decimal.Decimal
	ShippingAddress string
	Lines           []PaymentLine
}

// PaymentIssuer creates a gateway transaction and returns the client-facing
// payment token.
type PaymentIssuer interface {
	IssueToken(ctx context.Context, req IssueRequest) (string, error)
}

// CartItem is a client-submitted cart line.
type CartItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Weight    int // grams; 0 means unspecified
}

// CheckoutRequest is the input of the checkout pipeline.
type CheckoutRequest struct {
	UserID          string
	Items           []CartItem
	DestinationID   string
	Courier         string
	ShippingAddress string
}

// CheckoutResult is returned to the caller on success.
type CheckoutResult struct {
	OrderID string
	Token   string
}

// Service runs the checkout pipeline: authoritative shipping quote, price
// recomputation, transactional persistence, stock reservation, and payment
// intent issuance.
type Service struct {
	orders   Repository
	stock    product.Repository
	rates    RateQuoter
	payments PaymentIssuer
}

// NewService creates the checkout service with its collaborators.
func NewService(orders Repository, stock product.Repository, rates RateQuoter, payments PaymentIssuer) *Service {
	return &Service{
		orders:   orders,
		stock:    stock,
		rates:    rates,
		payments: payments,
	}
}

// Checkout turns a cart into a persisted pending order with a payment token.
//
// Steps run sequentially; a shipping or validation failure aborts before
// anything is written. A failed stock decrement is logged and the checkout
// continues (oversell is tolerated here, see DESIGN.md). A gateway failure
// after the order row exists leaves a pending order without a token, which
// the caller must treat as an abandoned checkout.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.UserID == "" {
		return nil, ErrMissingUser
	}
	if req.DestinationID == "" || req.Courier == "" {
		return nil, ErrMissingDestination
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	// Authoritative shipping cost, recomputed server-side from the cart
	// weight. No order exists yet, so any failure here has no side effects.
	quote, err := s.rates.Quote(ctx, req.DestinationID, totalWeight(req.Items), req.Courier)
	if err != nil {
		return nil, errors.Wrap(err, "shipping quote")
	}

	// Subtotal comes from the client-submitted prices. This mirrors the
	// storefront contract but is a known tamper vector; the authoritative
	// fix is to load unit prices from the catalog by id.
	subtotal := decimal.Zero
	for _, item := range req.Items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	finalAmount := subtotal.Add(quote.Cost)

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		TotalAmount:     finalAmount,
		ShippingCost:    quote.Cost,
		DestinationID:   req.DestinationID,
		Courier:         quote.CourierName + " - " + quote.Service,
		ShippingAddress: req.ShippingAddress,
		Status:          StatusPending,
		Lines:           buildLines(req.Items),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Reserve stock per line. Failures are independent and do not abort the
	// checkout; they are surfaced through the log for reconciliation.
	lg := zctx.From(ctx)
	for _, item := range req.Items {
		if err := s.stock.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			lg.Warn("stock decrement failed",
				zap.String("order_id", o.ID),
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
	}

	lines, gross := paymentLines(req.Items, quote.Cost)
	token, err := s.payments.IssueToken(ctx, IssueRequest{
		OrderID:         o.ID,
		GrossAmount:     gross,
		ShippingAddress: req.ShippingAddress,
		Lines:           lines,
	})
	if err != nil {
		return nil, errors.Wrap(err, "issue payment token")
	}

	if err := s.orders.AttachToken(ctx, o.ID, token); err != nil {
		return nil, errors.Wrap(err, "attach token")
	}

	return &CheckoutResult{OrderID: o.ID, Token: token}, nil
}

// totalWeight sums the shipment weight, defaulting each item to
// defaultItemWeight grams when the cart did not specify one.
func totalWeight(items []CartItem) int {
	total := 0
	for _, item := range items {
		w := item.Weight
		if w == 0 {
			w = defaultItemWeight
		}
		total += w * item.Quantity
	}
	return total
}

func buildLines(items []CartItem) []Line {
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = Line{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.Price,
		}
	}
	return lines
}

// paymentLines builds the gateway item declaration: one line per cart item
// plus a synthetic shipping-fee line. Unit prices are rounded to whole
// currency units and the gross amount is the sum of the declared lines, so
// the gateway's gross-equals-sum validation always holds.
func paymentLines(items []CartItem, shippingCost decimal.Decimal) ([]PaymentLine, decimal.Decimal) {
	lines := make([]PaymentLine, 0, len(items)+1)
	gross := decimal.Zero
	for _, item := range items {
		price := item.Price.Round(0)
		lines = append(lines, PaymentLine{
			ID:       item.ProductID,
			Price:    price,
			Quantity: item.Quantity,
			Name:     itemName(item.Name),
		})
		gross = gross.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	shipping := shippingCost.Round(0)
	lines = append(lines, PaymentLine{
		ID:       "shipping-fee",
		Price:    shipping,
		Quantity: 1,
		Name:     "Shipping Fee",
	})
	gross = gross.Add(shipping)

	return lines, gross
}

// itemName falls back to a generic name and truncates to the gateway's
// 50-character line-name limit.
func itemName(name string) string {
	if name == "" {
		name = "Product"
	}
	runes := []rune(name)
	if len(runes) > maxItemNameLen {
		return string(runes[:maxItemNameLen])
	}
	return name
}
