package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the persisted order header. Amounts are fixed at creation:
// TotalAmount == sum(line.PriceAtPurchase * line.Quantity) + ShippingCost
// and is never recomputed afterwards.
type Order struct {
	ID              string
	UserID          string
	TotalAmount     decimal.Decimal
	ShippingCost    decimal.Decimal
	DestinationID   string
	Courier         string
	ShippingAddress string
	Status          Status
	SnapToken       *string
	TrackingNumber  *string
	Lines           []Line
	CreatedAt       time.Time
}

// Line is a single product-quantity-price tuple within an order. Lines are
// written once, atomically with the order header, and never mutated.
type Line struct {
	OrderID         string
	ProductID       string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// UserOrder is the customer-facing view of an order with its line items and
// a snapshot of the purchased products.
type UserOrder struct {
	ID             string
	CreatedAt      time.Time
	Status         Status
	TotalAmount    decimal.Decimal
	SnapToken      *string
	TrackingNumber *string
	Items          []UserOrderItem
}

// UserOrderItem is one line of a UserOrder with the product snapshot the
// storefront renders.
type UserOrderItem struct {
	ID              int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
	Product         ProductSnapshot
}

// ProductSnapshot carries the catalog fields embedded in order listings.
type ProductSnapshot struct {
	Name      string
	ImageURLs []string
}

// Aggregates summarises all orders for the admin dashboard. Revenue counts
// orders that have been paid, including those already completed.
type Aggregates struct {
	TotalOrders   int
	TotalRevenue  decimal.Decimal
	PendingOrders int
}

// AdminOrder is the admin listing view of an order.
type AdminOrder struct {
	ID             string
	UserID         string
	UserFullName   string
	TotalAmount    decimal.Decimal
	Status         Status
	TrackingNumber *string
	CreatedAt      time.Time
}

// NotFoundError indicates the referenced order does not exist.
type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

// Repository is the sole reader and writer of order state.
type Repository interface {
	// Create persists the order header and all of its lines in one
	// transaction. Either everything is written or nothing is.
	Create(ctx context.Context, o *Order) error

	// AttachToken stores the payment-gateway token on an existing order.
	AttachToken(ctx context.Context, orderID, token string) error

	// GetByID loads an order header (without lines).
	GetByID(ctx context.Context, orderID string) (*Order, error)

	// UpdateStatusFrom transitions the status with a compare-and-swap: the
	// write only applies while the stored status still equals from. It
	// returns ErrStaleStatus when another writer got there first.
	UpdateStatusFrom(ctx context.Context, orderID string, from, to Status) error

	// SetStatus overwrites the status unconditionally and optionally
	// attaches a tracking number. Reserved for administrative correction.
	SetStatus(ctx context.Context, orderID string, to Status, trackingNumber *string) error

	// ListByUser returns the user's orders, newest first, with nested line
	// items and product snapshots. Returns an empty slice, never nil.
	ListByUser(ctx context.Context, userID string) ([]UserOrder, error)

	// ListAll returns every order for the admin dashboard, newest first.
	ListAll(ctx context.Context) ([]AdminOrder, error)

	// Aggregate computes the dashboard summary in a single query.
	Aggregate(ctx context.Context) (*Aggregates, error)
}
