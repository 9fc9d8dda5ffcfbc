package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock is returned by DecrementStock when the remaining
// stock is lower than the requested quantity. The stock is left unchanged.
var ErrInsufficientStock = errors.New("insufficient stock")

// Product represents a catalog item available for purchase. The checkout
// pipeline only reads Price and mutates Stock; everything else belongs to
// the catalog.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURLs   []string
	CreatedAt   time.Time
}

// Repository defines catalog reads plus the single stock mutation the
// checkout pipeline needs.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)

	// DecrementStock atomically subtracts quantity from the product's stock.
	// The update only applies when stock >= quantity; otherwise it returns
	// ErrInsufficientStock and the row is untouched. Implementations must
	// perform this as a single conditional statement, not read-then-write.
	DecrementStock(ctx context.Context, id string, quantity int) error
}
