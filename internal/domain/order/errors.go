package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout validation. They map to 400 at the HTTP layer.
var (
	ErrEmptyItems         = errors.New("items required")
	ErrMissingDestination = errors.New("destination and courier required")
	ErrMissingUser        = errors.New("user required")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// UpstreamError wraps a failure of an external collaborator (shipping-rate
// provider or payment gateway). It surfaces as 500 to the client while the
// provider detail stays in the log.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
