package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Notification is a parsed payment-gateway callback. Deliveries can arrive
// out of order, more than once, or for orders this store never created.
type Notification struct {
	OrderID           string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
	SignatureKey      string
}

// MapStatus translates the gateway's transaction and fraud statuses into an
// internal order status. The second return is false when the combination
// carries no state change for us (e.g. fraud challenge, refund statuses).
func MapStatus(transactionStatus, fraudStatus string) (Status, bool) {
	switch transactionStatus {
	case "capture", "settlement":
		if fraudStatus == "" || fraudStatus == "accept" {
			return StatusPaid, true
		}
		return "", false
	case "cancel", "deny", "expire":
		return StatusCancelled, true
	case "pending":
		return StatusPending, true
	}
	return "", false
}

// Reconciler applies gateway notifications to order state. All writes go
// through the transition table, which makes replayed deliveries no-ops.
type Reconciler struct {
	orders Repository
}

// NewReconciler creates a Reconciler over the order repository.
func NewReconciler(orders Repository) *Reconciler {
	return &Reconciler{orders: orders}
}

// Apply reconciles one notification. It returns an error only for store
// failures; unknown orders, unmapped statuses, and rejected transitions are
// logged and swallowed so the caller can always acknowledge the delivery
// (the gateway retries aggressively on non-success responses).
func (r *Reconciler) Apply(ctx context.Context, n Notification) error {
	lg := zctx.From(ctx).With(
		zap.String("order_id", n.OrderID),
		zap.String("transaction_status", n.TransactionStatus),
	)

	mapped, ok := MapStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		lg.Info("notification carries no status change")
		return nil
	}

	o, err := r.orders.GetByID(ctx, n.OrderID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			lg.Warn("notification for unknown order")
			return nil
		}
		return errors.Wrap(err, "load order")
	}

	next, err := Transition(o.Status, mapped, ActorWebhook)
	if err != nil {
		// The order already left pending through another path. The delivery
		// is stale, not an error.
		lg.Info("transition rejected", zap.String("current", string(o.Status)))
		return nil
	}
	if next == o.Status {
		lg.Info("notification already applied")
		return nil
	}

	if err := r.orders.UpdateStatusFrom(ctx, o.ID, o.Status, next); err != nil {
		if errors.Is(err, ErrStaleStatus) {
			// Lost the race against a concurrent writer; the winning write
			// already moved the order, so this delivery is done.
			lg.Info("concurrent status change, delivery dropped")
			return nil
		}
		return errors.Wrap(err, "update status")
	}

	lg.Info("order reconciled", zap.String("status", string(next)))
	return nil
}
