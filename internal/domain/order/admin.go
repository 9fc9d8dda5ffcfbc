package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AuthorizationError indicates the caller may not perform the requested
// status change. It maps to 403 at the HTTP layer.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return e.Reason
}

// UpdateStatusRequest is a manual status-change request from the API.
type UpdateStatusRequest struct {
	OrderID        string
	Status         Status
	TrackingNumber *string

	// UserID identifies the caller; Admin marks the administrator role.
	UserID string
	Admin  bool
}

// UpdateStatus applies a user- or admin-initiated status change through the
// transition table. Customers may only complete their own orders. Admins may
// set any status and attach a tracking number; the override goes through the
// explicit admin branch of Transition and is logged.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Order, error) {
	if !req.Status.Valid() {
		return nil, &AuthorizationError{Reason: "unknown status " + string(req.Status)}
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if req.Admin {
		next, err := Transition(o.Status, req.Status, ActorAdmin)
		if err != nil {
			return nil, err
		}
		zctx.From(ctx).Info("admin status override",
			zap.String("order_id", o.ID),
			zap.String("from", string(o.Status)),
			zap.String("to", string(next)),
		)
		if err := s.orders.SetStatus(ctx, o.ID, next, req.TrackingNumber); err != nil {
			return nil, errors.Wrap(err, "set status")
		}
		o.Status = next
		if req.TrackingNumber != nil {
			o.TrackingNumber = req.TrackingNumber
		}
		return o, nil
	}

	// Non-admin path: only completion, only on the caller's own order.
	if req.Status != StatusCompleted {
		return nil, &AuthorizationError{Reason: "only order completion is allowed"}
	}
	if o.UserID != req.UserID {
		return nil, &AuthorizationError{Reason: "not your order"}
	}

	next, err := Transition(o.Status, req.Status, ActorCustomer)
	if err != nil {
		return nil, err
	}
	if next == o.Status {
		return o, nil
	}

	if err := s.orders.UpdateStatusFrom(ctx, o.ID, o.Status, next); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	o.Status = next
	return o, nil
}

// Dashboard loads the admin summary and the full order listing. The two
// queries are independent and run concurrently.
func (s *Service) Dashboard(ctx context.Context) (*Aggregates, []AdminOrder, error) {
	var (
		agg    *Aggregates
		orders []AdminOrder
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.orders.Aggregate(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.orders.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "load dashboard")
	}

	if orders == nil {
		orders = []AdminOrder{}
	}
	return agg, orders, nil
}

// OrdersOf returns the caller's order history.
func (s *Service) OrdersOf(ctx context.Context, userID string) ([]UserOrder, error) {
	return s.orders.ListByUser(ctx, userID)
}
