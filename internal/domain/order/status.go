package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Status is the closed set of order states.
type Status string

// Order lifecycle states. Orders start pending; cancelled and completed are
// terminal.
const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Actor identifies who is requesting a status transition.
type Actor int

const (
	// ActorWebhook is the payment gateway's asynchronous notification path.
	ActorWebhook Actor = iota
	// ActorCustomer is the order's owning user. Ownership itself is checked
	// by the caller; Transition only enforces which states the role may set.
	ActorCustomer
	// ActorAdmin is an administrator performing a manual correction. Admin
	// transitions bypass the table entirely; callers must log the override.
	ActorAdmin
)

// ErrStaleStatus is returned by compare-and-swap status writes when the
// stored status no longer matches the expected one.
var ErrStaleStatus = errors.New("order status changed concurrently")

// TransitionError indicates a requested transition is not permitted for the
// acting party.
type TransitionError struct {
	From      Status
	To        Status
	Forbidden bool // true when the actor may never request To at all
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s not allowed", e.From, e.To)
}

// Transition is the single authority over status changes. Every writer, the
// synchronous API and the webhook alike, must go through it rather than
// writing the status column directly.
//
// It returns the state the order should end up in. When the result equals
// current the transition is a no-op and no write should be issued; this is
// what makes replayed webhook deliveries idempotent.
func Transition(current, requested Status, actor Actor) (Status, error) {
	switch actor {
	case ActorAdmin:
		// Manual correction: any state to any state.
		return requested, nil

	case ActorCustomer:
		// Customers may only ever confirm receipt.
		if requested != StatusCompleted {
			return current, &TransitionError{From: current, To: requested, Forbidden: true}
		}
		return StatusCompleted, nil

	case ActorWebhook:
		// Replay of an already-applied notification.
		if requested == current {
			return current, nil
		}
		// Gateway outcomes only ever settle a pending order.
		if current == StatusPending {
			switch requested {
			case StatusPaid, StatusCancelled, StatusPending:
				return requested, nil
			}
		}
		return current, &TransitionError{From: current, To: requested}
	}

	return current, &TransitionError{From: current, To: requested, Forbidden: true}
}
