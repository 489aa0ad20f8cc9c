package order

import "errors"

// Status is the order lifecycle state relevant to payment settlement.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusPaid            Status = "PAID"
	StatusCancelled       Status = "CANCELLED"
	StatusRefunded        Status = "REFUNDED"
)

var (
	// ErrNotFound means the order id does not exist.
	ErrNotFound = errors.New("order: not found")
	// ErrPaymentMismatch means the order is already paid with a different
	// payment id, or the payment id is already bound to another order.
	ErrPaymentMismatch = errors.New("order: payment id mismatch")
	// ErrInvalidTransition means the order is in a terminal state that cannot
	// become paid.
	ErrInvalidTransition = errors.New("order: invalid state transition")
)

// MarkPaidParams identifies the order and the settled payment.
type MarkPaidParams struct {
	OrderID   string
	PaymentID string
	Gateway   string
}

// MarkPaidResult reports whether the transition changed the row. Applied is
// false for the idempotent replay of an identical verification.
type MarkPaidResult struct {
	Applied bool
}

// planTransition decides what MarkPaid should do given the row's current
// state, without touching the database. Keeping the decision pure makes the
// replay and mismatch rules directly testable.
type transition int

const (
	transitionApply transition = iota
	transitionNoop
)

func planTransition(current Status, currentPaymentID string, incomingPaymentID string) (transition, error) {
	switch current {
	case StatusPaid:
		if currentPaymentID == incomingPaymentID {
			return transitionNoop, nil
		}
		return 0, ErrPaymentMismatch
	case StatusCancelled, StatusRefunded:
		return 0, ErrInvalidTransition
	default:
		return transitionApply, nil
	}
}
