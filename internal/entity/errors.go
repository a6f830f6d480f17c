package domain

import "errors"

var (
	ErrCartEmpty          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderNotFound      = errors.New("order not found")

	// ErrInvalidTransition is reserved for tightening the state machine; the
	// current design accepts out-of-order manual transitions as plain writes.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStockConsistency means a deduction would have driven stock negative.
	// It aborts the whole transition and is never retried silently.
	ErrStockConsistency = errors.New("stock consistency violation")

	ErrInvalidQuantity = errors.New("quantity must be positive")
)
