package service

import (
	"errors"
	"fmt"
)

// Errors returned by the fulfillment and import services. All of these carry
// actionable meaning for the operator and are surfaced unchanged; anything
// else is an infrastructure fault.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrItemNotFound  = errors.New("order item not found")

	ErrAlreadyPicked   = errors.New("item is already picked")
	ErrAlreadyRouted   = errors.New("item is already routed to purchasing")
	ErrEmptySubstitute = errors.New("substitute description is required")

	// ErrOrderClosed is returned when a finalize/cancel hits an order that is
	// no longer IN_PROGRESS.
	ErrOrderClosed = errors.New("order is no longer in progress")

	// ErrStateChanged is the rare fallback when a conditional write loses a
	// race but the fresh state would still accept the transition (e.g. a
	// concurrent unroute). The caller simply retries.
	ErrStateChanged = errors.New("item state changed, please retry")

	ErrEmptyItems            = errors.New("at least one item is required")
	ErrEmptyQuoteRef         = errors.New("quote_ref is required")
	ErrEmptyProductRef       = errors.New("product_ref is required")
	ErrInvalidQuantity       = errors.New("quantity must be > 0")
	ErrInvalidStatusFilter   = errors.New("invalid status filter")
	ErrInvalidShipping       = errors.New("invalid shipping_method")
	ErrInvalidPackaging      = errors.New("invalid packaging_method")
	ErrIncompatiblePackaging = errors.New("packaging method is not compatible with shipping method")
	ErrInvalidUnitPrice      = errors.New("invalid unit_price")
	ErrQuoteRefTaken         = errors.New("an order with this quote_ref already exists")
)

// IncompleteOrderError reports a finalize attempt on a partially picked
// order, carrying the progress observed at the moment of the check.
type IncompleteOrderError struct {
	Progress int
}

func (e *IncompleteOrderError) Error() string {
	return fmt.Sprintf("order is only %d%% picked, cannot finalize", e.Progress)
}
