package order

import "errors"

// Validation errors: malformed input, surfaced to the caller, never retried.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrMixedVendorCart      = errors.New("cart items belong to more than one vendor")
	ErrMenuItemUnavailable  = errors.New("menu item is unavailable")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
)

// Capacity errors: the caller must pick a different slot.
var (
	ErrSlotFull        = errors.New("slot is full")
	ErrSlotUnavailable = errors.New("slot is unavailable")
	// ErrSlotContended means the admission lock could not be taken within
	// the retry budget. Transient; the caller may simply retry.
	ErrSlotContended = errors.New("slot admission contended, try again")
)

// Lookup and authorization errors.
var (
	ErrNotFound     = errors.New("order not found")
	ErrWrongVendor  = errors.New("order belongs to a different vendor")
	ErrWrongStudent = errors.New("order belongs to a different student")
)

// Redemption errors.
var (
	ErrAlreadyRedeemed = errors.New("order has already been picked up")
	ErrQRMismatch      = errors.New("qr payload does not match any order")
)

// Lifecycle and collaborator errors.
var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrPaymentGateway wraps payment collaborator failures. The order is
	// left pending so payment confirmation can be retried.
	ErrPaymentGateway = errors.New("payment gateway error")
)
