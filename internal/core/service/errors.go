package service

import "errors"

var (
	ErrEmptyOrder          = errors.New("cart is empty")
	ErrMissingShippingInfo = errors.New("shipping info incomplete")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductUnavailable  = errors.New("product not available")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrAccessDenied        = errors.New("access denied")

	// ErrOrderNotFound covers both a missing order and an order not in
	// the state the requested transition needs. The two cases are
	// deliberately not distinguished to the caller.
	ErrOrderNotFound = errors.New("order not found")
)
