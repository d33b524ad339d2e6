package domain

import "errors"

// Validation errors are returned synchronously and leave state untouched.
var (
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrMissingProductID = errors.New("product id is required")
	ErrInvalidInput     = errors.New("invalid input")
)

// Gateway and capability errors.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrGatewayUnavailable = errors.New("catalog gateway unavailable")
)
