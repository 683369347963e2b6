package services

import "errors"

var (
	// ErrOrderNotFound is returned when an order id does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrMenuItemNotFound is returned when a referenced menu item id does not exist.
	ErrMenuItemNotFound = errors.New("menu item not found")
)

// ValidationError reports malformed or logically inconsistent input.
// It is always raised before any write happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IntegrityError wraps a storage-level constraint violation raised
// during a write, e.g. a line item referencing a vanished menu item.
// The surrounding transaction has already been rolled back.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string {
	return "integrity error: " + e.Err.Error()
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
