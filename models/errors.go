package models

import "errors"

// Error taxonomy for the realtime core. Handlers map these to the error
// wire event; nothing in this package crashes a connection.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not allowed")
)
