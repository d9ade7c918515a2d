package domain

import "errors"

// Error taxonomy shared by services, repositories and handlers.
// Specific context is attached with fmt.Errorf("...: %w", Err...) and
// callers match with errors.Is.
var (
	ErrInvalidTableNumber   = errors.New("invalid table number")
	ErrUnknownCustomization = errors.New("unknown customization")
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrConflict             = errors.New("concurrency conflict")
)
