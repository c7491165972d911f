package models

import "errors"

var (
	// Ledger errors
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountNotFound     = errors.New("credit account not found")
	ErrStorage             = errors.New("storage error")

	// Setup errors
	ErrExternalService      = errors.New("external service error")
	ErrSetupAlreadyComplete = errors.New("setup already complete")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
