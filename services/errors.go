package services

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by every ledger operation. Callers match with
// errors.Is; handlers translate them into HTTP status codes.
var (
	ErrNotFound      = errors.New("not found")
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrPrizeNotFound = fmt.Errorf("prize %w", ErrNotFound)

	ErrAlreadyExists        = errors.New("account already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidAmount        = errors.New("amount must be a non-negative integer")
	ErrInsufficientBalance  = errors.New("insufficient spendable points")
	ErrOutOfStock           = errors.New("prize out of stock")
	ErrClassificationFailed = errors.New("classification failed")

	// ErrInconsistentState means points were debited but the matching stock
	// decrement could not be applied or undone. The account needs manual
	// reconciliation.
	ErrInconsistentState = errors.New("inconsistent ledger state")
)
