/*
errors.go - Centralized error types for the exchange engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The rewards package and the api layer map these to their own surfaces.

ERROR CATEGORIES:
  1. Not-found errors - Referenced report/user/reward/grant absent
  2. Business-rule errors - Completed reports, empty stock, short balances
  3. Storage errors - Transaction could not commit

USAGE:
  Callers branch with errors.Is:

    if errors.Is(err, lostfound.ErrAlreadyCompleted) {
        // re-confirmation of a terminal report
    }

SEE ALSO:
  - completion.go: Returns the report errors
  - rewards/redemption.go: Returns the purchase errors
  - api/handlers.go: Maps kinds to HTTP status codes
*/
package lostfound

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrReportNotFound is returned when a referenced report doesn't exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrRewardNotFound is returned when a referenced reward doesn't exist.
	ErrRewardNotFound = errors.New("reward not found")

	// ErrAlreadyCompleted is returned on any attempt to confirm or delete a
	// report that has already reached its terminal state. Re-confirmation is
	// rejected rather than silently ignored to signal caller misuse.
	ErrAlreadyCompleted = errors.New("report already completed")

	// ErrNotParticipant is returned when the acting user is neither the
	// reporter nor the counterpart of a report that already has both sides.
	ErrNotParticipant = errors.New("user is not a participant in this exchange")

	// ErrNotOwner is returned when a non-owner attempts to delete a report.
	ErrNotOwner = errors.New("only the reporting user may delete a report")

	// ErrOutOfStock is returned when a purchase finds no stock remaining.
	ErrOutOfStock = errors.New("reward is out of stock")

	// ErrInsufficientBalance is returned when a purchase exceeds the
	// buyer's point balance.
	ErrInsufficientBalance = errors.New("insufficient point balance")

	// ErrStorage is returned when the underlying transaction could not
	// commit. Nothing is partially applied; retrying is the caller's call.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how short the buyer's balance is.
type InsufficientBalanceError struct {
	UID       string
	Available int
	Price     int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient point balance: user %s has %d, reward costs %d",
		e.UID, e.Available, e.Price)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// StorageError wraps an underlying database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorage
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReportNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRewardNotFound)
}

// IsClientError returns true if the error is a business-rule violation
// rather than an infrastructure failure. Retrying these is meaningless.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientBalance)
}
