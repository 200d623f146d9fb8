/*
store.go - Persistence interfaces for the exchange core

PURPOSE:
  Defines the interface between the engines and the database. The store
  is the sole owner of persisted state; the engines operate on reports,
  balances, stock, and grants only under its transactional guarantees.

KEY INTERFACES:
  Store:   Reads and writes used inside an engine operation
  TxStore: Store plus WithTx for atomic multi-write operations

LOCKING CONTRACT:
  WithTx must serialize conflicting writers: two concurrent confirmations
  of the same report, or two concurrent purchases of the same reward,
  must not both observe the pre-write state. Implementations back this
  with a single-writer transaction boundary plus conditional single-row
  UPDATE claims (rows-affected checks) on the guarded fields:

    - ClaimCompletion flips completion only WHERE completed = false
    - DebitPoints debits only WHERE points >= amount
    - DecrementStock decrements only WHERE stock > 0

  A failed claim is reported as the matching business-rule error, never
  as a silent no-op.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - store/memory: In-memory store for engine tests

SEE ALSO:
  - completion.go, rewards/redemption.go: The only consumers
*/
package lostfound

import (
	"context"

	"github.com/findback/lostfound-engine/ledger"
)

// =============================================================================
// STORE - Operations available inside one transaction
// =============================================================================

// Store is the Ledger Store collaborator as seen by the engines.
type Store interface {
	// GetReport returns the report, or nil if absent.
	GetReport(ctx context.Context, id string) (*ItemReport, error)

	// UpdateConfirmation persists a report's confirmation flags and
	// counterpart assignment.
	UpdateConfirmation(ctx context.Context, r *ItemReport) error

	// ClaimCompletion flips completion false->true for the report.
	// Returns false without error when the report was already completed,
	// which a racing caller must treat as losing the claim.
	ClaimCompletion(ctx context.Context, id string) (bool, error)

	// DeleteReport removes a report row.
	DeleteReport(ctx context.Context, id string) error

	// GetUser returns the user, or nil if absent.
	GetUser(ctx context.Context, uid string) (*User, error)

	// CreditPoints adds points to a user's balance and returns the new
	// balance. Returns ErrUserNotFound if the user doesn't exist.
	CreditPoints(ctx context.Context, uid string, points int) (int, error)

	// DebitPoints subtracts points from a user's balance and returns the
	// new balance. The debit is conditional on points >= amount; a failed
	// guard returns ErrInsufficientBalance.
	DebitPoints(ctx context.Context, uid string, points int) (int, error)

	// GetRewardForUpdate returns the reward, or nil if absent, read under
	// the transaction's exclusive protection so concurrent purchases of
	// the same reward cannot interleave between read and write.
	GetRewardForUpdate(ctx context.Context, id string) (*Reward, error)

	// DecrementStock decrements reward stock by one, conditional on
	// stock > 0; a failed guard returns ErrOutOfStock.
	DecrementStock(ctx context.Context, rewardID string) error

	// GetGrant returns the grant for (uid, rewardID), or nil if absent.
	GetGrant(ctx context.Context, uid, rewardID string) (*RewardGrant, error)

	// SaveGrant inserts or updates a grant. Codes are append-only; the
	// engine passes the extended slice.
	SaveGrant(ctx context.Context, g *RewardGrant) error

	// AppendEntry appends a point-movement ledger entry.
	AppendEntry(ctx context.Context, e ledger.Entry) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back and every affected row keeps its
	// pre-transaction value; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
