/*
Package ledger provides the append-only record of point movements.

PURPOSE:
  Every balance mutation made by the exchange core - a completion credit
  or a purchase debit - appends exactly one entry here, inside the same
  transaction as the balance write. The ledger is the audit trail that
  lets a balance be re-derived and a payout be traced to its report or
  reward.

APPEND-ONLY CONTRACT:
  Entries are never updated or deleted. The store exposes Append and
  read queries only.

PRECISION:
  Deltas use decimal.Decimal. Point awards are whole numbers today, but
  the ledger keeps exact decimal arithmetic so summing entries never
  drifts from the stored balance.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - One point movement
// =============================================================================

type EntryType string

const (
	EntryCredit EntryType = "credit" // completion award
	EntryDebit  EntryType = "debit"  // reward purchase
)

// Entry records a single point movement for one user.
type Entry struct {
	ID          string
	UID         string
	Type        EntryType
	Delta       decimal.Decimal // positive for credits, negative for debits
	Reason      string
	ReferenceID string // report id for credits, reward id for debits
	CreatedAt   time.Time
}

const entryIDPrefix = "txn-"

// NewCredit builds a credit entry for a completion award.
func NewCredit(uid string, points int, reason, referenceID string) (Entry, error) {
	return newEntry(uid, EntryCredit, decimal.NewFromInt(int64(points)), reason, referenceID)
}

// NewDebit builds a debit entry for a reward purchase.
func NewDebit(uid string, points int, reason, referenceID string) (Entry, error) {
	return newEntry(uid, EntryDebit, decimal.NewFromInt(int64(points)).Neg(), reason, referenceID)
}

func newEntry(uid string, typ EntryType, delta decimal.Decimal, reason, referenceID string) (Entry, error) {
	suffix, err := gonanoid.New(10)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to generate ledger entry id: %w", err)
	}
	return Entry{
		ID:          entryIDPrefix + suffix,
		UID:         uid,
		Type:        typ,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// =============================================================================
// STORE - Read side; appends happen through the exchange store in-tx
// =============================================================================

// Reader exposes ledger queries for audit views.
type Reader interface {
	// EntriesByUser returns a user's entries, oldest first.
	EntriesByUser(ctx context.Context, uid string) ([]Entry, error)
}

// Sum folds entries into a net delta. A user's entries should sum to the
// points the exchange core has moved for them.
func Sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Delta)
	}
	return total
}
