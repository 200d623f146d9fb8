/*
completion.go - The two-party completion state machine

PURPOSE:
  Finalizes a matched report once both parties confirm, crediting the
  finder with points exactly once.

STATE MACHINE:
  OPEN (no confirmations) -> PARTIAL (one side) -> COMPLETE (both sides,
  points credited, terminal). No transition removes a confirmation flag.
  An open or partial report may instead be deleted by its reporter; that
  is the only other terminal path.

EXACTLY-ONCE CREDIT:
  The flip to COMPLETE happens through a conditional claim inside the
  same transaction as the balance credit. Two racing confirmations of
  the same report serialize through the store; the loser observes the
  claim failing and surfaces ErrAlreadyCompleted. Across the lifetime of
  a report there is exactly one credit and one flag flip.

SEE ALSO:
  - points.go: Award calculation
  - store.go: The locking contract this engine relies on
*/
package lostfound

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/findback/lostfound-engine/ledger"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine coordinates confirmations and completion payouts.
type Engine struct {
	store TxStore
	calc  *Calculator
	log   *logrus.Logger
}

// NewEngine creates a completion engine over the given store.
func NewEngine(store TxStore, calc *Calculator, log *logrus.Logger) *Engine {
	if calc == nil {
		calc = NewCalculator()
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{store: store, calc: calc, log: log}
}

// ConfirmResult is what a confirmation call returns: the updated report
// plus, when the call completed the exchange, the payout details.
type ConfirmResult struct {
	Report *ItemReport
	Status Status

	// Set only when this call completed the exchange.
	Completed       bool
	PointsAwarded   int
	ResolverID      string
	ResolverBalance int
}

// =============================================================================
// CONFIRM SIDE
// =============================================================================

// ConfirmSide marks the acting user's side of the exchange as finished.
// The first non-owner to confirm a report with no counterpart becomes the
// counterpart. When both flags are true after the update, the report is
// finalized: the finder is credited a category-based award, the
// completion flag flips, and a ledger entry is appended, all in one
// transaction.
//
// Confirming an already-completed report returns ErrAlreadyCompleted.
func (e *Engine) ConfirmSide(ctx context.Context, reportID, actingUserID string) (*ConfirmResult, error) {
	var result *ConfirmResult

	err := e.store.WithTx(ctx, func(s Store) error {
		report, err := s.GetReport(ctx, reportID)
		if err != nil {
			return &StorageError{Op: "get report", Err: err}
		}
		if report == nil {
			return ErrReportNotFound
		}
		if report.Completed {
			return ErrAlreadyCompleted
		}

		switch {
		case actingUserID == report.ReporterID:
			report.ReporterConfirmed = true
		case report.CounterpartID == "":
			// First non-owner to act becomes the counterpart.
			report.CounterpartID = actingUserID
			report.CounterpartConfirmed = true
		case actingUserID == report.CounterpartID:
			report.CounterpartConfirmed = true
		default:
			return ErrNotParticipant
		}

		if err := s.UpdateConfirmation(ctx, report); err != nil {
			return &StorageError{Op: "update confirmation", Err: err}
		}

		if !report.BothConfirmed() {
			result = &ConfirmResult{Report: report, Status: report.Status()}
			return nil
		}

		// Both sides confirmed: claim the terminal flip first so a racing
		// confirmation cannot also pay out.
		claimed, err := s.ClaimCompletion(ctx, report.ID)
		if err != nil {
			return &StorageError{Op: "claim completion", Err: err}
		}
		if !claimed {
			return ErrAlreadyCompleted
		}

		award := e.calc.Award(report.Category)
		resolver := report.Resolver()

		balance, err := s.CreditPoints(ctx, resolver, award)
		if err != nil {
			return err
		}

		entry, err := ledger.NewCredit(resolver, award, "item exchange completed", report.ID)
		if err != nil {
			return err
		}
		if err := s.AppendEntry(ctx, entry); err != nil {
			return &StorageError{Op: "append ledger entry", Err: err}
		}

		report.Completed = true
		result = &ConfirmResult{
			Report:          report,
			Status:          StatusComplete,
			Completed:       true,
			PointsAwarded:   award,
			ResolverID:      resolver,
			ResolverBalance: balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Completed {
		e.log.WithFields(logrus.Fields{
			"report_id": reportID,
			"resolver":  result.ResolverID,
			"points":    result.PointsAwarded,
		}).Info("exchange completed")
	}
	return result, nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteReport removes an open or partial report. Only the reporting
// user may delete, and never after completion.
func (e *Engine) DeleteReport(ctx context.Context, reportID, actingUserID string) error {
	return e.store.WithTx(ctx, func(s Store) error {
		report, err := s.GetReport(ctx, reportID)
		if err != nil {
			return &StorageError{Op: "get report", Err: err}
		}
		if report == nil {
			return ErrReportNotFound
		}
		if report.Completed {
			return ErrAlreadyCompleted
		}
		if report.ReporterID != actingUserID {
			return ErrNotOwner
		}
		if err := s.DeleteReport(ctx, reportID); err != nil {
			return &StorageError{Op: "delete report", Err: err}
		}
		return nil
	})
}
