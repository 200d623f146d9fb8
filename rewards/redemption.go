/*
Package rewards provides the reward redemption engine.

PURPOSE:
  Executes a voucher purchase as one atomic unit so concurrent buyers
  never oversell stock or double-spend points.

PURCHASE SEQUENCE (single transaction):
  1. Read the reward under the transaction's exclusive protection
  2. Read the buyer's balance
  3. Validate stock and balance
  4. Debit points, decrement stock (both guarded by conditional writes)
  5. Generate a redemption code
  6. Append the code to the buyer's grant, creating it on first purchase
  7. Append a debit ledger entry
  Any failure aborts the whole transaction: no partial debit, no partial
  stock decrement, no orphan code.

SEE ALSO:
  - lostfound/store.go: The store contract, including the guards
  - lostfound/errors.go: The shared error taxonomy
*/
package rewards

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/findback/lostfound-engine/ledger"
	"github.com/findback/lostfound-engine/lostfound"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine executes reward purchases.
type Engine struct {
	store   lostfound.TxStore
	log     *logrus.Logger
	newCode func() (string, error)
}

// NewEngine creates a redemption engine over the given store.
func NewEngine(store lostfound.TxStore, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{store: store, log: log, newCode: lostfound.NewRedemptionCode}
}

// WithCodeGenerator overrides redemption-code generation, for tests.
func (e *Engine) WithCodeGenerator(fn func() (string, error)) *Engine {
	e.newCode = fn
	return e
}

// Receipt is returned to the caller after a successful purchase.
type Receipt struct {
	Grant      *lostfound.RewardGrant
	RewardName string
	Code       string // the code issued by this purchase
	Balance    int    // buyer's balance after the debit
}

// =============================================================================
// PURCHASE
// =============================================================================

// Purchase atomically validates and executes one voucher purchase.
//
// Errors: ErrRewardNotFound, ErrUserNotFound, ErrOutOfStock, or an
// InsufficientBalanceError; storage failures abort with no effect.
func (e *Engine) Purchase(ctx context.Context, userID, rewardID string) (*Receipt, error) {
	var receipt *Receipt

	err := e.store.WithTx(ctx, func(s lostfound.Store) error {
		reward, err := s.GetRewardForUpdate(ctx, rewardID)
		if err != nil {
			return &lostfound.StorageError{Op: "get reward", Err: err}
		}
		if reward == nil {
			return lostfound.ErrRewardNotFound
		}
		if reward.Stock <= 0 {
			return lostfound.ErrOutOfStock
		}

		user, err := s.GetUser(ctx, userID)
		if err != nil {
			return &lostfound.StorageError{Op: "get user", Err: err}
		}
		if user == nil {
			return lostfound.ErrUserNotFound
		}
		if user.Points < reward.Price {
			return &lostfound.InsufficientBalanceError{
				UID:       userID,
				Available: user.Points,
				Price:     reward.Price,
			}
		}

		balance, err := s.DebitPoints(ctx, userID, reward.Price)
		if err != nil {
			return err
		}
		if err := s.DecrementStock(ctx, rewardID); err != nil {
			return err
		}

		code, err := e.newCode()
		if err != nil {
			return err
		}

		grant, err := s.GetGrant(ctx, userID, rewardID)
		if err != nil {
			return &lostfound.StorageError{Op: "get grant", Err: err}
		}
		if grant == nil {
			id, err := lostfound.NewGrantID()
			if err != nil {
				return err
			}
			grant = &lostfound.RewardGrant{
				ID:       id,
				UID:      userID,
				RewardID: rewardID,
				Codes:    []string{code},
			}
		} else {
			grant.Codes = append(grant.Codes, code)
		}
		if err := s.SaveGrant(ctx, grant); err != nil {
			return &lostfound.StorageError{Op: "save grant", Err: err}
		}

		entry, err := ledger.NewDebit(userID, reward.Price, "reward purchased", rewardID)
		if err != nil {
			return err
		}
		if err := s.AppendEntry(ctx, entry); err != nil {
			return &lostfound.StorageError{Op: "append ledger entry", Err: err}
		}

		receipt = &Receipt{
			Grant:      grant,
			RewardName: reward.Name,
			Code:       code,
			Balance:    balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"reward_id": rewardID,
		"balance":   receipt.Balance,
	}).Info("reward purchased")
	return receipt, nil
}
