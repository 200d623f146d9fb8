package rewards_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findback/lostfound-engine/ledger"
	"github.com/findback/lostfound-engine/lostfound"
	"github.com/findback/lostfound-engine/rewards"
	"github.com/findback/lostfound-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*rewards.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	return rewards.NewEngine(store, nil), store
}

func coffeeVoucher(id string, stock, price int) *lostfound.Reward {
	return &lostfound.Reward{
		ID:         id,
		Name:       "Coffee Voucher",
		Stock:      stock,
		Price:      price,
		Expiration: time.Now().UTC().AddDate(0, 3, 0),
		CreatedAt:  time.Now().UTC(),
	}
}

// =============================================================================
// PURCHASE TESTS
// =============================================================================

func TestPurchase_ExactBalance_Succeeds(t *testing.T) {
	// GIVEN: A user with exactly the price and a reward with one unit left
	// WHEN: They purchase
	// THEN: Balance hits zero, stock hits zero, and one code is issued

	engine, store := newTestEngine(t)
	store.PutReward(coffeeVoucher("rew-1", 1, 20))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 20})

	ctx := context.Background()
	receipt, err := engine.Purchase(ctx, "u-1", "rew-1")
	require.NoError(t, err)

	assert.Equal(t, "Coffee Voucher", receipt.RewardName)
	assert.Equal(t, 0, receipt.Balance)
	assert.True(t, strings.HasPrefix(receipt.Code, "finvouc-"), "code %q", receipt.Code)
	require.Len(t, receipt.Grant.Codes, 1)
	assert.Equal(t, receipt.Code, receipt.Grant.Codes[0])

	u, _ := store.GetUser(ctx, "u-1")
	assert.Equal(t, 0, u.Points)
	rw, _ := store.GetRewardForUpdate(ctx, "rew-1")
	assert.Equal(t, 0, rw.Stock)
}

func TestPurchase_InsufficientBalance_NoEffect(t *testing.T) {
	// GIVEN: A user with fewer points than the price
	// WHEN: They purchase
	// THEN: A typed balance error, and neither balance nor stock moves

	engine, store := newTestEngine(t)
	store.PutReward(coffeeVoucher("rew-1", 1, 20))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 10})

	ctx := context.Background()
	_, err := engine.Purchase(ctx, "u-1", "rew-1")

	var balErr *lostfound.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, "u-1", balErr.UID)
	assert.Equal(t, 10, balErr.Available)
	assert.Equal(t, 20, balErr.Price)
	assert.True(t, lostfound.IsClientError(err))

	u, _ := store.GetUser(ctx, "u-1")
	assert.Equal(t, 10, u.Points)
	rw, _ := store.GetRewardForUpdate(ctx, "rew-1")
	assert.Equal(t, 1, rw.Stock)

	grant, _ := store.GetGrant(ctx, "u-1", "rew-1")
	assert.Nil(t, grant, "no codes issued on a failed purchase")
}

func TestPurchase_OutOfStock(t *testing.T) {
	// GIVEN: A reward with zero stock
	// WHEN: A rich user purchases
	// THEN: ErrOutOfStock, balance untouched

	engine, store := newTestEngine(t)
	store.PutReward(coffeeVoucher("rew-1", 0, 20))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 100})

	ctx := context.Background()
	_, err := engine.Purchase(ctx, "u-1", "rew-1")
	assert.ErrorIs(t, err, lostfound.ErrOutOfStock)

	u, _ := store.GetUser(ctx, "u-1")
	assert.Equal(t, 100, u.Points)
}

func TestPurchase_UnknownRewardOrUser(t *testing.T) {
	engine, store := newTestEngine(t)
	store.PutReward(coffeeVoucher("rew-1", 1, 20))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 100})

	ctx := context.Background()
	_, err := engine.Purchase(ctx, "u-1", "rew-missing")
	assert.ErrorIs(t, err, lostfound.ErrRewardNotFound)

	_, err = engine.Purchase(ctx, "u-missing", "rew-1")
	assert.ErrorIs(t, err, lostfound.ErrUserNotFound)
}

func TestPurchase_LastUnit_OneOfTwoRacersWins(t *testing.T) {
	// GIVEN: One unit in stock and two buyers who can both afford it
	// WHEN: They purchase concurrently
	// THEN: Exactly one succeeds; the loser's balance is untouched

	engine, store := newTestEngine(t)
	store.PutReward(coffeeVoucher("rew-1", 1, 20))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 50})
	store.PutUser(&lostfound.User{UID: "u-2", Points: 50})

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []string{"u-1", "u-2"} {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			_, errs[i] = engine.Purchase(ctx, uid, "rew-1")
		}(i, uid)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, lostfound.ErrOutOfStock)
		}
	}
	assert.Equal(t, 1, succeeded)

	rw, _ := store.GetRewardForUpdate(ctx, "rew-1")
	assert.Equal(t, 0, rw.Stock, "stock never goes negative")

	u1, _ := store.GetUser(ctx, "u-1")
	u2, _ := store.GetUser(ctx, "u-2")
	assert.Equal(t, 80, u1.Points+u2.Points, "only the winner paid")
}

// =============================================================================
// GRANT ACCUMULATION TESTS
// =============================================================================

func TestPurchase_SameReward_AccumulatesCodes(t *testing.T) {
	// GIVEN: A user buying the same reward three times
	// WHEN: Each purchase succeeds
	// THEN: One grant row holds three distinct codes

	engine, store := newTestEngine(t)
	store.PutReward(coffeeVoucher("rew-1", 10, 20))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 60})

	ctx := context.Background()
	var firstGrantID string
	for i := 0; i < 3; i++ {
		receipt, err := engine.Purchase(ctx, "u-1", "rew-1")
		require.NoError(t, err, "purchase %d", i+1)
		if i == 0 {
			firstGrantID = receipt.Grant.ID
		}
		assert.Equal(t, firstGrantID, receipt.Grant.ID, "same grant row across purchases")
		assert.Len(t, receipt.Grant.Codes, i+1)
	}

	grant, err := store.GetGrant(ctx, "u-1", "rew-1")
	require.NoError(t, err)
	require.NotNil(t, grant)
	require.Len(t, grant.Codes, 3)

	unique := map[string]bool{}
	for _, code := range grant.Codes {
		unique[code] = true
	}
	assert.Len(t, unique, 3, "every purchase issues a fresh code")

	u, _ := store.GetUser(ctx, "u-1")
	assert.Equal(t, 0, u.Points)
}

func TestPurchase_InjectedCodeGenerator(t *testing.T) {
	// GIVEN: A deterministic code generator
	// WHEN: Purchasing twice
	// THEN: The injected codes come back in order

	store := memory.New()
	n := 0
	engine := rewards.NewEngine(store, nil).WithCodeGenerator(func() (string, error) {
		n++
		return fmt.Sprintf("finvouc-test%04d", n), nil
	})

	store.PutReward(coffeeVoucher("rew-1", 5, 10))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 20})

	ctx := context.Background()
	r1, err := engine.Purchase(ctx, "u-1", "rew-1")
	require.NoError(t, err)
	r2, err := engine.Purchase(ctx, "u-1", "rew-1")
	require.NoError(t, err)

	assert.Equal(t, "finvouc-test0001", r1.Code)
	assert.Equal(t, "finvouc-test0002", r2.Code)
}

// =============================================================================
// LEDGER TESTS
// =============================================================================

func TestPurchase_AppendsDebitEntry(t *testing.T) {
	// GIVEN: A successful purchase
	// WHEN: Inspecting the ledger
	// THEN: One debit entry references the reward with a negative delta

	engine, store := newTestEngine(t)
	store.PutReward(coffeeVoucher("rew-1", 1, 20))
	store.PutUser(&lostfound.User{UID: "u-1", Points: 20})

	_, err := engine.Purchase(context.Background(), "u-1", "rew-1")
	require.NoError(t, err)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.EntryDebit, entries[0].Type)
	assert.Equal(t, "u-1", entries[0].UID)
	assert.Equal(t, "rew-1", entries[0].ReferenceID)
	assert.True(t, entries[0].Delta.Equal(decimal.NewFromInt(-20)))
}
