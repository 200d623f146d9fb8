// Package memory provides an in-memory lostfound.TxStore for testing.
//
// WithTx serializes through a single mutex and rolls back by restoring a
// snapshot, mirroring the atomicity the sqlite store gets from real
// transactions.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/findback/lostfound-engine/ledger"
	"github.com/findback/lostfound-engine/lostfound"
)

type grantKey struct {
	UID      string
	RewardID string
}

// Store holds all state in maps. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	reports map[string]*lostfound.ItemReport
	users   map[string]*lostfound.User
	rewards map[string]*lostfound.Reward
	grants  map[grantKey]*lostfound.RewardGrant
	entries []ledger.Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{
		reports: make(map[string]*lostfound.ItemReport),
		users:   make(map[string]*lostfound.User),
		rewards: make(map[string]*lostfound.Reward),
		grants:  make(map[grantKey]*lostfound.RewardGrant),
	}
}

// =============================================================================
// SEEDING HELPERS (tests only)
// =============================================================================

// PutReport stores a report.
func (m *Store) PutReport(r *lostfound.ItemReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = cloneReport(r)
}

// PutUser stores a user.
func (m *Store) PutUser(u *lostfound.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.UID] = &cp
}

// PutReward stores a reward.
func (m *Store) PutReward(r *lostfound.Reward) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rewards[r.ID] = &cp
}

// Entries returns a copy of all ledger entries in append order.
func (m *Store) Entries() []ledger.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx runs fn under the store mutex. On error the pre-transaction
// snapshot is restored, so partial writes are never observable.
func (m *Store) WithTx(_ context.Context, fn func(lostfound.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&view{s: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	reports map[string]*lostfound.ItemReport
	users   map[string]*lostfound.User
	rewards map[string]*lostfound.Reward
	grants  map[grantKey]*lostfound.RewardGrant
	entries []ledger.Entry
}

func (m *Store) snapshot() snapshotState {
	snap := snapshotState{
		reports: make(map[string]*lostfound.ItemReport, len(m.reports)),
		users:   make(map[string]*lostfound.User, len(m.users)),
		rewards: make(map[string]*lostfound.Reward, len(m.rewards)),
		grants:  make(map[grantKey]*lostfound.RewardGrant, len(m.grants)),
		entries: make([]ledger.Entry, len(m.entries)),
	}
	for id, r := range m.reports {
		snap.reports[id] = cloneReport(r)
	}
	for uid, u := range m.users {
		cp := *u
		snap.users[uid] = &cp
	}
	for id, r := range m.rewards {
		cp := *r
		snap.rewards[id] = &cp
	}
	for k, g := range m.grants {
		snap.grants[k] = cloneGrant(g)
	}
	copy(snap.entries, m.entries)
	return snap
}

func (m *Store) restore(snap snapshotState) {
	m.reports = snap.reports
	m.users = snap.users
	m.rewards = snap.rewards
	m.grants = snap.grants
	m.entries = snap.entries
}

// view implements lostfound.Store against the already-locked store.
type view struct {
	s *Store
}

func (v *view) GetReport(_ context.Context, id string) (*lostfound.ItemReport, error) {
	r, ok := v.s.reports[id]
	if !ok {
		return nil, nil
	}
	return cloneReport(r), nil
}

func (v *view) UpdateConfirmation(_ context.Context, r *lostfound.ItemReport) error {
	stored, ok := v.s.reports[r.ID]
	if !ok {
		return lostfound.ErrReportNotFound
	}
	stored.CounterpartID = r.CounterpartID
	stored.ReporterConfirmed = r.ReporterConfirmed
	stored.CounterpartConfirmed = r.CounterpartConfirmed
	return nil
}

func (v *view) ClaimCompletion(_ context.Context, id string) (bool, error) {
	stored, ok := v.s.reports[id]
	if !ok || stored.Completed {
		return false, nil
	}
	stored.Completed = true
	return true, nil
}

func (v *view) DeleteReport(_ context.Context, id string) error {
	delete(v.s.reports, id)
	return nil
}

func (v *view) GetUser(_ context.Context, uid string) (*lostfound.User, error) {
	u, ok := v.s.users[uid]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (v *view) CreditPoints(_ context.Context, uid string, points int) (int, error) {
	u, ok := v.s.users[uid]
	if !ok {
		return 0, lostfound.ErrUserNotFound
	}
	u.Points += points
	return u.Points, nil
}

func (v *view) DebitPoints(_ context.Context, uid string, points int) (int, error) {
	u, ok := v.s.users[uid]
	if !ok {
		return 0, lostfound.ErrUserNotFound
	}
	if u.Points < points {
		return 0, &lostfound.InsufficientBalanceError{UID: uid, Available: u.Points, Price: points}
	}
	u.Points -= points
	return u.Points, nil
}

func (v *view) GetRewardForUpdate(_ context.Context, id string) (*lostfound.Reward, error) {
	r, ok := v.s.rewards[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (v *view) DecrementStock(_ context.Context, rewardID string) error {
	r, ok := v.s.rewards[rewardID]
	if !ok || r.Stock <= 0 {
		return lostfound.ErrOutOfStock
	}
	r.Stock--
	return nil
}

func (v *view) GetGrant(_ context.Context, uid, rewardID string) (*lostfound.RewardGrant, error) {
	g, ok := v.s.grants[grantKey{UID: uid, RewardID: rewardID}]
	if !ok {
		return nil, nil
	}
	return cloneGrant(g), nil
}

func (v *view) SaveGrant(_ context.Context, g *lostfound.RewardGrant) error {
	cp := cloneGrant(g)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()
	v.s.grants[grantKey{UID: g.UID, RewardID: g.RewardID}] = cp
	return nil
}

func (v *view) AppendEntry(_ context.Context, e ledger.Entry) error {
	v.s.entries = append(v.s.entries, e)
	return nil
}

// =============================================================================
// DIRECT STORE (single operations lock individually)
// =============================================================================

func (m *Store) GetReport(ctx context.Context, id string) (*lostfound.ItemReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).GetReport(ctx, id)
}

func (m *Store) UpdateConfirmation(ctx context.Context, r *lostfound.ItemReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).UpdateConfirmation(ctx, r)
}

func (m *Store) ClaimCompletion(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).ClaimCompletion(ctx, id)
}

func (m *Store) DeleteReport(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).DeleteReport(ctx, id)
}

func (m *Store) GetUser(ctx context.Context, uid string) (*lostfound.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).GetUser(ctx, uid)
}

func (m *Store) CreditPoints(ctx context.Context, uid string, points int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).CreditPoints(ctx, uid, points)
}

func (m *Store) DebitPoints(ctx context.Context, uid string, points int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).DebitPoints(ctx, uid, points)
}

func (m *Store) GetRewardForUpdate(ctx context.Context, id string) (*lostfound.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).GetRewardForUpdate(ctx, id)
}

func (m *Store) DecrementStock(ctx context.Context, rewardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).DecrementStock(ctx, rewardID)
}

func (m *Store) GetGrant(ctx context.Context, uid, rewardID string) (*lostfound.RewardGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).GetGrant(ctx, uid, rewardID)
}

func (m *Store) SaveGrant(ctx context.Context, g *lostfound.RewardGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).SaveGrant(ctx, g)
}

func (m *Store) AppendEntry(ctx context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&view{s: m}).AppendEntry(ctx, e)
}

// =============================================================================
// CLONE HELPERS
// =============================================================================

func cloneReport(r *lostfound.ItemReport) *lostfound.ItemReport {
	cp := *r
	return &cp
}

func cloneGrant(g *lostfound.RewardGrant) *lostfound.RewardGrant {
	cp := *g
	cp.Codes = append([]string(nil), g.Codes...)
	return &cp
}
