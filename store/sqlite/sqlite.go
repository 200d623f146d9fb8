/*
Package sqlite provides the SQLite-backed Ledger Store.

PURPOSE:
  Implements lostfound.TxStore plus the CRUD surface the API layer needs
  (users, reports, rewards, grants, point ledger). In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  reports:       Found/lost item submissions with confirmation flags
  users:         Point balances
  rewards:       Voucher stock and pricing
  reward_grants: Per (uid, reward) accumulation of redemption codes
  point_ledger:  Append-only record of every balance movement

LOCKING DISCIPLINE:
  WithTx holds the store's write mutex for the whole transaction, so
  conflicting writers (two confirmations of one report, two purchases of
  one reward) serialize rather than interleave. The guarded fields are
  additionally protected by conditional single-row UPDATEs:
    - completion_status flips only WHERE completion_status = 0
    - points debit applies only WHERE points >= amount
    - stock decrement applies only WHERE stock > 0
  With PostgreSQL the mutex would be replaced by SELECT ... FOR UPDATE;
  the conditional UPDATEs stay.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/findback.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - lostfound/store.go: Interface definitions and the locking contract
  - store/memory: In-memory implementation for engine tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/findback/lostfound-engine/geo"
	"github.com/findback/lostfound-engine/ledger"
	"github.com/findback/lostfound-engine/lostfound"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite allows one writer at a time anyway, and
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users (balances only; identity lives with the auth collaborator)
	CREATE TABLE IF NOT EXISTS users (
		uid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
		created_at TEXT NOT NULL
	);

	-- Reports (both variants; id prefix encodes the variant)
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		variant TEXT NOT NULL,
		reporter_uid TEXT NOT NULL REFERENCES users(uid),
		item_name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		reported_on TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		location_detail TEXT,
		counterpart_uid TEXT,
		reporter_confirmed INTEGER NOT NULL DEFAULT 0,
		counterpart_confirmed INTEGER NOT NULL DEFAULT 0,
		completion_status INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_reporter
		ON reports(reporter_uid);
	CREATE INDEX IF NOT EXISTS idx_reports_variant_category
		ON reports(variant, category);
	CREATE INDEX IF NOT EXISTS idx_reports_completion
		ON reports(completion_status);

	-- Rewards (finite voucher stock)
	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		stock INTEGER NOT NULL CHECK (stock >= 0),
		price INTEGER NOT NULL CHECK (price >= 0),
		expiration TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Reward grants (one row per user x reward; codes are append-only)
	CREATE TABLE IF NOT EXISTS reward_grants (
		id TEXT PRIMARY KEY,
		uid TEXT NOT NULL REFERENCES users(uid),
		reward_id TEXT NOT NULL REFERENCES rewards(id),
		codes_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(uid, reward_id)
	);

	CREATE INDEX IF NOT EXISTS idx_grants_uid
		ON reward_grants(uid);

	-- Point ledger (append-only; no UPDATE or DELETE ever)
	CREATE TABLE IF NOT EXISTS point_ledger (
		id TEXT PRIMARY KEY,
		uid TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		delta TEXT NOT NULL,
		reason TEXT,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_uid
		ON point_ledger(uid, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (lostfound.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The store's
// write mutex is held for the duration, serializing conflicting writers.
func (s *Store) WithTx(ctx context.Context, fn func(store lostfound.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs each Store operation against the open transaction.
// No locking here: WithTx already holds the write mutex.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetReport(ctx context.Context, id string) (*lostfound.ItemReport, error) {
	return getReport(ctx, ts.tx, id)
}

func (ts *txStore) UpdateConfirmation(ctx context.Context, r *lostfound.ItemReport) error {
	return updateConfirmation(ctx, ts.tx, r)
}

func (ts *txStore) ClaimCompletion(ctx context.Context, id string) (bool, error) {
	return claimCompletion(ctx, ts.tx, id)
}

func (ts *txStore) DeleteReport(ctx context.Context, id string) error {
	return deleteReport(ctx, ts.tx, id)
}

func (ts *txStore) GetUser(ctx context.Context, uid string) (*lostfound.User, error) {
	return getUser(ctx, ts.tx, uid)
}

func (ts *txStore) CreditPoints(ctx context.Context, uid string, points int) (int, error) {
	return creditPoints(ctx, ts.tx, uid, points)
}

func (ts *txStore) DebitPoints(ctx context.Context, uid string, points int) (int, error) {
	return debitPoints(ctx, ts.tx, uid, points)
}

func (ts *txStore) GetRewardForUpdate(ctx context.Context, id string) (*lostfound.Reward, error) {
	// Exclusivity comes from WithTx holding the write mutex; with
	// PostgreSQL this would be SELECT ... FOR UPDATE.
	return getReward(ctx, ts.tx, id)
}

func (ts *txStore) DecrementStock(ctx context.Context, rewardID string) error {
	return decrementStock(ctx, ts.tx, rewardID)
}

func (ts *txStore) GetGrant(ctx context.Context, uid, rewardID string) (*lostfound.RewardGrant, error) {
	return getGrant(ctx, ts.tx, uid, rewardID)
}

func (ts *txStore) SaveGrant(ctx context.Context, g *lostfound.RewardGrant) error {
	return saveGrant(ctx, ts.tx, g)
}

func (ts *txStore) AppendEntry(ctx context.Context, e ledger.Entry) error {
	return appendEntry(ctx, ts.tx, e)
}

// =============================================================================
// DIRECT STORE (lostfound.Store outside a transaction)
// =============================================================================

func (s *Store) GetReport(ctx context.Context, id string) (*lostfound.ItemReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getReport(ctx, s.db, id)
}

func (s *Store) UpdateConfirmation(ctx context.Context, r *lostfound.ItemReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateConfirmation(ctx, s.db, r)
}

func (s *Store) ClaimCompletion(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return claimCompletion(ctx, s.db, id)
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteReport(ctx, s.db, id)
}

func (s *Store) GetUser(ctx context.Context, uid string) (*lostfound.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, uid)
}

func (s *Store) CreditPoints(ctx context.Context, uid string, points int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return creditPoints(ctx, s.db, uid, points)
}

func (s *Store) DebitPoints(ctx context.Context, uid string, points int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return debitPoints(ctx, s.db, uid, points)
}

func (s *Store) GetRewardForUpdate(ctx context.Context, id string) (*lostfound.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getReward(ctx, s.db, id)
}

func (s *Store) DecrementStock(ctx context.Context, rewardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decrementStock(ctx, s.db, rewardID)
}

func (s *Store) GetGrant(ctx context.Context, uid, rewardID string) (*lostfound.RewardGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGrant(ctx, s.db, uid, rewardID)
}

func (s *Store) SaveGrant(ctx context.Context, g *lostfound.RewardGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveGrant(ctx, s.db, g)
}

func (s *Store) AppendEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

// =============================================================================
// REPORT ROWS
// =============================================================================

const reportColumns = `id, variant, reporter_uid, item_name, description, category,
	reported_on, latitude, longitude, location_detail, counterpart_uid,
	reporter_confirmed, counterpart_confirmed, completion_status, created_at`

// SaveReport inserts a new report.
func (s *Store) SaveReport(ctx context.Context, r *lostfound.ItemReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO reports
		(` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Variant,
		r.ReporterID,
		r.ItemName,
		r.Description,
		r.Category,
		r.ReportedOn.Format("2006-01-02"),
		r.Latitude,
		r.Longitude,
		r.LocationDetail,
		nullString(r.CounterpartID),
		r.ReporterConfirmed,
		r.CounterpartConfirmed,
		r.Completed,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// ReportFilter narrows report searches.
type ReportFilter struct {
	Variant  lostfound.Variant
	Category string
	Query    string // substring match on item name
	Near     *RadiusFilter
}

// RadiusFilter keeps reports within RadiusKm of a point.
type RadiusFilter struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// SearchReports returns reports matching the filter, newest first.
// Radius filtering runs through the provided distance function; pass
// geo.Haversine unless a different collaborator is wired in.
func (s *Store) SearchReports(ctx context.Context, f ReportFilter, dist geo.DistanceFunc) ([]*lostfound.ItemReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		conds []string
		args  []any
	)
	if f.Variant != "" {
		conds = append(conds, "variant = ?")
		args = append(args, f.Variant)
	}
	if f.Category != "" {
		conds = append(conds, "LOWER(category) = LOWER(?)")
		args = append(args, f.Category)
	}
	if f.Query != "" {
		conds = append(conds, "item_name LIKE ?")
		args = append(args, "%"+f.Query+"%")
	}

	query := "SELECT " + reportColumns + " FROM reports"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*lostfound.ItemReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		if f.Near != nil && dist != nil {
			if dist(f.Near.Lat, f.Near.Lon, r.Latitude, r.Longitude) > f.Near.RadiusKm {
				continue
			}
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func getReport(ctx context.Context, db dbtx, id string) (*lostfound.ItemReport, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ?", id)

	r, err := scanReportFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func updateConfirmation(ctx context.Context, db dbtx, r *lostfound.ItemReport) error {
	_, err := db.ExecContext(ctx, `
		UPDATE reports
		SET counterpart_uid = ?, reporter_confirmed = ?, counterpart_confirmed = ?
		WHERE id = ?`,
		nullString(r.CounterpartID), r.ReporterConfirmed, r.CounterpartConfirmed, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update confirmation: %w", err)
	}
	return nil
}

// claimCompletion flips completion_status false->true. The WHERE clause
// makes the flip a single-row claim: a racing transaction that lost sees
// zero rows affected.
func claimCompletion(ctx context.Context, db dbtx, id string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE reports SET completion_status = 1
		WHERE id = ? AND completion_status = 0`, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func deleteReport(ctx context.Context, db dbtx, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(rows *sql.Rows) (*lostfound.ItemReport, error) {
	return scanReportFrom(rows)
}

func scanReportFrom(sc rowScanner) (*lostfound.ItemReport, error) {
	var (
		r              lostfound.ItemReport
		description    sql.NullString
		reportedOn     string
		locationDetail sql.NullString
		counterpart    sql.NullString
		createdAt      string
	)

	err := sc.Scan(
		&r.ID, &r.Variant, &r.ReporterID, &r.ItemName, &description, &r.Category,
		&reportedOn, &r.Latitude, &r.Longitude, &locationDetail, &counterpart,
		&r.ReporterConfirmed, &r.CounterpartConfirmed, &r.Completed, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	r.Description = description.String
	r.LocationDetail = locationDetail.String
	r.CounterpartID = counterpart.String
	r.ReportedOn, _ = time.Parse("2006-01-02", reportedOn)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// =============================================================================
// USER ROWS
// =============================================================================

// SaveUser inserts or updates a user record. Points are only set on
// first insert; balance changes go through Credit/DebitPoints.
func (s *Store) SaveUser(ctx context.Context, u *lostfound.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (uid, name, email, points, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = excluded.name,
			email = excluded.email
	`

	_, err := s.db.ExecContext(ctx, query,
		u.UID, u.Name, u.Email, u.Points,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*lostfound.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT uid, name, email, points FROM users ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*lostfound.User
	for rows.Next() {
		var u lostfound.User
		var email sql.NullString
		if err := rows.Scan(&u.UID, &u.Name, &email, &u.Points); err != nil {
			return nil, err
		}
		u.Email = email.String
		users = append(users, &u)
	}
	return users, rows.Err()
}

func getUser(ctx context.Context, db dbtx, uid string) (*lostfound.User, error) {
	var u lostfound.User
	var email sql.NullString

	err := db.QueryRowContext(ctx,
		"SELECT uid, name, email, points FROM users WHERE uid = ?", uid,
	).Scan(&u.UID, &u.Name, &email, &u.Points)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

func creditPoints(ctx context.Context, db dbtx, uid string, points int) (int, error) {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET points = points + ? WHERE uid = ?", points, uid)
	if err != nil {
		return 0, fmt.Errorf("failed to credit points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, lostfound.ErrUserNotFound
	}
	return currentBalance(ctx, db, uid)
}

// debitPoints applies the debit only when the balance covers it, so a
// stale balance read can never drive the row negative.
func debitPoints(ctx context.Context, db dbtx, uid string, points int) (int, error) {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET points = points - ? WHERE uid = ? AND points >= ?",
		points, uid, points)
	if err != nil {
		return 0, fmt.Errorf("failed to debit points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		u, err := getUser(ctx, db, uid)
		if err != nil {
			return 0, err
		}
		if u == nil {
			return 0, lostfound.ErrUserNotFound
		}
		return 0, &lostfound.InsufficientBalanceError{UID: uid, Available: u.Points, Price: points}
	}
	return currentBalance(ctx, db, uid)
}

func currentBalance(ctx context.Context, db dbtx, uid string) (int, error) {
	var balance int
	err := db.QueryRowContext(ctx,
		"SELECT points FROM users WHERE uid = ?", uid).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// =============================================================================
// REWARD ROWS
// =============================================================================

// SaveReward inserts or updates a reward.
func (s *Store) SaveReward(ctx context.Context, r *lostfound.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rewards (id, name, description, stock, price, expiration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			stock = excluded.stock,
			price = excluded.price,
			expiration = excluded.expiration
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Description, r.Stock, r.Price,
		r.Expiration.Format("2006-01-02"),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetReward returns a reward outside any transaction, for read-only
// display paths.
func (s *Store) GetReward(ctx context.Context, id string) (*lostfound.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getReward(ctx, s.db, id)
}

// ListRewards returns all rewards ordered by name.
func (s *Store) ListRewards(ctx context.Context) ([]*lostfound.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, stock, price, expiration, created_at
		FROM rewards ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []*lostfound.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

func getReward(ctx context.Context, db dbtx, id string) (*lostfound.Reward, error) {
	var (
		r          lostfound.Reward
		desc       sql.NullString
		expiration string
		createdAt  string
	)

	err := db.QueryRowContext(ctx, `
		SELECT id, name, description, stock, price, expiration, created_at
		FROM rewards WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &desc, &r.Stock, &r.Price, &expiration, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Description = desc.String
	r.Expiration, _ = time.Parse("2006-01-02", expiration)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

func scanReward(rows *sql.Rows) (*lostfound.Reward, error) {
	var (
		r          lostfound.Reward
		desc       sql.NullString
		expiration string
		createdAt  string
	)
	if err := rows.Scan(&r.ID, &r.Name, &desc, &r.Stock, &r.Price, &expiration, &createdAt); err != nil {
		return nil, err
	}
	r.Description = desc.String
	r.Expiration, _ = time.Parse("2006-01-02", expiration)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

func decrementStock(ctx context.Context, db dbtx, rewardID string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE rewards SET stock = stock - 1 WHERE id = ? AND stock > 0", rewardID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return lostfound.ErrOutOfStock
	}
	return nil
}

// =============================================================================
// GRANT ROWS
// =============================================================================

// GrantsByUser returns all grants a user holds.
func (s *Store) GrantsByUser(ctx context.Context, uid string) ([]*lostfound.RewardGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uid, reward_id, codes_json, created_at, updated_at
		FROM reward_grants WHERE uid = ? ORDER BY created_at ASC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*lostfound.RewardGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func getGrant(ctx context.Context, db dbtx, uid, rewardID string) (*lostfound.RewardGrant, error) {
	var (
		g         lostfound.RewardGrant
		codesJSON string
		createdAt string
		updatedAt string
	)

	err := db.QueryRowContext(ctx, `
		SELECT id, uid, reward_id, codes_json, created_at, updated_at
		FROM reward_grants WHERE uid = ? AND reward_id = ?`, uid, rewardID,
	).Scan(&g.ID, &g.UID, &g.RewardID, &codesJSON, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(codesJSON), &g.Codes); err != nil {
		return nil, fmt.Errorf("failed to decode grant codes: %w", err)
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &g, nil
}

func saveGrant(ctx context.Context, db dbtx, g *lostfound.RewardGrant) error {
	codesJSON, err := json.Marshal(g.Codes)
	if err != nil {
		return fmt.Errorf("failed to encode grant codes: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO reward_grants (id, uid, reward_id, codes_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid, reward_id) DO UPDATE SET
			codes_json = excluded.codes_json,
			updated_at = excluded.updated_at
	`

	_, err = db.ExecContext(ctx, query, g.ID, g.UID, g.RewardID, string(codesJSON), now, now)
	if err != nil {
		return fmt.Errorf("failed to save grant: %w", err)
	}
	return nil
}

func scanGrant(rows *sql.Rows) (*lostfound.RewardGrant, error) {
	var (
		g         lostfound.RewardGrant
		codesJSON string
		createdAt string
		updatedAt string
	)
	if err := rows.Scan(&g.ID, &g.UID, &g.RewardID, &codesJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(codesJSON), &g.Codes); err != nil {
		return nil, fmt.Errorf("failed to decode grant codes: %w", err)
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &g, nil
}

// =============================================================================
// LEDGER ROWS (append-only)
// =============================================================================

func appendEntry(ctx context.Context, db dbtx, e ledger.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO point_ledger (id, uid, entry_type, delta, reason, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UID, e.Type, e.Delta.String(), e.Reason, e.ReferenceID,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// EntriesByUser returns a user's point movements, oldest first.
func (s *Store) EntriesByUser(ctx context.Context, uid string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uid, entry_type, delta, reason, reference_id, created_at
		FROM point_ledger WHERE uid = ?
		ORDER BY created_at ASC, id ASC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e         ledger.Entry
			delta     string
			reason    sql.NullString
			reference sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UID, &e.Type, &delta, &reason, &reference, &createdAt); err != nil {
			return nil, err
		}
		e.Delta = parseDecimal(delta)
		e.Reason = reason.String
		e.ReferenceID = reference.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"point_ledger", "reward_grants", "rewards", "reports", "users"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: str, Valid: true}
}

func parseDecimal(str string) decimal.Decimal {
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero
	}
	return d
}
