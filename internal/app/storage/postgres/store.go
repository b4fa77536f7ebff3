package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/R3E-Network/data_ledger/internal/app/domain/datapoint"
	"github.com/R3E-Network/data_ledger/internal/app/domain/treasury"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
//
// Every mutating method runs in a single transaction and locks the rows it
// reads (the singleton ledger_state row orders submissions, funding, and
// claims; datapoint and balance rows are locked per entity), matching the
// atomic, serialized semantics of the in-memory store.
type Store struct {
	db *sql.DB
}

var _ storage.LedgerStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// schema holds the bootstrap statements. EnsureSchema is idempotent so a
// fresh database can be provisioned by the server at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_state (
		id               SMALLINT PRIMARY KEY CHECK (id = 1),
		total_datapoints BIGINT NOT NULL DEFAULT 0,
		treasury_balance BIGINT NOT NULL DEFAULT 0,
		nominal_pool     BIGINT NOT NULL DEFAULT 0
	)`,
	`INSERT INTO ledger_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS ledger_datapoints (
		id           BIGINT PRIMARY KEY,
		contributor  TEXT NOT NULL,
		fingerprint  TEXT NOT NULL,
		category     TEXT NOT NULL,
		reward       BIGINT NOT NULL,
		verified     BOOLEAN NOT NULL DEFAULT FALSE,
		submitted_at TIMESTAMPTZ NOT NULL,
		verified_at  TIMESTAMPTZ,
		verified_by  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_datapoints_contributor_idx
		ON ledger_datapoints (contributor, id)`,
	`CREATE TABLE IF NOT EXISTS ledger_balances (
		contributor TEXT PRIMARY KEY,
		balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_categories (
		name TEXT PRIMARY KEY
	)`,
	`INSERT INTO ledger_categories (name)
		VALUES ('research'), ('market_analysis'), ('technical_review')
		ON CONFLICT (name) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS ledger_payouts (
		id          TEXT PRIMARY KEY,
		contributor TEXT NOT NULL,
		amount      BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_payouts_contributor_idx
		ON ledger_payouts (contributor, created_at)`,
}

// EnsureSchema provisions the ledger tables and seed rows.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- DataPointStore ---------------------------------------------------------

func (s *Store) InsertDataPoint(ctx context.Context, dp datapoint.DataPoint) (datapoint.DataPoint, error) {
	if dp.SubmittedAt.IsZero() {
		dp.SubmittedAt = time.Now().UTC()
	}
	dp.Verified = false

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var total int64
		if err := tx.QueryRowContext(ctx, `
			SELECT total_datapoints FROM ledger_state WHERE id = 1 FOR UPDATE
		`).Scan(&total); err != nil {
			return err
		}
		dp.ID = total + 1

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_datapoints (id, contributor, fingerprint, category, reward, verified, submitted_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		`, dp.ID, dp.Contributor, dp.Fingerprint, dp.Category, dp.Reward, dp.SubmittedAt); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE ledger_state SET total_datapoints = $1 WHERE id = 1
		`, dp.ID)
		return err
	})
	if err != nil {
		return datapoint.DataPoint{}, err
	}
	return dp, nil
}

func (s *Store) GetDataPoint(ctx context.Context, id int64) (datapoint.DataPoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, contributor, fingerprint, category, reward, verified, submitted_at, verified_at, verified_by
		FROM ledger_datapoints
		WHERE id = $1
	`, id)

	dp, err := scanDataPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return datapoint.DataPoint{}, storage.ErrNotFound
	}
	return dp, err
}

func (s *Store) CountDataPoints(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT total_datapoints FROM ledger_state WHERE id = 1
	`).Scan(&total)
	return total, err
}

func (s *Store) ContributorDataPoints(ctx context.Context, contributor string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM ledger_datapoints
		WHERE contributor = $1
		ORDER BY id
	`, contributor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) MarkVerified(ctx context.Context, id int64, verifier string) (datapoint.DataPoint, error) {
	var dp datapoint.DataPoint
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, contributor, fingerprint, category, reward, verified, submitted_at, verified_at, verified_by
			FROM ledger_datapoints
			WHERE id = $1
			FOR UPDATE
		`, id)

		var err error
		dp, err = scanDataPoint(row)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		if dp.Verified {
			return storage.ErrAlreadyVerified
		}

		dp.Verified = true
		dp.VerifiedAt = time.Now().UTC()
		dp.VerifiedBy = verifier

		if _, err := tx.ExecContext(ctx, `
			UPDATE ledger_datapoints
			SET verified = TRUE, verified_at = $2, verified_by = $3
			WHERE id = $1
		`, dp.ID, dp.VerifiedAt, dp.VerifiedBy); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_balances (contributor, balance)
			VALUES ($1, $2)
			ON CONFLICT (contributor) DO UPDATE SET balance = ledger_balances.balance + EXCLUDED.balance
		`, dp.Contributor, dp.Reward)
		return err
	})
	if err != nil {
		return datapoint.DataPoint{}, err
	}
	return dp, nil
}

// --- CategoryStore ----------------------------------------------------------

func (s *Store) AddCategory(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_categories (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`, name)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrDuplicateCategory
	}
	return nil
}

func (s *Store) CategoryExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM ledger_categories WHERE name = $1)
	`, name).Scan(&exists)
	return exists, err
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM ledger_categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- RewardStore ------------------------------------------------------------

func (s *Store) RewardBalance(ctx context.Context, contributor string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT balance FROM ledger_balances WHERE contributor = $1
	`, contributor).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// --- TreasuryStore ----------------------------------------------------------

func (s *Store) FundTreasury(ctx context.Context, amount int64) (treasury.Stats, error) {
	var stats treasury.Stats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			UPDATE ledger_state
			SET treasury_balance = treasury_balance + $1, nominal_pool = nominal_pool + $1
			WHERE id = 1
			RETURNING total_datapoints, treasury_balance, nominal_pool
		`, amount).Scan(&stats.TotalDataPoints, &stats.TreasuryBalance, &stats.NominalPool)
	})
	return stats, err
}

func (s *Store) TreasuryStats(ctx context.Context) (treasury.Stats, error) {
	var stats treasury.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT total_datapoints, treasury_balance, nominal_pool FROM ledger_state WHERE id = 1
	`).Scan(&stats.TotalDataPoints, &stats.TreasuryBalance, &stats.NominalPool)
	return stats, err
}

func (s *Store) BeginClaim(ctx context.Context, contributor string) (int64, error) {
	var amount int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT balance FROM ledger_balances WHERE contributor = $1 FOR UPDATE
		`, contributor).Scan(&amount)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && amount == 0) {
			return storage.ErrNoRewards
		}
		if err != nil {
			return err
		}

		var treasuryBalance int64
		if err := tx.QueryRowContext(ctx, `
			SELECT treasury_balance FROM ledger_state WHERE id = 1 FOR UPDATE
		`).Scan(&treasuryBalance); err != nil {
			return err
		}
		if treasuryBalance < amount {
			return storage.ErrInsufficientTreasury
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE ledger_balances SET balance = 0 WHERE contributor = $1
		`, contributor); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE ledger_state SET treasury_balance = treasury_balance - $1 WHERE id = 1
		`, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *Store) RollbackClaim(ctx context.Context, contributor string, amount int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_balances (contributor, balance)
			VALUES ($1, $2)
			ON CONFLICT (contributor) DO UPDATE SET balance = ledger_balances.balance + EXCLUDED.balance
		`, contributor, amount); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE ledger_state SET treasury_balance = treasury_balance + $1 WHERE id = 1
		`, amount)
		return err
	})
}

func (s *Store) RecordPayout(ctx context.Context, p treasury.Payout) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_payouts (id, contributor, amount, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Contributor, p.Amount, p.CreatedAt)
	return err
}

func (s *Store) ListPayouts(ctx context.Context, contributor string) ([]treasury.Payout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contributor, amount, created_at
		FROM ledger_payouts
		WHERE contributor = $1
		ORDER BY created_at
	`, contributor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]treasury.Payout, 0)
	for rows.Next() {
		var p treasury.Payout
		if err := rows.Scan(&p.ID, &p.Contributor, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// --- Helpers ----------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataPoint(row rowScanner) (datapoint.DataPoint, error) {
	var (
		dp         datapoint.DataPoint
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&dp.ID, &dp.Contributor, &dp.Fingerprint, &dp.Category, &dp.Reward,
		&dp.Verified, &dp.SubmittedAt, &verifiedAt, &dp.VerifiedBy); err != nil {
		return datapoint.DataPoint{}, err
	}
	if verifiedAt.Valid {
		dp.VerifiedAt = verifiedAt.Time
	}
	return dp, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
