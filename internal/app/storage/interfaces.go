// Package storage defines the persistence interfaces for the data ledger.
//
// Every mutating store method is a single atomic transition: its
// preconditions are checked and its writes applied under the store's own
// serialization (a mutex for the in-memory store, a SQL transaction for
// postgres), so a failed precondition never leaves a partial mutation.
package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/data_ledger/internal/app/domain/datapoint"
	"github.com/R3E-Network/data_ledger/internal/app/domain/treasury"
)

// Sentinel errors shared by all store implementations. Services surface
// these directly; callers branch with errors.Is.
var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyVerified indicates a datapoint was verified before.
	ErrAlreadyVerified = errors.New("datapoint already verified")
	// ErrDuplicateCategory indicates the category name is already cataloged.
	ErrDuplicateCategory = errors.New("category already exists")
	// ErrNoRewards indicates a claim against a zero reward balance.
	ErrNoRewards = errors.New("no rewards to claim")
	// ErrInsufficientTreasury indicates the treasury cannot cover a claim.
	ErrInsufficientTreasury = errors.New("insufficient treasury balance")
)

// DataPointStore persists submissions and their verification state.
type DataPointStore interface {
	// InsertDataPoint assigns the next sequential id (1, 2, 3, ...), stores
	// the record, and appends the id to the contributor's submission list.
	InsertDataPoint(ctx context.Context, dp datapoint.DataPoint) (datapoint.DataPoint, error)

	// GetDataPoint returns the record or ErrNotFound.
	GetDataPoint(ctx context.Context, id int64) (datapoint.DataPoint, error)

	// CountDataPoints returns the total number of submissions.
	CountDataPoints(ctx context.Context) (int64, error)

	// ContributorDataPoints returns the contributor's submission ids in
	// append order. Unknown contributors yield an empty list.
	ContributorDataPoints(ctx context.Context, contributor string) ([]int64, error)

	// MarkVerified flips the record to verified and credits its stored
	// reward to the contributor's balance in the same transition. Returns
	// ErrNotFound for unknown ids and ErrAlreadyVerified on a repeat.
	MarkVerified(ctx context.Context, id int64, verifier string) (datapoint.DataPoint, error)
}

// CategoryStore persists the category catalog. Categories are append-only.
type CategoryStore interface {
	// AddCategory inserts a new category or fails with ErrDuplicateCategory.
	AddCategory(ctx context.Context, name string) error

	// CategoryExists reports whether the category is cataloged.
	CategoryExists(ctx context.Context, name string) (bool, error)

	// ListCategories returns all category names sorted ascending.
	ListCategories(ctx context.Context) ([]string, error)
}

// RewardStore exposes the per-contributor accrued balances. Balances are
// credited only through MarkVerified and zeroed only through BeginClaim.
type RewardStore interface {
	// RewardBalance returns the contributor's accrued, unclaimed balance.
	RewardBalance(ctx context.Context, contributor string) (int64, error)
}

// TreasuryStore persists the funding pool and the claim transitions.
type TreasuryStore interface {
	// FundTreasury credits both the live balance and the nominal pool.
	FundTreasury(ctx context.Context, amount int64) (treasury.Stats, error)

	// TreasuryStats returns the current counters.
	TreasuryStats(ctx context.Context) (treasury.Stats, error)

	// BeginClaim atomically reads the contributor's balance, fails with
	// ErrNoRewards when it is zero or ErrInsufficientTreasury when the
	// treasury cannot cover it, and otherwise zeroes the balance, debits
	// the treasury, and returns the claimed amount. A concurrent second
	// claim for the same contributor observes a zero balance.
	BeginClaim(ctx context.Context, contributor string) (int64, error)

	// RollbackClaim restores the contributor's balance and the treasury
	// after a failed external transfer.
	RollbackClaim(ctx context.Context, contributor string, amount int64) error

	// RecordPayout appends a payout journal record for a settled claim.
	RecordPayout(ctx context.Context, p treasury.Payout) error

	// ListPayouts returns the contributor's payouts, oldest first.
	ListPayouts(ctx context.Context, contributor string) ([]treasury.Payout, error)
}

// LedgerStore aggregates the full persistence surface of the ledger.
type LedgerStore interface {
	DataPointStore
	CategoryStore
	RewardStore
	TreasuryStore
}
