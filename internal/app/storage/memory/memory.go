package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/data_ledger/internal/app/domain/category"
	"github.com/R3E-Network/data_ledger/internal/app/domain/datapoint"
	"github.com/R3E-Network/data_ledger/internal/app/domain/treasury"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
// A single mutex serializes every mutating transition, so each operation
// either fully commits or leaves no trace.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	datapoints  map[int64]datapoint.DataPoint
	submissions map[string][]int64
	balances    map[string]int64
	categories  map[string]struct{}
	treasuryBal int64
	nominalPool int64
	payouts     map[string][]treasury.Payout
}

var _ storage.LedgerStore = (*Store)(nil)

// New creates an empty in-memory store seeded with the default categories.
func New() *Store {
	s := &Store{
		nextID:      1,
		datapoints:  make(map[int64]datapoint.DataPoint),
		submissions: make(map[string][]int64),
		balances:    make(map[string]int64),
		categories:  make(map[string]struct{}),
		payouts:     make(map[string][]treasury.Payout),
	}
	for _, name := range category.Defaults() {
		s.categories[name] = struct{}{}
	}
	return s
}

// DataPointStore implementation --------------------------------------------

func (s *Store) InsertDataPoint(_ context.Context, dp datapoint.DataPoint) (datapoint.DataPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dp.ID = s.nextID
	s.nextID++
	if dp.SubmittedAt.IsZero() {
		dp.SubmittedAt = time.Now().UTC()
	}
	dp.Verified = false

	s.datapoints[dp.ID] = dp
	s.submissions[dp.Contributor] = append(s.submissions[dp.Contributor], dp.ID)
	return dp, nil
}

func (s *Store) GetDataPoint(_ context.Context, id int64) (datapoint.DataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dp, ok := s.datapoints[id]
	if !ok {
		return datapoint.DataPoint{}, storage.ErrNotFound
	}
	return dp, nil
}

func (s *Store) CountDataPoints(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID - 1, nil
}

func (s *Store) ContributorDataPoints(_ context.Context, contributor string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.submissions[contributor]...), nil
}

func (s *Store) MarkVerified(_ context.Context, id int64, verifier string) (datapoint.DataPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dp, ok := s.datapoints[id]
	if !ok {
		return datapoint.DataPoint{}, storage.ErrNotFound
	}
	if dp.Verified {
		return datapoint.DataPoint{}, storage.ErrAlreadyVerified
	}

	dp.Verified = true
	dp.VerifiedAt = time.Now().UTC()
	dp.VerifiedBy = verifier

	s.datapoints[id] = dp
	s.balances[dp.Contributor] += dp.Reward
	return dp, nil
}

// CategoryStore implementation ---------------------------------------------

func (s *Store) AddCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[name]; exists {
		return storage.ErrDuplicateCategory
	}
	s.categories[name] = struct{}{}
	return nil
}

func (s *Store) CategoryExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.categories[name]
	return exists, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.categories))
	for name := range s.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RewardStore implementation -----------------------------------------------

func (s *Store) RewardBalance(_ context.Context, contributor string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[contributor], nil
}

// TreasuryStore implementation ---------------------------------------------

func (s *Store) FundTreasury(_ context.Context, amount int64) (treasury.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.treasuryBal += amount
	s.nominalPool += amount
	return s.statsLocked(), nil
}

func (s *Store) TreasuryStats(_ context.Context) (treasury.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked(), nil
}

func (s *Store) BeginClaim(_ context.Context, contributor string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.balances[contributor]
	if amount == 0 {
		return 0, storage.ErrNoRewards
	}
	if s.treasuryBal < amount {
		return 0, storage.ErrInsufficientTreasury
	}

	// Zero before any transfer is attempted so a reentrant claim sees
	// an empty balance.
	s.balances[contributor] = 0
	s.treasuryBal -= amount
	return amount, nil
}

func (s *Store) RollbackClaim(_ context.Context, contributor string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[contributor] += amount
	s.treasuryBal += amount
	return nil
}

func (s *Store) RecordPayout(_ context.Context, p treasury.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payouts[p.Contributor] = append(s.payouts[p.Contributor], p)
	return nil
}

func (s *Store) ListPayouts(_ context.Context, contributor string) ([]treasury.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]treasury.Payout(nil), s.payouts[contributor]...), nil
}

func (s *Store) statsLocked() treasury.Stats {
	return treasury.Stats{
		TotalDataPoints: s.nextID - 1,
		TreasuryBalance: s.treasuryBal,
		NominalPool:     s.nominalPool,
	}
}
