// Package treasury implements owner funding and contributor reward claims.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/data_ledger/internal/app/auth"
	domain "github.com/R3E-Network/data_ledger/internal/app/domain/treasury"
	"github.com/R3E-Network/data_ledger/internal/app/events"
	"github.com/R3E-Network/data_ledger/internal/app/metrics"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
	"github.com/R3E-Network/data_ledger/pkg/logger"
)

var (
	// ErrInvalidAmount indicates a non-positive funding amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrTransferFailed indicates the external funds movement failed. The
	// claim is rolled back before this surfaces.
	ErrTransferFailed = errors.New("funds transfer failed")
)

// Service coordinates treasury funding and the claim state machine.
type Service struct {
	store      storage.TreasuryStore
	authority  *auth.Authority
	transferer Transferer
	bus        *events.Bus
	log        *logger.Logger
}

// New builds the treasury service. A nil transferer defaults to the
// in-process ledger transferer.
func New(store storage.LedgerStore, authority *auth.Authority, transferer Transferer, bus *events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("treasury")
	}
	if bus == nil {
		bus = events.NewBus()
	}
	if transferer == nil {
		transferer = NewLedgerTransferer()
	}
	return &Service{
		store:      store,
		authority:  authority,
		transferer: transferer,
		bus:        bus,
		log:        log,
	}
}

// Fund credits the treasury and the nominal pool. Owner-gated; there is no
// upper bound on the pool.
func (s *Service) Fund(ctx context.Context, caller string, amount int64) (domain.Stats, error) {
	if err := s.authority.RequireOwner(caller); err != nil {
		return domain.Stats{}, err
	}
	if amount <= 0 {
		return domain.Stats{}, ErrInvalidAmount
	}

	stats, err := s.store.FundTreasury(ctx, amount)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("fund treasury: %w", err)
	}

	metrics.SetTreasuryBalance(stats.TreasuryBalance)
	s.log.WithFields(map[string]any{
		"amount":  amount,
		"balance": stats.TreasuryBalance,
	}).Info("treasury funded")

	return stats, nil
}

// Claim withdraws the caller's full accrued balance. The order is strict
// check-effects-interactions: the store zeroes the balance and debits the
// treasury first, only then is the external transfer attempted, and only
// after that settles is the claim event emitted. A reentrant claim during
// the transfer therefore reads a zero balance and fails with
// storage.ErrNoRewards. When the transfer itself fails the claim is rolled
// back and ErrTransferFailed surfaces; the accrued balance is not lost.
func (s *Service) Claim(ctx context.Context, caller string) (domain.Payout, error) {
	amount, err := s.store.BeginClaim(ctx, caller)
	if err != nil {
		metrics.RecordClaim("rejected", 0)
		return domain.Payout{}, err
	}

	if err := s.transferer.Transfer(ctx, caller, amount); err != nil {
		if rbErr := s.store.RollbackClaim(ctx, caller, amount); rbErr != nil {
			s.log.WithError(rbErr).WithField("contributor", caller).
				Error("claim rollback failed; balance lost")
		}
		metrics.RecordClaim("transfer_failed", 0)
		return domain.Payout{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	payout := domain.Payout{
		ID:          uuid.NewString(),
		Contributor: caller,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.RecordPayout(ctx, payout); err != nil {
		// The transfer already settled; the journal is best-effort.
		s.log.WithError(err).WithField("payout", payout.ID).Warn("payout journal write failed")
	}

	if stats, err := s.store.TreasuryStats(ctx); err == nil {
		metrics.SetTreasuryBalance(stats.TreasuryBalance)
	}
	metrics.RecordClaim("settled", amount)

	s.bus.Publish(events.TopicRewardsClaimed, events.RewardsClaimed{
		Contributor: caller,
		Amount:      amount,
	})
	s.log.WithFields(map[string]any{
		"contributor": caller,
		"amount":      amount,
	}).Info("rewards claimed")

	return payout, nil
}

// Stats returns the ledger-wide snapshot.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	return s.store.TreasuryStats(ctx)
}

// Payouts returns the contributor's settled claims, oldest first.
func (s *Service) Payouts(ctx context.Context, contributor string) ([]domain.Payout, error) {
	return s.store.ListPayouts(ctx, contributor)
}
