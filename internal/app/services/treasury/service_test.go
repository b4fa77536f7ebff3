package treasury

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/data_ledger/internal/app/auth"
	"github.com/R3E-Network/data_ledger/internal/app/events"
	registrysvc "github.com/R3E-Network/data_ledger/internal/app/services/registry"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
	"github.com/R3E-Network/data_ledger/internal/app/storage/memory"
)

const owner = "owner-1"

type fixture struct {
	store      *memory.Store
	registry   *registrysvc.Service
	treasury   *Service
	transferer *LedgerTransferer
	bus        *events.Bus
}

func newFixture(t *testing.T, transferer Transferer) *fixture {
	t.Helper()

	store := memory.New()
	authority := auth.NewAuthority(owner)
	bus := events.NewBus()

	rail, _ := transferer.(*LedgerTransferer)
	if transferer == nil {
		rail = NewLedgerTransferer()
		transferer = rail
	}

	return &fixture{
		store:      store,
		registry:   registrysvc.New(store, authority, bus, nil),
		treasury:   New(store, authority, transferer, bus, nil),
		transferer: rail,
		bus:        bus,
	}
}

// submitVerified seeds one verified datapoint for the contributor.
func (f *fixture) submitVerified(t *testing.T, contributor, category string) int64 {
	t.Helper()
	ctx := context.Background()

	dp, err := f.registry.Submit(ctx, contributor, "Qm123", category)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.registry.Verify(ctx, owner, dp.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return dp.Reward
}

func TestFundRequiresOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.treasury.Fund(ctx, "mallory", 1000); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.treasury.Fund(ctx, owner, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	stats, err := f.treasury.Fund(ctx, owner, 1000)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if stats.TreasuryBalance != 1000 || stats.NominalPool != 1000 {
		t.Fatalf("unexpected stats after funding: %+v", stats)
	}

	// Nominal pool keeps growing; it is never reconciled.
	stats, err = f.treasury.Fund(ctx, owner, 500)
	if err != nil {
		t.Fatalf("second fund: %v", err)
	}
	if stats.TreasuryBalance != 1500 || stats.NominalPool != 1500 {
		t.Fatalf("unexpected stats after second funding: %+v", stats)
	}
}

func TestClaimNoRewards(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.treasury.Claim(ctx, "alice"); !errors.Is(err, storage.ErrNoRewards) {
		t.Fatalf("expected ErrNoRewards, got %v", err)
	}
}

func TestClaimInsufficientTreasury(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reward := f.submitVerified(t, "alice", "market_analysis")
	if _, err := f.treasury.Fund(ctx, owner, reward-1); err != nil {
		t.Fatalf("fund: %v", err)
	}

	if _, err := f.treasury.Claim(ctx, "alice"); !errors.Is(err, storage.ErrInsufficientTreasury) {
		t.Fatalf("expected ErrInsufficientTreasury, got %v", err)
	}

	// Nothing moved: balance stays claimable, treasury untouched.
	balance, _ := f.registry.RewardBalance(ctx, "alice")
	if balance != reward {
		t.Fatalf("balance changed on failed claim: %d", balance)
	}
	stats, _ := f.treasury.Stats(ctx)
	if stats.TreasuryBalance != reward-1 {
		t.Fatalf("treasury changed on failed claim: %d", stats.TreasuryBalance)
	}
}

func TestClaimSettles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reward := f.submitVerified(t, "alice", "market_analysis")
	if _, err := f.treasury.Fund(ctx, owner, 1000); err != nil {
		t.Fatalf("fund: %v", err)
	}

	var claimed []events.RewardsClaimed
	f.bus.Subscribe(events.TopicRewardsClaimed, func(e events.Event) {
		claimed = append(claimed, e.Data.(events.RewardsClaimed))
	})

	payout, err := f.treasury.Claim(ctx, "alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if payout.Amount != reward {
		t.Fatalf("expected payout %d, got %d", reward, payout.Amount)
	}
	if payout.ID == "" {
		t.Fatalf("payout id missing")
	}

	balance, _ := f.registry.RewardBalance(ctx, "alice")
	if balance != 0 {
		t.Fatalf("balance not zeroed: %d", balance)
	}
	stats, _ := f.treasury.Stats(ctx)
	if stats.TreasuryBalance != 1000-reward {
		t.Fatalf("treasury not debited: %d", stats.TreasuryBalance)
	}
	if f.transferer.Sent("alice") != reward {
		t.Fatalf("funds not transferred: %d", f.transferer.Sent("alice"))
	}
	if len(claimed) != 1 || claimed[0].Amount != reward {
		t.Fatalf("claim event missing or wrong: %+v", claimed)
	}

	payouts, err := f.treasury.Payouts(ctx, "alice")
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	if len(payouts) != 1 || payouts[0].ID != payout.ID {
		t.Fatalf("payout journal missing record: %+v", payouts)
	}

	// Second claim finds nothing.
	if _, err := f.treasury.Claim(ctx, "alice"); !errors.Is(err, storage.ErrNoRewards) {
		t.Fatalf("expected ErrNoRewards on repeat claim, got %v", err)
	}
}

func TestClaimTransferFailureRollsBack(t *testing.T) {
	failing := TransferFunc(func(context.Context, string, int64) error {
		return errors.New("rail unavailable")
	})
	f := newFixture(t, failing)
	ctx := context.Background()

	reward := f.submitVerified(t, "alice", "technical_review")
	if _, err := f.treasury.Fund(ctx, owner, 1000); err != nil {
		t.Fatalf("fund: %v", err)
	}

	if _, err := f.treasury.Claim(ctx, "alice"); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The claim rolled back: balance and treasury are restored.
	balance, _ := f.registry.RewardBalance(ctx, "alice")
	if balance != reward {
		t.Fatalf("balance not restored after transfer failure: %d", balance)
	}
	stats, _ := f.treasury.Stats(ctx)
	if stats.TreasuryBalance != 1000 {
		t.Fatalf("treasury not restored after transfer failure: %d", stats.TreasuryBalance)
	}
	payouts, _ := f.treasury.Payouts(ctx, "alice")
	if len(payouts) != 0 {
		t.Fatalf("failed claim journaled a payout: %+v", payouts)
	}
}

// A claim issued while another claim's transfer is still in flight must see
// the zeroed balance and be rejected rather than double-paying.
func TestReentrantClaimSeesZeroBalance(t *testing.T) {
	var f *fixture
	inner := make(chan error, 1)
	reentrant := TransferFunc(func(ctx context.Context, recipient string, amount int64) error {
		_, err := f.treasury.Claim(ctx, recipient)
		inner <- err
		return nil
	})
	f = newFixture(t, reentrant)
	ctx := context.Background()

	reward := f.submitVerified(t, "alice", "research")
	if _, err := f.treasury.Fund(ctx, owner, 1000); err != nil {
		t.Fatalf("fund: %v", err)
	}

	if _, err := f.treasury.Claim(ctx, "alice"); err != nil {
		t.Fatalf("outer claim: %v", err)
	}
	if err := <-inner; !errors.Is(err, storage.ErrNoRewards) {
		t.Fatalf("reentrant claim must observe zero balance, got %v", err)
	}

	stats, _ := f.treasury.Stats(ctx)
	if stats.TreasuryBalance != 1000-reward {
		t.Fatalf("double payment detected: treasury %d", stats.TreasuryBalance)
	}
}
