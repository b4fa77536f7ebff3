// Package storagetest provides a conformance suite shared by the ledger
// store implementations.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/data_ledger/internal/app/domain/datapoint"
	"github.com/R3E-Network/data_ledger/internal/app/domain/treasury"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
)

// ExerciseLedgerStore runs the full submit/verify/claim lifecycle against a
// fresh store and fails the test on any deviation from the ledger semantics.
func ExerciseLedgerStore(t *testing.T, store storage.LedgerStore) {
	t.Helper()
	ctx := context.Background()

	exists, err := store.CategoryExists(ctx, "market_analysis")
	if err != nil {
		t.Fatalf("category exists: %v", err)
	}
	if !exists {
		t.Fatalf("seeded category missing")
	}

	dp, err := store.InsertDataPoint(ctx, datapoint.DataPoint{
		Contributor: "it-alice",
		Fingerprint: "Qm123",
		Category:    "market_analysis",
		Reward:      300,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if dp.ID < 1 {
		t.Fatalf("id not assigned: %d", dp.ID)
	}

	if _, err := store.MarkVerified(ctx, dp.ID, "it-owner"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := store.MarkVerified(ctx, dp.ID, "it-owner"); !errors.Is(err, storage.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}

	balance, err := store.RewardBalance(ctx, "it-alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance < 300 {
		t.Fatalf("reward not credited: %d", balance)
	}

	if _, err := store.FundTreasury(ctx, balance); err != nil {
		t.Fatalf("fund: %v", err)
	}

	amount, err := store.BeginClaim(ctx, "it-alice")
	if err != nil {
		t.Fatalf("begin claim: %v", err)
	}
	if amount != balance {
		t.Fatalf("claimed %d, accrued %d", amount, balance)
	}

	after, err := store.RewardBalance(ctx, "it-alice")
	if err != nil {
		t.Fatalf("balance after claim: %v", err)
	}
	if after != 0 {
		t.Fatalf("balance not zeroed: %d", after)
	}

	if err := store.RecordPayout(ctx, treasury.Payout{
		ID:          "it-payout-" + dp.Fingerprint,
		Contributor: "it-alice",
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("record payout: %v", err)
	}
}
