package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/R3E-Network/data_ledger/internal/app/auth"
	"github.com/R3E-Network/data_ledger/internal/app/events"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
	"github.com/R3E-Network/data_ledger/internal/app/storage/memory"
)

const owner = "owner-1"

func newService() *Service {
	return New(memory.New(), auth.NewAuthority(owner), events.NewBus(), nil)
}

func TestSubmitAssignsDenseIDs(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		dp, err := svc.Submit(ctx, "alice", fmt.Sprintf("Qm%03d", i), "research")
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if dp.ID != int64(i) {
			t.Fatalf("expected id %d, got %d", i, dp.ID)
		}
	}

	ids, err := svc.ContributorData(ctx, "alice")
	if err != nil {
		t.Fatalf("contributor data: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("expected 5 ids, got %d", len(ids))
	}
	for i, id := range ids {
		if id != int64(i+1) {
			t.Fatalf("ids not in append order: %v", ids)
		}
	}
}

func TestSubmitRewardTable(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := []struct {
		category string
		reward   int64
	}{
		{"research", 100},
		{"technical_review", 200},
		{"market_analysis", 300},
	}
	for _, tc := range cases {
		dp, err := svc.Submit(ctx, "alice", "Qm123", tc.category)
		if err != nil {
			t.Fatalf("submit %s: %v", tc.category, err)
		}
		if dp.Reward != tc.reward {
			t.Fatalf("category %s: expected reward %d, got %d", tc.category, tc.reward, dp.Reward)
		}
		if dp.Verified {
			t.Fatalf("new datapoint must start unverified")
		}
	}
}

func TestSubmitNewCategoryPaysBaseRate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if err := svc.AddCategory(ctx, owner, "sentiment"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	dp, err := svc.Submit(ctx, "alice", "Qm123", "sentiment")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if dp.Reward != 100 {
		t.Fatalf("unknown-but-existing category must pay base rate, got %d", dp.Reward)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "alice", "", "research"); !errors.Is(err, ErrEmptyFingerprint) {
		t.Fatalf("expected ErrEmptyFingerprint, got %v", err)
	}
	if _, err := svc.Submit(ctx, "alice", "   ", "research"); !errors.Is(err, ErrEmptyFingerprint) {
		t.Fatalf("whitespace fingerprint: expected ErrEmptyFingerprint, got %v", err)
	}
	if _, err := svc.Submit(ctx, "alice", "Qm123", "astrology"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}

	// Failed submissions must not consume ids.
	dp, err := svc.Submit(ctx, "alice", "Qm123", "research")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if dp.ID != 1 {
		t.Fatalf("rejected submissions consumed ids: got %d", dp.ID)
	}
}

func TestVerifyCreditsFixedReward(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	dp, err := svc.Submit(ctx, "alice", "Qm123", "market_analysis")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Catalog growth after submission must not change the stored reward.
	if err := svc.AddCategory(ctx, owner, "extra"); err != nil {
		t.Fatalf("add category: %v", err)
	}

	verified, err := svc.Verify(ctx, owner, dp.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Verified {
		t.Fatalf("datapoint not marked verified")
	}
	if verified.Reward != 300 {
		t.Fatalf("verification recomputed reward: got %d", verified.Reward)
	}

	balance, err := svc.RewardBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 300 {
		t.Fatalf("expected balance 300, got %d", balance)
	}
}

func TestVerifyRejectsNonOwner(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	dp, err := svc.Submit(ctx, "alice", "Qm123", "research")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Verify(ctx, "mallory", dp.ID); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	got, err := svc.DataPoint(ctx, dp.ID)
	if err != nil {
		t.Fatalf("get datapoint: %v", err)
	}
	if got.Verified {
		t.Fatalf("unauthorized verify must not flip the flag")
	}
	balance, _ := svc.RewardBalance(ctx, "alice")
	if balance != 0 {
		t.Fatalf("unauthorized verify credited balance: %d", balance)
	}
}

func TestVerifyInvalidID(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Verify(ctx, owner, 1); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID on empty registry, got %v", err)
	}

	if _, err := svc.Submit(ctx, "alice", "Qm123", "research"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, id := range []int64{0, -1, 2} {
		if _, err := svc.Verify(ctx, owner, id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("id %d: expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestVerifyExactlyOnce(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	dp, err := svc.Submit(ctx, "alice", "Qm123", "research")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Verify(ctx, owner, dp.ID); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if _, err := svc.Verify(ctx, owner, dp.ID); !errors.Is(err, storage.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}

	balance, _ := svc.RewardBalance(ctx, "alice")
	if balance != 100 {
		t.Fatalf("repeat verify changed balance: %d", balance)
	}
}

func TestAddCategory(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if err := svc.AddCategory(ctx, "mallory", "new_cat"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.AddCategory(ctx, owner, ""); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	for _, seeded := range []string{"research", "market_analysis", "technical_review"} {
		if err := svc.AddCategory(ctx, owner, seeded); !errors.Is(err, storage.ErrDuplicateCategory) {
			t.Fatalf("seeded %s: expected ErrDuplicateCategory, got %v", seeded, err)
		}
	}
	if err := svc.AddCategory(ctx, owner, "new_cat"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	if err := svc.AddCategory(ctx, owner, "new_cat"); !errors.Is(err, storage.ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory on repeat, got %v", err)
	}

	cats, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(cats))
	}
}

func TestSubmitEmitsEvent(t *testing.T) {
	bus := events.NewBus()
	svc := New(memory.New(), auth.NewAuthority(owner), bus, nil)
	ctx := context.Background()

	var got []events.DataSubmitted
	bus.Subscribe(events.TopicDataSubmitted, func(e events.Event) {
		got = append(got, e.Data.(events.DataSubmitted))
	})

	if _, err := svc.Submit(ctx, "alice", "Qm123", "market_analysis"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID != 1 || got[0].Contributor != "alice" || got[0].Reward != 300 {
		t.Fatalf("unexpected event payload: %+v", got[0])
	}
}
