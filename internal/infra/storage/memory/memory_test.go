package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/infra/storage"
)

func seedLabs(t *testing.T, store *storage.Store) {
	t.Helper()
	labs := []*domain.Lab{
		{ID: 3, Owner: "0xAAA", Name: "Protein Folding", Symbol: "PRT", Domain: "bio"},
		{ID: 1, Owner: "0xbbb", Name: "Climate Models", Symbol: "CLM", Domain: "earth"},
		{ID: 2, Owner: "0xaaa", Name: "Ocean Data", Symbol: "OCN", Domain: "earth", Description: "protein-free"},
	}
	for _, l := range labs {
		if err := store.Labs.Upsert(context.Background(), l); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
}

func TestLabRepo_List(t *testing.T) {
	store := NewStore()
	seedLabs(t, store)
	ctx := context.Background()

	labs, total, err := store.Labs.List(ctx, domain.LabFilter{}, storage.Page{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 || labs[0].ID != 1 || labs[2].ID != 3 {
		t.Errorf("expected labs ordered by id, got %d total", total)
	}

	labs, total, _ = store.Labs.List(ctx, domain.LabFilter{Owner: "0xaaa"}, storage.Page{})
	if total != 2 {
		t.Errorf("owner filter should be case-insensitive, got %d", total)
	}

	_, total, _ = store.Labs.List(ctx, domain.LabFilter{Domains: []string{"earth"}, Search: "PROTEIN"}, storage.Page{})
	if total != 1 {
		t.Errorf("expected search to match description, got %d", total)
	}

	labs, total, _ = store.Labs.List(ctx, domain.LabFilter{}, storage.Page{Number: 2, Size: 2})
	if total != 3 || len(labs) != 1 || labs[0].ID != 3 {
		t.Errorf("unexpected second page %+v (total %d)", labs, total)
	}

	labs, _, _ = store.Labs.List(ctx, domain.LabFilter{}, storage.Page{Number: 9, Size: 2})
	if len(labs) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(labs))
	}
}

func TestLabRepo_UpsertKeepsTVL(t *testing.T) {
	store := NewStore()
	seedLabs(t, store)
	ctx := context.Background()

	if err := store.Deposits.Record(ctx, &domain.Deposit{LabID: 1, User: "0xu", Amount: "50", TxHash: "0x1"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Labs.Upsert(ctx, &domain.Lab{ID: 1, Owner: "0xbbb", Name: "Renamed", Symbol: "CLM", TVL: "999"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	lab, err := store.Labs.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if lab.Name != "Renamed" || lab.TVL != "50" {
		t.Errorf("expected renamed lab with tvl 50, got %s / %s", lab.Name, lab.TVL)
	}
}

func TestDepositAndRedemption(t *testing.T) {
	store := NewStore()
	seedLabs(t, store)
	ctx := context.Background()

	if err := store.Deposits.Record(ctx, &domain.Deposit{LabID: 2, User: "0xU", Amount: "1000000000000000000000", TxHash: "0xa"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Deposits.Record(ctx, &domain.Deposit{LabID: 2, User: "0xu", Amount: "1", TxHash: "0xa"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if err := store.Deposits.Record(ctx, &domain.Deposit{LabID: 77, User: "0xu", Amount: "1", TxHash: "0xb"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Deposits.Record(ctx, &domain.Deposit{LabID: 2, User: "0xu", Amount: "-5", TxHash: "0xc"}); err == nil {
		t.Error("expected error for negative amount")
	}

	err := store.Redemptions.Record(ctx, &domain.Redemption{LabID: 2, User: "0xu", SharesIn: "1", AssetsOut: "1000000000000000000001", TxHash: "0xr1"})
	if !errors.Is(err, storage.ErrInsufficientTVL) {
		t.Errorf("expected ErrInsufficientTVL, got %v", err)
	}
	if err := store.Redemptions.Record(ctx, &domain.Redemption{LabID: 2, User: "0xu", SharesIn: "1", AssetsOut: "400000000000000000000", TxHash: "0xr2"}); err != nil {
		t.Fatalf("Record redemption failed: %v", err)
	}

	lab, _ := store.Labs.GetByID(ctx, 2)
	if lab.TVL != "600000000000000000000" {
		t.Errorf("unexpected tvl %s", lab.TVL)
	}

	reds, err := store.Redemptions.List(ctx, domain.RedemptionFilter{User: "0xU"}, storage.Page{})
	if err != nil || len(reds) != 1 {
		t.Errorf("expected one redemption for user, got %d (%v)", len(reds), err)
	}

	a, err := store.Analytics.Compute(ctx)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if a.TotalLabs != 3 || a.TotalDeposits != 1 || a.UniqueDepositors != 1 || a.TotalTVL != "600000000000000000000" {
		t.Errorf("unexpected analytics %+v", a)
	}
}

func TestDepositRepo_ListByLabNewestFirst(t *testing.T) {
	store := NewStore()
	seedLabs(t, store)
	ctx := context.Background()

	for i, tx := range []string{"0x1", "0x2", "0x3"} {
		d := &domain.Deposit{LabID: 3, User: "0xu", Amount: "1", TxHash: tx, BlockNumber: uint64(i)}
		if err := store.Deposits.Record(ctx, d); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	deps, err := store.Deposits.ListByLab(ctx, 3, storage.Page{Size: 2})
	if err != nil {
		t.Fatalf("ListByLab failed: %v", err)
	}
	if len(deps) != 2 || deps[0].TxHash != "0x3" || deps[1].TxHash != "0x2" {
		t.Errorf("unexpected order %+v", deps)
	}
}

func TestFaucetAndAnalyticsCache(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_ = store.Faucet.Save(ctx, &domain.FaucetClaim{ID: "a", Address: "0xAbc", Amount: "1"})
	_ = store.Faucet.Save(ctx, &domain.FaucetClaim{ID: "b", Address: "0xabc", Amount: "1"})
	_ = store.Faucet.Save(ctx, &domain.FaucetClaim{ID: "c", Address: "0xdef", Amount: "1"})

	claims, err := store.Faucet.ListByAddress(ctx, "0xABC", storage.Page{})
	if err != nil {
		t.Fatalf("ListByAddress failed: %v", err)
	}
	if len(claims) != 2 || claims[0].ID != "b" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := store.Analytics.GetCached(ctx, "global"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected miss, got %v", err)
	}
	_ = store.Analytics.PutCached(ctx, "global", &domain.Analytics{TotalLabs: 7})
	a, err := store.Analytics.GetCached(ctx, "global")
	if err != nil || a.TotalLabs != 7 {
		t.Errorf("unexpected cached value %+v (%v)", a, err)
	}
}
