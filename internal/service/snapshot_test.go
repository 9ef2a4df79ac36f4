package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"shopd/internal/limits"
	"shopd/internal/models"
	"shopd/internal/stock"
)

// fakeRepo keeps snapshot rows in memory, keyed the way the upserts key them.
type fakeRepo struct {
	stockRows map[[2]any]models.StockSnapshot
	limitRows map[[3]any]models.LimitSnapshot
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stockRows: make(map[[2]any]models.StockSnapshot),
		limitRows: make(map[[3]any]models.LimitSnapshot),
	}
}

func (f *fakeRepo) UpsertStockSnapshots(_ context.Context, items []models.StockSnapshot) error {
	for _, it := range items {
		f.stockRows[[2]any{it.ShopID, it.ItemIndex}] = it
	}
	return nil
}

func (f *fakeRepo) ListStockSnapshots(_ context.Context) ([]models.StockSnapshot, error) {
	out := make([]models.StockSnapshot, 0, len(f.stockRows))
	for _, it := range f.stockRows {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeRepo) ReplaceLimitSnapshots(_ context.Context, items []models.LimitSnapshot) error {
	f.limitRows = make(map[[3]any]models.LimitSnapshot, len(items))
	for _, it := range items {
		f.limitRows[[3]any{it.ShopID, it.ItemIndex, it.PlayerID}] = it
	}
	return nil
}

func (f *fakeRepo) ListLimitSnapshots(_ context.Context) ([]models.LimitSnapshot, error) {
	out := make([]models.LimitSnapshot, 0, len(f.limitRows))
	for _, it := range f.limitRows {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeRepo) WalletBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeRepo) DepositWallet(context.Context, string, decimal.Decimal) error {
	return nil
}

func (f *fakeRepo) WithdrawWallet(context.Context, string, decimal.Decimal) (bool, error) {
	return false, nil
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	ledger := stock.NewLedger()
	tracker := limits.NewTracker()

	ledger.Restore([]stock.Entry{
		{ShopID: "market", ItemIndex: 0, Stock: 17},
		{ShopID: "market", ItemIndex: 1, Stock: 3},
	})
	tracker.Record("market", 0, "alice", 4)

	src := &SnapshotService{Repo: repo, Ledger: ledger, Limits: tracker}
	if err := src.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	freshLedger := stock.NewLedger()
	freshTracker := limits.NewTracker()
	dst := &SnapshotService{Repo: repo, Ledger: freshLedger, Limits: freshTracker}
	if err := dst.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := freshLedger.Get("market", 0, 99); got != 17 {
		t.Fatalf("restored stock = %d, want 17", got)
	}
	if got := freshLedger.Get("market", 1, 99); got != 3 {
		t.Fatalf("restored stock = %d, want 3", got)
	}
	if got := freshTracker.Remaining("market", 0, "alice", 10); got != 6 {
		t.Fatalf("restored remaining = %d, want 6", got)
	}
}

func TestSaveDropsClearedLimits(t *testing.T) {
	repo := newFakeRepo()
	ledger := stock.NewLedger()
	tracker := limits.NewTracker()
	svc := &SnapshotService{Repo: repo, Ledger: ledger, Limits: tracker}

	tracker.Record("market", 0, "alice", 5)
	if err := svc.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A shop reset clears usage in memory; the following save must clear
	// it from storage too.
	tracker.Clear("market")
	if err := svc.Save(context.Background()); err != nil {
		t.Fatalf("Save after clear: %v", err)
	}

	fresh := &SnapshotService{
		Repo:   repo,
		Ledger: stock.NewLedger(),
		Limits: limits.NewTracker(),
	}
	if err := fresh.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := fresh.Limits.Remaining("market", 0, "alice", 5); got != 5 {
		t.Fatalf("remaining after reset and restart = %d, want full limit 5", got)
	}
}

func TestSnapshotSaveIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	ledger := stock.NewLedger()
	ledger.Restore([]stock.Entry{{ShopID: "market", ItemIndex: 0, Stock: 9}})

	svc := &SnapshotService{Repo: repo, Ledger: ledger, Limits: limits.NewTracker()}
	if err := svc.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := svc.Save(context.Background()); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if len(repo.stockRows) != 1 {
		t.Fatalf("stock rows = %d, want 1 after repeated save", len(repo.stockRows))
	}
}
