package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"shopd/internal/models"
)

// Repository persists stock/limit snapshots and wallet balances. The
// transaction core itself never touches storage; snapshots are written by
// the background snapshot job and loaded once at startup.
type Repository interface {
	UpsertStockSnapshots(ctx context.Context, items []models.StockSnapshot) error
	ListStockSnapshots(ctx context.Context) ([]models.StockSnapshot, error)

	// ReplaceLimitSnapshots overwrites the persisted usage with exactly the
	// given rows. Limit usage is cleared wholesale when a shop resets, so
	// rows absent from the in-memory state must disappear from storage too;
	// an upsert would resurrect pre-reset usage on the next load.
	ReplaceLimitSnapshots(ctx context.Context, items []models.LimitSnapshot) error
	ListLimitSnapshots(ctx context.Context) ([]models.LimitSnapshot, error)

	// Wallet operations for the wallet currency provider. Withdraw is
	// atomic: it reports false and leaves the balance untouched when funds
	// are insufficient.
	WalletBalance(ctx context.Context, playerID string) (decimal.Decimal, error)
	DepositWallet(ctx context.Context, playerID string, amount decimal.Decimal) error
	WithdrawWallet(ctx context.Context, playerID string, amount decimal.Decimal) (bool, error)
}
