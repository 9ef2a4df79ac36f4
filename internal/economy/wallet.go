package economy

import (
	"context"

	"github.com/shopspring/decimal"

	"shopd/internal/repository"
)

// Wallet is the persistent provider backed by the wallet_accounts table.
type Wallet struct {
	Repo repository.Repository
}

func (w *Wallet) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	return w.Repo.WalletBalance(ctx, playerID)
}

func (w *Wallet) Withdraw(ctx context.Context, playerID string, amount decimal.Decimal) (bool, error) {
	return w.Repo.WithdrawWallet(ctx, playerID, amount)
}

func (w *Wallet) Deposit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	return w.Repo.DepositWallet(ctx, playerID, amount)
}
