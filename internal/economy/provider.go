// Package economy abstracts the currency implementations a shop can charge
// against. A provider is selected once per shop at configuration time.
package economy

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider is the minimal currency contract required by the transaction
// engine. Implementations must be safe to call from concurrent transaction
// goroutines.
type Provider interface {
	// Balance returns the player's current balance.
	Balance(ctx context.Context, playerID string) (decimal.Decimal, error)
	// Withdraw removes amount from the player if the balance covers it and
	// reports whether it did. A false result leaves the balance untouched.
	Withdraw(ctx context.Context, playerID string, amount decimal.Decimal) (bool, error)
	// Deposit adds amount to the player.
	Deposit(ctx context.Context, playerID string, amount decimal.Decimal) error
}
