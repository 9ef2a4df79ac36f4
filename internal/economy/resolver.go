package economy

import (
	"strings"

	"shopd/internal/repository"
	"shopd/internal/shop"
)

// Resolver picks the provider for a shop definition. The points provider is
// shared so every points shop draws from the same balances, matching how a
// single in-memory economy behaves.
type Resolver struct {
	Repo   repository.Repository
	points *Points
}

func NewResolver(repo repository.Repository) *Resolver {
	return &Resolver{Repo: repo, points: NewPoints()}
}

// Resolve returns the provider for the definition, or nil when the shop's
// currency is unavailable or misconfigured.
func (r *Resolver) Resolve(def *shop.Definition) Provider {
	switch def.Currency {
	case shop.CurrencyWallet:
		if r.Repo == nil {
			return nil
		}
		return &Wallet{Repo: r.Repo}
	case shop.CurrencyCommand:
		if strings.TrimSpace(def.BalanceCommand) == "" ||
			strings.TrimSpace(def.AddCommand) == "" ||
			strings.TrimSpace(def.RemoveCommand) == "" {
			return nil
		}
		return &CommandBacked{
			BalanceCommand: def.BalanceCommand,
			AddCommand:     def.AddCommand,
			RemoveCommand:  def.RemoveCommand,
		}
	case shop.CurrencyPoints:
		return r.points
	default:
		return nil
	}
}
