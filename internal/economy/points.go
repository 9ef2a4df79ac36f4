package economy

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Points is a simple in-memory provider, mainly for tests and development.
type Points struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func NewPoints() *Points {
	return &Points{balances: make(map[string]decimal.Decimal)}
}

func (p *Points) Balance(_ context.Context, playerID string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[playerID], nil
}

func (p *Points) Withdraw(_ context.Context, playerID string, amount decimal.Decimal) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.balances[playerID]
	if current.LessThan(amount) {
		return false, nil
	}
	p.balances[playerID] = current.Sub(amount)
	return true, nil
}

func (p *Points) Deposit(_ context.Context, playerID string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[playerID] = p.balances[playerID].Add(amount)
	return nil
}
