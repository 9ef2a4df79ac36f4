// Package engine executes buy/sell transactions against the stock ledger,
// limit tracker, currency provider and inventory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopd/internal/economy"
	"shopd/internal/inventory"
	"shopd/internal/limits"
	"shopd/internal/reset"
	"shopd/internal/shop"
	"shopd/internal/stock"
)

// Outcome is the terminal state of a transaction. All outcomes are expected
// user-facing results, not errors.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeInsufficientFunds  Outcome = "insufficient_funds"
	OutcomeInsufficientStock  Outcome = "insufficient_stock"
	OutcomeInsufficientItems  Outcome = "insufficient_items"
	OutcomeInventoryFull      Outcome = "inventory_full"
	OutcomeNotSellable        Outcome = "not_sellable"
	OutcomeLimitReached       Outcome = "limit_reached"
	OutcomeNoCurrencyProvider Outcome = "no_currency_provider"
)

// ErrUnknownShop and ErrUnknownItem are returned for requests naming a
// shop or item not in the catalog. Unlike outcomes these are caller errors,
// not transaction results.
var (
	ErrUnknownShop = errors.New("unknown shop")
	ErrUnknownItem = errors.New("unknown item")
)

// Result describes a finished transaction. UnitPrice and Total are only
// meaningful on success; Amount is the quantity actually delivered or sold.
type Result struct {
	Outcome   Outcome         `json:"outcome"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    int             `json:"amount"`
	Total     decimal.Decimal `json:"total"`
}

// Quote is the read-only view exposed to the UI layer. It never mutates
// any state.
type Quote struct {
	Stock          int             `json:"stock"`
	BuyUnitPrice   decimal.Decimal `json:"buy_unit_price"`
	SellUnitPrice  decimal.Decimal `json:"sell_unit_price"`
	RemainingLimit int             `json:"remaining_limit"` // limits.Unlimited when no limit
	NextResetIn    time.Duration   `json:"next_reset_in"`   // negative when the shop never resets
}

type itemKey struct {
	shopID string
	item   int
}

// Engine ties the pricing, stock, limit, reset, currency and inventory
// collaborators together. All state is injected by construction; the engine
// itself only owns the per-item transaction locks.
type Engine struct {
	Catalog   *shop.Catalog
	Ledger    *stock.Ledger
	Limits    *limits.Tracker
	Resets    *reset.Scheduler
	Economy   *economy.Resolver
	Inventory inventory.Port
	Logger    *zap.Logger

	// Now is the clock used for reset checks; defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	txLocks map[itemKey]*sync.Mutex
}

func (e *Engine) clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// lockItem serializes transactions per (shop, item) so the price snapshot,
// currency movement and stock mutation of one transaction are not
// interleaved with another on the same item. Unrelated items proceed in
// parallel.
func (e *Engine) lockItem(shopID string, item int) func() {
	k := itemKey{shopID, item}
	e.mu.Lock()
	if e.txLocks == nil {
		e.txLocks = make(map[itemKey]*sync.Mutex)
	}
	l, ok := e.txLocks[k]
	if !ok {
		l = &sync.Mutex{}
		e.txLocks[k] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (e *Engine) resolve(shopID string, index int) (*shop.Definition, *shop.ItemConfig, error) {
	def := e.Catalog.ByID(shopID)
	if def == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownShop, shopID)
	}
	item, err := def.Item(index)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnknownItem, err)
	}
	return def, item, nil
}

// maybeReset runs the lazy reset check for the shop and clears its stock
// and limit records when due.
func (e *Engine) maybeReset(def *shop.Definition, now time.Time) {
	if !e.Resets.CheckAndAdvance(def, now) {
		return
	}
	e.Ledger.ResetShop(def)
	e.Limits.Clear(def.ID)
	if e.Logger != nil {
		e.Logger.Info("shop reset fired",
			zap.String("shop", def.ID),
			zap.String("policy", string(def.ResetPolicy)),
		)
	}
}

// charge is the cost of n units at the unit price with the shop's purchase
// tax applied. Sell rewards are untaxed.
func charge(def *shop.Definition, unit decimal.Decimal, n int) decimal.Decimal {
	cost := unit.Mul(decimal.NewFromInt(int64(n)))
	if def.Taxes > 0 {
		factor := decimal.NewFromInt(1).
			Add(decimal.NewFromFloat(def.Taxes).Div(decimal.NewFromInt(100)))
		cost = cost.Mul(factor)
	}
	return cost
}

// Buy purchases amount units for the player. Currency is never consumed
// without a matching delivered good: every abort after the withdrawal
// refunds in full before the result is returned.
func (e *Engine) Buy(ctx context.Context, shopID string, index int, playerID string, amount int) (Result, error) {
	if amount <= 0 {
		return Result{}, fmt.Errorf("amount must be positive")
	}
	def, item, err := e.resolve(shopID, index)
	if err != nil {
		return Result{}, err
	}
	provider := e.Economy.Resolve(def)
	if provider == nil {
		return Result{Outcome: OutcomeNoCurrencyProvider}, nil
	}

	e.maybeReset(def, e.clock())

	unlock := e.lockItem(shopID, index)
	defer unlock()

	if item.LimitPerPlayer > 0 {
		remaining := e.Limits.Remaining(shopID, index, playerID, item.LimitPerPlayer)
		if remaining < amount {
			return Result{Outcome: OutcomeLimitReached}, nil
		}
	}

	current := e.Ledger.Get(shopID, index, item.Strategy.StockMax)
	if amount > current {
		return Result{Outcome: OutcomeInsufficientStock}, nil
	}
	unit := item.Strategy.BuyPrice(current)
	cost := charge(def, unit, amount)

	ok, err := provider.Withdraw(ctx, playerID, cost)
	if err != nil {
		return Result{}, fmt.Errorf("withdraw: %w", err)
	}
	if !ok {
		return Result{Outcome: OutcomeInsufficientFunds}, nil
	}

	leftover := e.Inventory.Grant(playerID, item.ItemID, amount)
	granted := amount - leftover
	if granted == 0 {
		if err := provider.Deposit(ctx, playerID, cost); err != nil {
			return Result{}, fmt.Errorf("refund after full grant failure: %w", err)
		}
		return Result{Outcome: OutcomeInventoryFull}, nil
	}
	if leftover > 0 {
		// Partial delivery: refund the unsold remainder and complete the
		// transaction for what fit.
		refund := cost.Sub(charge(def, unit, granted))
		if err := provider.Deposit(ctx, playerID, refund); err != nil {
			return Result{}, fmt.Errorf("refund unsold remainder: %w", err)
		}
		cost = cost.Sub(refund)
		if e.Logger != nil {
			e.Logger.Warn("partial grant, remainder refunded",
				zap.String("shop", shopID),
				zap.Int("item", index),
				zap.Int("requested", amount),
				zap.Int("granted", granted),
			)
		}
	}

	if _, err := e.Ledger.Buy(shopID, index, granted, item.Strategy); err != nil {
		// Stock moved underneath us after the price snapshot. Undo the
		// whole transaction: revoke the goods, refund the charge.
		e.Inventory.Remove(playerID, item.ItemID, granted)
		if derr := provider.Deposit(ctx, playerID, cost); derr != nil {
			return Result{}, fmt.Errorf("refund after stock race: %w", derr)
		}
		if e.Logger != nil {
			e.Logger.Warn("stock raced below purchase, transaction compensated",
				zap.String("shop", shopID),
				zap.Int("item", index),
				zap.Int("amount", granted),
			)
		}
		return Result{Outcome: OutcomeInsufficientStock}, nil
	}

	if item.LimitPerPlayer > 0 {
		e.Limits.Record(shopID, index, playerID, granted)
	}

	if e.Logger != nil {
		e.Logger.Debug("buy completed",
			zap.String("shop", shopID),
			zap.Int("item", index),
			zap.String("player", playerID),
			zap.Int("amount", granted),
			zap.String("total", cost.String()),
		)
	}
	return Result{Outcome: OutcomeSuccess, UnitPrice: unit, Amount: granted, Total: cost}, nil
}

// Sell sells amount units held by the player back to the shop.
func (e *Engine) Sell(ctx context.Context, shopID string, index int, playerID string, amount int) (Result, error) {
	if amount <= 0 {
		return Result{}, fmt.Errorf("amount must be positive")
	}
	return e.sell(ctx, shopID, index, playerID, amount)
}

// SellAll sells every unit of the item the player holds.
func (e *Engine) SellAll(ctx context.Context, shopID string, index int, playerID string) (Result, error) {
	_, item, err := e.resolve(shopID, index)
	if err != nil {
		return Result{}, err
	}
	held := e.Inventory.CountHeld(playerID, item.ItemID)
	if held <= 0 {
		return Result{Outcome: OutcomeInsufficientItems}, nil
	}
	return e.sell(ctx, shopID, index, playerID, held)
}

func (e *Engine) sell(ctx context.Context, shopID string, index int, playerID string, amount int) (Result, error) {
	def, item, err := e.resolve(shopID, index)
	if err != nil {
		return Result{}, err
	}
	provider := e.Economy.Resolve(def)
	if provider == nil {
		return Result{Outcome: OutcomeNoCurrencyProvider}, nil
	}

	e.maybeReset(def, e.clock())

	unlock := e.lockItem(shopID, index)
	defer unlock()

	current := e.Ledger.Get(shopID, index, item.Strategy.StockMax)
	unit := item.Strategy.SellPrice(current)
	reward := unit.Mul(decimal.NewFromInt(int64(amount)))
	if !reward.IsPositive() {
		return Result{Outcome: OutcomeNotSellable}, nil
	}
	if !e.Inventory.HasAtLeast(playerID, item.ItemID, amount) {
		return Result{Outcome: OutcomeInsufficientItems}, nil
	}

	e.Inventory.Remove(playerID, item.ItemID, amount)
	if err := provider.Deposit(ctx, playerID, reward); err != nil {
		// The deposit never happened; give the items back before failing.
		e.Inventory.Grant(playerID, item.ItemID, amount)
		return Result{}, fmt.Errorf("deposit: %w", err)
	}
	e.Ledger.Sell(shopID, index, amount, item.Strategy)

	if e.Logger != nil {
		e.Logger.Debug("sell completed",
			zap.String("shop", shopID),
			zap.Int("item", index),
			zap.String("player", playerID),
			zap.Int("amount", amount),
			zap.String("total", reward.String()),
		)
	}
	return Result{Outcome: OutcomeSuccess, UnitPrice: unit, Amount: amount, Total: reward}, nil
}

// GetQuote returns current stock, unit prices, the player's remaining
// purchase limit and the time to the next reset. Pure read.
func (e *Engine) GetQuote(shopID string, index int, playerID string) (Quote, error) {
	def, item, err := e.resolve(shopID, index)
	if err != nil {
		return Quote{}, err
	}
	now := e.clock()
	current := e.Ledger.Get(shopID, index, item.Strategy.StockMax)
	return Quote{
		Stock:          current,
		BuyUnitPrice:   item.Strategy.BuyPrice(current),
		SellUnitPrice:  item.Strategy.SellPrice(current),
		RemainingLimit: e.Limits.Remaining(shopID, index, playerID, item.LimitPerPlayer),
		NextResetIn:    e.Resets.Remaining(def, now),
	}, nil
}

// Balance returns the player's balance with the shop's provider.
func (e *Engine) Balance(ctx context.Context, shopID string, playerID string) (decimal.Decimal, error) {
	def := e.Catalog.ByID(shopID)
	if def == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownShop, shopID)
	}
	provider := e.Economy.Resolve(def)
	if provider == nil {
		return decimal.Zero, fmt.Errorf("shop %s has no currency provider", shopID)
	}
	return provider.Balance(ctx, playerID)
}

// SweepResets runs the reset check for every shop. Driven by the cron
// runner so resets fire near their due time even without traffic; the lazy
// per-request check remains the correctness mechanism.
func (e *Engine) SweepResets() {
	now := e.clock()
	for _, def := range e.Catalog.All() {
		e.maybeReset(def, now)
	}
}
