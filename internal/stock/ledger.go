// Package stock tracks current stock per (shop, item) key.
//
// Records are created lazily at full stock and live for the process
// lifetime. Mutations on one key are linearizable: each record carries its
// own lock, so concurrent buy/sell on the same item never lose updates and
// unrelated items never contend.
package stock

import (
	"errors"
	"sync"

	"shopd/internal/shop"
)

// ErrInsufficientStock is returned by Buy when the requested amount exceeds
// the current stock.
var ErrInsufficientStock = errors.New("insufficient stock")

type key struct {
	shopID string
	item   int
}

type record struct {
	mu    sync.Mutex
	stock int
}

// Ledger owns all stock records.
type Ledger struct {
	mu      sync.RWMutex
	records map[key]*record
}

func NewLedger() *Ledger {
	return &Ledger{records: make(map[key]*record)}
}

// record returns the record for the key, creating it at max if absent.
func (l *Ledger) record(k key, max int) *record {
	l.mu.RLock()
	r, ok := l.records[k]
	l.mu.RUnlock()
	if ok {
		return r
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok = l.records[k]; ok {
		return r
	}
	r = &record{stock: max}
	l.records[k] = r
	return r
}

// Get returns the current stock, initializing to max on first access.
func (l *Ledger) Get(shopID string, item int, max int) int {
	r := l.record(key{shopID, item}, max)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stock
}

// Buy atomically subtracts amount from stock and returns the new value.
// Fails with ErrInsufficientStock without mutating anything when amount
// exceeds the current stock.
func (l *Ledger) Buy(shopID string, item int, amount int, strategy shop.PriceStrategy) (int, error) {
	if amount < 0 {
		return 0, errors.New("amount must not be negative")
	}
	r := l.record(key{shopID, item}, strategy.StockMax)
	r.mu.Lock()
	defer r.mu.Unlock()
	if amount > r.stock {
		return r.stock, ErrInsufficientStock
	}
	r.stock -= amount
	return r.stock, nil
}

// Sell atomically adds amount to stock, clamped at the strategy's maximum.
// Excess above the maximum is silently absorbed; selling never fails on the
// stock side.
func (l *Ledger) Sell(shopID string, item int, amount int, strategy shop.PriceStrategy) int {
	if amount < 0 {
		amount = 0
	}
	r := l.record(key{shopID, item}, strategy.StockMax)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock += amount
	if r.stock > strategy.StockMax {
		r.stock = strategy.StockMax
	}
	return r.stock
}

// Reset sets stock back to max unconditionally.
func (l *Ledger) Reset(shopID string, item int, max int) {
	r := l.record(key{shopID, item}, max)
	r.mu.Lock()
	r.stock = max
	r.mu.Unlock()
}

// ResetShop restores every item of the definition to full stock.
func (l *Ledger) ResetShop(def *shop.Definition) {
	for i := range def.Items {
		l.Reset(def.ID, i, def.Items[i].Strategy.StockMax)
	}
}

// Entry is one exported stock value, used for snapshot persistence.
type Entry struct {
	ShopID    string
	ItemIndex int
	Stock     int
}

// Export returns a copy of all current stock values.
func (l *Ledger) Export() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := make([]Entry, 0, len(l.records))
	for k, r := range l.records {
		r.mu.Lock()
		entries = append(entries, Entry{ShopID: k.shopID, ItemIndex: k.item, Stock: r.stock})
		r.mu.Unlock()
	}
	return entries
}

// Restore overwrites stock values from a snapshot.
func (l *Ledger) Restore(entries []Entry) {
	for _, e := range entries {
		r := l.record(key{e.ShopID, e.ItemIndex}, e.Stock)
		r.mu.Lock()
		r.stock = e.Stock
		r.mu.Unlock()
	}
}
