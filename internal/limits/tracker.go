// Package limits tracks cumulative per-player purchase amounts between
// shop resets.
package limits

import (
	"math"
	"sync"
)

// Unlimited is returned by Remaining for items without a purchase limit.
const Unlimited = math.MaxInt

type key struct {
	shopID string
	item   int
}

type record struct {
	mu       sync.Mutex
	byPlayer map[string]int
}

// Tracker owns all per-player usage records.
type Tracker struct {
	mu      sync.RWMutex
	records map[key]*record
}

func NewTracker() *Tracker {
	return &Tracker{records: make(map[key]*record)}
}

func (t *Tracker) record(k key) *record {
	t.mu.RLock()
	r, ok := t.records[k]
	t.mu.RUnlock()
	if ok {
		return r
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok = t.records[k]; ok {
		return r
	}
	r = &record{byPlayer: make(map[string]int)}
	t.records[k] = r
	return r
}

// Remaining returns how many more units the player may purchase, or
// Unlimited when limit <= 0.
func (t *Tracker) Remaining(shopID string, item int, playerID string, limit int) int {
	if limit <= 0 {
		return Unlimited
	}
	r := t.record(key{shopID, item})
	r.mu.Lock()
	used := r.byPlayer[playerID]
	r.mu.Unlock()
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Record atomically adds amount to the player's usage. Usage only grows
// between resets; non-positive amounts are ignored.
func (t *Tracker) Record(shopID string, item int, playerID string, amount int) {
	if amount <= 0 {
		return
	}
	r := t.record(key{shopID, item})
	r.mu.Lock()
	r.byPlayer[playerID] += amount
	r.mu.Unlock()
}

// Clear removes all usage records for every item of the shop. Invoked when
// the shop's reset fires.
func (t *Tracker) Clear(shopID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.records {
		if k.shopID == shopID {
			delete(t.records, k)
		}
	}
}

// Entry is one exported usage value, used for snapshot persistence.
type Entry struct {
	ShopID    string
	ItemIndex int
	PlayerID  string
	Used      int
}

// Export returns a copy of all current usage values.
func (t *Tracker) Export() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var entries []Entry
	for k, r := range t.records {
		r.mu.Lock()
		for player, used := range r.byPlayer {
			entries = append(entries, Entry{
				ShopID:    k.shopID,
				ItemIndex: k.item,
				PlayerID:  player,
				Used:      used,
			})
		}
		r.mu.Unlock()
	}
	return entries
}

// Restore overwrites usage values from a snapshot.
func (t *Tracker) Restore(entries []Entry) {
	for _, e := range entries {
		r := t.record(key{e.ShopID, e.ItemIndex})
		r.mu.Lock()
		r.byPlayer[e.PlayerID] = e.Used
		r.mu.Unlock()
	}
}
