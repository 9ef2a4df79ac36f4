// Package inventory defines the item-storage contract the transaction
// engine mutates, plus an in-memory slot-based implementation.
package inventory

import "sync"

// Port is what the engine needs from inventory management. Implementations
// must be safe for concurrent use.
type Port interface {
	// Grant gives amount units of the item to the player and returns how
	// many did not fit. A leftover equal to amount means nothing was
	// delivered; a partial leftover must be refunded by the caller.
	Grant(playerID, itemID string, amount int) (leftover int)
	// HasAtLeast reports whether the player holds at least amount units.
	HasAtLeast(playerID, itemID string, amount int) bool
	// Remove takes up to amount units of the item from the player.
	Remove(playerID, itemID string, amount int)
	// CountHeld returns the total units of the item the player holds.
	CountHeld(playerID, itemID string) int
}

// Memory is a slot-based in-memory inventory: each player has a fixed
// number of slots and each slot holds up to StackSize units of one item.
type Memory struct {
	slots     int
	stackSize int

	mu      sync.Mutex
	players map[string]map[string]int
}

func NewMemory(slots, stackSize int) *Memory {
	if slots <= 0 {
		slots = 36
	}
	if stackSize <= 0 {
		stackSize = 64
	}
	return &Memory{
		slots:     slots,
		stackSize: stackSize,
		players:   make(map[string]map[string]int),
	}
}

func (m *Memory) held(playerID string) map[string]int {
	h, ok := m.players[playerID]
	if !ok {
		h = make(map[string]int)
		m.players[playerID] = h
	}
	return h
}

// capacityFor computes how many more units of itemID fit, treating every
// other item as occupying whole slots.
func (m *Memory) capacityFor(held map[string]int, itemID string) int {
	usedSlots := 0
	for id, count := range held {
		if id == itemID {
			continue
		}
		usedSlots += (count + m.stackSize - 1) / m.stackSize
	}
	free := m.slots - usedSlots
	if free < 0 {
		free = 0
	}
	return free*m.stackSize - held[itemID]
}

func (m *Memory) Grant(playerID, itemID string, amount int) int {
	if amount <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	held := m.held(playerID)
	capacity := m.capacityFor(held, itemID)
	granted := amount
	if granted > capacity {
		granted = capacity
	}
	if granted < 0 {
		granted = 0
	}
	held[itemID] += granted
	return amount - granted
}

func (m *Memory) HasAtLeast(playerID, itemID string, amount int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[playerID][itemID] >= amount
}

func (m *Memory) Remove(playerID, itemID string, amount int) {
	if amount <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	held := m.held(playerID)
	held[itemID] -= amount
	if held[itemID] <= 0 {
		delete(held, itemID)
	}
}

func (m *Memory) CountHeld(playerID, itemID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[playerID][itemID]
}
