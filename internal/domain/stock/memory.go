package stock

import (
	"context"
	"sync"

	"github.com/pahanaedu/bookshop/internal/domain/catalog"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a mutex-guarded in-memory Store, used by tests and local
// tooling in place of the PostgreSQL-backed item repository.
type MemoryStore struct {
	mu    sync.Mutex
	stock map[string]int
}

// NewMemoryStore creates a MemoryStore with the given initial stock levels.
func NewMemoryStore(initial map[string]int) *MemoryStore {
	stock := make(map[string]int, len(initial))
	for id, qty := range initial {
		stock[id] = qty
	}
	return &MemoryStore{stock: stock}
}

// Available returns the current stock for an item.
func (m *MemoryStore) Available(_ context.Context, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qty, ok := m.stock[itemID]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	return qty, nil
}

// TryDecrement decrements stock iff the current level covers qty. The check
// and the decrement happen under one lock acquisition.
func (m *MemoryStore) TryDecrement(_ context.Context, itemID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.stock[itemID]
	if !ok {
		return false, catalog.ErrNotFound
	}
	if current < qty {
		return false, nil
	}
	m.stock[itemID] = current - qty
	return true, nil
}

// Increment adds qty back to an item's stock.
func (m *MemoryStore) Increment(_ context.Context, itemID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stock[itemID]; !ok {
		return catalog.ErrNotFound
	}
	m.stock[itemID] += qty
	return nil
}

// Set overwrites the stock level for an item.
func (m *MemoryStore) Set(itemID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[itemID] = qty
}

// Snapshot returns a copy of all current stock levels.
func (m *MemoryStore) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.stock))
	for id, qty := range m.stock {
		out[id] = qty
	}
	return out
}
