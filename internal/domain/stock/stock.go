// Package stock mediates all inventory mutations performed on behalf of
// billing operations. Reserving and releasing stock goes through the
// Coordinator so that a finalized bill decrements inventory exactly once and
// a cancellation restores it exactly.
package stock

import (
	"context"
	"fmt"
)

// Store is the minimal storage contract for item stock counters.
//
// TryDecrement must be implemented as a single conditional update (decrement
// only when stock >= qty) so that two concurrent reservations racing on the
// same item can never drive stock negative.
type Store interface {
	Available(ctx context.Context, itemID string) (int, error)
	TryDecrement(ctx context.Context, itemID string, qty int) (bool, error)
	Increment(ctx context.Context, itemID string, qty int) error
}

// InsufficientStockError indicates the catalog cannot supply the requested
// quantity of an item.
type InsufficientStockError struct {
	ItemID    string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d", e.ItemID, e.Requested)
}

// Reservation pairs an item with the quantity to reserve or release.
type Reservation struct {
	ItemID   string
	Quantity int
}
