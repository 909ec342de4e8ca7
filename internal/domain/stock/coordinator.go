package stock

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Coordinator is the sole mutator of catalog stock for billing operations.
type Coordinator struct {
	store Store
}

// NewCoordinator creates a Coordinator over the given stock Store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// CheckAvailability reports whether the current stock of an item covers the
// requested quantity. Read-only; the answer may be stale by the time a
// reservation is attempted, which Reserve handles atomically.
func (c *Coordinator) CheckAvailability(ctx context.Context, itemID string, qty int) (bool, error) {
	available, err := c.store.Available(ctx, itemID)
	if err != nil {
		return false, errors.Wrapf(err, "check availability of item %s", itemID)
	}
	return available >= qty, nil
}

// Reserve atomically re-checks availability and decrements stock. It returns
// an InsufficientStockError when stock is now less than qty, covering the
// race where stock changed between an availability check and this call.
func (c *Coordinator) Reserve(ctx context.Context, itemID string, qty int) error {
	ok, err := c.store.TryDecrement(ctx, itemID, qty)
	if err != nil {
		return errors.Wrapf(err, "reserve item %s", itemID)
	}
	if !ok {
		return &InsufficientStockError{ItemID: itemID, Requested: qty}
	}
	return nil
}

// Release increments stock back. It is the exact inverse of Reserve.
func (c *Coordinator) Release(ctx context.Context, itemID string, qty int) error {
	if err := c.store.Increment(ctx, itemID, qty); err != nil {
		return errors.Wrapf(err, "release item %s", itemID)
	}
	return nil
}

// ReserveAll reserves every reservation in the batch, or none of them: when
// any single reservation fails, those already applied are released before the
// error is surfaced, so no partial stock depletion is ever visible.
func (c *Coordinator) ReserveAll(ctx context.Context, batch []Reservation) error {
	for i, r := range batch {
		if err := c.Reserve(ctx, r.ItemID, r.Quantity); err != nil {
			c.rollback(ctx, batch[:i])
			return err
		}
	}
	return nil
}

// ReleaseAll releases every reservation in the batch, or none of them: when
// any single release fails, those already applied are re-reserved before the
// error is surfaced, so stock stays consistent with a bill that remains
// finalized.
func (c *Coordinator) ReleaseAll(ctx context.Context, batch []Reservation) error {
	for i, r := range batch {
		if err := c.Release(ctx, r.ItemID, r.Quantity); err != nil {
			c.reapply(ctx, batch[:i])
			return err
		}
	}
	return nil
}

// rollback releases already-applied reservations in reverse order. Release
// failures are logged rather than returned so they cannot mask the original
// reservation error.
func (c *Coordinator) rollback(ctx context.Context, applied []Reservation) {
	for i := len(applied) - 1; i >= 0; i-- {
		r := applied[i]
		if err := c.Release(ctx, r.ItemID, r.Quantity); err != nil {
			zctx.From(ctx).Warn("Rollback release failed",
				zap.String("item_id", r.ItemID),
				zap.Int("quantity", r.Quantity),
				zap.Error(err),
			)
		}
	}
}

// reapply re-reserves already-applied releases in reverse order. Best effort:
// a concurrent buyer may have taken the released stock in between, and such
// failures are logged rather than returned so they cannot mask the original
// release error.
func (c *Coordinator) reapply(ctx context.Context, applied []Reservation) {
	for i := len(applied) - 1; i >= 0; i-- {
		r := applied[i]
		if err := c.Reserve(ctx, r.ItemID, r.Quantity); err != nil {
			zctx.From(ctx).Warn("Rollback re-reserve failed",
				zap.String("item_id", r.ItemID),
				zap.Int("quantity", r.Quantity),
				zap.Error(err),
			)
		}
	}
}
