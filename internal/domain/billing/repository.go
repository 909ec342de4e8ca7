package billing

import (
	"context"
	"time"
)

// Repository defines persistence operations for bills.
//
// Update must apply an optimistic revision check (the stored revision must be
// exactly one behind the bill being written) and return ErrRevisionConflict
// when a concurrent writer got there first.
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	Update(ctx context.Context, b *Bill) error
	Get(ctx context.Context, id string) (*Bill, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Bill, error)
	ListByStatus(ctx context.Context, status Status) ([]Bill, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]Bill, error)
	Recent(ctx context.Context, limit int) ([]Bill, error)
}
