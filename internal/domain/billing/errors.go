package billing

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for bill lifecycle operations.
var (
	// ErrMissingCustomer is returned when a draft is created without a customer.
	ErrMissingCustomer = errors.New("customer is required")
	// ErrBillNotEditable is returned when a mutation targets a non-draft bill.
	ErrBillNotEditable = errors.New("bill is not editable")
	// ErrBillNotCancellable is returned when cancelling a paid or already
	// cancelled bill.
	ErrBillNotCancellable = errors.New("bill cannot be cancelled")
	// ErrEmptyBill is returned when finalizing a bill with no line items.
	ErrEmptyBill = errors.New("bill has no line items")
	// ErrNotFound is returned when a requested bill does not exist.
	ErrNotFound = errors.New("bill not found")
	// ErrRevisionConflict is returned by storage when a concurrent writer has
	// already advanced the bill's revision.
	ErrRevisionConflict = errors.New("bill revision conflict")
)

// InvalidQuantityError indicates a non-positive line item quantity.
type InvalidQuantityError struct {
	ItemID   string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d is invalid for item %s: must be greater than 0", e.Quantity, e.ItemID)
}

// InvalidLineItemError indicates line item inputs that violate the
// calculator's constraints.
type InvalidLineItemError struct {
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return "invalid line item: " + e.Reason
}

// LineItemNotFoundError indicates the bill has no line for the given item.
type LineItemNotFoundError struct {
	ItemID string
}

func (e *LineItemNotFoundError) Error() string {
	return fmt.Sprintf("bill has no line item for item %s", e.ItemID)
}

// ValidationError indicates a bill failed its pre-finalize validity checks.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "bill validation failed: " + e.Reason
}

// InvalidStateTransitionError indicates a lifecycle transition the state
// machine does not permit.
type InvalidStateTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid bill state transition: %s -> %s", e.From, e.To)
}

// PersistenceError wraps a storage collaborator failure. The underlying error
// is surfaced unchanged through Unwrap; the core never retries.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
