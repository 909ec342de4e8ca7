package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/internal/domain/catalog"
	"github.com/pahanaedu/bookshop/internal/domain/stock"
)

// Status is the lifecycle state of a bill.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// statusDisplayNames holds presentation labels, kept outside decision logic.
var statusDisplayNames = map[Status]string{
	StatusDraft:     "Draft",
	StatusFinalized: "Finalized",
	StatusPaid:      "Paid",
	StatusCancelled: "Cancelled",
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	_, ok := statusDisplayNames[s]
	return ok
}

// DisplayName returns the human-readable label for the status.
func (s Status) DisplayName() string {
	if name, ok := statusDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

// LineItem is a priced quantity of one catalog item. Code, name and unit
// price are snapshots taken when the line was added; Total is always derived
// from UnitPrice and Quantity, never set independently.
type LineItem struct {
	ItemID    string          `json:"item_id"`
	ItemCode  string          `json:"item_code"`
	ItemName  string          `json:"item_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// Bill is the billing aggregate: an ordered collection of line items for one
// customer, with subtotal, tax and total kept consistent on every mutation.
//
// Revision increments exactly once per successful mutation so an external
// concurrency-control layer can implement optimistic locking.
type Bill struct {
	ID              string
	CustomerID      string
	CustomerName    string
	CustomerAccount string
	BillDate        time.Time
	CreatedAt       time.Time
	Items           []LineItem
	Subtotal        decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	Revision        int64
}

// NewDraft creates an empty draft bill for a customer with zeroed totals and
// the configured tax rate.
func NewDraft(customerID, customerName, customerAccount string, taxRate decimal.Decimal, now time.Time) (*Bill, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}
	return &Bill{
		ID:              uuid.New().String(),
		CustomerID:      customerID,
		CustomerName:    customerName,
		CustomerAccount: customerAccount,
		BillDate:        now,
		CreatedAt:       now,
		Subtotal:        decimal.Zero,
		TaxRate:         taxRate,
		TaxAmount:       decimal.Zero,
		Total:           decimal.Zero,
		Status:          StatusDraft,
		Revision:        1,
	}, nil
}

// Editable reports whether line items may still be mutated.
func (b *Bill) Editable() bool {
	return b.Status == StatusDraft
}

// Line returns the line item for the given item ID, if present.
func (b *Bill) Line(itemID string) (LineItem, bool) {
	for _, li := range b.Items {
		if li.ItemID == itemID {
			return li, true
		}
	}
	return LineItem{}, false
}

// TotalItemCount returns the sum of all line item quantities.
func (b *Bill) TotalItemCount() int {
	count := 0
	for _, li := range b.Items {
		count += li.Quantity
	}
	return count
}

// AddLine appends qty units of the given item as a new line, or merges into
// an existing line for the same item by summing quantities. Totals are
// recalculated before the call returns.
func (b *Bill) AddLine(item catalog.Item, qty int) error {
	if !b.Editable() {
		return ErrBillNotEditable
	}
	if qty <= 0 {
		return &InvalidQuantityError{ItemID: item.ID, Quantity: qty}
	}

	for i := range b.Items {
		if b.Items[i].ItemID == item.ID {
			return b.setLineQuantity(i, b.Items[i].Quantity+qty)
		}
	}

	total, err := ComputeLineTotal(item.Price, qty)
	if err != nil {
		return err
	}
	b.Items = append(b.Items, LineItem{
		ItemID:    item.ID,
		ItemCode:  item.Code,
		ItemName:  item.Name,
		UnitPrice: item.Price,
		Quantity:  qty,
		Total:     total,
	})
	b.commit()
	return nil
}

// UpdateLineQuantity replaces the quantity of an existing line. Zero is not a
// valid quantity; removal is a separate operation.
func (b *Bill) UpdateLineQuantity(itemID string, qty int) error {
	if !b.Editable() {
		return ErrBillNotEditable
	}
	if qty <= 0 {
		return &InvalidQuantityError{ItemID: itemID, Quantity: qty}
	}
	for i := range b.Items {
		if b.Items[i].ItemID == itemID {
			return b.setLineQuantity(i, qty)
		}
	}
	return &LineItemNotFoundError{ItemID: itemID}
}

// RemoveLine deletes the line for the given item, preserving the order of the
// remaining lines. Removing the last line yields an empty, zero-total bill.
func (b *Bill) RemoveLine(itemID string) error {
	if !b.Editable() {
		return ErrBillNotEditable
	}
	for i := range b.Items {
		if b.Items[i].ItemID == itemID {
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			b.commit()
			return nil
		}
	}
	return &LineItemNotFoundError{ItemID: itemID}
}

// Validate runs the pre-finalize validity checks over the customer reference
// and every line item.
func (b *Bill) Validate() error {
	if b.CustomerID == "" {
		return &ValidationError{Reason: "missing customer reference"}
	}
	for _, li := range b.Items {
		if li.ItemID == "" || li.ItemCode == "" {
			return &ValidationError{Reason: "line item has empty identifiers"}
		}
		if li.Quantity <= 0 {
			return &ValidationError{Reason: "line item quantity is not positive"}
		}
		if li.UnitPrice.IsNegative() {
			return &ValidationError{Reason: "line item unit price is negative"}
		}
	}
	return nil
}

// Finalize validates the bill and locks it. The caller is responsible for
// reserving stock before persisting the finalized bill.
func (b *Bill) Finalize() error {
	if b.Status != StatusDraft {
		return ErrBillNotEditable
	}
	if len(b.Items) == 0 {
		return ErrEmptyBill
	}
	if err := b.Validate(); err != nil {
		return err
	}
	b.recalculate()
	b.Status = StatusFinalized
	b.Revision++
	return nil
}

// Cancel transitions the bill to cancelled. Paid and already cancelled bills
// are terminal. The caller restores stock when the bill was finalized.
func (b *Bill) Cancel() error {
	if b.Status == StatusCancelled || b.Status == StatusPaid {
		return ErrBillNotCancellable
	}
	b.Status = StatusCancelled
	b.Revision++
	return nil
}

// MarkPaid transitions a finalized bill to paid; the terminal state for a
// settled bill.
func (b *Bill) MarkPaid() error {
	if b.Status != StatusFinalized {
		return &InvalidStateTransitionError{From: b.Status, To: StatusPaid}
	}
	b.Status = StatusPaid
	b.Revision++
	return nil
}

// Reservations returns the stock reservations needed to finalize this bill,
// one per line item in line order.
func (b *Bill) Reservations() []stock.Reservation {
	out := make([]stock.Reservation, len(b.Items))
	for i, li := range b.Items {
		out[i] = stock.Reservation{ItemID: li.ItemID, Quantity: li.Quantity}
	}
	return out
}

// setLineQuantity recomputes one line's total for a new quantity and commits
// the mutation.
func (b *Bill) setLineQuantity(i, qty int) error {
	total, err := ComputeLineTotal(b.Items[i].UnitPrice, qty)
	if err != nil {
		return err
	}
	b.Items[i].Quantity = qty
	b.Items[i].Total = total
	b.commit()
	return nil
}

// commit recalculates totals and advances the revision after a successful
// structural mutation.
func (b *Bill) commit() {
	b.recalculate()
	b.Revision++
}

// recalculate restores the monetary invariant: subtotal is the exact sum of
// line totals, tax is subtotal times the rate rounded half-up to two decimal
// places, and total is subtotal plus tax.
func (b *Bill) recalculate() {
	subtotal := decimal.Zero
	for _, li := range b.Items {
		subtotal = subtotal.Add(li.Total)
	}
	b.Subtotal = subtotal
	b.TaxAmount = subtotal.Mul(b.TaxRate).Round(2)
	b.Total = subtotal.Add(b.TaxAmount)
}
