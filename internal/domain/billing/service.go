package billing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pahanaedu/bookshop/internal/domain/catalog"
	"github.com/pahanaedu/bookshop/internal/domain/customer"
	"github.com/pahanaedu/bookshop/internal/domain/stock"
)

// Config holds billing engine settings.
type Config struct {
	// TaxRate is the fraction applied to the subtotal, e.g. 0.10 for 10%.
	TaxRate decimal.Decimal
}

// Service coordinates the bill lifecycle across the catalog, the customer
// directory, stock reservation, and bill persistence. One call is one unit of
// work: load, mutate, save.
type Service struct {
	bills     Repository
	catalog   catalog.Repository
	customers customer.Repository
	stock     *stock.Coordinator
	taxRate   decimal.Decimal
	now       func() time.Time
}

// NewService creates a billing Service with the required collaborators.
func NewService(
	cfg Config,
	bills Repository,
	items catalog.Repository,
	customers customer.Repository,
	coordinator *stock.Coordinator,
) *Service {
	return &Service{
		bills:     bills,
		catalog:   items,
		customers: customers,
		stock:     coordinator,
		taxRate:   cfg.TaxRate,
		now:       time.Now,
	}
}

// CreateDraft opens an empty draft bill for a customer, snapshotting the
// display name and account number from the customer directory.
func (s *Service) CreateDraft(ctx context.Context, customerID string) (*Bill, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}

	cust, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "load customer", Err: err}
	}

	b, err := NewDraft(cust.ID, cust.Name, cust.AccountNumber, s.taxRate, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.bills.Create(ctx, b); err != nil {
		return nil, &PersistenceError{Op: "create bill", Err: err}
	}

	zctx.From(ctx).Info("Draft bill created",
		zap.String("bill_id", b.ID),
		zap.String("customer_id", cust.ID),
	)
	return b, nil
}

// AddItem adds qty units of a catalog item to a draft bill. A second add of
// the same item merges quantities into the existing line. Availability is
// pre-checked for the merged quantity; the actual reservation happens only at
// finalize time.
func (s *Service) AddItem(ctx context.Context, billID, itemID string, qty int) (*Bill, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if !b.Editable() {
		return nil, ErrBillNotEditable
	}
	if qty <= 0 {
		return nil, &InvalidQuantityError{ItemID: itemID, Quantity: qty}
	}

	item, err := s.catalog.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "load item", Err: err}
	}

	// Stock must cover the whole line after the merge, since nothing is
	// reserved until finalize.
	required := qty
	if line, ok := b.Line(itemID); ok {
		required += line.Quantity
	}
	if err := s.ensureAvailable(ctx, itemID, required); err != nil {
		return nil, err
	}

	if err := b.AddLine(*item, qty); err != nil {
		return nil, err
	}
	return s.saveBill(ctx, b)
}

// UpdateItemQuantity replaces the quantity of an existing line on a draft
// bill. Use RemoveItem to drop a line entirely.
func (s *Service) UpdateItemQuantity(ctx context.Context, billID, itemID string, qty int) (*Bill, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if !b.Editable() {
		return nil, ErrBillNotEditable
	}
	if qty <= 0 {
		return nil, &InvalidQuantityError{ItemID: itemID, Quantity: qty}
	}
	if _, ok := b.Line(itemID); !ok {
		return nil, &LineItemNotFoundError{ItemID: itemID}
	}

	if err := s.ensureAvailable(ctx, itemID, qty); err != nil {
		return nil, err
	}

	if err := b.UpdateLineQuantity(itemID, qty); err != nil {
		return nil, err
	}
	return s.saveBill(ctx, b)
}

// RemoveItem deletes a line from a draft bill, possibly leaving it empty with
// zeroed totals.
func (s *Service) RemoveItem(ctx context.Context, billID, itemID string) (*Bill, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := b.RemoveLine(itemID); err != nil {
		return nil, err
	}
	return s.saveBill(ctx, b)
}

// Finalize validates and locks a draft bill and decrements stock for every
// line item, all or nothing. A failed reservation leaves no partial decrement
// behind; a failed save rolls the reservations back before surfacing the
// persistence error.
func (s *Service) Finalize(ctx context.Context, billID string) (*Bill, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := b.Finalize(); err != nil {
		return nil, err
	}

	reservations := b.Reservations()
	if err := s.stock.ReserveAll(ctx, reservations); err != nil {
		return nil, err
	}

	if err := s.bills.Update(ctx, b); err != nil {
		if relErr := s.stock.ReleaseAll(ctx, reservations); relErr != nil {
			zctx.From(ctx).Warn("Stock release after failed save incomplete",
				zap.String("bill_id", b.ID),
				zap.Error(relErr),
			)
		}
		if errors.Is(err, ErrRevisionConflict) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "save finalized bill", Err: err}
	}

	zctx.From(ctx).Info("Bill finalized",
		zap.String("bill_id", b.ID),
		zap.String("total", b.Total.String()),
		zap.Int("items", b.TotalItemCount()),
	)
	return b, nil
}

// Cancel transitions a bill to cancelled. Cancelling a finalized bill first
// restores the stock decremented at finalize time, the exact inverse of the
// reservation; cancelling a draft has no stock effect.
func (s *Service) Cancel(ctx context.Context, billID string) (*Bill, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	wasFinalized := b.Status == StatusFinalized

	if err := b.Cancel(); err != nil {
		return nil, err
	}

	if wasFinalized {
		reservations := b.Reservations()
		if err := s.stock.ReleaseAll(ctx, reservations); err != nil {
			return nil, &PersistenceError{Op: "release stock", Err: err}
		}
		if _, err := s.saveBill(ctx, b); err != nil {
			// Re-apply the decrements so stock stays consistent with the
			// still-finalized stored bill. Best effort: someone may have
			// bought the released stock in between.
			if resErr := s.stock.ReserveAll(ctx, reservations); resErr != nil {
				zctx.From(ctx).Warn("Stock re-reserve after failed cancel incomplete",
					zap.String("bill_id", b.ID),
					zap.Error(resErr),
				)
			}
			return nil, err
		}
	} else {
		if _, err := s.saveBill(ctx, b); err != nil {
			return nil, err
		}
	}

	zctx.From(ctx).Info("Bill cancelled",
		zap.String("bill_id", b.ID),
		zap.Bool("stock_restored", wasFinalized),
	)
	return b, nil
}

// MarkPaid settles a finalized bill. This is the hook for the external
// payment collaborator; any other source state is rejected.
func (s *Service) MarkPaid(ctx context.Context, billID string) (*Bill, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := b.MarkPaid(); err != nil {
		return nil, err
	}
	return s.saveBill(ctx, b)
}

// Get returns a bill by ID.
func (s *Service) Get(ctx context.Context, billID string) (*Bill, error) {
	return s.loadBill(ctx, billID)
}

// ListByCustomer returns all bills for one customer.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]Bill, error) {
	bills, err := s.bills.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, &PersistenceError{Op: "list bills by customer", Err: err}
	}
	return bills, nil
}

// ListByStatus returns all bills in the given lifecycle state.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Bill, error) {
	bills, err := s.bills.ListByStatus(ctx, status)
	if err != nil {
		return nil, &PersistenceError{Op: "list bills by status", Err: err}
	}
	return bills, nil
}

// ListByDateRange returns bills whose bill date falls within [from, to].
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time) ([]Bill, error) {
	bills, err := s.bills.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, &PersistenceError{Op: "list bills by date range", Err: err}
	}
	return bills, nil
}

// Recent returns the most recently created bills, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Bill, error) {
	bills, err := s.bills.Recent(ctx, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list recent bills", Err: err}
	}
	return bills, nil
}

// ensureAvailable maps a failed availability pre-check to the same error a
// failed reservation would yield.
func (s *Service) ensureAvailable(ctx context.Context, itemID string, qty int) error {
	ok, err := s.stock.CheckAvailability(ctx, itemID, qty)
	if err != nil {
		return &PersistenceError{Op: "check stock availability", Err: err}
	}
	if !ok {
		return &stock.InsufficientStockError{ItemID: itemID, Requested: qty}
	}
	return nil
}

func (s *Service) loadBill(ctx context.Context, billID string) (*Bill, error) {
	b, err := s.bills.Get(ctx, billID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "load bill", Err: err}
	}
	return b, nil
}

func (s *Service) saveBill(ctx context.Context, b *Bill) (*Bill, error) {
	if err := s.bills.Update(ctx, b); err != nil {
		if errors.Is(err, ErrRevisionConflict) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "save bill", Err: err}
	}
	return b, nil
}
