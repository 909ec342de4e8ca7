package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/internal/domain/billing"
)

const (
	billColumns = `id, customer_id, customer_name, customer_account, bill_date, created_at,
		items, subtotal, tax_rate, tax_amount, total, status, revision`

	getBillSQL = `SELECT ` + billColumns + ` FROM bills WHERE id = $1`

	listBillsByCustomerSQL = `SELECT ` + billColumns + ` FROM bills
		WHERE customer_id = $1 ORDER BY created_at DESC`

	listBillsByStatusSQL = `SELECT ` + billColumns + ` FROM bills
		WHERE status = $1 ORDER BY created_at DESC`

	listBillsByDateRangeSQL = `SELECT ` + billColumns + ` FROM bills
		WHERE bill_date >= $1 AND bill_date <= $2 ORDER BY bill_date, created_at`

	listRecentBillsSQL = `SELECT ` + billColumns + ` FROM bills
		ORDER BY created_at DESC LIMIT $1`

	createBillSQL = `INSERT INTO bills
		(id, customer_id, customer_name, customer_account, bill_date, created_at,
		 items, subtotal, tax_rate, tax_amount, total, status, revision)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	// Optimistic update: applies only when the stored revision is exactly one
	// behind the bill being written.
	updateBillSQL = `UPDATE bills SET
		items = $2, subtotal = $3, tax_rate = $4, tax_amount = $5, total = $6,
		status = $7, revision = $8
		WHERE id = $1 AND revision = $9`
)

var _ billing.Repository = (*BillRepository)(nil)

// BillRepository implements billing.Repository backed by PostgreSQL. Line
// items travel with the bill row as JSONB, so one row read rehydrates the
// whole aggregate.
type BillRepository struct {
	pool *pgxpool.Pool
}

// NewBillRepository returns a BillRepository that uses the given pool.
func NewBillRepository(pool *pgxpool.Pool) *BillRepository {
	return &BillRepository{pool: pool}
}

// Create persists a new draft bill.
func (r *BillRepository) Create(ctx context.Context, b *billing.Bill) error {
	itemsJSON, err := json.Marshal(b.Items)
	if err != nil {
		return fmt.Errorf("marshaling bill items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createBillSQL,
		b.ID, b.CustomerID, b.CustomerName, b.CustomerAccount,
		b.BillDate, b.CreatedAt, itemsJSON,
		b.Subtotal, b.TaxRate, b.TaxAmount, b.Total,
		string(b.Status), b.Revision,
	)
	if err != nil {
		return fmt.Errorf("creating bill %q: %w", b.ID, err)
	}
	return nil
}

// Update persists a mutated bill, enforcing the optimistic revision check.
func (r *BillRepository) Update(ctx context.Context, b *billing.Bill) error {
	itemsJSON, err := json.Marshal(b.Items)
	if err != nil {
		return fmt.Errorf("marshaling bill items: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateBillSQL,
		b.ID, itemsJSON,
		b.Subtotal, b.TaxRate, b.TaxAmount, b.Total,
		string(b.Status), b.Revision, b.Revision-1,
	)
	if err != nil {
		return fmt.Errorf("updating bill %q: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the bill vanished or someone else advanced the revision.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bills WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking bill %q: %w", b.ID, err)
		}
		if !exists {
			return billing.ErrNotFound
		}
		return billing.ErrRevisionConflict
	}
	return nil
}

// Get returns a bill with its line items by ID.
func (r *BillRepository) Get(ctx context.Context, id string) (*billing.Bill, error) {
	rows, err := r.pool.Query(ctx, getBillSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting bill %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBill)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, fmt.Errorf("getting bill %q: %w", id, err)
	}
	return &b, nil
}

// ListByCustomer returns all bills for one customer, newest first.
func (r *BillRepository) ListByCustomer(ctx context.Context, customerID string) ([]billing.Bill, error) {
	return r.list(ctx, listBillsByCustomerSQL, customerID)
}

// ListByStatus returns all bills in the given lifecycle state, newest first.
func (r *BillRepository) ListByStatus(ctx context.Context, status billing.Status) ([]billing.Bill, error) {
	return r.list(ctx, listBillsByStatusSQL, string(status))
}

// ListByDateRange returns bills whose bill date falls within [from, to].
func (r *BillRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]billing.Bill, error) {
	return r.list(ctx, listBillsByDateRangeSQL, from, to)
}

// Recent returns the most recently created bills, newest first.
func (r *BillRepository) Recent(ctx context.Context, limit int) ([]billing.Bill, error) {
	return r.list(ctx, listRecentBillsSQL, limit)
}

func (r *BillRepository) list(ctx context.Context, sql string, args ...any) ([]billing.Bill, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	return pgx.CollectRows(rows, scanBill)
}

func scanBill(row pgx.CollectableRow) (billing.Bill, error) {
	var (
		b         billing.Bill
		status    string
		itemsJSON []byte
		subtotal  decimal.Decimal
		taxRate   decimal.Decimal
		taxAmount decimal.Decimal
		total     decimal.Decimal
	)
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.CustomerName, &b.CustomerAccount,
		&b.BillDate, &b.CreatedAt, &itemsJSON,
		&subtotal, &taxRate, &taxAmount, &total,
		&status, &b.Revision,
	)
	if err != nil {
		return billing.Bill{}, err
	}

	if err := json.Unmarshal(itemsJSON, &b.Items); err != nil {
		return billing.Bill{}, fmt.Errorf("unmarshaling items of bill %q: %w", b.ID, err)
	}

	b.Subtotal = subtotal
	b.TaxRate = taxRate
	b.TaxAmount = taxAmount
	b.Total = total
	b.Status = billing.Status(status)
	return b, nil
}
