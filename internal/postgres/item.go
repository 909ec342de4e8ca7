package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/internal/domain/catalog"
	"github.com/pahanaedu/bookshop/internal/domain/stock"
)

const (
	itemColumns = `id, code, name, category, price, stock, min_stock, description`

	getItemByIDSQL   = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	getItemByCodeSQL = `SELECT ` + itemColumns + ` FROM items WHERE code = $1`
	listItemsSQL     = `SELECT ` + itemColumns + ` FROM items ORDER BY code`
	listLowStockSQL  = `SELECT ` + itemColumns + ` FROM items WHERE stock <= min_stock ORDER BY stock, code`

	availableStockSQL = `SELECT stock FROM items WHERE id = $1`

	// Conditional decrement: the availability check and the decrement are one
	// atomic statement, so concurrent reservations cannot drive stock negative.
	tryDecrementStockSQL = `UPDATE items SET stock = stock - $2 WHERE id = $1 AND stock >= $2`
	incrementStockSQL    = `UPDATE items SET stock = stock + $2 WHERE id = $1`

	upsertItemSQL = `INSERT INTO items (id, code, name, category, price, stock, min_stock, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			min_stock = EXCLUDED.min_stock,
			description = EXCLUDED.description`
)

var (
	_ catalog.Repository = (*ItemRepository)(nil)
	_ stock.Store        = (*ItemRepository)(nil)
)

// ItemRepository implements catalog.Repository and stock.Store backed by
// PostgreSQL. Both roles share one table so a reservation and a catalog read
// always observe the same stock counter.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// GetByID returns a single item by its identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*catalog.Item, error) {
	return r.getOne(ctx, getItemByIDSQL, id)
}

// GetByCode returns a single item by its unique code.
func (r *ItemRepository) GetByCode(ctx context.Context, code string) (*catalog.Item, error) {
	return r.getOne(ctx, getItemByCodeSQL, code)
}

// List returns all catalog items ordered by code.
func (r *ItemRepository) List(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// ListLowStock returns items at or below their minimum stock threshold,
// most depleted first.
func (r *ItemRepository) ListLowStock(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, listLowStockSQL)
	if err != nil {
		return nil, fmt.Errorf("listing low stock items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// Available returns the current stock counter for an item.
func (r *ItemRepository) Available(ctx context.Context, itemID string) (int, error) {
	var available int
	err := r.pool.QueryRow(ctx, availableStockSQL, itemID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, catalog.ErrNotFound
		}
		return 0, fmt.Errorf("reading stock of item %q: %w", itemID, err)
	}
	return available, nil
}

// TryDecrement decrements stock iff the current level covers qty, reporting
// whether the decrement was applied.
func (r *ItemRepository) TryDecrement(ctx context.Context, itemID string, qty int) (bool, error) {
	tag, err := r.pool.Exec(ctx, tryDecrementStockSQL, itemID, qty)
	if err != nil {
		return false, fmt.Errorf("decrementing stock of item %q: %w", itemID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Increment adds qty back to an item's stock counter.
func (r *ItemRepository) Increment(ctx context.Context, itemID string, qty int) error {
	tag, err := r.pool.Exec(ctx, incrementStockSQL, itemID, qty)
	if err != nil {
		return fmt.Errorf("incrementing stock of item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Upsert inserts an item or updates the existing row with the same code.
func (r *ItemRepository) Upsert(ctx context.Context, item catalog.Item) error {
	_, err := r.pool.Exec(ctx, upsertItemSQL,
		item.ID, item.Code, item.Name, string(item.Category),
		item.Price, item.Stock, item.MinStock, item.Description,
	)
	if err != nil {
		return fmt.Errorf("upserting item %q: %w", item.Code, err)
	}
	return nil
}

// UpsertBatch upserts many items in a single database round-trip.
func (r *ItemRepository) UpsertBatch(ctx context.Context, items []catalog.Item) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(upsertItemSQL,
			item.ID, item.Code, item.Name, string(item.Category),
			item.Price, item.Stock, item.MinStock, item.Description,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, item := range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting item %q: %w", item.Code, err)
		}
	}
	return results.Close()
}

func (r *ItemRepository) getOne(ctx context.Context, sql, arg string) (*catalog.Item, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting item %q: %w", arg, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %q: %w", arg, err)
	}
	return &item, nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		item     catalog.Item
		category string
		price    decimal.Decimal
	)
	err := row.Scan(
		&item.ID, &item.Code, &item.Name, &category,
		&price, &item.Stock, &item.MinStock, &item.Description,
	)
	item.Category = catalog.Category(category)
	item.Price = price
	return item, err
}
