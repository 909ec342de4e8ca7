package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pahanaedu/bookshop/internal/domain/customer"
)

const (
	customerColumns = `id, account_number, name, address, phone, email, registered_at`

	getCustomerByIDSQL      = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	getCustomerByAccountSQL = `SELECT ` + customerColumns + ` FROM customers WHERE account_number = $1`
	listCustomersSQL        = `SELECT ` + customerColumns + ` FROM customers ORDER BY account_number`

	upsertCustomerSQL = `INSERT INTO customers (id, account_number, name, address, phone, email, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_number) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a single customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	return r.getOne(ctx, getCustomerByIDSQL, id)
}

// GetByAccount returns a single customer by its unique account number.
func (r *CustomerRepository) GetByAccount(ctx context.Context, accountNumber string) (*customer.Customer, error) {
	return r.getOne(ctx, getCustomerByAccountSQL, accountNumber)
}

// List returns all customers ordered by account number.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// Upsert inserts a customer or updates the existing row with the same
// account number.
func (r *CustomerRepository) Upsert(ctx context.Context, c customer.Customer) error {
	_, err := r.pool.Exec(ctx, upsertCustomerSQL,
		c.ID, c.AccountNumber, c.Name, c.Address, c.Phone, c.Email, c.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.AccountNumber, err)
	}
	return nil
}

func (r *CustomerRepository) getOne(ctx context.Context, sql, arg string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", arg, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", arg, err)
	}
	return &c, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID, &c.AccountNumber, &c.Name, &c.Address,
		&c.Phone, &c.Email, &c.RegisteredAt,
	)
	return c, err
}
