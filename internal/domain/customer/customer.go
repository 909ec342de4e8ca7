package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer represents a bookshop account holder. Bills reference customers by
// ID and carry a snapshot of the name and account number; the billing engine
// never mutates customer records.
type Customer struct {
	ID            string
	AccountNumber string
	Name          string
	Address       string
	Phone         string
	Email         string
	RegisteredAt  time.Time
}

// Validate reports whether the customer record is internally consistent.
func (c Customer) Validate() error {
	if c.AccountNumber == "" {
		return errors.New("account number is required")
	}
	if c.Name == "" {
		return errors.New("customer name is required")
	}
	return nil
}

// Repository defines read operations for the customer directory.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	GetByAccount(ctx context.Context, accountNumber string) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
}
