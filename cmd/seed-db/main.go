// Command seed-db loads customers and catalog items into the database from a
// JSON fixture, so a fresh environment has data to bill against.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/db"
	"github.com/pahanaedu/bookshop/internal/app"
	"github.com/pahanaedu/bookshop/internal/domain/catalog"
	"github.com/pahanaedu/bookshop/internal/domain/customer"
	"github.com/pahanaedu/bookshop/internal/postgres"
)

type seedFile struct {
	Customers []customerJSON `json:"customers"`
	Items     []itemJSON     `json:"items"`
}

type customerJSON struct {
	ID            string `json:"id"`
	AccountNumber string `json:"account_number"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

type itemJSON struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
	Description string          `json:"description"`
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, cfg *app.Config) error {
	data := db.SeedData
	if cfg.Seed.File != "" {
		var err error
		data, err = os.ReadFile(cfg.Seed.File)
		if err != nil {
			return errors.Wrapf(err, "read seed file %s", cfg.Seed.File)
		}
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed data")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	customers := postgres.NewCustomerRepository(pool)
	for _, c := range seed.Customers {
		record := customer.Customer{
			ID:            c.ID,
			AccountNumber: c.AccountNumber,
			Name:          c.Name,
			Address:       c.Address,
			Phone:         c.Phone,
			Email:         c.Email,
			RegisteredAt:  time.Now(),
		}
		if err := record.Validate(); err != nil {
			return errors.Wrapf(err, "customer %s", c.AccountNumber)
		}
		if err := customers.Upsert(ctx, record); err != nil {
			return err
		}
	}
	slog.Info("customers seeded", slog.Int("count", len(seed.Customers)))

	items := postgres.NewItemRepository(pool)
	for _, it := range seed.Items {
		record := catalog.Item{
			ID:          it.ID,
			Code:        it.Code,
			Name:        it.Name,
			Category:    catalog.Category(it.Category),
			Price:       it.Price,
			Stock:       it.Stock,
			MinStock:    it.MinStock,
			Description: it.Description,
		}
		if err := record.Validate(); err != nil {
			return errors.Wrapf(err, "item %s", it.Code)
		}
		if err := items.Upsert(ctx, record); err != nil {
			return err
		}
	}
	slog.Info("items seeded", slog.Int("count", len(seed.Items)))

	return nil
}
