//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pahanaedu/bookshop/internal/domain/catalog"
	"github.com/pahanaedu/bookshop/internal/domain/customer"
	"github.com/pahanaedu/bookshop/internal/postgres"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}

	err = dc.
		WaitForService("postgres", wait.ForListeningPort("5432/tcp")).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	pgContainer, err := dc.ServiceContainer(ctx, "postgres")
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}

	mappedPort, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	databaseURL := fmt.Sprintf("postgres://bookshop:bookshop@%s:%s/bookshop?sslmode=disable", host, mappedPort.Port())

	pool, err = postgres.NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}

	if err := waitForDatabase(ctx); err != nil {
		log.Fatalf("wait for database: %v", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	log.Printf("database ready at %s", databaseURL)

	result := m.Run()

	pool.Close()
	if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
		log.Printf("compose down: %v", err)
	}

	return result
}

// waitForDatabase polls until the container accepts authenticated connections;
// the listening-port wait fires before postgres finishes its startup cycle.
func waitForDatabase(ctx context.Context) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for database (last: %v): %w", lastErr, ctx.Err())
		case <-ticker.C:
			if lastErr = pool.Ping(ctx); lastErr == nil {
				return nil
			}
		}
	}
}

// Fixture helpers. Every test works with its own rows, so the suite can run
// against one shared database without cleanup between tests.

func newTestItem(code string, price string, stock int) catalog.Item {
	return catalog.Item{
		ID:       uuid.NewString(),
		Code:     code,
		Name:     "Item " + code,
		Category: catalog.CategoryTextbook,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		MinStock: 5,
	}
}

func insertItem(t *testing.T, item catalog.Item) *postgres.ItemRepository {
	t.Helper()

	repo := postgres.NewItemRepository(pool)
	if err := repo.Upsert(context.Background(), item); err != nil {
		t.Fatalf("upsert item %s: %v", item.Code, err)
	}
	return repo
}

func newTestCustomer(account string) customer.Customer {
	return customer.Customer{
		ID:            uuid.NewString(),
		AccountNumber: account,
		Name:          "Customer " + account,
		Address:       "12 Galle Road, Colombo",
		Phone:         "+94 11 234 5678",
		Email:         "customer@example.com",
		RegisteredAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}
