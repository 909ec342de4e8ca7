//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pahanaedu/bookshop/internal/domain/billing"
	"github.com/pahanaedu/bookshop/internal/domain/customer"
	"github.com/pahanaedu/bookshop/internal/postgres"
)

var taxRate10 = decimal.RequireFromString("0.10")

// newStoredDraft persists the bill's customer first; bills carry a foreign
// key to the customers table.
func newStoredDraft(t *testing.T, repo *postgres.BillRepository, c customer.Customer) *billing.Bill {
	t.Helper()

	require.NoError(t, postgres.NewCustomerRepository(pool).Upsert(context.Background(), c))

	now := time.Now().UTC().Truncate(time.Microsecond)
	b, err := billing.NewDraft(c.ID, c.Name, c.AccountNumber, taxRate10, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func TestBillRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewBillRepository(pool)
	item := newTestItem("BL-RT-1", "25.99", 10)
	insertItem(t, item)

	b := newStoredDraft(t, repo, newTestCustomer("ACC-BL-RT-1"))
	require.NoError(t, b.AddLine(item, 2))
	require.NoError(t, repo.Update(ctx, b))

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.CustomerID, got.CustomerID)
	assert.Equal(t, billing.StatusDraft, got.Status)
	assert.Equal(t, b.Revision, got.Revision)
	require.Len(t, got.Items, 1)
	assert.Equal(t, item.ID, got.Items[0].ItemID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("51.98").Equal(got.Subtotal))
	assert.True(t, decimal.RequireFromString("5.2").Equal(got.TaxAmount))
	assert.True(t, decimal.RequireFromString("57.18").Equal(got.Total))
}

func TestBillRepository_GetMissing(t *testing.T) {
	repo := postgres.NewBillRepository(pool)

	_, err := repo.Get(context.Background(), "no-such-bill")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestBillRepository_UpdateRevisionConflict(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewBillRepository(pool)
	item := newTestItem("BL-REV-1", "10.00", 10)
	insertItem(t, item)

	b := newStoredDraft(t, repo, newTestCustomer("ACC-BL-REV-1"))

	first, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)

	require.NoError(t, first.AddLine(item, 1))
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, second.AddLine(item, 3))
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, billing.ErrRevisionConflict)

	// The winning write is intact.
	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 1, got.Items[0].Quantity)
}

func TestBillRepository_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewBillRepository(pool)

	b, err := billing.NewDraft("cust-gone", "Nimal Perera", "ACC-1001", taxRate10, time.Now().UTC())
	require.NoError(t, err)
	b.Revision = 2

	err = repo.Update(ctx, b)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestBillRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewBillRepository(pool)
	item := newTestItem("BL-Q-1", "10.00", 100)
	insertItem(t, item)

	c := newTestCustomer("ACC-BL-Q-1")
	older := newStoredDraft(t, repo, c)
	finalized := newStoredDraft(t, repo, c)
	require.NoError(t, finalized.AddLine(item, 1))
	require.NoError(t, repo.Update(ctx, finalized))
	require.NoError(t, finalized.Finalize())
	require.NoError(t, repo.Update(ctx, finalized))

	byCustomer, err := repo.ListByCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	// Other tests share the database, so only assert over the bill created
	// here.
	byStatus, err := repo.ListByStatus(ctx, billing.StatusFinalized)
	require.NoError(t, err)
	found := false
	for _, got := range byStatus {
		if got.ID == finalized.ID {
			found = true
			assert.Equal(t, billing.StatusFinalized, got.Status)
		}
	}
	assert.True(t, found, "finalized bill must appear in its status listing")

	from := older.BillDate.Add(-time.Hour)
	to := older.BillDate.Add(time.Hour)
	inRange, err := repo.ListByDateRange(ctx, from, to)
	require.NoError(t, err)
	ids := make(map[string]bool, len(inRange))
	for _, got := range inRange {
		ids[got.ID] = true
	}
	assert.True(t, ids[older.ID])
	assert.True(t, ids[finalized.ID])

	recent, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}
