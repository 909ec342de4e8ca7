//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pahanaedu/bookshop/internal/domain/customer"
	"github.com/pahanaedu/bookshop/internal/postgres"
)

func TestCustomerRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewCustomerRepository(pool)
	c := newTestCustomer("ACC-IT-1001")

	require.NoError(t, repo.Upsert(ctx, c))

	byID, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.AccountNumber, byID.AccountNumber)
	assert.WithinDuration(t, c.RegisteredAt, byID.RegisteredAt, time.Second)

	byAccount, err := repo.GetByAccount(ctx, c.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byAccount.ID)
}

func TestCustomerRepository_UpsertUpdatesExistingAccount(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewCustomerRepository(pool)
	c := newTestCustomer("ACC-IT-1002")
	require.NoError(t, repo.Upsert(ctx, c))

	updated := c
	updated.Name = "Renamed Customer"
	updated.Phone = "+94 77 111 2222"
	require.NoError(t, repo.Upsert(ctx, updated))

	got, err := repo.GetByAccount(ctx, c.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Renamed Customer", got.Name)
	assert.Equal(t, "+94 77 111 2222", got.Phone)
}

func TestCustomerRepository_GetMissing(t *testing.T) {
	repo := postgres.NewCustomerRepository(pool)

	_, err := repo.GetByAccount(context.Background(), "ACC-NO-SUCH")
	assert.ErrorIs(t, err, customer.ErrNotFound)
}
