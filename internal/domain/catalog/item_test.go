package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItem() Item {
	return Item{
		ID:       "i1",
		Code:     "BK-1001",
		Name:     "Advanced Level Physics",
		Category: CategoryTextbook,
		Price:    decimal.RequireFromString("25.99"),
		Stock:    40,
		MinStock: 5,
	}
}

func TestStockStatus(t *testing.T) {
	tests := []struct {
		name     string
		stock    int
		minStock int
		want     StockStatus
	}{
		{name: "out of stock", stock: 0, minStock: 5, want: StockStatusOutOfStock},
		{name: "low stock at threshold", stock: 5, minStock: 5, want: StockStatusLowStock},
		{name: "low stock below threshold", stock: 1, minStock: 5, want: StockStatusLowStock},
		{name: "in stock", stock: 6, minStock: 5, want: StockStatusInStock},
		{name: "zero threshold in stock", stock: 1, minStock: 0, want: StockStatusInStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			item.Stock = tt.stock
			item.MinStock = tt.minStock
			assert.Equal(t, tt.want, item.StockStatus())
		})
	}
}

func TestCategoryDisplayNames(t *testing.T) {
	assert.Equal(t, "Textbook", CategoryTextbook.DisplayName())
	assert.Equal(t, "Reference Book", CategoryReference.DisplayName())
	assert.Equal(t, "Stationery", CategoryStationery.DisplayName())
	assert.Equal(t, "Digital Resource", CategoryDigital.DisplayName())

	assert.True(t, CategoryTextbook.Valid())
	assert.False(t, Category("comics").Valid())
}

func TestItemDisplayName(t *testing.T) {
	assert.Equal(t, "Advanced Level Physics (BK-1001)", validItem().DisplayName())
}

func TestItemValidate(t *testing.T) {
	require.NoError(t, validItem().Validate())

	tests := []struct {
		name   string
		mutate func(*Item)
	}{
		{name: "empty code", mutate: func(i *Item) { i.Code = "" }},
		{name: "empty name", mutate: func(i *Item) { i.Name = "" }},
		{name: "unknown category", mutate: func(i *Item) { i.Category = "comics" }},
		{name: "negative price", mutate: func(i *Item) { i.Price = decimal.RequireFromString("-1") }},
		{name: "negative stock", mutate: func(i *Item) { i.Stock = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(&item)
			assert.Error(t, item.Validate())
		})
	}
}
