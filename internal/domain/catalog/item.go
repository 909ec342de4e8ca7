package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog item does not exist.
var ErrNotFound = errors.New("item not found")

// Category classifies a catalog item.
type Category string

const (
	CategoryTextbook   Category = "textbook"
	CategoryReference  Category = "reference"
	CategoryStationery Category = "stationery"
	CategoryDigital    Category = "digital"
)

// categoryDisplayNames holds the labels shown on screens and printed bills.
// Kept as a lookup table outside any decision logic.
var categoryDisplayNames = map[Category]string{
	CategoryTextbook:   "Textbook",
	CategoryReference:  "Reference Book",
	CategoryStationery: "Stationery",
	CategoryDigital:    "Digital Resource",
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	_, ok := categoryDisplayNames[c]
	return ok
}

// DisplayName returns the human-readable label for the category.
func (c Category) DisplayName() string {
	if name, ok := categoryDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// StockStatus describes item availability derived from the stock level.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

var stockStatusDisplayNames = map[StockStatus]string{
	StockStatusInStock:    "In Stock",
	StockStatusLowStock:   "Low Stock",
	StockStatusOutOfStock: "Out of Stock",
}

// DisplayName returns the human-readable label for the stock status.
func (s StockStatus) DisplayName() string {
	if name, ok := stockStatusDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

// Item represents a bookshop inventory entry.
type Item struct {
	ID          string
	Code        string
	Name        string
	Category    Category
	Price       decimal.Decimal
	Stock       int
	MinStock    int
	Description string
}

// StockStatus derives availability from the current stock level and the
// minimum stock threshold.
func (i Item) StockStatus() StockStatus {
	switch {
	case i.Stock <= 0:
		return StockStatusOutOfStock
	case i.Stock <= i.MinStock:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// DisplayName returns the item name with its code, e.g. "Physics I (BK-001)".
func (i Item) DisplayName() string {
	return i.Name + " (" + i.Code + ")"
}

// Validate reports whether the item is internally consistent.
func (i Item) Validate() error {
	if i.Code == "" {
		return errors.New("item code is required")
	}
	if i.Name == "" {
		return errors.New("item name is required")
	}
	if !i.Category.Valid() {
		return errors.Errorf("unknown item category %q", i.Category)
	}
	if i.Price.IsNegative() {
		return errors.Errorf("item price %s is negative", i.Price)
	}
	if i.Stock < 0 {
		return errors.Errorf("item stock %d is negative", i.Stock)
	}
	return nil
}

// Repository defines read operations for the item catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByCode(ctx context.Context, code string) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	ListLowStock(ctx context.Context) ([]Item, error)
}
