package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound      = errors.New("stock item not found")
	ErrSKUTaken          = errors.New("sku already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	GetItemBySKU(ctx context.Context, sku string) (*Item, error)
	ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error)
	// ListLow returns items at or below their reorder level.
	ListLow(ctx context.Context) ([]*Item, error)

	// ApplyMovement records the movement and adjusts the item quantity by
	// delta in one transaction-equivalent step. A negative resulting quantity
	// returns ErrInsufficientStock.
	ApplyMovement(ctx context.Context, m *Movement, delta int64) error
	ListMovements(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Movement, int, error)
}
