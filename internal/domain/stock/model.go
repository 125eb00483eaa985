// Package stock tracks pharmacy and supply inventory for a hospital. Every
// quantity change is recorded as a movement, so current levels can always be
// reconciled against the movement log.
package stock

import (
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SKU          string    `db:"sku" json:"sku"`
	Name         string    `db:"name" json:"name"`
	Unit         string    `db:"unit" json:"unit"`
	Quantity     int64     `db:"quantity" json:"quantity"`
	ReorderLevel int64     `db:"reorder_level" json:"reorder_level"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type MovementKind string

const (
	MovementIn  MovementKind = "in"
	MovementOut MovementKind = "out"
)

type Movement struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	ItemID    uuid.UUID    `db:"item_id" json:"item_id"`
	Kind      MovementKind `db:"kind" json:"kind"`
	Quantity  int64        `db:"quantity" json:"quantity"`
	Note      *string      `db:"note" json:"note,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

type CreateItemRequest struct {
	SKU          string `json:"sku" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=200"`
	Unit         string `json:"unit" validate:"required,max=32"`
	ReorderLevel int64  `json:"reorder_level" validate:"min=0"`
}

type MovementRequest struct {
	Kind     MovementKind `json:"kind" validate:"required,oneof=in out"`
	Quantity int64        `json:"quantity" validate:"required,min=1"`
	Note     *string      `json:"note,omitempty"`
}
