package stock

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/his/his/internal/tenancy"
)

type repoPG struct{}

func NewRepoPG() Repository { return &repoPG{} }

const itemCols = `id, sku, name, unit, quantity, reorder_level, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.SKU, &item.Name, &item.Unit,
		&item.Quantity, &item.ReorderLevel, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repoPG) CreateItem(ctx context.Context, item *Item) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO stock_items (id, sku, name, unit, quantity, reorder_level)
		VALUES ($1, $2, $3, $4, 0, $5)`,
		item.ID, item.SKU, item.Name, item.Unit, item.ReorderLevel)
	if err != nil && strings.Contains(err.Error(), "stock_items_sku_key") {
		return ErrSKUTaken
	}
	return err
}

func (r *repoPG) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanItem(q.QueryRow(ctx, `SELECT `+itemCols+` FROM stock_items WHERE id = $1`, id))
}

func (r *repoPG) GetItemBySKU(ctx context.Context, sku string) (*Item, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanItem(q.QueryRow(ctx, `SELECT `+itemCols+` FROM stock_items WHERE sku = $1`, sku))
}

func (r *repoPG) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_items`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+itemCols+` FROM stock_items ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListLow(ctx context.Context) ([]*Item, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+itemCols+` FROM stock_items
		WHERE quantity <= reorder_level ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repoPG) ApplyMovement(ctx context.Context, m *Movement, delta int64) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	// The WHERE guard makes the decrement atomic: a concurrent movement
	// cannot push the quantity negative.
	tag, err := q.Exec(ctx, `
		UPDATE stock_items SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1 AND quantity + $2 >= 0`, m.ItemID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM stock_items WHERE id = $1)`, m.ItemID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrItemNotFound
		}
		return ErrInsufficientStock
	}

	_, err = q.Exec(ctx, `
		INSERT INTO stock_movements (id, item_id, kind, quantity, note)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ItemID, m.Kind, m.Quantity, m.Note)
	return err
}

func (r *repoPG) ListMovements(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Movement, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_movements WHERE item_id = $1`, itemID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, item_id, kind, quantity, note, created_at
		FROM stock_movements WHERE item_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, itemID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []*Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Kind, &m.Quantity, &m.Note, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		movements = append(movements, &m)
	}
	return movements, total, rows.Err()
}
