package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeRepo struct {
	items     map[uuid.UUID]*Item
	movements []*Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[uuid.UUID]*Item)}
}

func (f *fakeRepo) CreateItem(ctx context.Context, item *Item) error {
	for _, existing := range f.items {
		if existing.SKU == item.SKU {
			return ErrSKUTaken
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeRepo) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (f *fakeRepo) GetItemBySKU(ctx context.Context, sku string) (*Item, error) {
	for _, item := range f.items {
		if item.SKU == sku {
			return item, nil
		}
	}
	return nil, ErrItemNotFound
}

func (f *fakeRepo) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	var out []*Item
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (f *fakeRepo) ListLow(ctx context.Context) ([]*Item, error) {
	var out []*Item
	for _, item := range f.items {
		if item.Quantity <= item.ReorderLevel {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepo) ApplyMovement(ctx context.Context, m *Movement, delta int64) error {
	item, ok := f.items[m.ItemID]
	if !ok {
		return ErrItemNotFound
	}
	if item.Quantity+delta < 0 {
		return ErrInsufficientStock
	}
	item.Quantity += delta
	f.movements = append(f.movements, m)
	return nil
}

func (f *fakeRepo) ListMovements(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Movement, int, error) {
	var out []*Movement
	for _, m := range f.movements {
		if m.ItemID == itemID {
			out = append(out, m)
		}
	}
	return out, len(out), nil
}

func createItem(t *testing.T, svc *Service) *Item {
	t.Helper()
	item, err := svc.CreateItem(context.Background(), &CreateItemRequest{
		SKU: "AMOX-500", Name: "Amoxicillin 500mg", Unit: "box", ReorderLevel: 10,
	})
	if err != nil {
		t.Fatalf("create item failed: %v", err)
	}
	return item
}

func TestCreateItem_StartsEmpty(t *testing.T) {
	svc := NewService(newFakeRepo())
	item := createItem(t, svc)

	if item.Quantity != 0 {
		t.Errorf("new items must start at zero, got %d", item.Quantity)
	}
}

func TestCreateItem_DuplicateSKU(t *testing.T) {
	svc := NewService(newFakeRepo())
	createItem(t, svc)

	_, err := svc.CreateItem(context.Background(), &CreateItemRequest{
		SKU: "AMOX-500", Name: "Duplicate", Unit: "box",
	})
	if !errors.Is(err, ErrSKUTaken) {
		t.Errorf("expected ErrSKUTaken, got %v", err)
	}
}

func TestRecordMovement_InThenOut(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	item := createItem(t, svc)

	after, err := svc.RecordMovement(context.Background(), item.ID,
		&MovementRequest{Kind: MovementIn, Quantity: 100})
	if err != nil {
		t.Fatalf("in movement failed: %v", err)
	}
	if after.Quantity != 100 {
		t.Errorf("expected quantity 100, got %d", after.Quantity)
	}

	after, err = svc.RecordMovement(context.Background(), item.ID,
		&MovementRequest{Kind: MovementOut, Quantity: 30})
	if err != nil {
		t.Fatalf("out movement failed: %v", err)
	}
	if after.Quantity != 70 {
		t.Errorf("expected quantity 70, got %d", after.Quantity)
	}
	if len(repo.movements) != 2 {
		t.Errorf("expected 2 movements logged, got %d", len(repo.movements))
	}
}

func TestRecordMovement_InsufficientStock(t *testing.T) {
	svc := NewService(newFakeRepo())
	item := createItem(t, svc)

	if _, err := svc.RecordMovement(context.Background(), item.ID,
		&MovementRequest{Kind: MovementIn, Quantity: 5}); err != nil {
		t.Fatalf("in movement failed: %v", err)
	}

	_, err := svc.RecordMovement(context.Background(), item.ID,
		&MovementRequest{Kind: MovementOut, Quantity: 6})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestRecordMovement_UnknownKind(t *testing.T) {
	svc := NewService(newFakeRepo())
	item := createItem(t, svc)

	_, err := svc.RecordMovement(context.Background(), item.ID,
		&MovementRequest{Kind: "adjust", Quantity: 1})
	if err == nil {
		t.Error("expected validation error for unknown movement kind")
	}
}

func TestLowStock(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	item := createItem(t, svc)

	low, err := svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(low) != 1 {
		t.Fatalf("an empty item is below its reorder level, got %d items", len(low))
	}

	if _, err := svc.RecordMovement(context.Background(), item.ID,
		&MovementRequest{Kind: MovementIn, Quantity: 50}); err != nil {
		t.Fatalf("in movement failed: %v", err)
	}

	low, err = svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(low) != 0 {
		t.Errorf("restocked item still reported low: %d items", len(low))
	}
}
