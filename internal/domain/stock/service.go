package stock

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// CreateItem registers a new stock item. Items always start at quantity zero;
// initial stock arrives as an "in" movement so the log stays complete.
func (s *Service) CreateItem(ctx context.Context, req *CreateItemRequest) (*Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	item := &Item{
		SKU:          req.SKU,
		Name:         req.Name,
		Unit:         req.Unit,
		ReorderLevel: req.ReorderLevel,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) GetItemBySKU(ctx context.Context, sku string) (*Item, error) {
	return s.repo.GetItemBySKU(ctx, sku)
}

func (s *Service) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	return s.repo.ListItems(ctx, limit, offset)
}

// LowStock returns items at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]*Item, error) {
	return s.repo.ListLow(ctx)
}

// RecordMovement applies a stock movement. An "out" movement larger than the
// current quantity fails with ErrInsufficientStock.
func (s *Service) RecordMovement(ctx context.Context, itemID uuid.UUID, req *MovementRequest) (*Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	delta := req.Quantity
	if req.Kind == MovementOut {
		delta = -req.Quantity
	}

	m := &Movement{
		ItemID:   itemID,
		Kind:     req.Kind,
		Quantity: req.Quantity,
		Note:     req.Note,
	}
	if err := s.repo.ApplyMovement(ctx, m, delta); err != nil {
		return nil, err
	}
	return s.repo.GetItem(ctx, itemID)
}

func (s *Service) Movements(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*Movement, int, error) {
	return s.repo.ListMovements(ctx, itemID, limit, offset)
}
