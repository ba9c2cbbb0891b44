package movements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

// Service defines operations that record stock movements.
type Service interface {
	Record(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error)
	ListByProduct(ctx context.Context, batchID, productID string) ([]models.StockMovement, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockMovement, error)
}

type service struct {
	repo Repository
}

// RecordMovementInput captures the immutable data a movement row requires.
type RecordMovementInput struct {
	BatchID        string
	ProductID      string
	OrderID        *uuid.UUID
	Type           enums.StockMovementType
	Quantity       int
	Size           *string
	Color          *string
	ResultingStock int
}

// NewService wires a movement service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error) {
	if input.BatchID == "" {
		return nil, fmt.Errorf("batch id is required")
	}
	if input.ProductID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid stock movement type %q", input.Type)
	}

	movement := &models.StockMovement{
		BatchID:        input.BatchID,
		ProductID:      input.ProductID,
		OrderID:        input.OrderID,
		Type:           input.Type,
		Quantity:       input.Quantity,
		Size:           input.Size,
		Color:          input.Color,
		ResultingStock: input.ResultingStock,
	}

	if err := s.repo.Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) ListByProduct(ctx context.Context, batchID, productID string) ([]models.StockMovement, error) {
	if batchID == "" || productID == "" {
		return nil, fmt.Errorf("batch id and product id are required")
	}
	return s.repo.ListByProduct(ctx, batchID, productID)
}

func (s *service) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockMovement, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}
