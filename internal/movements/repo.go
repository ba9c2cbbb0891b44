package movements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
)

// Repository manages persistence for stock movement rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.StockMovement) error
	ListByProduct(ctx context.Context, batchID, productID string) ([]models.StockMovement, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a movement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListByProduct(ctx context.Context, batchID, productID string) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("batch_id = ? AND product_id = ?", batchID, productID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
