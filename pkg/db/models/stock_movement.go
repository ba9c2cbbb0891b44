package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

// StockMovement is one append-only audit row per applied stock delta.
type StockMovement struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	BatchID        string                  `gorm:"column:batch_id;not null;index"`
	ProductID      string                  `gorm:"column:product_id;not null;index"`
	OrderID        *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	Type           enums.StockMovementType `gorm:"column:type;type:text;not null"`
	Quantity       int                     `gorm:"column:quantity;not null"`
	Size           *string                 `gorm:"column:size"`
	Color          *string                 `gorm:"column:color"`
	ResultingStock int                     `gorm:"column:resulting_stock;not null"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
