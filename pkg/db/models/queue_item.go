package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

// QueueItem is one durable stock-decrement request produced by a checkout
// line. The drain worker is the only writer of Status/ProcessedAt/Error.
type QueueItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	BatchID     string                `gorm:"column:batch_id;not null"`
	ProductID   string                `gorm:"column:product_id;not null"`
	Quantity    int                   `gorm:"column:quantity;not null"`
	Size        *string               `gorm:"column:size"`
	Color       *string               `gorm:"column:color"`
	Status      enums.QueueItemStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	RetryCount  int                   `gorm:"column:retry_count;not null;default:0"`
	Error       *string               `gorm:"column:error"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime;index"`
	ProcessedAt *time.Time            `gorm:"column:processed_at"`
}

// TableName matches the checkout_queue collection of the storefront.
func (QueueItem) TableName() string { return "checkout_queue" }

func (q *QueueItem) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
