package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

// Notification is a durable row surfaced to the storefront UI collaborator.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Kind      enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Message   string                 `gorm:"column:message;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
