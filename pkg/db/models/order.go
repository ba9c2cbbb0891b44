package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

// Order is created by the storefront checkout (out of scope); this core only
// transitions Status and the payment-group/expiry bookkeeping fields.
type Order struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Status             enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'pending';index"`
	FinalTotal         decimal.Decimal         `gorm:"column:final_total;type:numeric;not null"`
	PaymentGroupID     *string                 `gorm:"column:payment_group_id;index"`
	GroupPaymentAmount *decimal.Decimal        `gorm:"column:group_payment_amount;type:numeric"`
	VerificationMode   *enums.VerificationMode `gorm:"column:verification_mode;type:text"`
	ExpiresAt          *time.Time              `gorm:"column:expires_at"`
	ExpiryNotified     bool                    `gorm:"column:expiry_notified;not null;default:false"`
	Items              []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one reserved line of an order; cancellation restores its
// quantity through the stock ledger.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	BatchID   string          `gorm:"column:batch_id;not null"`
	ProductID string          `gorm:"column:product_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Size      *string         `gorm:"column:size"`
	Color     *string         `gorm:"column:color"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
