package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

// PaymentGroup bundles one or more orders into a single payable unit.
// OrderIDs, OriginalTotal, UniquePaymentCode and ExactPaymentAmount are
// immutable after creation; ExactPaymentAmount = OriginalTotal + code.
type PaymentGroup struct {
	ID                 string                   `gorm:"column:id;primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	UserName           string                   `gorm:"column:user_name"`
	UserEmail          string                   `gorm:"column:user_email"`
	OrderIDs           []uuid.UUID              `gorm:"column:order_ids;type:jsonb;serializer:json"`
	OriginalTotal      decimal.Decimal          `gorm:"column:original_total;type:numeric;not null"`
	UniquePaymentCode  int                      `gorm:"column:unique_payment_code;not null"`
	ExactPaymentAmount decimal.Decimal          `gorm:"column:exact_payment_amount;type:numeric;not null;index"`
	VerificationMode   *enums.VerificationMode  `gorm:"column:verification_mode;type:text"`
	OriginalMode       *enums.VerificationMode  `gorm:"column:original_mode;type:text"`
	Status             enums.PaymentGroupStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	ExpiresAt          time.Time                `gorm:"column:expires_at;not null"`
	PaidAt             *time.Time               `gorm:"column:paid_at"`
	ModeSwitchedAt     *time.Time               `gorm:"column:mode_switched_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentGroup) TableName() string { return "payment_groups" }

// HasOrder reports whether the group contains the given order.
func (g *PaymentGroup) HasOrder(orderID uuid.UUID) bool {
	for _, id := range g.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// Lapsed reports whether the group's payment window has passed at ts.
func (g *PaymentGroup) Lapsed(ts time.Time) bool {
	return !ts.Before(g.ExpiresAt)
}
