package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

// Service writes durable notification rows the storefront UI surfaces.
type Service struct {
	repo Repository
}

// NewService wires the notification service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	return &Service{repo: repo}, nil
}

// OrderExpiring records a payment deadline warning for the order's owner.
func (s *Service) OrderExpiring(ctx context.Context, userID, orderID uuid.UUID, remaining time.Duration) error {
	minutes := int(remaining.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return s.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		OrderID: &orderID,
		Kind:    enums.NotificationOrderExpiring,
		Message: fmt.Sprintf("Your order expires in about %d minutes. Complete payment to keep it.", minutes),
	})
}

// OrderExpired records that the order was cancelled for non-payment.
func (s *Service) OrderExpired(ctx context.Context, userID, orderID uuid.UUID) error {
	return s.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		OrderID: &orderID,
		Kind:    enums.NotificationOrderExpired,
		Message: "Your order was cancelled because the payment window passed.",
	})
}

// ListForUser returns the user's most recent notifications.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID, limit)
}
