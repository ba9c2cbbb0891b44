package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/radityaanwar/gayakita-backend/internal/stock"
	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
	"github.com/radityaanwar/gayakita-backend/pkg/metrics"
)

// Restorer is the slice of the stock ledger cancellation needs.
type Restorer interface {
	Restore(ctx context.Context, input stock.MovementInput) (int, error)
}

// Service mutates orders the storefront created. It owns the status machine
// and the payment-group back-references; it never creates orders.
type Service struct {
	repo     Repository
	restorer Restorer
	logg     *logger.Logger
	metrics  *metrics.QueueMetrics
}

// NewService wires the order service.
func NewService(repo Repository, restorer Restorer, logg *logger.Logger, qm *metrics.QueueMetrics) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if restorer == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, restorer: restorer, logg: logg, metrics: qm}, nil
}

// Get loads one order with its line items.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, gkerrors.New(gkerrors.CodeValidation, "order id is required")
	}
	return s.repo.Get(ctx, orderID)
}

// UpdateStatus moves an order along the status machine. Cancellation wins the
// guarded status write first and only then restores reserved stock, so two
// racing cancels restore each line exactly once.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus) error {
	if orderID == uuid.Nil {
		return gkerrors.New(gkerrors.CodeValidation, "order id is required")
	}
	if !to.IsValid() {
		return gkerrors.Newf(gkerrors.CodeValidation, "invalid order status %q", to)
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(to) {
		return gkerrors.Newf(gkerrors.CodeStateConflict,
			"order %s cannot move from %s to %s", orderID, order.Status, to)
	}

	won, err := s.repo.TransitionStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return gkerrors.Wrap(gkerrors.CodeInternal, err, "updating order status")
	}
	if !won {
		return gkerrors.Newf(gkerrors.CodeStateConflict,
			"order %s moved away from %s concurrently", orderID, order.Status)
	}

	if to == enums.OrderStatusCancelled {
		s.restoreItems(ctx, order)
	}
	return nil
}

// restoreItems returns each reserved line to its batch. The cancellation
// already committed; a failed restore is logged and counted, never unwound.
func (s *Service) restoreItems(ctx context.Context, order *models.Order) {
	orderCtx := s.logg.WithOrderID(ctx, order.ID.String())
	for i := range order.Items {
		item := &order.Items[i]
		_, err := s.restorer.Restore(ctx, stock.MovementInput{
			BatchID:   item.BatchID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			OrderID:   &order.ID,
		})
		if err != nil {
			itemCtx := s.logg.WithField(orderCtx, "product_id", item.ProductID)
			s.logg.Error(itemCtx, "restoring stock for cancelled order failed", err)
			if s.metrics != nil {
				s.metrics.IncRestoreFailure()
			}
		}
	}
}

// AttachPaymentGroup stamps the group back-reference onto its member orders.
func (s *Service) AttachPaymentGroup(ctx context.Context, group *models.PaymentGroup) error {
	if group == nil {
		return gkerrors.New(gkerrors.CodeValidation, "group is required")
	}
	if len(group.OrderIDs) == 0 {
		return gkerrors.New(gkerrors.CodeValidation, "group has no orders")
	}
	updated, err := s.repo.AttachPaymentGroup(ctx, group.OrderIDs, group.ID,
		group.ExactPaymentAmount, group.VerificationMode)
	if err != nil {
		return gkerrors.Wrap(gkerrors.CodeInternal, err, "attaching payment group")
	}
	if updated != int64(len(group.OrderIDs)) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"group_id": group.ID,
			"expected": len(group.OrderIDs),
			"updated":  updated,
		}), "payment group attach touched fewer orders than expected")
	}
	return nil
}

// DetachPaymentGroup clears the back-reference from every member order, the
// second step after cancelling a group.
func (s *Service) DetachPaymentGroup(ctx context.Context, groupID string) error {
	if groupID == "" {
		return gkerrors.New(gkerrors.CodeValidation, "group id is required")
	}
	if _, err := s.repo.DetachPaymentGroup(ctx, groupID); err != nil {
		return gkerrors.Wrap(gkerrors.CodeInternal, err, "detaching payment group")
	}
	return nil
}

// MarkGroupOrdersPaid reflects a paid group onto its member orders still
// awaiting payment.
func (s *Service) MarkGroupOrdersPaid(ctx context.Context, groupID string) (int64, error) {
	if groupID == "" {
		return 0, gkerrors.New(gkerrors.CodeValidation, "group id is required")
	}
	updated, err := s.repo.MarkGroupPaid(ctx, groupID)
	if err != nil {
		return 0, gkerrors.Wrap(gkerrors.CodeInternal, err, "marking group orders paid")
	}
	return updated, nil
}

// ListPendingWithDeadline returns pending orders carrying an expiry deadline,
// soonest first.
func (s *Service) ListPendingWithDeadline(ctx context.Context) ([]models.Order, error) {
	return s.repo.ListPendingWithDeadline(ctx)
}

// SetExpiryNotified flips the one-shot warning flag; false means another
// poller already did.
func (s *Service) SetExpiryNotified(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, gkerrors.New(gkerrors.CodeValidation, "order id is required")
	}
	return s.repo.SetExpiryNotified(ctx, orderID)
}
