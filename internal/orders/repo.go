package orders

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
)

// Repository manages persistence for orders created by the storefront. All
// status writes are guarded UPDATEs checking the prior status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	ListPendingWithDeadline(ctx context.Context) ([]models.Order, error)
	SetExpiryNotified(ctx context.Context, id uuid.UUID) (bool, error)
	AttachPaymentGroup(ctx context.Context, orderIDs []uuid.UUID, groupID string, amount decimal.Decimal, mode *enums.VerificationMode) (int64, error)
	DetachPaymentGroup(ctx context.Context, groupID string) (int64, error)
	MarkGroupPaid(ctx context.Context, groupID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gkerrors.Newf(gkerrors.CodeNotFound, "order %s not found", id)
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ListPendingWithDeadline(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND expires_at IS NOT NULL", enums.OrderStatusPending).
		Order("expires_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) SetExpiryNotified(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND expiry_notified = ?", id, false).
		Update("expiry_notified", true)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) AttachPaymentGroup(ctx context.Context, orderIDs []uuid.UUID, groupID string, amount decimal.Decimal, mode *enums.VerificationMode) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Updates(map[string]any{
			"payment_group_id":     groupID,
			"group_payment_amount": amount,
			"verification_mode":    mode,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) DetachPaymentGroup(ctx context.Context, groupID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_group_id = ?", groupID).
		Updates(map[string]any{
			"payment_group_id":     nil,
			"group_payment_amount": nil,
			"verification_mode":    nil,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkGroupPaid(ctx context.Context, groupID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_group_id = ? AND status IN ?", groupID, []enums.OrderStatus{
			enums.OrderStatusPending,
			enums.OrderStatusAwaitingVerification,
		}).
		Update("status", enums.OrderStatusPaid)
	return result.RowsAffected, result.Error
}
