package paymentgroups

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
)

// Repository manages persistence for payment groups. Status transitions are
// guarded UPDATEs checking the prior status so terminal states stay sticky.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, group *models.PaymentGroup) error
	Get(ctx context.Context, id string) (*models.PaymentGroup, error)
	ListByUserAndStatuses(ctx context.Context, userID uuid.UUID, statuses []enums.PaymentGroupStatus) ([]models.PaymentGroup, error)
	FirstPendingByAmount(ctx context.Context, amount decimal.Decimal, now time.Time) (*models.PaymentGroup, error)
	TransitionStatus(ctx context.Context, id string, from []enums.PaymentGroupStatus, to enums.PaymentGroupStatus, updates map[string]any) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment group repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, group *models.PaymentGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) Get(ctx context.Context, id string) (*models.PaymentGroup, error) {
	var group models.PaymentGroup
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gkerrors.Newf(gkerrors.CodeNotFound, "payment group %s not found", id)
		}
		return nil, err
	}
	return &group, nil
}

func (r *repository) ListByUserAndStatuses(ctx context.Context, userID uuid.UUID, statuses []enums.PaymentGroupStatus) ([]models.PaymentGroup, error) {
	var groups []models.PaymentGroup
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Order("created_at DESC").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) FirstPendingByAmount(ctx context.Context, amount decimal.Decimal, now time.Time) (*models.PaymentGroup, error) {
	var group models.PaymentGroup
	err := r.db.WithContext(ctx).
		Where("exact_payment_amount = ? AND status = ? AND expires_at > ?",
			amount, enums.PaymentGroupStatusPending, now).
		Order("created_at ASC").
		First(&group).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id string, from []enums.PaymentGroupStatus, to enums.PaymentGroupStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.PaymentGroup{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentGroup{}).
		Where("status = ? AND expires_at <= ?", enums.PaymentGroupStatusPending, now).
		Update("status", enums.PaymentGroupStatusExpired)
	return result.RowsAffected, result.Error
}
