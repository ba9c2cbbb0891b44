package queue

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
)

// Repository manages persistence for checkout queue items. Status writes are
// guarded UPDATEs checking the prior status, so terminal states stay sticky
// even with overlapping drains.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.QueueItem) error
	Get(ctx context.Context, id uuid.UUID) (*models.QueueItem, error)
	ListPending(ctx context.Context, limit int) ([]models.QueueItem, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, message string) (bool, error)
	CountByStatus(ctx context.Context) (map[enums.QueueItemStatus]int64, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns a queue repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Create(ctx context.Context, item *models.QueueItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.QueueItem, error) {
	var item models.QueueItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gkerrors.Newf(gkerrors.CodeNotFound, "queue item %s not found", id)
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]models.QueueItem, error) {
	var items []models.QueueItem
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.QueueItemStatusPending).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ? AND status = ?", id, enums.QueueItemStatusPending).
		Update("status", enums.QueueItemStatusProcessing)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	now := r.now()
	result := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ? AND status = ?", id, enums.QueueItemStatusProcessing).
		Updates(map[string]any{
			"status":       enums.QueueItemStatusCompleted,
			"processed_at": &now,
			"error":        nil,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, message string) (bool, error) {
	now := r.now()
	result := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ? AND status = ?", id, enums.QueueItemStatusProcessing).
		Updates(map[string]any{
			"status":       enums.QueueItemStatusFailed,
			"processed_at": &now,
			"error":        message,
			"retry_count":  gorm.Expr("retry_count + 1"),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.QueueItemStatus]int64, error) {
	type row struct {
		Status enums.QueueItemStatus
		Total  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Select("status, count(*) as total").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.QueueItemStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
