package batchstore

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/config"
	"github.com/radityaanwar/gayakita-backend/pkg/db"
	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
)

const (
	defaultMaxRetries = 8
	defaultRetryBase  = 20 * time.Millisecond
)

// Mutator edits a batch in place. Returning an error aborts the write cycle
// without retrying.
type Mutator func(batch *models.Batch) error

// Store is the sole mutation path for batch documents. Writes go through an
// optimistic read-modify-write cycle keyed on the batch version column.
type Store struct {
	db         *gorm.DB
	logg       *logger.Logger
	maxRetries uint64
	retryBase  time.Duration
}

// New builds a batch store bound to the shared database client.
func New(client *db.Client, cfg config.BatchConfig, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxRetries := cfg.WriteMaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryBase := cfg.WriteRetryBase
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}
	return &Store{
		db:         client.DB(),
		logg:       logg,
		maxRetries: maxRetries,
		retryBase:  retryBase,
	}, nil
}

// ReadBatch loads one batch document by id.
func (s *Store) ReadBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	if batchID == "" {
		return nil, gkerrors.New(gkerrors.CodeValidation, "batch id is required")
	}
	var batch models.Batch
	if err := s.db.WithContext(ctx).First(&batch, "id = ?", batchID).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gkerrors.Newf(gkerrors.CodeNotFound, "batch %s not found", batchID)
		}
		return nil, gkerrors.Wrap(gkerrors.CodeInternal, err, "reading batch")
	}
	return &batch, nil
}

// UpdateBatch runs one read-modify-write cycle against the batch. The commit
// is a single conditional UPDATE guarded by the version read at the start of
// the cycle; losing the race re-reads and re-applies the mutator. The mutator
// must be safe to call multiple times. Returns the committed batch.
func (s *Store) UpdateBatch(ctx context.Context, batchID string, mutate Mutator) (*models.Batch, error) {
	if mutate == nil {
		return nil, gkerrors.New(gkerrors.CodeValidation, "mutator is required")
	}

	var committed *models.Batch
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewFibonacci(s.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		batch, err := s.ReadBatch(ctx, batchID)
		if err != nil {
			return err
		}

		readVersion := batch.Version
		if err := mutate(batch); err != nil {
			return err
		}
		batch.Version = readVersion + 1

		result := s.db.WithContext(ctx).
			Model(&models.Batch{}).
			Where("id = ? AND version = ?", batchID, readVersion).
			Select("products", "version", "updated_at").
			Updates(batch)
		if result.Error != nil {
			return gkerrors.Wrap(gkerrors.CodeInternal, result.Error, "committing batch")
		}
		if result.RowsAffected == 0 {
			return retry.RetryableError(gkerrors.Newf(
				gkerrors.CodeConflict, "batch %s version moved past %d", batchID, readVersion))
		}

		committed = batch
		return nil
	})
	if err != nil {
		if gkerrors.HasCode(err, gkerrors.CodeConflict) {
			s.logg.Warn(s.logg.WithBatchID(ctx, batchID), "batch write retries exhausted")
		}
		return nil, err
	}
	return committed, nil
}
