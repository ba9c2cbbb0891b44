package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/radityaanwar/gayakita-backend/internal/stock"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
	"github.com/radityaanwar/gayakita-backend/pkg/metrics"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
)

// Reserver is the slice of the stock ledger the drain loop needs.
type Reserver interface {
	Reserve(ctx context.Context, input stock.MovementInput) (int, error)
}

// EnqueueInput is one checkout line waiting for its stock decrement.
type EnqueueInput struct {
	OrderID   uuid.UUID `validate:"required"`
	UserID    uuid.UUID `validate:"required"`
	BatchID   string    `validate:"required"`
	ProductID string    `validate:"required"`
	Quantity  int       `validate:"gt=0"`
	Size      *string
	Color     *string
}

// DrainStats summarizes one drain pass.
type DrainStats struct {
	Picked    int
	Completed int
	Failed    int
	Skipped   int
}

// Service owns the checkout queue lifecycle.
type Service struct {
	repo     Repository
	reserver Reserver
	logg     *logger.Logger
	metrics  *metrics.QueueMetrics
	validate *validator.Validate

	batchSize int
	draining  atomic.Bool
}

// NewService wires the checkout queue service.
func NewService(repo Repository, reserver Reserver, logg *logger.Logger, qm *metrics.QueueMetrics, batchSize int) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	if reserver == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:      repo,
		reserver:  reserver,
		logg:      logg,
		metrics:   qm,
		validate:  validator.New(),
		batchSize: batchSize,
	}, nil
}

// Enqueue durably records one pending stock-decrement request and returns its
// id. Callers race freely; ordering is by creation time at drain.
func (s *Service) Enqueue(ctx context.Context, input EnqueueInput) (uuid.UUID, error) {
	if err := s.validate.Struct(input); err != nil {
		return uuid.Nil, gkerrors.Wrap(gkerrors.CodeValidation, err, "invalid enqueue input")
	}

	item := &models.QueueItem{
		OrderID:   input.OrderID,
		UserID:    input.UserID,
		BatchID:   input.BatchID,
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		Size:      input.Size,
		Color:     input.Color,
		Status:    enums.QueueItemStatusPending,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return uuid.Nil, gkerrors.Wrap(gkerrors.CodeInternal, err, "enqueueing checkout item")
	}
	return item.ID, nil
}

// Drain processes pending items oldest first. Only one drain runs per
// process; a second caller returns immediately with empty stats. Overlap
// across processes is harmless because the batch write cycle is the actual
// consistency boundary.
func (s *Service) Drain(ctx context.Context) (DrainStats, error) {
	var stats DrainStats
	if !s.draining.CompareAndSwap(false, true) {
		return stats, nil
	}
	defer s.draining.Store(false)

	start := time.Now()
	items, err := s.repo.ListPending(ctx, s.batchSize)
	if err != nil {
		return stats, gkerrors.Wrap(gkerrors.CodeInternal, err, "listing pending queue items")
	}
	stats.Picked = len(items)

	for i := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		s.processItem(ctx, &items[i], &stats)
	}

	if s.metrics != nil {
		s.metrics.ObserveDrain(time.Since(start))
	}
	return stats, nil
}

func (s *Service) processItem(ctx context.Context, item *models.QueueItem, stats *DrainStats) {
	itemCtx := s.logg.WithOrderID(ctx, item.OrderID.String())
	itemCtx = s.logg.WithField(itemCtx, "queue_item_id", item.ID.String())

	claimed, err := s.repo.MarkProcessing(ctx, item.ID)
	if err != nil {
		s.logg.Error(itemCtx, "claiming queue item failed", err)
		stats.Skipped++
		s.countOutcome("skipped")
		return
	}
	if !claimed {
		// Another drain got here first.
		stats.Skipped++
		s.countOutcome("skipped")
		return
	}

	_, reserveErr := s.reserver.Reserve(ctx, stock.MovementInput{
		BatchID:   item.BatchID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Size:      item.Size,
		Color:     item.Color,
		OrderID:   &item.OrderID,
	})
	if reserveErr != nil {
		if _, markErr := s.repo.MarkFailed(ctx, item.ID, reserveErr.Error()); markErr != nil {
			s.logg.Error(itemCtx, "marking queue item failed", markErr)
		}
		stats.Failed++
		s.countOutcome("failed")
		if !gkerrors.HasCode(reserveErr, gkerrors.CodeInsufficientStock) {
			s.logg.Error(itemCtx, "stock reservation failed", reserveErr)
		}
		return
	}

	if _, markErr := s.repo.MarkCompleted(ctx, item.ID); markErr != nil {
		s.logg.Error(itemCtx, "marking queue item completed", markErr)
	}
	stats.Completed++
	s.countOutcome("completed")
}

// Retry re-creates a fresh pending item from a failed one. The failed item is
// never mutated; its retry count carries over to the new item.
func (s *Service) Retry(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	if itemID == uuid.Nil {
		return uuid.Nil, gkerrors.New(gkerrors.CodeValidation, "item id is required")
	}
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return uuid.Nil, err
	}
	if item.Status != enums.QueueItemStatusFailed {
		return uuid.Nil, gkerrors.Newf(gkerrors.CodeStateConflict,
			"queue item %s is %s, only failed items can be retried", itemID, item.Status)
	}

	fresh := &models.QueueItem{
		OrderID:    item.OrderID,
		UserID:     item.UserID,
		BatchID:    item.BatchID,
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		Size:       item.Size,
		Color:      item.Color,
		Status:     enums.QueueItemStatusPending,
		RetryCount: item.RetryCount,
	}
	if err := s.repo.Create(ctx, fresh); err != nil {
		return uuid.Nil, gkerrors.Wrap(gkerrors.CodeInternal, err, "re-enqueueing failed item")
	}
	return fresh.ID, nil
}

// Stats returns item counts per status.
func (s *Service) Stats(ctx context.Context) (map[enums.QueueItemStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncProcessed(outcome)
}
