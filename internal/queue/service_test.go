package queue

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/internal/batchstore"
	"github.com/radityaanwar/gayakita-backend/internal/movements"
	"github.com/radityaanwar/gayakita-backend/internal/stock"
	"github.com/radityaanwar/gayakita-backend/pkg/config"
	"github.com/radityaanwar/gayakita-backend/pkg/db"
	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
)

func TestDrainProcessesInOrderAndStopsAtStockout(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	seedBatch(t, conn, 5)

	var itemIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		id, err := svc.Enqueue(ctx, EnqueueInput{
			OrderID:   uuid.New(),
			UserID:    uuid.New(),
			BatchID:   "batch_1",
			ProductID: "prod_1",
			Quantity:  2,
		})
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		itemIDs = append(itemIDs, id)
		// sqlite stores timestamps at millisecond precision; keep creation order distinct
		time.Sleep(2 * time.Millisecond)
	}

	stats, err := svc.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if stats.Picked != 3 || stats.Completed != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	var batch models.Batch
	if err := conn.First(&batch, "id = ?", "batch_1").Error; err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if batch.Products[0].Stock != 1 {
		t.Fatalf("expected stock 1 after drain, got %d", batch.Products[0].Stock)
	}

	var failed models.QueueItem
	if err := conn.First(&failed, "id = ?", itemIDs[2]).Error; err != nil {
		t.Fatalf("load third item: %v", err)
	}
	if failed.Status != enums.QueueItemStatusFailed {
		t.Fatalf("expected third item failed, got %s", failed.Status)
	}
	if failed.Error == nil || !strings.Contains(*failed.Error, string(gkerrors.CodeInsufficientStock)) {
		t.Fatalf("expected insufficient stock message, got %v", failed.Error)
	}
	if failed.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", failed.RetryCount)
	}
	if failed.ProcessedAt == nil {
		t.Fatal("expected processed timestamp on failed item")
	}
}

func TestTerminalStatesAreSticky(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	seedBatch(t, conn, 5)

	id, err := svc.Enqueue(ctx, EnqueueInput{
		OrderID: uuid.New(), UserID: uuid.New(),
		BatchID: "batch_1", ProductID: "prod_1", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := svc.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	claimed, err := svc.repo.MarkProcessing(ctx, id)
	if err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if claimed {
		t.Fatal("completed item must not be claimable again")
	}
	moved, err := svc.repo.MarkFailed(ctx, id, "late failure")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if moved {
		t.Fatal("completed item must not move to failed")
	}

	var item models.QueueItem
	if err := conn.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.Status != enums.QueueItemStatusCompleted {
		t.Fatalf("expected completed, got %s", item.Status)
	}
}

func TestRetryRecreatesFailedItem(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	seedBatch(t, conn, 0)

	id, err := svc.Enqueue(ctx, EnqueueInput{
		OrderID: uuid.New(), UserID: uuid.New(),
		BatchID: "batch_1", ProductID: "prod_1", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := svc.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	freshID, err := svc.Retry(ctx, id)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if freshID == id {
		t.Fatal("retry must create a new item")
	}

	var fresh models.QueueItem
	if err := conn.First(&fresh, "id = ?", freshID).Error; err != nil {
		t.Fatalf("load fresh item: %v", err)
	}
	if fresh.Status != enums.QueueItemStatusPending {
		t.Fatalf("expected pending, got %s", fresh.Status)
	}
	if fresh.RetryCount != 1 {
		t.Fatalf("expected carried retry count 1, got %d", fresh.RetryCount)
	}

	var original models.QueueItem
	if err := conn.First(&original, "id = ?", id).Error; err != nil {
		t.Fatalf("load original item: %v", err)
	}
	if original.Status != enums.QueueItemStatusFailed {
		t.Fatalf("original item must stay failed, got %s", original.Status)
	}
}

func TestRetryRejectsNonFailedItems(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	seedBatch(t, conn, 5)

	id, err := svc.Enqueue(ctx, EnqueueInput{
		OrderID: uuid.New(), UserID: uuid.New(),
		BatchID: "batch_1", ProductID: "prod_1", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := svc.Retry(ctx, id); !gkerrors.HasCode(err, gkerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for pending item, got %v", err)
	}
	if _, err := svc.Retry(ctx, uuid.New()); !gkerrors.HasCode(err, gkerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnqueueValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []EnqueueInput{
		{UserID: uuid.New(), BatchID: "batch_1", ProductID: "prod_1", Quantity: 1},
		{OrderID: uuid.New(), UserID: uuid.New(), ProductID: "prod_1", Quantity: 1},
		{OrderID: uuid.New(), UserID: uuid.New(), BatchID: "batch_1", ProductID: "prod_1", Quantity: 0},
	}
	for i, input := range cases {
		if _, err := svc.Enqueue(ctx, input); !gkerrors.HasCode(err, gkerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestStatsCountsPerStatus(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	seedBatch(t, conn, 1)

	for i := 0; i < 2; i++ {
		if _, err := svc.Enqueue(ctx, EnqueueInput{
			OrderID: uuid.New(), UserID: uuid.New(),
			BatchID: "batch_1", ProductID: "prod_1", Quantity: 1,
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := svc.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	counts, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if counts[enums.QueueItemStatusCompleted] != 1 || counts[enums.QueueItemStatusFailed] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:queue_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Batch{}, &models.QueueItem{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	store, err := batchstore.New(db.FromConn(conn), config.BatchConfig{
		WriteMaxRetries: 4,
		WriteRetryBase:  time.Millisecond,
	}, logg)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	moves, err := movements.NewService(movements.NewRepository(conn))
	if err != nil {
		t.Fatalf("new movements: %v", err)
	}
	ledger, err := stock.NewLedger(store, moves, logg)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	svc, err := NewService(NewRepository(conn), ledger, logg, nil, 100)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedBatch(t *testing.T, conn *gorm.DB, stock int) {
	t.Helper()
	batch := models.Batch{
		ID: "batch_1",
		Products: []models.BatchProduct{
			{ID: "prod_1", Name: "Linen Shirt", Price: decimal.NewFromInt(250000), Stock: stock},
		},
	}
	if err := conn.Create(&batch).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}
}
