package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/radityaanwar/gayakita-backend/internal/batchstore"
	"github.com/radityaanwar/gayakita-backend/internal/movements"
	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
)

// MovementInput addresses one product (and optionally one variant cell)
// inside a batch. Size and Color travel together; a request naming only one
// of the two is rejected.
type MovementInput struct {
	BatchID   string
	ProductID string
	Quantity  int
	Size      *string
	Color     *string
	OrderID   *uuid.UUID
}

func (in MovementInput) variant() bool {
	return in.Size != nil && in.Color != nil
}

func (in MovementInput) validate() error {
	if in.BatchID == "" {
		return gkerrors.New(gkerrors.CodeValidation, "batch id is required")
	}
	if in.ProductID == "" {
		return gkerrors.New(gkerrors.CodeValidation, "product id is required")
	}
	if in.Quantity <= 0 {
		return gkerrors.New(gkerrors.CodeValidation, "quantity must be positive")
	}
	if (in.Size == nil) != (in.Color == nil) {
		return gkerrors.New(gkerrors.CodeValidation, "size and color must be provided together")
	}
	return nil
}

// Ledger applies stock deltas to batch documents. All mutations flow through
// the batch store's write cycle, so concurrent reservations never oversell.
type Ledger struct {
	batches   *batchstore.Store
	movements movements.Service
	logg      *logger.Logger
}

// NewLedger builds a stock ledger.
func NewLedger(batches *batchstore.Store, moves movements.Service, logg *logger.Logger) (*Ledger, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch store required")
	}
	if moves == nil {
		return nil, fmt.Errorf("movement service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Ledger{batches: batches, movements: moves, logg: logg}, nil
}

// Reserve decrements available stock and returns the product's remaining
// scalar stock after the write committed.
func (l *Ledger) Reserve(ctx context.Context, input MovementInput) (int, error) {
	return l.apply(ctx, input, enums.StockMovementReserve)
}

// Restore increments stock released by a cancellation and returns the
// product's scalar stock after the write committed. Restores are not capped;
// a missing variant cell is created.
func (l *Ledger) Restore(ctx context.Context, input MovementInput) (int, error) {
	return l.apply(ctx, input, enums.StockMovementRestore)
}

func (l *Ledger) apply(ctx context.Context, input MovementInput, movement enums.StockMovementType) (int, error) {
	if err := input.validate(); err != nil {
		return 0, err
	}

	newStock := 0
	mutate := func(batch *models.Batch) error {
		idx := findProduct(batch.Products, input.ProductID)
		if idx < 0 {
			return gkerrors.Newf(gkerrors.CodeProductNotInBatch,
				"product %s is not stored in batch %s", input.ProductID, input.BatchID)
		}
		product := &batch.Products[idx]

		if input.variant() {
			if err := applyVariantDelta(product, input, movement); err != nil {
				return err
			}
		} else {
			if err := applyScalarDelta(product, input, movement); err != nil {
				return err
			}
		}

		newStock = product.Stock
		return nil
	}

	if _, err := l.batches.UpdateBatch(ctx, input.BatchID, mutate); err != nil {
		return 0, err
	}

	l.recordMovement(ctx, input, movement, newStock)
	return newStock, nil
}

func applyScalarDelta(product *models.BatchProduct, input MovementInput, movement enums.StockMovementType) error {
	if movement == enums.StockMovementReserve {
		if product.Stock < input.Quantity {
			return gkerrors.Newf(gkerrors.CodeInsufficientStock,
				"product %s has %d units, requested %d", product.ID, product.Stock, input.Quantity)
		}
		product.Stock -= input.Quantity
		return nil
	}
	product.Stock += input.Quantity
	return nil
}

func applyVariantDelta(product *models.BatchProduct, input MovementInput, movement enums.StockMovementType) error {
	size, color := *input.Size, *input.Color

	if movement == enums.StockMovementReserve {
		if product.Variants == nil {
			return gkerrors.Newf(gkerrors.CodeValidation,
				"product %s has no variants", product.ID)
		}
		available := product.Variants.Stock[size][color]
		if available < input.Quantity {
			return gkerrors.Newf(gkerrors.CodeInsufficientStock,
				"product %s variant %s/%s has %d units, requested %d",
				product.ID, size, color, available, input.Quantity)
		}
		product.Variants.Stock[size][color] = available - input.Quantity
	} else {
		if product.Variants == nil {
			product.Variants = &models.ProductVariants{Stock: models.VariantStock{}}
		}
		if product.Variants.Stock == nil {
			product.Variants.Stock = models.VariantStock{}
		}
		if product.Variants.Stock[size] == nil {
			product.Variants.Stock[size] = map[string]int{}
		}
		product.Variants.Stock[size][color] += input.Quantity
	}

	// The scalar always mirrors the cell sum.
	product.Stock = product.Variants.Stock.Total()
	return nil
}

func (l *Ledger) recordMovement(ctx context.Context, input MovementInput, movement enums.StockMovementType, resulting int) {
	_, err := l.movements.Record(ctx, movements.RecordMovementInput{
		BatchID:        input.BatchID,
		ProductID:      input.ProductID,
		OrderID:        input.OrderID,
		Type:           movement,
		Quantity:       input.Quantity,
		Size:           input.Size,
		Color:          input.Color,
		ResultingStock: resulting,
	})
	if err != nil {
		// Audit rows never block the stock write that already committed.
		logCtx := l.logg.WithBatchID(ctx, input.BatchID)
		logCtx = l.logg.WithField(logCtx, "product_id", input.ProductID)
		l.logg.Error(logCtx, "recording stock movement failed", err)
	}
}

func findProduct(products []models.BatchProduct, productID string) int {
	for i := range products {
		if products[i].ID == productID {
			return i
		}
	}
	return -1
}
