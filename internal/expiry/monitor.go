package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/radityaanwar/gayakita-backend/pkg/config"
	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
)

const defaultWarnWindow = 15 * time.Minute

// OrderService is the slice of the order service the monitor needs.
type OrderService interface {
	ListPendingWithDeadline(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus) error
	SetExpiryNotified(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// Notifier records expiry notifications for order owners.
type Notifier interface {
	OrderExpiring(ctx context.Context, userID, orderID uuid.UUID, remaining time.Duration) error
	OrderExpired(ctx context.Context, userID, orderID uuid.UUID) error
}

// Monitor cancels pending orders whose payment deadline passed and warns
// owners shortly before. It keeps no scheduling state of its own; the two
// order columns (expires_at, expiry_notified) are the whole contract.
type Monitor struct {
	orders     OrderService
	notifier   Notifier
	logg       *logger.Logger
	warnWindow time.Duration
	now        func() time.Time
}

// NewMonitor builds the expiry monitor job.
func NewMonitor(orders OrderService, notifier Notifier, cfg config.ExpiryConfig, logg *logger.Logger) (*Monitor, error) {
	if orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	warnWindow := cfg.WarnWindow
	if warnWindow <= 0 {
		warnWindow = defaultWarnWindow
	}
	return &Monitor{
		orders:     orders,
		notifier:   notifier,
		logg:       logg,
		warnWindow: warnWindow,
		now:        time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (m *Monitor) Name() string { return "order-expiry-monitor" }

// Run sweeps every pending order carrying a deadline once. Per-order failures
// are collected so one bad order never blocks the rest of the sweep.
func (m *Monitor) Run(ctx context.Context) error {
	orders, err := m.orders.ListPendingWithDeadline(ctx)
	if err != nil {
		return fmt.Errorf("listing expiring orders: %w", err)
	}

	now := m.now()
	var errs error
	expired, warned := 0, 0
	for i := range orders {
		order := &orders[i]
		if order.ExpiresAt == nil {
			continue
		}
		switch {
		case !now.Before(*order.ExpiresAt):
			if err := m.expire(ctx, order); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			expired++
		case order.ExpiresAt.Sub(now) <= m.warnWindow && !order.ExpiryNotified:
			if err := m.warn(ctx, order, order.ExpiresAt.Sub(now)); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			warned++
		}
	}

	if expired > 0 || warned > 0 {
		logCtx := m.logg.WithFields(ctx, map[string]any{
			"expired": expired,
			"warned":  warned,
		})
		m.logg.Info(logCtx, "expiry sweep finished")
	}
	return errs
}

func (m *Monitor) expire(ctx context.Context, order *models.Order) error {
	if err := m.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
		return fmt.Errorf("expiring order %s: %w", order.ID, err)
	}
	if err := m.notifier.OrderExpired(ctx, order.UserID, order.ID); err != nil {
		// The cancellation stands; the notification row is best effort.
		m.logg.Error(m.logg.WithOrderID(ctx, order.ID.String()),
			"recording expiry notification failed", err)
	}
	return nil
}

func (m *Monitor) warn(ctx context.Context, order *models.Order, remaining time.Duration) error {
	// The guarded flag write decides which poller gets to warn.
	won, err := m.orders.SetExpiryNotified(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("flagging order %s: %w", order.ID, err)
	}
	if !won {
		return nil
	}
	if err := m.notifier.OrderExpiring(ctx, order.UserID, order.ID, remaining); err != nil {
		return fmt.Errorf("warning order %s: %w", order.ID, err)
	}
	return nil
}
