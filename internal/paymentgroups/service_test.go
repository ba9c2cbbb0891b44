package paymentgroups

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/config"
	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
)

func TestCreateGroupDerivesCodeAndAmount(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }
	svc.randInt = func(int) int { return 23 }

	group, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID:        uuid.New(),
		UserName:      "Raditya",
		UserEmail:     "raditya@example.com",
		OrderIDs:      []uuid.UUID{uuid.New(), uuid.New()},
		OriginalTotal: decimal.NewFromInt(150000),
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if group.ID != "PG1773480600000" {
		t.Fatalf("unexpected id: %s", group.ID)
	}
	if group.UniquePaymentCode != 33 {
		t.Fatalf("expected code 33, got %d", group.UniquePaymentCode)
	}
	if !group.ExactPaymentAmount.Equal(decimal.NewFromInt(150033)) {
		t.Fatalf("expected exact amount 150033, got %s", group.ExactPaymentAmount)
	}
	if group.Status != enums.PaymentGroupStatusPending {
		t.Fatalf("expected pending, got %s", group.Status)
	}
	if !group.ExpiresAt.Equal(created.Add(48 * time.Hour)) {
		t.Fatalf("expected 48h window, got %s", group.ExpiresAt)
	}
}

func TestCreateGroupCodeStaysInRange(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		offset := time.Duration(i) * time.Millisecond
		svc.now = func() time.Time { return base.Add(offset) }
		group, err := svc.CreateGroup(ctx, CreateGroupInput{
			UserID:        uuid.New(),
			OrderIDs:      []uuid.UUID{uuid.New()},
			OriginalTotal: decimal.NewFromInt(100000),
		})
		if err != nil {
			t.Fatalf("create group %d: %v", i, err)
		}
		if group.UniquePaymentCode < 10 || group.UniquePaymentCode > 99 {
			t.Fatalf("code %d out of range", group.UniquePaymentCode)
		}
	}
}

func TestMatchByAmountExactHitOnly(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	svc.randInt = func(int) int { return 23 }

	created, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID:        uuid.New(),
		OrderIDs:      []uuid.UUID{uuid.New()},
		OriginalTotal: decimal.NewFromInt(150000),
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	hit, err := svc.MatchByAmount(ctx, decimal.NewFromInt(150033))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if hit == nil || hit.ID != created.ID {
		t.Fatalf("expected exact hit, got %+v", hit)
	}

	for _, off := range []int64{150032, 150034, 150000} {
		miss, err := svc.MatchByAmount(ctx, decimal.NewFromInt(off))
		if err != nil {
			t.Fatalf("match %d: %v", off, err)
		}
		if miss != nil {
			t.Fatalf("amount %d must not match, got %s", off, miss.ID)
		}
	}
}

func TestMatchByAmountPrefersOldestAndSkipsLapsed(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.randInt = func(int) int { return 23 }

	svc.now = func() time.Time { return base }
	older, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID: uuid.New(), OrderIDs: []uuid.UUID{uuid.New()},
		OriginalTotal: decimal.NewFromInt(150000),
	})
	if err != nil {
		t.Fatalf("create older: %v", err)
	}
	// keep insertion timestamps distinct for the created_at ordering
	time.Sleep(2 * time.Millisecond)
	svc.now = func() time.Time { return base.Add(time.Minute) }
	if _, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID: uuid.New(), OrderIDs: []uuid.UUID{uuid.New()},
		OriginalTotal: decimal.NewFromInt(150000),
	}); err != nil {
		t.Fatalf("create newer: %v", err)
	}

	hit, err := svc.MatchByAmount(ctx, decimal.NewFromInt(150033))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if hit == nil || hit.ID != older.ID {
		t.Fatalf("expected oldest group, got %+v", hit)
	}

	// Creation timestamps come from the DB clock, so age the older row directly.
	if err := conn.Model(&models.PaymentGroup{}).
		Where("id = ?", older.ID).
		Update("expires_at", base.Add(-time.Minute)).Error; err != nil {
		t.Fatalf("age group: %v", err)
	}
	hit, err = svc.MatchByAmount(ctx, decimal.NewFromInt(150033))
	if err != nil {
		t.Fatalf("match after lapse: %v", err)
	}
	if hit == nil || hit.ID == older.ID {
		t.Fatalf("lapsed group must not match, got %+v", hit)
	}
}

func TestExpireStaleEndsMatching(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	svc.randInt = func(int) int { return 23 }

	group, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID: uuid.New(), OrderIDs: []uuid.UUID{uuid.New()},
		OriginalTotal: decimal.NewFromInt(150000),
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	svc.now = func() time.Time { return base.Add(49 * time.Hour) }
	count, err := svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire stale: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 expired, got %d", count)
	}

	reloaded, err := svc.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if reloaded.Status != enums.PaymentGroupStatusExpired {
		t.Fatalf("expected expired, got %s", reloaded.Status)
	}

	hit, err := svc.MatchByAmount(ctx, decimal.NewFromInt(150033))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if hit != nil {
		t.Fatalf("expired group must not match, got %s", hit.ID)
	}
}

func TestPaidIsTerminal(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

	group, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID: uuid.New(), OrderIDs: []uuid.UUID{uuid.New()},
		OriginalTotal: decimal.NewFromInt(99000),
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	paid, err := svc.MarkGroupPaid(ctx, group.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != enums.PaymentGroupStatusPaid || paid.PaidAt == nil {
		t.Fatalf("unexpected paid state: %+v", paid)
	}

	if _, err := svc.MarkGroupPaid(ctx, group.ID); !gkerrors.HasCode(err, gkerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on double pay, got %v", err)
	}
	if err := svc.CancelGroup(ctx, group.ID); !gkerrors.HasCode(err, gkerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict cancelling paid group, got %v", err)
	}
}

func TestModeSwitchRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

	auto := enums.VerificationModeAuto
	group, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID: uuid.New(), OrderIDs: []uuid.UUID{uuid.New()},
		OriginalTotal:    decimal.NewFromInt(99000),
		VerificationMode: &auto,
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := svc.SwitchToSelection(ctx, group.ID); err != nil {
		t.Fatalf("switch to selection: %v", err)
	}
	parked, err := svc.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if parked.Status != enums.PaymentGroupStatusPendingSelection {
		t.Fatalf("expected pending_selection, got %s", parked.Status)
	}
	if parked.VerificationMode != nil {
		t.Fatalf("expected cleared mode, got %v", *parked.VerificationMode)
	}
	if parked.OriginalMode == nil || *parked.OriginalMode != enums.VerificationModeAuto {
		t.Fatalf("expected remembered auto mode, got %v", parked.OriginalMode)
	}
	if parked.ModeSwitchedAt == nil {
		t.Fatal("expected mode switch timestamp")
	}

	if err := svc.SelectMode(ctx, group.ID, enums.VerificationModeManual); err != nil {
		t.Fatalf("select mode: %v", err)
	}
	resumed, err := svc.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if resumed.Status != enums.PaymentGroupStatusPending {
		t.Fatalf("expected pending, got %s", resumed.Status)
	}
	if resumed.VerificationMode == nil || *resumed.VerificationMode != enums.VerificationModeManual {
		t.Fatalf("expected manual mode, got %v", resumed.VerificationMode)
	}
}

func TestValidateReuse(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	orderA, orderB := uuid.New(), uuid.New()
	group := &models.PaymentGroup{
		ID:            "PG1",
		OrderIDs:      []uuid.UUID{orderA, orderB},
		OriginalTotal: decimal.NewFromInt(200000),
	}

	if err := svc.ValidateReuse(group, []uuid.UUID{orderB, orderA}, decimal.NewFromInt(200000)); err != nil {
		t.Fatalf("expected reuse to validate, got %v", err)
	}
	if err := svc.ValidateReuse(group, []uuid.UUID{orderA, orderB}, decimal.NewFromInt(210000)); !gkerrors.HasCode(err, gkerrors.CodeGroupMismatch) {
		t.Fatalf("expected mismatch on total, got %v", err)
	}
	if err := svc.ValidateReuse(group, []uuid.UUID{orderA, uuid.New()}, decimal.NewFromInt(200000)); !gkerrors.HasCode(err, gkerrors.CodeGroupMismatch) {
		t.Fatalf("expected mismatch on members, got %v", err)
	}
	if err := svc.ValidateReuse(group, []uuid.UUID{orderA}, decimal.NewFromInt(200000)); !gkerrors.HasCode(err, gkerrors.CodeGroupMismatch) {
		t.Fatalf("expected mismatch on size, got %v", err)
	}
}

func TestListUserPending(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	userID := uuid.New()

	svc.now = func() time.Time { return base }
	first, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID: userID, OrderIDs: []uuid.UUID{uuid.New()},
		OriginalTotal: decimal.NewFromInt(50000),
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	svc.now = func() time.Time { return base.Add(time.Second) }
	second, err := svc.CreateGroup(ctx, CreateGroupInput{
		UserID: userID, OrderIDs: []uuid.UUID{uuid.New()},
		OriginalTotal: decimal.NewFromInt(60000),
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := svc.MarkGroupPaid(ctx, first.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	pending, err := svc.ListUserPending(ctx, userID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("expected only the unpaid group, got %+v", pending)
	}
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:paymentgroups_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.PaymentGroup{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), config.PaymentGroupsConfig{
		ExpiryHorizon: 48 * time.Hour,
		CodeMin:       10,
		CodeMax:       99,
	}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}
