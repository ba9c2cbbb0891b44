package paymentgroups

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
)

func setupGroupsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pg_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.PaymentGroup{}))
	return conn
}

func seedGroup(t *testing.T, conn *gorm.DB, id string, status enums.PaymentGroupStatus, amount int64, expiresAt time.Time) *models.PaymentGroup {
	t.Helper()
	group := &models.PaymentGroup{
		ID:                 id,
		UserID:             uuid.New(),
		OrderIDs:           []uuid.UUID{uuid.New()},
		OriginalTotal:      decimal.NewFromInt(amount - 33),
		UniquePaymentCode:  33,
		ExactPaymentAmount: decimal.NewFromInt(amount),
		Status:             status,
		ExpiresAt:          expiresAt,
	}
	require.NoError(t, conn.Create(group).Error)
	return group
}

func TestTransitionStatusGuards(t *testing.T) {
	t.Parallel()

	conn := setupGroupsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	horizon := time.Now().Add(48 * time.Hour)
	seedGroup(t, conn, "PG1", enums.PaymentGroupStatusPending, 150033, horizon)

	ok, err := repo.TransitionStatus(ctx, "PG1",
		[]enums.PaymentGroupStatus{enums.PaymentGroupStatusPending},
		enums.PaymentGroupStatusPaid, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// The row is no longer pending, so the same guard misses.
	ok, err = repo.TransitionStatus(ctx, "PG1",
		[]enums.PaymentGroupStatus{enums.PaymentGroupStatusPending},
		enums.PaymentGroupStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.Get(ctx, "PG1")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentGroupStatusPaid, reloaded.Status)
}

func TestFirstPendingByAmountOrdering(t *testing.T) {
	t.Parallel()

	conn := setupGroupsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now()
	horizon := now.Add(48 * time.Hour)

	seedGroup(t, conn, "PG_old", enums.PaymentGroupStatusPending, 150033, horizon)
	time.Sleep(2 * time.Millisecond)
	seedGroup(t, conn, "PG_new", enums.PaymentGroupStatusPending, 150033, horizon)
	seedGroup(t, conn, "PG_paid", enums.PaymentGroupStatusPaid, 150033, horizon)

	hit, err := repo.FirstPendingByAmount(ctx, decimal.NewFromInt(150033), now)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "PG_old", hit.ID)

	miss, err := repo.FirstPendingByAmount(ctx, decimal.NewFromInt(150034), now)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestExpireStaleOnlyTouchesLapsedPending(t *testing.T) {
	t.Parallel()

	conn := setupGroupsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now()

	seedGroup(t, conn, "PG_lapsed", enums.PaymentGroupStatusPending, 100033, now.Add(-time.Hour))
	seedGroup(t, conn, "PG_live", enums.PaymentGroupStatusPending, 100033, now.Add(time.Hour))
	seedGroup(t, conn, "PG_paid", enums.PaymentGroupStatusPaid, 100033, now.Add(-time.Hour))

	count, err := repo.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	lapsed, err := repo.Get(ctx, "PG_lapsed")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentGroupStatusExpired, lapsed.Status)

	live, err := repo.Get(ctx, "PG_live")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentGroupStatusPending, live.Status)

	paid, err := repo.Get(ctx, "PG_paid")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentGroupStatusPaid, paid.Status)
}
