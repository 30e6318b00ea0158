package metrics

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
)

func setupMetricsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS daily_metrics (
  id TEXT PRIMARY KEY,
  platform_id TEXT NOT NULL,
  date DATETIME NOT NULL,
  sales INTEGER NOT NULL DEFAULT 0,
  revenue NUMERIC NOT NULL DEFAULT 0,
  refunds INTEGER NOT NULL DEFAULT 0,
  refund_amount NUMERIC NOT NULL DEFAULT 0,
  new_subscribers INTEGER NOT NULL DEFAULT 0,
  canceled_subscribers INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (platform_id, date)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestIncrementDailyUpsertsSameDay(t *testing.T) {
	db := setupMetricsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	platformID := uuid.New()
	morning := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
	evening := time.Date(2025, 6, 10, 21, 15, 0, 0, time.UTC)

	require.NoError(t, repo.IncrementDaily(ctx, platformID, morning, Delta{
		Sales:   1,
		Revenue: decimal.RequireFromString("10.00"),
	}))
	require.NoError(t, repo.IncrementDaily(ctx, platformID, evening, Delta{
		Sales:   1,
		Revenue: decimal.RequireFromString("15.00"),
	}))

	var count int64
	require.NoError(t, db.Table("daily_metrics").Count(&count).Error)
	assert.Equal(t, int64(1), count, "same day must share one row")

	row, err := repo.FindDay(ctx, platformID, morning)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(2), row.Sales)
	assert.True(t, row.Revenue.Equal(decimal.RequireFromString("25.00")), "revenue %s", row.Revenue)
}

func TestIncrementDailySeparatesPlatformsAndDays(t *testing.T) {
	db := setupMetricsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	platformA := uuid.New()
	platformB := uuid.New()
	day1 := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, repo.IncrementDaily(ctx, platformA, day1, Delta{NewSubscribers: 1}))
	require.NoError(t, repo.IncrementDaily(ctx, platformA, day2, Delta{CanceledSubscribers: 1}))
	require.NoError(t, repo.IncrementDaily(ctx, platformB, day1, Delta{Refunds: 1, RefundAmount: decimal.RequireFromString("5.00")}))

	var count int64
	require.NoError(t, db.Table("daily_metrics").Count(&count).Error)
	assert.Equal(t, int64(3), count)

	rowA1, err := repo.FindDay(ctx, platformA, day1)
	require.NoError(t, err)
	require.NotNil(t, rowA1)
	assert.Equal(t, int64(1), rowA1.NewSubscribers)
	assert.Equal(t, int64(0), rowA1.CanceledSubscribers)
}

func TestListRangeFiltersByPlatformAndWindow(t *testing.T) {
	db := setupMetricsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	platformA := uuid.New()
	platformB := uuid.New()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.IncrementDaily(ctx, platformA, base.AddDate(0, 0, i), Delta{Sales: 1}))
	}
	require.NoError(t, repo.IncrementDaily(ctx, platformB, base, Delta{Sales: 1}))

	rows, err := repo.ListRange(ctx, RangeQuery{
		PlatformID: &platformA,
		From:       base.AddDate(0, 0, 1),
		To:         base.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].Date.Before(rows[i].Date), "rows must be ordered by date")
	}
}

func TestDayOfTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	at := time.Date(2025, 6, 10, 22, 45, 0, 0, loc) // 2025-06-11 01:45 UTC

	day := DayOf(at)
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), day)
}
