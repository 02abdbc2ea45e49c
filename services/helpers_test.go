package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reelapp/reel-backend/models"
)

// newTestDB opens a private in-memory SQLite database with every model migrated.
// One connection makes concurrent transactions queue like row-locked ones do.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AddDays(n int) { c.now = c.now.AddDate(0, 0, n) }

func newTestKarma(t *testing.T) (*KarmaService, *fakeClock, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock()
	svc := NewKarmaService(db, nil, KarmaOptions{
		DailyReward:     10,
		UnlockCost:      100,
		StreakCycleDays: 6,
		Location:        time.UTC,
	}).WithClock(clock.Now)
	return svc, clock, db
}

func seedEpisode(t *testing.T, db *gorm.DB, free bool) *models.Episode {
	t.Helper()
	ep := &models.Episode{SeriesTitle: "Night Shift", Title: "Pilot", VideoURL: "https://cdn.example/ep.mp4", IsFree: free}
	if err := db.Create(ep).Error; err != nil {
		t.Fatalf("seed episode: %v", err)
	}
	return ep
}

func seedBalance(t *testing.T, svc *KarmaService, userID uint, points int64) {
	t.Helper()
	if _, err := svc.Credit(context.Background(), userID, points, models.TxManualCredit); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}
