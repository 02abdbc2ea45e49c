package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/utils"
)

func TestEpisodeCRUD(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ep := &models.Episode{SeriesTitle: "Harbor", Number: 4 - i, Title: "Ep", VideoURL: "v"}
		if err := svc.CreateEpisode(ctx, ep); err != nil {
			t.Fatalf("CreateEpisode: %v", err)
		}
	}
	if err := svc.CreateEpisode(ctx, &models.Episode{SeriesTitle: "Other", Title: "x", VideoURL: "v"}); err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}

	items, total, err := svc.ListEpisodes(ctx, "Harbor", 1, 10)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if total != 3 || items[0].Number != 1 || items[2].Number != 3 {
		t.Fatalf("series listing: total=%d items=%+v", total, items)
	}

	updated, err := svc.UpdateEpisode(ctx, items[0].ID, map[string]interface{}{"title": "Renamed", "is_free": true})
	if err != nil {
		t.Fatalf("UpdateEpisode: %v", err)
	}
	if updated.Title != "Renamed" || !updated.IsFree {
		t.Fatalf("updated episode: %+v", updated)
	}

	if err := svc.DeleteEpisode(ctx, items[0].ID); err != nil {
		t.Fatalf("DeleteEpisode: %v", err)
	}
	if _, err := svc.GetEpisode(ctx, items[0].ID); !errors.Is(err, ErrEpisodeNotFound) {
		t.Fatalf("expected ErrEpisodeNotFound, got %v", err)
	}
	if err := svc.DeleteEpisode(ctx, items[0].ID); !errors.Is(err, ErrEpisodeNotFound) {
		t.Fatalf("second delete: expected ErrEpisodeNotFound, got %v", err)
	}
}

func TestAdsLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db)
	ctx := context.Background()

	if _, err := svc.NextAd(ctx); !errors.Is(err, ErrAdNotFound) {
		t.Fatalf("expected ErrAdNotFound with no ads, got %v", err)
	}
	if err := svc.CreateAd(ctx, &models.Advertisement{Title: "Bad", VideoURL: "v", Point: 0, Active: true}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	ad := &models.Advertisement{Title: "Cola", VideoURL: "v", Point: 5, Active: true}
	if err := svc.CreateAd(ctx, ad); err != nil {
		t.Fatalf("CreateAd: %v", err)
	}
	next, err := svc.NextAd(ctx)
	if err != nil || next.ID != ad.ID {
		t.Fatalf("NextAd: %+v %v", next, err)
	}

	if err := svc.DeactivateAd(ctx, ad.ID); err != nil {
		t.Fatalf("DeactivateAd: %v", err)
	}
	if _, err := svc.NextAd(ctx); !errors.Is(err, ErrAdNotFound) {
		t.Fatalf("inactive ads must not be served, got %v", err)
	}
	active, _ := svc.ListAds(ctx, true)
	all, _ := svc.ListAds(ctx, false)
	if len(active) != 0 || len(all) != 1 {
		t.Fatalf("active=%d all=%d", len(active), len(all))
	}
	if err := svc.DeactivateAd(ctx, 12345); !errors.Is(err, ErrAdNotFound) {
		t.Fatalf("expected ErrAdNotFound, got %v", err)
	}
}

func TestStatsCountsLedgerActivity(t *testing.T) {
	karma, _, db := newTestKarma(t)
	svc := NewContentService(db)
	unlocks := NewUnlockService(karma)
	ctx := context.Background()

	seedBalance(t, karma, 1, 120)
	if _, err := karma.ClaimDaily(ctx, 2); err != nil {
		t.Fatalf("ClaimDaily: %v", err)
	}
	ep := seedEpisode(t, db, false)
	if _, err := unlocks.UnlockEpisode(ctx, 1, ep.ID); err != nil {
		t.Fatalf("UnlockEpisode: %v", err)
	}

	st := svc.Stats(ctx, karma.Today().AddDate(0, 0, -1))
	if st.Ledgers != 2 || st.OutstandingPoints != 30 || st.Unlocks != 1 || st.Episodes != 1 || st.ClaimsToday != 1 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestStatsLogsFailedAggregate(t *testing.T) {
	_, _, db := newTestKarma(t)
	svc := NewContentService(db)
	core, logs := observer.New(zap.WarnLevel)
	prev := utils.Sugar
	utils.Sugar = zap.New(core).Sugar()
	t.Cleanup(func() { utils.Sugar = prev })

	if err := db.Migrator().DropTable(&models.Episode{}); err != nil {
		t.Fatalf("drop episodes: %v", err)
	}
	st := svc.Stats(context.Background(), time.Now())
	if st.Episodes != 0 {
		t.Fatalf("episodes: got %d want 0", st.Episodes)
	}
	entries := logs.FilterMessage("stats aggregate failed").All()
	if len(entries) != 1 || entries[0].ContextMap()["aggregate"] != "episodes" {
		t.Fatalf("warnings: %+v", entries)
	}
}
