package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/utils"
)

// ContentService manages the episodes and rewarded ads the ledger refers to.
type ContentService struct {
	db *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{db: db}
}

// ListEpisodes pages through episodes, optionally within one series, ordered by series and number.
func (s *ContentService) ListEpisodes(ctx context.Context, series string, page, pageSize int) ([]models.Episode, int64, error) {
	var (
		items []models.Episode
		total int64
	)
	q := s.db.WithContext(ctx).Model(&models.Episode{})
	if series != "" {
		q = q.Where("series_title = ?", series)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count episodes: %w", err)
	}
	if err := q.Order("series_title ASC, number ASC, id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list episodes: %w", err)
	}
	return items, total, nil
}

func (s *ContentService) GetEpisode(ctx context.Context, id uint) (*models.Episode, error) {
	var ep models.Episode
	if err := s.db.WithContext(ctx).First(&ep, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("load episode: %w", err)
	}
	return &ep, nil
}

func (s *ContentService) CreateEpisode(ctx context.Context, ep *models.Episode) error {
	if err := s.db.WithContext(ctx).Create(ep).Error; err != nil {
		return fmt.Errorf("create episode: %w", err)
	}
	return nil
}

// UpdateEpisode applies the non-nil fields of patch.
func (s *ContentService) UpdateEpisode(ctx context.Context, id uint, patch map[string]interface{}) (*models.Episode, error) {
	ep, err := s.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(patch) > 0 {
		if err := s.db.WithContext(ctx).Model(ep).Updates(patch).Error; err != nil {
			return nil, fmt.Errorf("update episode: %w", err)
		}
	}
	return s.GetEpisode(ctx, id)
}

// DeleteEpisode removes the episode. Unlock rows are kept; they are permanent purchase records.
func (s *ContentService) DeleteEpisode(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Episode{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete episode: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEpisodeNotFound
	}
	return nil
}

// ListAds returns ads, newest first.
func (s *ContentService) ListAds(ctx context.Context, activeOnly bool) ([]models.Advertisement, error) {
	var ads []models.Advertisement
	q := s.db.WithContext(ctx).Order("id DESC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&ads).Error; err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	return ads, nil
}

// NextAd selects a random active ad for the client to play.
func (s *ContentService) NextAd(ctx context.Context) (*models.Advertisement, error) {
	q := s.db.WithContext(ctx).Model(&models.Advertisement{}).Where("active = ?", true)
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return nil, fmt.Errorf("count ads: %w", err)
	}
	if n == 0 {
		return nil, ErrAdNotFound
	}
	var ad models.Advertisement
	if err := q.Order("id ASC").Offset(rand.Intn(int(n))).Limit(1).Find(&ad).Error; err != nil {
		return nil, fmt.Errorf("pick ad: %w", err)
	}
	if ad.ID == 0 {
		return nil, ErrAdNotFound
	}
	return &ad, nil
}

func (s *ContentService) CreateAd(ctx context.Context, ad *models.Advertisement) error {
	if ad.Point <= 0 {
		return ErrInvalidAmount
	}
	if err := s.db.WithContext(ctx).Create(ad).Error; err != nil {
		return fmt.Errorf("create ad: %w", err)
	}
	return nil
}

// DeactivateAd retires an ad; past rewards keep pointing at it.
func (s *ContentService) DeactivateAd(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Advertisement{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate ad: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAdNotFound
	}
	return nil
}

// Stats aggregates ledger and unlock numbers for the admin dashboard.
type Stats struct {
	Users             int64 `json:"user_count"`
	Ledgers           int64 `json:"ledger_count"`
	OutstandingPoints int64 `json:"outstanding_points"`
	Unlocks           int64 `json:"unlock_count"`
	ClaimsToday       int64 `json:"claims_today"`
	Episodes          int64 `json:"episode_count"`
}

// Stats counts are best-effort: a failing aggregate reports zero instead of failing the dashboard.
func (s *ContentService) Stats(ctx context.Context, today time.Time) Stats {
	var st Stats
	db := s.db.WithContext(ctx)
	count := func(name string, dst *int64, q *gorm.DB) {
		if err := q.Error; err != nil {
			*dst = 0
			utils.Sugar.Warnw("stats aggregate failed", "aggregate", name, "error", err)
		}
	}
	count("users", &st.Users, db.Model(&models.User{}).Count(&st.Users))
	count("ledgers", &st.Ledgers, db.Model(&models.KarmaLedger{}).Count(&st.Ledgers))
	count("outstanding_points", &st.OutstandingPoints,
		db.Model(&models.KarmaLedger{}).Select("COALESCE(SUM(points),0)").Scan(&st.OutstandingPoints))
	count("unlocks", &st.Unlocks, db.Model(&models.EpisodeUnlock{}).Count(&st.Unlocks))
	count("claims_today", &st.ClaimsToday, db.Model(&models.KarmaTransaction{}).
		Where("kind = ? AND created_at >= ?", models.TxDailyClaim, today).Count(&st.ClaimsToday))
	count("episodes", &st.Episodes, db.Model(&models.Episode{}).Count(&st.Episodes))
	return st
}
