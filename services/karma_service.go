package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/utils"
)

var tracer = otel.Tracer("github.com/reelapp/reel-backend/services")

const (
	ledgerCacheTTL      = 30 * time.Second
	ledgerCacheRedelete = 500 * time.Millisecond
	userLockTTL         = 5 * time.Second
)

// Clock returns the current time. Tests replace it to move across calendar days.
type Clock func() time.Time

// KarmaOptions are the tunable reward rules.
type KarmaOptions struct {
	DailyReward     int64
	UnlockCost      int64
	StreakCycleDays int
	Location        *time.Location
}

// KarmaService owns the per-user ledger: balance reads, credits, debits and the daily check-in.
type KarmaService struct {
	db          *gorm.DB
	rdb         *redis.Client
	locker      *utils.Locker
	policy      StreakPolicy
	dailyReward int64
	unlockCost  int64
	now         Clock
	redelete    time.Duration
}

// NewKarmaService builds the ledger service. rdb may be nil, which disables caching and distributed locks.
func NewKarmaService(db *gorm.DB, rdb *redis.Client, opts KarmaOptions) *KarmaService {
	if opts.DailyReward <= 0 {
		opts.DailyReward = 10
	}
	if opts.UnlockCost <= 0 {
		opts.UnlockCost = 100
	}
	return &KarmaService{
		db:          db,
		rdb:         rdb,
		locker:      utils.NewLocker(rdb),
		policy:      StreakPolicy{CycleDays: opts.StreakCycleDays, Location: opts.Location},
		dailyReward: opts.DailyReward,
		unlockCost:  opts.UnlockCost,
		now:         time.Now,
		redelete:    ledgerCacheRedelete,
	}
}

// WithClock swaps the time source.
func (s *KarmaService) WithClock(c Clock) *KarmaService {
	s.now = c
	return s
}

// Today is the current calendar day in the configured timezone.
func (s *KarmaService) Today() time.Time { return s.policy.Today(s.now()) }

// DailyReward is the fixed amount granted per daily claim.
func (s *KarmaService) DailyReward() int64 { return s.dailyReward }

// LedgerSummary is the client view of a ledger.
type LedgerSummary struct {
	Points                  int64      `json:"points"`
	CurrentStreakDay        int        `json:"currentStreakDay"`
	DailyPointsClaimedToday bool       `json:"dailyPointsClaimedToday"`
	NextStreakDay           int        `json:"nextStreakDay"`
	LastDailyClaimDate      *time.Time `json:"lastDailyClaimDate,omitempty"`
	DailyReward             int64      `json:"dailyReward"`
}

// Summary derives the claimed-today flag from the last claim date so it resets at midnight without a job.
func (s *KarmaService) Summary(ledger *models.KarmaLedger) LedgerSummary {
	d := s.policy.Evaluate(ledger.LastDailyClaimDate, ledger.CurrentStreakDay, s.now())
	next := d.StreakDay
	if !d.Allowed() {
		next = 0
	}
	return LedgerSummary{
		Points:                  ledger.Points,
		CurrentStreakDay:        ledger.CurrentStreakDay,
		DailyPointsClaimedToday: !d.Allowed(),
		NextStreakDay:           next,
		LastDailyClaimDate:      ledger.LastDailyClaimDate,
		DailyReward:             s.dailyReward,
	}
}

// GetBalance returns the user's ledger or ErrLedgerNotFound.
func (s *KarmaService) GetBalance(ctx context.Context, userID uint) (*models.KarmaLedger, error) {
	var ledger models.KarmaLedger
	if utils.CacheGetJSON(ctx, s.rdb, ledgerCacheKey(userID), &ledger) {
		return &ledger, nil
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&ledger).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	utils.CacheSetJSON(ctx, s.rdb, ledgerCacheKey(userID), ledger, ledgerCacheTTL)
	return &ledger, nil
}

// Credit adds amount to the user's balance, creating the ledger on first use.
func (s *KarmaService) Credit(ctx context.Context, userID uint, amount int64, kind string) (*models.KarmaLedger, error) {
	return s.credit(ctx, userID, amount, models.KarmaTransaction{Kind: kind})
}

// CreditAdReward credits the configured point value of an ad the user watched to the end.
// Repeat views are credited every time.
func (s *KarmaService) CreditAdReward(ctx context.Context, userID, adID uint) (*models.KarmaLedger, *models.Advertisement, error) {
	var ad models.Advertisement
	if err := s.db.WithContext(ctx).Where("id = ? AND active = ?", adID, true).First(&ad).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAdNotFound
		}
		return nil, nil, fmt.Errorf("load advertisement: %w", err)
	}
	ledger, err := s.credit(ctx, userID, ad.Point, models.KarmaTransaction{Kind: models.TxAdReward, AdID: &ad.ID})
	if err != nil {
		return nil, nil, err
	}
	return ledger, &ad, nil
}

func (s *KarmaService) credit(ctx context.Context, userID uint, amount int64, entry models.KarmaTransaction) (*models.KarmaLedger, error) {
	ctx, span := tracer.Start(ctx, "karma.credit", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("karma.amount", amount),
		attribute.String("karma.kind", entry.Kind),
	))
	defer span.End()

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var ledger *models.KarmaLedger
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureLedger(tx, userID); err != nil {
			return err
		}
		l, err := lockLedger(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.KarmaLedger{}).Where("id = ?", l.ID).
			Update("points", gorm.Expr("points + ?", amount)).Error; err != nil {
			return fmt.Errorf("credit ledger: %w", err)
		}
		l.Points += amount

		entry.UserID = userID
		entry.Delta = amount
		entry.BalanceAfter = l.Points
		if err := appendTransaction(tx, &entry); err != nil {
			return err
		}
		ledger = l
		return nil
	})
	s.finish(ctx, span, "credit", userID, err)
	if err != nil {
		return nil, err
	}
	utils.KarmaPointsMoved.WithLabelValues("credit", entry.Kind).Add(float64(amount))
	return ledger, nil
}

// Debit subtracts amount unconditionally. Only the ledger's existence is checked;
// callers that must not overdraw use UnlockService instead.
func (s *KarmaService) Debit(ctx context.Context, userID uint, amount int64) (*models.KarmaLedger, error) {
	ctx, span := tracer.Start(ctx, "karma.debit", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("karma.amount", amount),
	))
	defer span.End()

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var ledger *models.KarmaLedger
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := lockLedger(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.KarmaLedger{}).Where("id = ?", l.ID).
			Update("points", gorm.Expr("points - ?", amount)).Error; err != nil {
			return fmt.Errorf("debit ledger: %w", err)
		}
		l.Points -= amount
		if err := appendTransaction(tx, &models.KarmaTransaction{
			UserID:       userID,
			Kind:         models.TxManualDebit,
			Delta:        -amount,
			BalanceAfter: l.Points,
			CreatedAt:    s.now(),
		}); err != nil {
			return err
		}
		ledger = l
		return nil
	})
	s.finish(ctx, span, "debit", userID, err)
	if err != nil {
		return nil, err
	}
	if ledger.Points < 0 {
		utils.Sugar.Warnw("karma balance went negative", "user_id", userID, "points", ledger.Points)
	}
	utils.KarmaPointsMoved.WithLabelValues("debit", models.TxManualDebit).Add(float64(amount))
	return ledger, nil
}

// ClaimResult is returned by a successful daily claim.
type ClaimResult struct {
	Points      int64      `json:"points"`
	StreakDay   int        `json:"currentStreakDay"`
	Reward      int64      `json:"reward"`
	PriorState  ClaimState `json:"-"`
	ClaimedDate time.Time  `json:"claimedDate"`
}

// ClaimDaily runs the daily check-in transition for the user.
// The state is evaluated under the ledger row lock, so concurrent claims cannot both pass.
func (s *KarmaService) ClaimDaily(ctx context.Context, userID uint) (*ClaimResult, error) {
	ctx, span := tracer.Start(ctx, "karma.claim_daily", trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer span.End()

	release, err := s.locker.Acquire(ctx, userLockKey(userID), userLockTTL)
	if err != nil {
		s.finish(ctx, span, "claim_daily", userID, err)
		return nil, err
	}
	defer release()

	var result *ClaimResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureLedger(tx, userID); err != nil {
			return err
		}
		l, err := lockLedger(tx, userID)
		if err != nil {
			return err
		}

		d := s.policy.Evaluate(l.LastDailyClaimDate, l.CurrentStreakDay, s.now())
		if !d.Allowed() {
			return &ClaimError{StreakDay: l.CurrentStreakDay, Points: l.Points}
		}

		today := d.Today
		if err := tx.Model(&models.KarmaLedger{}).Where("id = ?", l.ID).Updates(map[string]interface{}{
			"points":                     gorm.Expr("points + ?", s.dailyReward),
			"daily_points_claimed_today": true,
			"last_daily_claim_date":      today,
			"current_streak_day":         d.StreakDay,
		}).Error; err != nil {
			return fmt.Errorf("record daily claim: %w", err)
		}
		l.Points += s.dailyReward

		if err := appendTransaction(tx, &models.KarmaTransaction{
			UserID:       userID,
			Kind:         models.TxDailyClaim,
			Delta:        s.dailyReward,
			BalanceAfter: l.Points,
			StreakDay:    d.StreakDay,
		}); err != nil {
			return err
		}
		result = &ClaimResult{
			Points:      l.Points,
			StreakDay:   d.StreakDay,
			Reward:      s.dailyReward,
			PriorState:  d.State,
			ClaimedDate: today,
		}
		return nil
	})
	s.finish(ctx, span, "claim_daily", userID, err)
	if err != nil {
		return nil, err
	}
	utils.KarmaPointsMoved.WithLabelValues("credit", models.TxDailyClaim).Add(float64(s.dailyReward))
	return result, nil
}

// Delete removes the user's ledger. History rows stay for audit.
func (s *KarmaService) Delete(ctx context.Context, userID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.KarmaLedger{})
	if res.Error != nil {
		return fmt.Errorf("delete ledger: %w", res.Error)
	}
	s.invalidateLedger(ctx, userID)
	if res.RowsAffected == 0 {
		return ErrLedgerNotFound
	}
	utils.Sugar.Infow("karma ledger deleted", "user_id", userID)
	return nil
}

// History lists the user's transactions, newest first.
func (s *KarmaService) History(ctx context.Context, userID uint, page, pageSize int) ([]models.KarmaTransaction, int64, error) {
	var (
		items []models.KarmaTransaction
		total int64
	)
	q := s.db.WithContext(ctx).Model(&models.KarmaTransaction{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	if err := q.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return items, total, nil
}

// finish records metrics, span status and drops the cached ledger after a successful mutation.
func (s *KarmaService) finish(ctx context.Context, span trace.Span, op string, userID uint, err error) {
	utils.ObserveKarma(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	s.invalidateLedger(ctx, userID)
}

// invalidateLedger evicts the cached ledger now and once more after a short delay,
// dropping a stale copy that a reader which loaded the row before the commit wrote back.
func (s *KarmaService) invalidateLedger(ctx context.Context, userID uint) {
	if s.rdb == nil {
		return
	}
	key := ledgerCacheKey(userID)
	utils.CacheDelete(ctx, s.rdb, key)
	time.AfterFunc(s.redelete, func() {
		utils.CacheDelete(context.Background(), s.rdb, key)
	})
}

// ensureLedger creates an empty ledger for the user unless one exists.
func ensureLedger(tx *gorm.DB, userID uint) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.KarmaLedger{UserID: userID}).Error
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	return nil
}

// lockLedger reads the ledger row FOR UPDATE.
func lockLedger(tx *gorm.DB, userID uint) (*models.KarmaLedger, error) {
	var ledger models.KarmaLedger
	q := tx
	// SQLite has no row locks; its single writer already serializes the transaction.
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("user_id = ?", userID).First(&ledger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	return &ledger, nil
}

func appendTransaction(tx *gorm.DB, entry *models.KarmaTransaction) error {
	if entry.Reference == "" {
		entry.Reference = uuid.NewString()
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("append karma transaction: %w", err)
	}
	return nil
}

func ledgerCacheKey(userID uint) string {
	return "karma:ledger:" + strconv.FormatUint(uint64(userID), 10)
}

func userLockKey(userID uint) string {
	return "karma:lock:user:" + strconv.FormatUint(uint64(userID), 10)
}
