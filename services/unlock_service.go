package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/utils"
)

// UnlockService charges karma for paid episodes and answers playback checks.
type UnlockService struct {
	karma *KarmaService
}

// NewUnlockService shares the ledger service's database, cache and locks.
func NewUnlockService(karma *KarmaService) *UnlockService {
	return &UnlockService{karma: karma}
}

// Cost is the fixed price of unlocking one paid episode.
func (s *UnlockService) Cost() int64 { return s.karma.unlockCost }

// legacyPrepaidWindow is how far back a manual debit may count as payment for a legacy unlock.
const legacyPrepaidWindow = 2 * time.Minute

// UnlockResult describes what an unlock request did.
type UnlockResult struct {
	EpisodeID       uint   `json:"episodeId"`
	Free            bool   `json:"free"`
	AlreadyUnlocked bool   `json:"alreadyUnlocked"`
	Prepaid         bool   `json:"prepaid,omitempty"`
	PointsSpent     int64  `json:"pointsSpent"`
	Points          *int64 `json:"points,omitempty"`
	Reference       string `json:"reference,omitempty"`
}

// UnlockEpisode charges the unlock cost and records the unlock in one transaction.
// Free episodes and episodes the user already owns are returned without touching the ledger.
func (s *UnlockService) UnlockEpisode(ctx context.Context, userID, episodeID uint) (*UnlockResult, error) {
	return s.unlock(ctx, userID, episodeID, false)
}

// UnlockLegacy serves clients that still deduct the cost before marking the episode unlocked.
// A recent manual debit of at least the unlock cost that no unlock has consumed yet
// pays for the episode; otherwise it charges like UnlockEpisode.
func (s *UnlockService) UnlockLegacy(ctx context.Context, userID, episodeID uint) (*UnlockResult, error) {
	return s.unlock(ctx, userID, episodeID, true)
}

func (s *UnlockService) unlock(ctx context.Context, userID, episodeID uint, acceptPrepaid bool) (*UnlockResult, error) {
	ctx, span := tracer.Start(ctx, "karma.unlock_episode", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("episode.id", int64(episodeID)),
		attribute.Bool("unlock.legacy", acceptPrepaid),
	))
	defer span.End()

	db := s.karma.db.WithContext(ctx)
	var episode models.Episode
	if err := db.First(&episode, episodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("load episode: %w", err)
	}
	if episode.IsFree {
		return &UnlockResult{EpisodeID: episode.ID, Free: true}, nil
	}

	release, err := s.karma.locker.Acquire(ctx, userLockKey(userID), userLockTTL)
	if err != nil {
		s.karma.finish(ctx, span, "unlock_episode", userID, err)
		return nil, err
	}
	defer release()

	cost := s.karma.unlockCost
	var result *UnlockResult
	err = db.Transaction(func(tx *gorm.DB) error {
		// The ledger lock comes first so the ownership check below sees any unlock
		// committed by a request that held the lock before us.
		ledger, err := lockLedger(tx, userID)
		if err != nil && !errors.Is(err, ErrLedgerNotFound) {
			return err
		}

		var existing models.EpisodeUnlock
		err = tx.Where("user_id = ? AND episode_id = ?", userID, episode.ID).First(&existing).Error
		if err == nil {
			result = &UnlockResult{EpisodeID: episode.ID, AlreadyUnlocked: true, Reference: existing.Reference}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load unlock: %w", err)
		}
		if ledger == nil {
			return &InsufficientPointsError{Balance: 0, Required: cost}
		}

		if acceptPrepaid {
			debit, err := s.unusedPrepayment(tx, userID, cost)
			if err != nil {
				return err
			}
			if debit != nil {
				if err := tx.Create(&models.EpisodeUnlock{
					UserID:      userID,
					EpisodeID:   episode.ID,
					PointsSpent: -debit.Delta,
					Reference:   debit.Reference,
				}).Error; err != nil {
					return fmt.Errorf("record unlock: %w", err)
				}
				balance := ledger.Points
				result = &UnlockResult{EpisodeID: episode.ID, Prepaid: true, Points: &balance, Reference: debit.Reference}
				return nil
			}
		}

		if ledger.Points < cost {
			return &InsufficientPointsError{Balance: ledger.Points, Required: cost}
		}

		// The guard keeps the debit safe even where the driver cannot lock rows.
		res := tx.Model(&models.KarmaLedger{}).
			Where("id = ? AND points >= ?", ledger.ID, cost).
			Update("points", gorm.Expr("points - ?", cost))
		if res.Error != nil {
			return fmt.Errorf("debit ledger: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &InsufficientPointsError{Balance: ledger.Points, Required: cost}
		}
		balance := ledger.Points - cost

		ref := uuid.NewString()
		if err := tx.Create(&models.EpisodeUnlock{
			UserID:      userID,
			EpisodeID:   episode.ID,
			PointsSpent: cost,
			Reference:   ref,
		}).Error; err != nil {
			return fmt.Errorf("record unlock: %w", err)
		}
		epID := episode.ID
		if err := appendTransaction(tx, &models.KarmaTransaction{
			UserID:       userID,
			Kind:         models.TxEpisodeUnlock,
			Delta:        -cost,
			BalanceAfter: balance,
			EpisodeID:    &epID,
			Reference:    ref,
		}); err != nil {
			return err
		}
		result = &UnlockResult{EpisodeID: episode.ID, PointsSpent: cost, Points: &balance, Reference: ref}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent request unlocked the same episode first; the rollback undid our debit.
		owned, lookupErr := s.isUnlocked(ctx, userID, episode.ID)
		if lookupErr == nil && owned {
			err = nil
			result = &UnlockResult{EpisodeID: episode.ID, AlreadyUnlocked: true}
		}
	}
	s.karma.finish(ctx, span, "unlock_episode", userID, err)
	if err != nil {
		return nil, err
	}
	switch {
	case result.PointsSpent > 0:
		utils.KarmaPointsMoved.WithLabelValues("debit", models.TxEpisodeUnlock).Add(float64(result.PointsSpent))
		utils.Sugar.Infow("episode unlocked", "user_id", userID, "episode_id", episode.ID, "reference", result.Reference)
	case result.Prepaid:
		utils.Sugar.Infow("episode unlocked with prior deduct", "user_id", userID, "episode_id", episode.ID, "reference", result.Reference)
	}
	return result, nil
}

// unusedPrepayment finds the newest manual debit inside the legacy window that covers cost
// and has not paid for another unlock.
func (s *UnlockService) unusedPrepayment(tx *gorm.DB, userID uint, cost int64) (*models.KarmaTransaction, error) {
	since := s.karma.now().Add(-legacyPrepaidWindow)
	var debits []models.KarmaTransaction
	err := tx.Where("user_id = ? AND kind = ? AND delta <= ? AND created_at >= ?", userID, models.TxManualDebit, -cost, since).
		Where("reference NOT IN (?)", tx.Model(&models.EpisodeUnlock{}).Select("reference").Where("user_id = ?", userID)).
		Order("id DESC").Limit(1).Find(&debits).Error
	if err != nil {
		return nil, fmt.Errorf("load prepayment: %w", err)
	}
	if len(debits) == 0 {
		return nil, nil
	}
	return &debits[0], nil
}

// IsPlayable reports whether the user may play the episode: free, or unlocked before.
func (s *UnlockService) IsPlayable(ctx context.Context, userID uint, episode *models.Episode) (bool, error) {
	if episode.IsFree {
		return true, nil
	}
	return s.isUnlocked(ctx, userID, episode.ID)
}

// UnlockedEpisodeIDs lists the episodes the user has paid for.
func (s *UnlockService) UnlockedEpisodeIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.karma.db.WithContext(ctx).Model(&models.EpisodeUnlock{}).
		Where("user_id = ?", userID).Order("created_at DESC").Pluck("episode_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	return ids, nil
}

// LockedFlags maps each episode id to true when the user still has to unlock it.
func (s *UnlockService) LockedFlags(ctx context.Context, userID uint, episodes []models.Episode) (map[uint]bool, error) {
	flags := make(map[uint]bool, len(episodes))
	paid := make([]uint, 0, len(episodes))
	for _, ep := range episodes {
		flags[ep.ID] = !ep.IsFree
		if !ep.IsFree {
			paid = append(paid, ep.ID)
		}
	}
	if len(paid) == 0 {
		return flags, nil
	}
	var owned []uint
	err := s.karma.db.WithContext(ctx).Model(&models.EpisodeUnlock{}).
		Where("user_id = ? AND episode_id IN ?", userID, paid).Pluck("episode_id", &owned).Error
	if err != nil {
		return nil, fmt.Errorf("load unlocks: %w", err)
	}
	for _, id := range owned {
		flags[id] = false
	}
	return flags, nil
}

func (s *UnlockService) isUnlocked(ctx context.Context, userID, episodeID uint) (bool, error) {
	var n int64
	err := s.karma.db.WithContext(ctx).Model(&models.EpisodeUnlock{}).
		Where("user_id = ? AND episode_id = ?", userID, episodeID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check unlock: %w", err)
	}
	return n > 0, nil
}
