package models

import "time"

// KarmaLedger holds one user's point balance and daily check-in streak.
type KarmaLedger struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	UserID                  uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Points                  int64      `gorm:"not null;default:0" json:"points"`
	DailyPointsClaimedToday bool       `gorm:"not null;default:false" json:"daily_points_claimed_today"`
	LastDailyClaimDate      *time.Time `json:"last_daily_claim_date"`
	CurrentStreakDay        int        `gorm:"not null;default:0" json:"current_streak_day"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}
