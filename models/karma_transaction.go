package models

import "time"

// Transaction kinds recorded in the karma history.
const (
	TxAdReward      = "ad_reward"
	TxDailyClaim    = "daily_claim"
	TxManualCredit  = "manual_credit"
	TxManualDebit   = "manual_debit"
	TxEpisodeUnlock = "episode_unlock"
)

// KarmaTransaction is an append-only entry for every balance change.
type KarmaTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Kind         string    `gorm:"size:32;not null" json:"kind"`
	Delta        int64     `gorm:"not null" json:"delta"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	AdID         *uint     `json:"ad_id,omitempty"`
	EpisodeID    *uint     `json:"episode_id,omitempty"`
	StreakDay    int       `json:"streak_day,omitempty"`
	Reference    string    `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
