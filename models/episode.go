package models

import "time"

// Episode is a playable unit of a reel series. Paid episodes need an unlock.
type Episode struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SeriesTitle  string    `gorm:"size:255;index" json:"series_title"`
	Number       int       `gorm:"not null;default:1" json:"number"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	VideoURL     string    `gorm:"size:1024;not null" json:"-"`
	ThumbnailURL string    `gorm:"size:1024" json:"thumbnail_url"`
	IsFree       bool      `gorm:"not null;default:false" json:"is_free"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EpisodeUnlock records that a user paid for a non-free episode. Rows are never updated.
type EpisodeUnlock struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex:idx_unlock_user_episode;not null" json:"user_id"`
	EpisodeID   uint      `gorm:"uniqueIndex:idx_unlock_user_episode;index;not null" json:"episode_id"`
	PointsSpent int64     `gorm:"not null" json:"points_spent"`
	Reference   string    `gorm:"size:36;not null" json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
}
