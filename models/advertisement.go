package models

import "time"

// Advertisement is a rewarded video; watching it to the end credits Point karma.
type Advertisement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	VideoURL  string    `gorm:"size:1024;not null" json:"video_url"`
	Point     int64     `gorm:"not null" json:"point"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
