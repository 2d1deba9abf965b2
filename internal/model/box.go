package model

import "time"

// Box is a remote peer this node exchanges datasets with.
// Boxes are managed outside the sync core; only Online is written by it.
type Box struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null;uniqueIndex"`
	BaseURL   string    `gorm:"not null"`
	Online    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Box) TableName() string {
	return "boxes"
}
