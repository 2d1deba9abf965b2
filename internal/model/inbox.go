package model

import "time"

// InboxTransaction is the receiving side record of one transaction offered
// by a remote box. There is one row per (remote box, transaction).
type InboxTransaction struct {
	ID                 uint      `gorm:"primaryKey"`
	RemoteBoxID        uint      `gorm:"not null;uniqueIndex:ux_inbox_transactions_key,priority:1"`
	RemoteBoxName      string    `gorm:"not null"`
	TransactionID      int64     `gorm:"not null;uniqueIndex:ux_inbox_transactions_key,priority:2"`
	TotalImageCount    int64     `gorm:"not null"`
	ReceivedImageCount int64     `gorm:"not null;default:0"`
	Finished           bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	LastUpdated        time.Time `gorm:"autoUpdateTime"`
}

func (InboxTransaction) TableName() string {
	return "inbox_transactions"
}

// InboxImage links a received image to the inbox transaction that carried it.
type InboxImage struct {
	ID                 uint      `gorm:"primaryKey"`
	InboxTransactionID uint      `gorm:"not null;uniqueIndex:ux_inbox_images_key,priority:1"`
	ImageID            uint      `gorm:"not null;uniqueIndex:ux_inbox_images_key,priority:2;index"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

func (InboxImage) TableName() string {
	return "inbox_images"
}
