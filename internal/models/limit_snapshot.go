package models

import "time"

// LimitSnapshot is one persisted per-player purchase usage value.
type LimitSnapshot struct {
	ShopID    string    `gorm:"primaryKey;type:varchar(128)"`
	ItemIndex int       `gorm:"primaryKey"`
	PlayerID  string    `gorm:"primaryKey;type:varchar(128)"`
	Used      int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (LimitSnapshot) TableName() string {
	return "limit_snapshots"
}
