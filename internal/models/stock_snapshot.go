package models

import "time"

// StockSnapshot is one persisted stock value. The ledger stays in memory;
// snapshots exist so state survives restarts.
type StockSnapshot struct {
	ShopID    string    `gorm:"primaryKey;type:varchar(128)"`
	ItemIndex int       `gorm:"primaryKey"`
	Stock     int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (StockSnapshot) TableName() string {
	return "stock_snapshots"
}
