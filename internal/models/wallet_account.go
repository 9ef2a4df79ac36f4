package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletAccount backs the persistent wallet currency provider.
type WalletAccount struct {
	PlayerID  string          `gorm:"primaryKey;type:varchar(128)"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	UpdatedAt time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WalletAccount) TableName() string {
	return "wallet_accounts"
}
