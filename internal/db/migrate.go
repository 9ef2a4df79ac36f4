package db

import (
	"shopd/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.StockSnapshot{},
		&models.LimitSnapshot{},
		&models.WalletAccount{},
	)
}
