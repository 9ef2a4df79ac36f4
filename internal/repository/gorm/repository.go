package gormrepository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopd/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- snapshots --------------------------------------------------------------

func (s *Store) UpsertStockSnapshots(ctx context.Context, items []models.StockSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shop_id"}, {Name: "item_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
	}).Create(&items).Error
}

func (s *Store) ListStockSnapshots(ctx context.Context) ([]models.StockSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.StockSnapshot
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceLimitSnapshots rewrites the whole limit table inside one
// transaction. The table only ever holds the rows of the latest snapshot,
// so usage cleared by a reset is gone after the next save.
func (s *Store) ReplaceLimitSnapshots(ctx context.Context, items []models.LimitSnapshot) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.LimitSnapshot{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (s *Store) ListLimitSnapshots(ctx context.Context) ([]models.LimitSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.LimitSnapshot
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- wallet -----------------------------------------------------------------

func (s *Store) WalletBalance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var account models.WalletAccount
	err := s.db.WithContext(ctx).First(&account, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *Store) DepositWallet(ctx context.Context, playerID string, amount decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.WalletAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, "player_id = ?", playerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.WalletAccount{
				PlayerID: playerID,
				Balance:  amount,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&account).
			Update("balance", account.Balance.Add(amount)).Error
	})
}

// WithdrawWallet debits the account only when the balance covers the
// amount; the row lock keeps concurrent withdrawals from overdrawing.
func (s *Store) WithdrawWallet(ctx context.Context, playerID string, amount decimal.Decimal) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	ok := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.WalletAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, "player_id = ?", playerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return nil
		}
		if err := tx.Model(&account).
			Update("balance", account.Balance.Sub(amount)).Error; err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}
