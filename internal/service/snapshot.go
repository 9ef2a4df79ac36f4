package service

import (
	"context"

	"go.uber.org/zap"

	"shopd/internal/limits"
	"shopd/internal/models"
	"shopd/internal/repository"
	"shopd/internal/stock"
)

// SnapshotService copies the in-memory stock and limit state to and from
// the repository. Save runs on a cron schedule and at shutdown; Load runs
// once at startup before the engine serves requests.
type SnapshotService struct {
	Repo   repository.Repository
	Ledger *stock.Ledger
	Limits *limits.Tracker
	Logger *zap.Logger
}

func (s *SnapshotService) Save(ctx context.Context) error {
	stockRows := make([]models.StockSnapshot, 0)
	for _, e := range s.Ledger.Export() {
		stockRows = append(stockRows, models.StockSnapshot{
			ShopID:    e.ShopID,
			ItemIndex: e.ItemIndex,
			Stock:     e.Stock,
		})
	}
	if err := s.Repo.UpsertStockSnapshots(ctx, stockRows); err != nil {
		return err
	}

	limitRows := make([]models.LimitSnapshot, 0)
	for _, e := range s.Limits.Export() {
		limitRows = append(limitRows, models.LimitSnapshot{
			ShopID:    e.ShopID,
			ItemIndex: e.ItemIndex,
			PlayerID:  e.PlayerID,
			Used:      e.Used,
		})
	}
	// Replaced, not upserted: usage cleared by a shop reset has to vanish
	// from storage as well, or a restart would restore it.
	if err := s.Repo.ReplaceLimitSnapshots(ctx, limitRows); err != nil {
		return err
	}

	if s.Logger != nil {
		s.Logger.Debug("snapshot saved",
			zap.Int("stock_rows", len(stockRows)),
			zap.Int("limit_rows", len(limitRows)),
		)
	}
	return nil
}

func (s *SnapshotService) Load(ctx context.Context) error {
	stockRows, err := s.Repo.ListStockSnapshots(ctx)
	if err != nil {
		return err
	}
	stockEntries := make([]stock.Entry, 0, len(stockRows))
	for _, row := range stockRows {
		stockEntries = append(stockEntries, stock.Entry{
			ShopID:    row.ShopID,
			ItemIndex: row.ItemIndex,
			Stock:     row.Stock,
		})
	}
	s.Ledger.Restore(stockEntries)

	limitRows, err := s.Repo.ListLimitSnapshots(ctx)
	if err != nil {
		return err
	}
	limitEntries := make([]limits.Entry, 0, len(limitRows))
	for _, row := range limitRows {
		limitEntries = append(limitEntries, limits.Entry{
			ShopID:    row.ShopID,
			ItemIndex: row.ItemIndex,
			PlayerID:  row.PlayerID,
			Used:      row.Used,
		})
	}
	s.Limits.Restore(limitEntries)

	if s.Logger != nil {
		s.Logger.Info("snapshot loaded",
			zap.Int("stock_rows", len(stockRows)),
			zap.Int("limit_rows", len(limitRows)),
		)
	}
	return nil
}
