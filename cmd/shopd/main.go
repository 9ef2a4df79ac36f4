package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopd/internal/config"
	cronrunner "shopd/internal/cron"
	"shopd/internal/db"
	"shopd/internal/economy"
	"shopd/internal/engine"
	"shopd/internal/handler"
	"shopd/internal/inventory"
	"shopd/internal/limits"
	"shopd/internal/logger"
	gormrepository "shopd/internal/repository/gorm"
	"shopd/internal/reset"
	"shopd/internal/service"
	"shopd/internal/shop"
	"shopd/internal/stock"
)

func main() {
	cfgPath := os.Getenv("SHOPD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SHOPD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	catalog, err := shop.LoadCatalog(cfg.Shops.CatalogPath)
	if err != nil {
		logger.Fatal("shop catalog load failed", zap.Error(err))
	}
	logger.Info("shop catalog loaded", zap.Int("shops", catalog.Len()))

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	ledger := stock.NewLedger()
	tracker := limits.NewTracker()
	scheduler := reset.NewScheduler()

	snapshotSvc := &service.SnapshotService{
		Repo:   store,
		Ledger: ledger,
		Limits: tracker,
		Logger: logger,
	}
	if err := snapshotSvc.Load(context.Background()); err != nil {
		logger.Warn("snapshot load failed, starting from full stock", zap.Error(err))
	}

	shopEngine := &engine.Engine{
		Catalog:   catalog,
		Ledger:    ledger,
		Limits:    tracker,
		Resets:    scheduler,
		Economy:   economy.NewResolver(store),
		Inventory: inventory.NewMemory(cfg.Inventory.Slots, cfg.Inventory.StackSize),
		Logger:    logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Catalog: catalog}
	healthHandler.Register(router)
	shopHandler := &handler.ShopHandler{Catalog: catalog, Engine: shopEngine}
	shopHandler.Register(router)
	tradeHandler := &handler.TradeHandler{Engine: shopEngine, Logger: logger}
	tradeHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.ResetSweep, func(ctx context.Context) {
			shopEngine.SweepResets()
		}); err != nil {
			logger.Warn("cron register reset sweep failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.Snapshot, func(ctx context.Context) {
			if err := snapshotSvc.Save(ctx); err != nil {
				logger.Warn("cron snapshot failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register snapshot failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Final snapshot so stock and limit state survive the restart.
	saveCtx, cancelSave := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSave()
	if err := snapshotSvc.Save(saveCtx); err != nil {
		logger.Warn("final snapshot failed", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
