package di

import (
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/api/handlers"
	"github.com/risk-service/risk_service/internal/api/routes"
	"github.com/risk-service/risk_service/internal/domain/services"
	"github.com/risk-service/risk_service/internal/domain/services/risk"
	"github.com/risk-service/risk_service/internal/infrastructure/cache"
	"github.com/risk-service/risk_service/internal/infrastructure/config"
	"github.com/risk-service/risk_service/internal/infrastructure/repositories"
	"github.com/risk-service/risk_service/internal/workers/runreaper"
	"github.com/risk-service/risk_service/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Repositories
	InstrumentRepo *repositories.InstrumentRepository
	PriceRepo      *repositories.PriceRepository
	PortfolioRepo  *repositories.PortfolioRepository
	PositionRepo   *repositories.PositionRepository
	RiskRunRepo    *repositories.RiskRunRepository

	// Infrastructure
	RunCache *cache.RunCache

	// Domain services
	PortfolioService  *services.PortfolioService
	PositionService   *services.PositionService
	MarketDataService *services.MarketDataService
	RiskService       *risk.Service

	// Workers
	Reaper *runreaper.Reaper

	// HTTP
	Handlers *routes.Handlers
}

// NewContainer wires all application dependencies together. Redis being down
// is tolerated: the run cache stays nil and reads fall through to Postgres.
func NewContainer(cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	zapLog := log.Zap()

	c := &Container{
		Config: cfg,
		DB:     db,
		Logger: log,
		ZapLog: zapLog,
	}

	// Repositories
	c.InstrumentRepo = repositories.NewInstrumentRepository(db, zapLog)
	c.PriceRepo = repositories.NewPriceRepository(db, zapLog)
	c.PortfolioRepo = repositories.NewPortfolioRepository(db, zapLog)
	c.PositionRepo = repositories.NewPositionRepository(db, zapLog)
	c.RiskRunRepo = repositories.NewRiskRunRepository(db, zapLog)

	// Run cache
	runCache, err := cache.NewRunCache(cfg.Redis,
		time.Duration(cfg.Risk.ResultCacheTTLSeconds)*time.Second, log)
	if err != nil {
		log.Warn("Redis unavailable, risk run caching disabled", "error", err)
	} else {
		c.RunCache = runCache
	}

	// Domain services
	c.PortfolioService = services.NewPortfolioService(c.PortfolioRepo, log)
	c.PositionService = services.NewPositionService(
		c.PositionRepo, c.PortfolioRepo, c.InstrumentRepo, c.PriceRepo, log)
	c.MarketDataService = services.NewMarketDataService(c.InstrumentRepo, c.PriceRepo, log)
	c.RiskService = risk.NewService(
		c.PortfolioRepo, c.PriceRepo, c.RiskRunRepo, risk.NewEngine(),
		risk.Options{
			DefaultWindowSize:  cfg.Risk.DefaultWindowSize,
			DefaultSimulations: cfg.Risk.DefaultSimulations,
			BufferDays:         cfg.Risk.PriceBufferDays,
			RunTimeout:         time.Duration(cfg.Risk.RunTimeoutSeconds) * time.Second,
		}, log)

	// Workers
	c.Reaper = runreaper.New(c.RiskRunRepo,
		time.Duration(cfg.Risk.StaleRunAfterSeconds)*time.Second,
		cfg.Risk.ReaperSchedule, log)

	// HTTP handlers
	c.Handlers = &routes.Handlers{
		Portfolio:  handlers.NewPortfolioHandlers(c.PortfolioService, zapLog),
		Position:   handlers.NewPositionHandlers(c.PositionService, zapLog),
		Instrument: handlers.NewInstrumentHandlers(c.MarketDataService, zapLog),
		Risk:       handlers.NewRiskHandlers(c.RiskService, c.RunCache, zapLog),
		Health:     handlers.NewHealthHandlers(db, c.RunCache),
	}

	return c, nil
}

// Close releases the container's long-lived resources
func (c *Container) Close() {
	if c.RunCache != nil {
		c.RunCache.Close()
	}
}
