package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/risk-service/risk_service/internal/api/handlers"
	"github.com/risk-service/risk_service/internal/api/middleware"
	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/internal/infrastructure/config"
	"github.com/risk-service/risk_service/pkg/logger"
)

// Handlers aggregates all HTTP handler groups for route registration.
type Handlers struct {
	Portfolio  *handlers.PortfolioHandlers
	Position   *handlers.PositionHandlers
	Instrument *handlers.InstrumentHandlers
	Risk       *handlers.RiskHandlers
	Health     *handlers.HealthHandlers
}

// Setup builds the gin engine with middleware, validators and all routes
func Setup(cfg *config.Config, log *logger.Logger, h *Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidators()

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.Metrics())
	router.Use(middleware.RateLimit(cfg.Server.RateLimitPerMin))

	// Operational endpoints
	router.GET("/health", h.Health.Health)
	router.GET("/health/live", h.Health.Live)
	router.GET("/health/ready", h.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !cfg.IsProduction() {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := router.Group("/api/v1")
	{
		portfolios := v1.Group("/portfolios")
		{
			portfolios.POST("", h.Portfolio.Create)
			portfolios.GET("", h.Portfolio.List)
			portfolios.GET("/:id", h.Portfolio.Get)
			portfolios.PUT("/:id", h.Portfolio.Update)
			portfolios.DELETE("/:id", h.Portfolio.Delete)

			portfolios.POST("/:id/positions", h.Position.Create)
			portfolios.GET("/:id/positions", h.Position.List)
			portfolios.POST("/:id/positions/upload", h.Position.Upload)

			portfolios.POST("/:id/risk/runs", h.Risk.Run)
			portfolios.GET("/:id/risk/runs", h.Risk.List)
		}

		instruments := v1.Group("/instruments")
		{
			instruments.POST("", h.Instrument.Create)
			instruments.GET("", h.Instrument.List)
			instruments.GET("/:symbol", h.Instrument.Get)
			instruments.POST("/:symbol/prices", h.Instrument.IngestPrices)
			instruments.GET("/:symbol/prices", h.Instrument.GetPrices)
		}

		v1.GET("/risk/runs/:id", h.Risk.Get)
	}

	return router
}

// registerValidators installs custom binding validators on gin's engine
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("varmethod", func(fl validator.FieldLevel) bool {
			return entities.VarMethod(fl.Field().String()).Valid()
		})
	}
}
