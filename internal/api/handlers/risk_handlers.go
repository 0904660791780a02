package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/internal/domain/services/risk"
	"github.com/risk-service/risk_service/internal/infrastructure/cache"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// RunRiskRequest is the JSON body for triggering a risk calculation.
type RunRiskRequest struct {
	Method           string    `json:"var_method" binding:"required,varmethod"`
	ConfidenceLevels []float64 `json:"confidence_levels" binding:"omitempty,max=5,dive,gt=0,lt=1"`
	WindowSize       int       `json:"window_size" binding:"omitempty,min=1,max=2520"`
	Simulations      int       `json:"simulations" binding:"omitempty,min=1,max=10000000"`
	Seed             *int64    `json:"seed"`
	AsOf             string    `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// RiskHandlers contains the risk run HTTP handlers
type RiskHandlers struct {
	riskService *risk.Service
	runCache    *cache.RunCache
	logger      *zap.Logger
}

// NewRiskHandlers creates a new instance of risk handlers. runCache may be
// nil when Redis is not configured.
func NewRiskHandlers(riskService *risk.Service, runCache *cache.RunCache, logger *zap.Logger) *RiskHandlers {
	return &RiskHandlers{
		riskService: riskService,
		runCache:    runCache,
		logger:      logger,
	}
}

// Run handles POST /portfolios/:id/risk/runs
// @Summary Execute a risk calculation for a portfolio
// @Description Runs VaR/ES estimation synchronously and returns the terminal run record
// @Tags risk
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body handlers.RunRiskRequest true "Run parameters"
// @Success 201 {object} entities.RiskRun
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse "Insufficient data or degenerate statistics"
// @Router /api/v1/portfolios/{id}/risk/runs [post]
func (h *RiskHandlers) Run(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req RunRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	runReq := risk.RunRequest{
		Method:           entities.VarMethod(req.Method),
		ConfidenceLevels: req.ConfidenceLevels,
		WindowSize:       req.WindowSize,
		Simulations:      req.Simulations,
		Seed:             req.Seed,
	}
	if len(runReq.ConfidenceLevels) == 0 {
		runReq.ConfidenceLevels = []float64{0.95, 0.99}
	}
	if req.AsOf != "" {
		asOf, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			respondError(c, apperrors.Validationf("invalid as_of date: %s", req.AsOf))
			return
		}
		runReq.AsOf = asOf
	}

	run, err := h.riskService.Run(c.Request.Context(), portfolioID, runReq)
	if err != nil {
		// A failed run is still persisted; point the caller at its record.
		var riskErr *apperrors.RiskError
		if run != nil && errors.As(err, &riskErr) {
			riskErr.WithDetail("run_id", run.ID.String())
		}
		respondError(c, err)
		return
	}

	if h.runCache != nil {
		h.runCache.Set(c.Request.Context(), run)
	}
	c.JSON(http.StatusCreated, run)
}

// Get handles GET /risk/runs/:id
// @Summary Get a risk run with its per-position breakdown
// @Tags risk
// @Produce json
// @Param id path string true "Risk run ID"
// @Success 200 {object} entities.RiskRun
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/risk/runs/{id} [get]
func (h *RiskHandlers) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if h.runCache != nil {
		if run := h.runCache.Get(c.Request.Context(), id); run != nil {
			c.JSON(http.StatusOK, run)
			return
		}
	}

	run, err := h.riskService.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.runCache != nil {
		h.runCache.Set(c.Request.Context(), run)
	}
	c.JSON(http.StatusOK, run)
}

// List handles GET /portfolios/:id/risk/runs
// @Summary List a portfolio's risk runs, newest first
// @Tags risk
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} entities.RiskRun
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios/{id}/risk/runs [get]
func (h *RiskHandlers) List(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := h.riskService.ListRuns(c.Request.Context(), portfolioID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, runs)
}
