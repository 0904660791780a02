package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/domain/services"
)

// PortfolioHandlers contains the portfolio HTTP handlers
type PortfolioHandlers struct {
	portfolioService *services.PortfolioService
	logger           *zap.Logger
}

// NewPortfolioHandlers creates a new instance of portfolio handlers
func NewPortfolioHandlers(portfolioService *services.PortfolioService, logger *zap.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{
		portfolioService: portfolioService,
		logger:           logger,
	}
}

// Create handles POST /portfolios
// @Summary Create a portfolio
// @Tags portfolios
// @Accept json
// @Produce json
// @Param request body services.CreatePortfolioRequest true "Portfolio"
// @Success 201 {object} entities.Portfolio
// @Failure 400 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios [post]
func (h *PortfolioHandlers) Create(c *gin.Context) {
	var req services.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	portfolio, err := h.portfolioService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, portfolio)
}

// Get handles GET /portfolios/:id
// @Summary Get a portfolio with its positions
// @Tags portfolios
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {object} entities.Portfolio
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios/{id} [get]
func (h *PortfolioHandlers) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	portfolio, err := h.portfolioService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// List handles GET /portfolios
// @Summary List portfolios
// @Tags portfolios
// @Produce json
// @Success 200 {array} entities.Portfolio
// @Router /api/v1/portfolios [get]
func (h *PortfolioHandlers) List(c *gin.Context) {
	portfolios, err := h.portfolioService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, portfolios)
}

// Update handles PUT /portfolios/:id
// @Summary Update a portfolio
// @Tags portfolios
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body services.UpdatePortfolioRequest true "Fields to update"
// @Success 200 {object} entities.Portfolio
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios/{id} [put]
func (h *PortfolioHandlers) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	portfolio, err := h.portfolioService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// Delete handles DELETE /portfolios/:id
// @Summary Delete a portfolio and its positions and risk history
// @Tags portfolios
// @Param id path string true "Portfolio ID"
// @Success 204
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios/{id} [delete]
func (h *PortfolioHandlers) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.portfolioService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
