package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/domain/services"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// PositionHandlers contains the position HTTP handlers
type PositionHandlers struct {
	positionService *services.PositionService
	logger          *zap.Logger
}

// NewPositionHandlers creates a new instance of position handlers
func NewPositionHandlers(positionService *services.PositionService, logger *zap.Logger) *PositionHandlers {
	return &PositionHandlers{
		positionService: positionService,
		logger:          logger,
	}
}

// Create handles POST /portfolios/:id/positions
// @Summary Add a position to a portfolio
// @Description Resolves the symbol to an instrument, creating it on first sighting
// @Tags positions
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body services.CreatePositionRequest true "Position"
// @Success 201 {object} entities.Position
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios/{id}/positions [post]
func (h *PositionHandlers) Create(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.CreatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	position, err := h.positionService.Create(c.Request.Context(), portfolioID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, position)
}

// List handles GET /portfolios/:id/positions
// @Summary List a portfolio's positions
// @Tags positions
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {array} entities.Position
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios/{id}/positions [get]
func (h *PositionHandlers) List(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	positions, err := h.positionService.List(c.Request.Context(), portfolioID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, positions)
}

// Upload handles POST /portfolios/:id/positions/upload
// @Summary Bulk-load positions from a CSV file
// @Description Multipart upload with a "file" part: symbol,quantity,average_cost[,name[,type]]
// @Tags positions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param file formData file true "CSV file"
// @Success 201 {array} entities.Position
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/portfolios/{id}/positions/upload [post]
func (h *PositionHandlers) Upload(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.Validation("missing CSV file upload"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		respondError(c, apperrors.Validation("unreadable CSV file upload"))
		return
	}
	defer file.Close()

	positions, err := h.positionService.UploadCSV(c.Request.Context(), portfolioID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, positions)
}
