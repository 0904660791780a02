package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/domain/services"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// InstrumentHandlers contains the instrument and price HTTP handlers
type InstrumentHandlers struct {
	marketData *services.MarketDataService
	logger     *zap.Logger
}

// NewInstrumentHandlers creates a new instance of instrument handlers
func NewInstrumentHandlers(marketData *services.MarketDataService, logger *zap.Logger) *InstrumentHandlers {
	return &InstrumentHandlers{
		marketData: marketData,
		logger:     logger,
	}
}

// Create handles POST /instruments
// @Summary Register an instrument
// @Tags instruments
// @Accept json
// @Produce json
// @Param request body services.CreateInstrumentRequest true "Instrument"
// @Success 201 {object} entities.Instrument
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse
// @Router /api/v1/instruments [post]
func (h *InstrumentHandlers) Create(c *gin.Context) {
	var req services.CreateInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	instrument, err := h.marketData.CreateInstrument(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, instrument)
}

// Get handles GET /instruments/:symbol
// @Summary Get an instrument by symbol
// @Tags instruments
// @Produce json
// @Param symbol path string true "Symbol"
// @Success 200 {object} entities.Instrument
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/instruments/{symbol} [get]
func (h *InstrumentHandlers) Get(c *gin.Context) {
	instrument, err := h.marketData.GetInstrument(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, instrument)
}

// List handles GET /instruments
// @Summary List instruments
// @Tags instruments
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} entities.Instrument
// @Router /api/v1/instruments [get]
func (h *InstrumentHandlers) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	instruments, err := h.marketData.ListInstruments(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, instruments)
}

// IngestPrices handles POST /instruments/:symbol/prices
// @Summary Append price bars for an instrument
// @Description Derived log and simple returns are computed against the prior bar
// @Tags prices
// @Accept json
// @Produce json
// @Param symbol path string true "Symbol"
// @Param request body []services.BarInput true "Bars, any order"
// @Success 201 {array} entities.PriceBar
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/instruments/{symbol}/prices [post]
func (h *InstrumentHandlers) IngestPrices(c *gin.Context) {
	instrument, err := h.marketData.GetInstrument(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}

	var inputs []services.BarInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		respondBindError(c, err)
		return
	}

	bars, err := h.marketData.IngestBars(c.Request.Context(), instrument.ID, inputs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bars)
}

// GetPrices handles GET /instruments/:symbol/prices?from=...&to=...
// @Summary Get an instrument's price bars for a date range
// @Tags prices
// @Produce json
// @Param symbol path string true "Symbol"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {array} entities.PriceBar
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /api/v1/instruments/{symbol}/prices [get]
func (h *InstrumentHandlers) GetPrices(c *gin.Context) {
	instrument, err := h.marketData.GetInstrument(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		respondError(c, apperrors.Validationf("invalid from date: %s", c.Query("from")))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		respondError(c, apperrors.Validationf("invalid to date: %s", c.Query("to")))
		return
	}

	bars, err := h.marketData.GetBars(c.Request.Context(), instrument.ID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bars)
}
