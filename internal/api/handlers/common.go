package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// ErrorResponse is the JSON body for all error replies.
type ErrorResponse struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// respondError maps an application error onto its HTTP status and body.
func respondError(c *gin.Context, err error) {
	var riskErr *apperrors.RiskError
	if errors.As(err, &riskErr) {
		c.JSON(riskErr.StatusCode, ErrorResponse{
			Code:      string(riskErr.Code),
			Message:   riskErr.Message,
			Details:   riskErr.Details,
			RequestID: getRequestID(c),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:      string(apperrors.ErrCodeInternal),
		Message:   "Internal server error",
		RequestID: getRequestID(c),
	})
}

// respondBindError reports a malformed or invalid request body.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:      string(apperrors.ErrCodeInvalidInput),
		Message:   "Invalid request body",
		Details:   map[string]interface{}{"error": err.Error()},
		RequestID: getRequestID(c),
	})
}

// uuidParam parses a UUID path parameter or replies with a 400.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:      string(apperrors.ErrCodeInvalidInput),
			Message:   "Invalid " + name + " parameter",
			Details:   map[string]interface{}{name: c.Param(name)},
			RequestID: getRequestID(c),
		})
		return uuid.Nil, false
	}
	return id, true
}

func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
