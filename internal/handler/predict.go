package handler

import (
	"errors"
	"net/http"

	"sendsmart/internal/domain"

	"github.com/gin-gonic/gin"
)

type predictRequest struct {
	From string `json:"from_currency" binding:"required"`
	To   string `json:"to_currency" binding:"required"`
}

// Predict godoc
// @Summary      Score a remittance corridor
// @Description  Returns a send-now/wait/neutral recommendation for the corridor with the supporting timing score and market summary
// @Tags         predict
// @Accept       json
// @Produce      json
// @Param        request  body      predictRequest  true  "Corridor to score"
// @Success      200  {object}  domain.ScoreResult
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/predict [post]
func (h *Handler) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from_currency and to_currency are required"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.predict")
	defer span.End()

	result, err := h.rateService.GetScore(ctx, req.From, req.To)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, domain.ErrUnsupportedCorridor):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrInsufficientHistory):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrModelNotTrained):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
