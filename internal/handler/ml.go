package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TriggerTraining godoc
// @Summary      Trigger model training manually
// @Description  Runs an immediate training cycle and returns the candidate's evaluation and promotion outcome
// @Tags         ml
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/ml/train [post]
func (h *Handler) TriggerTraining(c *gin.Context) {
	if h.trainer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "training service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-training")
	defer span.End()

	result, err := h.trainer.Train(ctx, time.Now())
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"status":       "ok",
		"model_key":    result.ModelKey,
		"version":      result.Version,
		"corridors":    result.Corridors,
		"samples":      result.SampleCount,
		"auc":          result.AUC,
		"blend_weight": result.BlendWeight,
		"promoted":     result.Promoted,
		"walk_forward": result.WalkForward,
		"backtest":     result.Backtest,
	}
	if result.PromoteError != nil {
		resp["promote_error"] = result.PromoteError.Error()
	}
	c.JSON(http.StatusOK, resp)
}
