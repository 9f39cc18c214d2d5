package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListCorridors godoc
// @Summary      List corridors with rate history
// @Description  Returns every currency pair the service can score
// @Tags         corridors
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/corridors [get]
func (h *Handler) ListCorridors(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-corridors")
	defer span.End()

	corridors, err := h.rateService.ListCorridors(ctx)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"corridors": corridors, "count": len(corridors)})
}

// CorridorHistory godoc
// @Summary      Recent daily rates for a corridor
// @Description  Returns the last N trading days of rates, oldest first
// @Tags         corridors
// @Produce      json
// @Param        from  path   string  true   "Source currency code"
// @Param        to    path   string  true   "Destination currency code"
// @Param        days  query  int     false  "Number of trading days (default 60)"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/corridors/{from}/{to}/history [get]
func (h *Handler) CorridorHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.corridor-history")
	defer span.End()

	days := 60
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	history, err := h.rateService.GetRecentHistory(ctx, c.Param("from"), c.Param("to"), days)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}
