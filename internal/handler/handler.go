package handler

import (
	"context"
	"time"

	"sendsmart/internal/ml/training"
	"sendsmart/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type TrainingRunner interface {
	Train(ctx context.Context, now time.Time) (*training.TrainResult, error)
}

type Handler struct {
	tracer      trace.Tracer
	rateService *service.RateService
	trainer     TrainingRunner
}

func New(tracer trace.Tracer, rateService *service.RateService, trainer TrainingRunner) *Handler {
	return &Handler{
		tracer:      tracer,
		rateService: rateService,
		trainer:     trainer,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/api/predict", h.Predict)
	r.GET("/api/corridors", h.ListCorridors)
	r.GET("/api/corridors/:from/:to/history", h.CorridorHistory)
	r.POST("/api/ml/train", h.TriggerTraining)
}
