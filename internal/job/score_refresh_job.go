package job

import (
	"context"
	"log"
	"time"

	"sendsmart/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type ScoreRefresher interface {
	ListCorridors(ctx context.Context) ([]domain.Corridor, error)
	RefreshScore(ctx context.Context, from, to string) (*domain.ScoreResult, error)
}

// ScoreRefreshJob keeps the score cache warm: every interval it
// rescores all known corridors so API reads rarely pay the full
// feature-engineering cost.
type ScoreRefreshJob struct {
	tracer   trace.Tracer
	service  ScoreRefresher
	interval time.Duration
}

func NewScoreRefreshJob(tracer trace.Tracer, service ScoreRefresher, interval time.Duration) *ScoreRefreshJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ScoreRefreshJob{tracer: tracer, service: service, interval: interval}
}

func (j *ScoreRefreshJob) Start(ctx context.Context) {
	if j.service == nil {
		log.Println("Score refresh job disabled: no service")
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *ScoreRefreshJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "score-refresh-job.run-once")
	defer span.End()

	corridors, err := j.service.ListCorridors(ctx)
	if err != nil {
		log.Printf("Score refresh: list corridors: %v", err)
		return
	}

	refreshed, failed := 0, 0
	for _, corridor := range corridors {
		if ctx.Err() != nil {
			return
		}
		if _, err := j.service.RefreshScore(ctx, corridor.From, corridor.To); err != nil {
			failed++
			continue
		}
		refreshed++
	}
	log.Printf("Score refresh: %d corridors refreshed, %d skipped", refreshed, failed)
}
