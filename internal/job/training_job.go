package job

import (
	"context"
	"log"
	"time"

	"sendsmart/internal/ml/training"

	"go.opentelemetry.io/otel/trace"
)

type Trainer interface {
	Train(ctx context.Context, now time.Time) (*training.TrainResult, error)
}

// TrainingJob retrains the timing ensemble once a day at a fixed UTC
// hour, after the day's rates have settled.
type TrainingJob struct {
	tracer    trace.Tracer
	service   Trainer
	trainHour int
}

func NewTrainingJob(tracer trace.Tracer, service Trainer, trainHourUTC int) *TrainingJob {
	if trainHourUTC < 0 || trainHourUTC > 23 {
		trainHourUTC = 1
	}
	return &TrainingJob{tracer: tracer, service: service, trainHour: trainHourUTC}
}

func (j *TrainingJob) Start(ctx context.Context) {
	if j.service == nil {
		log.Println("Training job disabled: no service")
		<-ctx.Done()
		return
	}
	for {
		next := nextRunUTC(time.Now().UTC(), j.trainHour)
		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.runOnce(ctx)
		}
	}
}

func (j *TrainingJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "training-job.run-once")
	defer span.End()

	result, err := j.service.Train(ctx, time.Now())
	if err != nil {
		log.Printf("Training error: %v", err)
		return
	}
	log.Printf(
		"Training result model=%s version=%d corridors=%d auc=%.4f blend=%.2f wf_accepted=%v promoted=%v",
		result.ModelKey, result.Version, result.Corridors, result.AUC,
		result.BlendWeight, result.WalkForward.Accepted, result.Promoted,
	)
	if result.PromoteError != nil {
		log.Printf("Training promotion skipped: %v", result.PromoteError)
	}
}

func nextRunUTC(now time.Time, hour int) time.Time {
	run := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !run.After(now) {
		run = run.Add(24 * time.Hour)
	}
	return run
}
