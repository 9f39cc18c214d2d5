package predictor

import (
	"context"
	"fmt"
	"time"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/common"
	"sendsmart/internal/ml/dataset"
	"sendsmart/internal/ml/ensemble"
	"sendsmart/internal/ml/features"

	"go.opentelemetry.io/otel/trace"
)

const (
	// minHistoryRows is the floor below which no recommendation is
	// attempted at all. The feature warm-up consumes more on top; a
	// corridor between the two limits still gets ErrInsufficientHistory.
	minHistoryRows = 60

	sendNowThreshold = 0.72
	waitThreshold    = 0.35

	probWeight  = 0.6
	rangeWeight = 0.4
)

type RateStore interface {
	ListCorridorHistory(ctx context.Context, from, to string) ([]domain.RateObservation, error)
}

type FundamentalStore interface {
	ListFundamentals(ctx context.Context, from, to time.Time) ([]domain.FundamentalObservation, error)
}

type PositioningStore interface {
	ListPositioning(ctx context.Context, from, to time.Time) ([]domain.PositioningObservation, error)
}

type ModelRegistry interface {
	GetActiveModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
}

// Narrator turns a finished score into user-facing prose. Optional; the
// heuristic reasoning string is used when absent or failing.
type Narrator interface {
	Narrate(ctx context.Context, result domain.ScoreResult) (string, error)
}

type Service struct {
	tracer       trace.Tracer
	rates        RateStore
	fundamentals FundamentalStore
	positioning  PositioningStore
	registry     ModelRegistry
	narrator     Narrator
	engine       *features.Engine
}

func NewService(
	tracer trace.Tracer,
	rates RateStore,
	fundamentals FundamentalStore,
	positioning PositioningStore,
	registry ModelRegistry,
	narrator Narrator,
) *Service {
	return &Service{
		tracer:       tracer,
		rates:        rates,
		fundamentals: fundamentals,
		positioning:  positioning,
		registry:     registry,
		narrator:     narrator,
		engine:       features.NewEngine(features.DefaultConfig()),
	}
}

// Score answers "is today a good day to send money on this corridor".
// The probability comes from the active ensemble, the range percentile
// anchors it to where today's rate sits in the recent range, and the
// two blend into a single timing score.
func (s *Service) Score(ctx context.Context, from, to string, now time.Time) (*domain.ScoreResult, error) {
	ctx, span := s.tracer.Start(ctx, "predictor.score")
	defer span.End()

	corridor := domain.NewCorridor(from, to)
	history, err := s.rates.ListCorridorHistory(ctx, corridor.From, corridor.To)
	if err != nil {
		return nil, fmt.Errorf("load %s history: %w", corridor, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%s: %w", corridor, domain.ErrUnsupportedCorridor)
	}
	if len(history) < minHistoryRows {
		return nil, fmt.Errorf("%s has %d rows: %w", corridor, len(history), domain.ErrInsufficientHistory)
	}

	model, err := s.loadActiveModel(ctx)
	if err != nil {
		return nil, err
	}

	merged, err := s.mergeHistory(ctx, corridor, history, now)
	if err != nil {
		return nil, err
	}
	rows := s.engine.BuildRows(corridor.From, corridor.To, merged)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no feature rows past warm-up: %w", corridor, domain.ErrInsufficientHistory)
	}
	last := rows[len(rows)-1]

	prob := common.Clamp01(model.PredictProb(last.Vector(model.Columns())))
	rangePct := common.Clamp01(last.RangePos)
	timing := probWeight*prob + rangeWeight*rangePct

	result := &domain.ScoreResult{
		From:            corridor.From,
		To:              corridor.To,
		CurrentRate:     last.Rate,
		TimingScore:     timing,
		ModelProb:       prob,
		RangePercentile: rangePct,
		Confidence:      confidence(last.Values["vol14"]),
		Recommendation:  recommend(timing),
		MarketSummary:   buildMarketSummary(merged),
		ScoredAt:        now.UTC(),
	}
	result.Reasoning = s.reasoning(ctx, result)
	return result, nil
}

func (s *Service) loadActiveModel(ctx context.Context) (*ensemble.Ensemble, error) {
	active, err := s.registry.GetActiveModel(ctx, common.ModelKeyEnsemble)
	if err != nil {
		return nil, fmt.Errorf("load active model: %w", err)
	}
	if active == nil {
		return nil, domain.ErrModelNotTrained
	}
	model, err := ensemble.UnmarshalBinary(active.ArtifactBlob)
	if err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	return model, nil
}

func (s *Service) mergeHistory(ctx context.Context, corridor domain.Corridor, history []domain.RateObservation, now time.Time) ([]domain.MergedRow, error) {
	from := now.UTC().AddDate(-9, 0, 0)

	var fundamentals []domain.FundamentalObservation
	if s.fundamentals != nil {
		var err error
		fundamentals, err = s.fundamentals.ListFundamentals(ctx, from, now.UTC())
		if err != nil {
			return nil, fmt.Errorf("load fundamentals: %w", err)
		}
	}
	var positioning []domain.PositioningObservation
	if s.positioning != nil {
		var err error
		positioning, err = s.positioning.ListPositioning(ctx, from, now.UTC())
		if err != nil {
			return nil, fmt.Errorf("load positioning: %w", err)
		}
	}
	return dataset.Merge(corridor, history, fundamentals, positioning), nil
}

func (s *Service) reasoning(ctx context.Context, result *domain.ScoreResult) string {
	fallback := heuristicReasoning(result)
	if s.narrator == nil {
		return fallback
	}
	text, err := s.narrator.Narrate(ctx, *result)
	if err != nil || text == "" {
		return fallback
	}
	return text
}

func recommend(timing float64) domain.Recommendation {
	if timing >= sendNowThreshold {
		return domain.RecommendationSendNow
	}
	if timing <= waitThreshold {
		return domain.RecommendationWait
	}
	return domain.RecommendationNeutral
}

// confidence shrinks as recent volatility grows: in a calm corridor the
// model's read on the range is worth more than in a whipsawing one.
func confidence(vol14 float64) float64 {
	return common.Clamp(0.65-10*vol14, 0.1, 0.9)
}

func heuristicReasoning(result *domain.ScoreResult) string {
	position := "mid-range"
	switch {
	case result.RangePercentile >= 0.8:
		position = "near the top of its recent range"
	case result.RangePercentile <= 0.2:
		position = "near the bottom of its recent range"
	}
	switch result.Recommendation {
	case domain.RecommendationSendNow:
		return fmt.Sprintf(
			"The %s/%s rate is %s and the model sees little room for further improvement over the next two weeks (probability %.0f%%). Sending now locks in a favorable rate.",
			result.From, result.To, position, 100*result.ModelProb,
		)
	case domain.RecommendationWait:
		return fmt.Sprintf(
			"The %s/%s rate is %s and the model expects better days ahead (probability of today being a top day: %.0f%%). Waiting is likely to get you a better rate.",
			result.From, result.To, position, 100*result.ModelProb,
		)
	default:
		return fmt.Sprintf(
			"The %s/%s rate is %s with no strong signal either way. Sending now or waiting a few days should make little difference.",
			result.From, result.To, position,
		)
	}
}
