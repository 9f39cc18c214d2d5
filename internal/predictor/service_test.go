package predictor

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/ensemble"
	"sendsmart/internal/ml/models/gbdt"
	"sendsmart/internal/ml/models/logreg"

	"go.opentelemetry.io/otel/trace"
)

type fakeRates struct {
	history map[string][]domain.RateObservation
	err     error
}

func (f *fakeRates) ListCorridorHistory(_ context.Context, from, to string) ([]domain.RateObservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[from+"_"+to], nil
}

type fakeRegistry struct {
	active *domain.ModelVersion
	err    error
}

func (f *fakeRegistry) GetActiveModel(context.Context, string) (*domain.ModelVersion, error) {
	return f.active, f.err
}

type fakeNarrator struct {
	text string
	err  error
}

func (f *fakeNarrator) Narrate(context.Context, domain.ScoreResult) (string, error) {
	return f.text, f.err
}

func trainedArtifact(t *testing.T) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(13))
	samples := make([][]float64, 0, 400)
	labels := make([]float64, 0, 400)
	for i := 0; i < 400; i++ {
		x := rng.Float64()
		label := 0.0
		if x > 0.5 {
			label = 1
		}
		samples = append(samples, []float64{x, 0.5})
		labels = append(labels, label)
	}
	columns := []string{"range_pos_60", "rsi14"}
	linear, err := logreg.Train(samples, labels, nil, columns, logreg.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train linear: %v", err)
	}
	boost, err := gbdt.Train(samples, labels, nil, columns, gbdt.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train boost: %v", err)
	}
	model, err := ensemble.New(linear, boost, ensemble.DefaultBlendWeight, columns)
	if err != nil {
		t.Fatalf("new ensemble: %v", err)
	}
	blob, err := model.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return blob
}

func wavyHistory(n int) []domain.RateObservation {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]domain.RateObservation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.RateObservation{
			Date: start.AddDate(0, 0, i),
			Rate: 83 + 2*math.Sin(float64(i)/9),
		})
	}
	return out
}

func newTestService(rates *fakeRates, registry *fakeRegistry, narrator Narrator) *Service {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	return NewService(tracer, rates, nil, nil, registry, narrator)
}

func TestScoreUnknownCorridor(t *testing.T) {
	svc := newTestService(&fakeRates{}, &fakeRegistry{}, nil)
	_, err := svc.Score(context.Background(), "USD", "XXX", time.Now())
	if !errors.Is(err, domain.ErrUnsupportedCorridor) {
		t.Fatalf("expected ErrUnsupportedCorridor, got %v", err)
	}
}

func TestScoreShortHistory(t *testing.T) {
	rates := &fakeRates{history: map[string][]domain.RateObservation{"USD_INR": wavyHistory(30)}}
	svc := newTestService(rates, &fakeRegistry{}, nil)
	_, err := svc.Score(context.Background(), "usd", "inr", time.Now())
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestScoreHistoryBelowWarmup(t *testing.T) {
	// Enough rows to clear the hard floor but not the feature warm-up.
	rates := &fakeRates{history: map[string][]domain.RateObservation{"USD_INR": wavyHistory(70)}}
	registry := &fakeRegistry{active: &domain.ModelVersion{ArtifactBlob: trainedArtifact(t)}}
	svc := newTestService(rates, registry, nil)
	_, err := svc.Score(context.Background(), "USD", "INR", time.Now())
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestScoreNoActiveModel(t *testing.T) {
	rates := &fakeRates{history: map[string][]domain.RateObservation{"USD_INR": wavyHistory(250)}}
	svc := newTestService(rates, &fakeRegistry{}, nil)
	_, err := svc.Score(context.Background(), "USD", "INR", time.Now())
	if !errors.Is(err, domain.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestScoreEndToEnd(t *testing.T) {
	history := wavyHistory(250)
	rates := &fakeRates{history: map[string][]domain.RateObservation{"USD_INR": history}}
	registry := &fakeRegistry{active: &domain.ModelVersion{ArtifactBlob: trainedArtifact(t)}}
	svc := newTestService(rates, registry, nil)

	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	result, err := svc.Score(context.Background(), "usd", "inr", now)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.From != "USD" || result.To != "INR" {
		t.Fatalf("corridor not normalized: %s/%s", result.From, result.To)
	}
	if result.CurrentRate != history[len(history)-1].Rate {
		t.Fatalf("current rate should be the latest observation, got %v", result.CurrentRate)
	}
	want := probWeight*result.ModelProb + rangeWeight*result.RangePercentile
	if math.Abs(result.TimingScore-want) > 1e-12 {
		t.Fatalf("timing score arithmetic: got %v want %v", result.TimingScore, want)
	}
	if result.Recommendation != recommend(result.TimingScore) {
		t.Fatalf("recommendation inconsistent with timing score: %s", result.Recommendation)
	}
	if result.Confidence < 0.1 || result.Confidence > 0.9 {
		t.Fatalf("confidence outside clamp: %v", result.Confidence)
	}
	if result.Reasoning == "" {
		t.Fatal("reasoning must never be empty")
	}
	if !result.ScoredAt.Equal(now) {
		t.Fatalf("scored at: got %v want %v", result.ScoredAt, now)
	}
	s := result.MarketSummary
	if s.TwoMonthLow > s.TwoMonthAvg || s.TwoMonthAvg > s.TwoMonthHigh {
		t.Fatalf("summary ordering broken: %+v", s)
	}
}

func TestScoreNarratorFallback(t *testing.T) {
	history := wavyHistory(250)
	rates := &fakeRates{history: map[string][]domain.RateObservation{"USD_INR": history}}
	registry := &fakeRegistry{active: &domain.ModelVersion{ArtifactBlob: trainedArtifact(t)}}

	svc := newTestService(rates, registry, &fakeNarrator{err: errors.New("llm down")})
	result, err := svc.Score(context.Background(), "USD", "INR", time.Now())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(result.Reasoning, "USD/INR") {
		t.Fatalf("failed narrator should fall back to heuristic prose, got %q", result.Reasoning)
	}

	svc = newTestService(rates, registry, &fakeNarrator{text: "custom narration"})
	result, err = svc.Score(context.Background(), "USD", "INR", time.Now())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if result.Reasoning != "custom narration" {
		t.Fatalf("narrator text should win, got %q", result.Reasoning)
	}
}

func TestRecommendThresholds(t *testing.T) {
	if recommend(0.72) != domain.RecommendationSendNow {
		t.Fatal("0.72 should recommend sending")
	}
	if recommend(0.71) != domain.RecommendationNeutral {
		t.Fatal("just under the send bar should be neutral")
	}
	if recommend(0.35) != domain.RecommendationWait {
		t.Fatal("0.35 should recommend waiting")
	}
	if recommend(0.36) != domain.RecommendationNeutral {
		t.Fatal("just above the wait bar should be neutral")
	}
}

func TestConfidenceClamp(t *testing.T) {
	if c := confidence(0); c != 0.65 {
		t.Fatalf("calm corridor confidence: got %v want 0.65", c)
	}
	if c := confidence(0.2); c != 0.1 {
		t.Fatalf("volatile corridor should floor at 0.1, got %v", c)
	}
}
