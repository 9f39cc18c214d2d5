package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/common"
	"sendsmart/internal/ml/dataset"
	"sendsmart/internal/ml/ensemble"
	"sendsmart/internal/ml/features"
	"sendsmart/internal/ml/models/gbdt"
	"sendsmart/internal/ml/models/logreg"

	"go.opentelemetry.io/otel/trace"
)

type RateStore interface {
	ListCorridors(ctx context.Context) ([]domain.Corridor, error)
	ListCorridorHistory(ctx context.Context, from, to string) ([]domain.RateObservation, error)
}

type FundamentalStore interface {
	ListFundamentals(ctx context.Context, from, to time.Time) ([]domain.FundamentalObservation, error)
}

type PositioningStore interface {
	ListPositioning(ctx context.Context, from, to time.Time) ([]domain.PositioningObservation, error)
}

type ModelRegistry interface {
	NextVersion(ctx context.Context, modelKey string) (int, error)
	InsertModelVersion(ctx context.Context, model domain.ModelVersion) (*domain.ModelVersion, error)
	GetActiveModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
	ActivateModel(ctx context.Context, modelKey string, version int) error
}

type Config struct {
	TrainWindowDays int
	MinTrainSamples int
	// RoundsGrid is swept on validation AUC in place of tree-level early
	// stopping.
	RoundsGrid []int
}

type Service struct {
	tracer       trace.Tracer
	rates        RateStore
	fundamentals FundamentalStore
	positioning  PositioningStore
	registry     ModelRegistry
	engine       *features.Engine
	cfg          Config
}

type TrainResult struct {
	ModelKey     string
	Version      int
	Corridors    int
	SampleCount  int
	TestCount    int
	AUC          float64
	BlendWeight  float64
	Rounds       int
	Backtest     BacktestResult
	WalkForward  WalkForwardResult
	Promoted     bool
	PromoteError error
}

func NewService(
	tracer trace.Tracer,
	rates RateStore,
	fundamentals FundamentalStore,
	positioning PositioningStore,
	registry ModelRegistry,
	cfg Config,
) *Service {
	if cfg.TrainWindowDays <= 0 {
		cfg.TrainWindowDays = 365 * 8
	}
	if cfg.MinTrainSamples <= 0 {
		cfg.MinTrainSamples = 1000
	}
	if len(cfg.RoundsGrid) == 0 {
		cfg.RoundsGrid = []int{40, 80, 120}
	}
	return &Service{
		tracer:       tracer,
		rates:        rates,
		fundamentals: fundamentals,
		positioning:  positioning,
		registry:     registry,
		engine:       features.NewEngine(features.DefaultConfig()),
		cfg:          cfg,
	}
}

// Train rebuilds the pooled dataset, fits both component models, picks
// the boosting rounds and blend weight on the validation segment, and
// persists the combined artifact. Promotion requires both the pooled
// AUC bar and the walk-forward acceptance gate.
func (s *Service) Train(ctx context.Context, now time.Time) (*TrainResult, error) {
	ctx, span := s.tracer.Start(ctx, "timing-training.train")
	defer span.End()

	from := now.UTC().AddDate(0, 0, -s.cfg.TrainWindowDays)
	byCorridor, err := s.loadMerged(ctx, from, now.UTC())
	if err != nil {
		return nil, err
	}

	builder := dataset.NewBuilder(s.engine, dataset.DefaultBuilderConfig())
	split := builder.Build(byCorridor)
	if len(split.Train) < s.cfg.MinTrainSamples {
		return nil, fmt.Errorf("not enough labeled samples: got %d need >= %d", len(split.Train), s.cfg.MinTrainSamples)
	}
	if len(split.Val) == 0 || len(split.Test) == 0 {
		return nil, errors.New("dataset split produced empty partitions")
	}

	trainX, trainY, trainW := dataset.Matrices(split.Train, split.Columns)
	valX, valY, _ := dataset.Matrices(split.Val, split.Columns)
	testX, testY, _ := dataset.Matrices(split.Test, split.Columns)

	linear, err := logreg.Train(trainX, trainY, trainW, split.Columns, logreg.DefaultTrainOptions())
	if err != nil {
		return nil, fmt.Errorf("train logreg: %w", err)
	}
	boost, rounds, err := s.sweepRounds(trainX, trainY, trainW, valX, valY, split.Columns)
	if err != nil {
		return nil, fmt.Errorf("train gbdt: %w", err)
	}

	blend := ensemble.SelectBlendWeight(linear, boost, valX, valY)
	model, err := ensemble.New(linear, boost, blend, split.Columns)
	if err != nil {
		return nil, err
	}

	testProbs := model.PredictBatch(testX)
	metrics := computeMetrics(testY, testProbs, rangePositions(split.Test))
	backtest := EconomicBacktest(split.Test, model)
	walkForward := WalkForward(rowsByCorridor(byCorridor, s.engine), split.Columns)

	metrics["blend_weight"] = blend
	metrics["gbdt_rounds"] = float64(rounds)
	metrics["wf_mean_auc"] = walkForward.MeanAUC
	metrics["wf_mean_dir_acc"] = walkForward.MeanDirAcc
	metrics["wf_folds"] = float64(len(walkForward.Folds))
	metrics["bt_model_improvement_pct"] = backtest.ModelImprovementPct
	metrics["bt_model_gap_capture"] = backtest.ModelGapCapture

	blob, err := model.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal ensemble: %w", err)
	}

	result, err := s.persistAndMaybePromote(ctx, now.UTC(), from, blob, split.Columns, map[string]any{
		"blend_weight":  blend,
		"gbdt_rounds":   rounds,
		"learning_rate": gbdt.DefaultTrainOptions().LearningRate,
		"max_depth":     gbdt.DefaultTrainOptions().MaxDepth,
		"logreg_epochs": logreg.DefaultTrainOptions().Epochs,
		"logreg_l2":     logreg.DefaultTrainOptions().L2,
	}, metrics, len(trainX), len(testY), walkForward)
	if err != nil {
		return nil, err
	}

	result.Corridors = split.Corridors
	result.BlendWeight = blend
	result.Rounds = rounds
	result.Backtest = backtest
	result.WalkForward = walkForward
	return result, nil
}

func (s *Service) loadMerged(ctx context.Context, from, to time.Time) (map[domain.Corridor][]domain.MergedRow, error) {
	corridors, err := s.rates.ListCorridors(ctx)
	if err != nil {
		return nil, err
	}
	if len(corridors) == 0 {
		return nil, errors.New("no corridors with rate history")
	}

	var fundamentals []domain.FundamentalObservation
	if s.fundamentals != nil {
		fundamentals, err = s.fundamentals.ListFundamentals(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("load fundamentals: %w", err)
		}
	}
	var positioning []domain.PositioningObservation
	if s.positioning != nil {
		positioning, err = s.positioning.ListPositioning(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("load positioning: %w", err)
		}
	}

	out := make(map[domain.Corridor][]domain.MergedRow, len(corridors))
	for _, corridor := range corridors {
		rates, err := s.rates.ListCorridorHistory(ctx, corridor.From, corridor.To)
		if err != nil {
			return nil, fmt.Errorf("load %s history: %w", corridor, err)
		}
		if len(rates) == 0 {
			continue
		}
		out[corridor] = dataset.Merge(corridor, rates, fundamentals, positioning)
	}
	return out, nil
}

// sweepRounds trains one boosted model per grid point and keeps the one
// with the best validation AUC, an out-of-band stand-in for per-tree
// early stopping.
func (s *Service) sweepRounds(trainX [][]float64, trainY, trainW []float64, valX [][]float64, valY []float64, columns []string) (*gbdt.Model, int, error) {
	var best *gbdt.Model
	bestRounds := 0
	bestAUC := -1.0
	for _, rounds := range s.cfg.RoundsGrid {
		opts := gbdt.DefaultTrainOptions()
		opts.Rounds = rounds
		model, err := gbdt.Train(trainX, trainY, trainW, columns, opts)
		if err != nil {
			return nil, 0, err
		}
		auc := ensemble.AUC(model.PredictBatch(valX), valY)
		if auc > bestAUC {
			bestAUC = auc
			best = model
			bestRounds = rounds
		}
	}
	if best == nil {
		return nil, 0, errors.New("rounds sweep produced no model")
	}
	return best, bestRounds, nil
}

func (s *Service) persistAndMaybePromote(
	ctx context.Context,
	now time.Time,
	trainedFrom time.Time,
	artifact []byte,
	columns []string,
	hyperparams map[string]any,
	metrics map[string]float64,
	sampleCount int,
	testCount int,
	walkForward WalkForwardResult,
) (*TrainResult, error) {
	version, err := s.registry.NextVersion(ctx, common.ModelKeyEnsemble)
	if err != nil {
		return nil, err
	}
	// The metrics record carries the scalar summary plus the raw
	// walk-forward folds, so per-corridor per-fold accuracy survives
	// with the artifact it judged.
	metricsDoc := make(map[string]any, len(metrics)+1)
	for k, v := range metrics {
		metricsDoc[k] = v
	}
	metricsDoc["wf_fold_detail"] = walkForward.Folds
	hyperJSON, _ := json.Marshal(hyperparams)
	metricJSON, _ := json.Marshal(metricsDoc)
	columnsJSON, _ := json.Marshal(columns)

	inserted, err := s.registry.InsertModelVersion(ctx, domain.ModelVersion{
		ModelKey:           common.ModelKeyEnsemble,
		Version:            version,
		FeatureSpecVersion: features.FeatureSpecVersion(),
		FeatureColumnsJSON: string(columnsJSON),
		TrainedFrom:        trainedFrom,
		TrainedTo:          now,
		HyperparamsJSON:    string(hyperJSON),
		MetricsJSON:        string(metricJSON),
		ArtifactFormat:     "json/timing-ensemble-v2",
		ArtifactBlob:       artifact,
		IsActive:           false,
	})
	if err != nil {
		return nil, err
	}

	result := &TrainResult{
		ModelKey:    common.ModelKeyEnsemble,
		Version:     inserted.Version,
		SampleCount: sampleCount,
		TestCount:   testCount,
		AUC:         metrics["auc"],
	}

	if !walkForward.Accepted {
		result.PromoteError = errors.New("walk-forward gate rejected candidate")
		return result, nil
	}
	promote, promoteErr := s.shouldPromote(ctx, metrics["auc"], testCount, inserted.Version)
	if promoteErr != nil {
		result.PromoteError = promoteErr
		return result, nil
	}
	if promote {
		if err := s.registry.ActivateModel(ctx, common.ModelKeyEnsemble, inserted.Version); err != nil {
			result.PromoteError = err
			return result, nil
		}
		result.Promoted = true
	}
	return result, nil
}

func (s *Service) shouldPromote(ctx context.Context, newAUC float64, testCount, newVersion int) (bool, error) {
	active, err := s.registry.GetActiveModel(ctx, common.ModelKeyEnsemble)
	if err != nil {
		return false, err
	}
	if active == nil {
		return true, nil
	}
	if active.Version == newVersion {
		return active.IsActive, nil
	}
	if testCount < 300 {
		return false, nil
	}
	activeAUC, ok := metricValue(active.MetricsJSON, "auc")
	if !ok {
		return true, nil
	}
	return newAUC >= activeAUC+0.01, nil
}

// rowsByCorridor re-engineers each corridor's full row sequence for the
// walk-forward pass, which needs contiguous per-corridor history rather
// than the purged pooled split.
func rowsByCorridor(byCorridor map[domain.Corridor][]domain.MergedRow, engine *features.Engine) map[string][]domain.FeatureRow {
	out := make(map[string][]domain.FeatureRow, len(byCorridor))
	for corridor, history := range byCorridor {
		rows := engine.BuildRows(corridor.From, corridor.To, history)
		if len(rows) > 0 {
			out[corridor.Key()] = rows
		}
	}
	return out
}

// metricValue reads one scalar out of a stored metrics record. The
// record also holds non-scalar entries like the walk-forward fold
// detail, so fields are decoded individually.
func metricValue(metricsJSON, key string) (float64, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(metricsJSON), &m); err != nil {
		return 0, false
	}
	raw, ok := m[key]
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}
