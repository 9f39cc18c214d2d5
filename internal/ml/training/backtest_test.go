package training

import (
	"math"
	"math/rand"
	"testing"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/ensemble"
	"sendsmart/internal/ml/models/gbdt"
	"sendsmart/internal/ml/models/logreg"
)

// monotoneEnsemble fits both components on a single feature where the
// label is simply x > 0.5, so predicted probability rises with x.
func monotoneEnsemble(t *testing.T) *ensemble.Ensemble {
	t.Helper()
	rng := rand.New(rand.NewSource(5))
	samples := make([][]float64, 0, 400)
	labels := make([]float64, 0, 400)
	for i := 0; i < 400; i++ {
		x := rng.Float64()
		label := 0.0
		if x > 0.5 {
			label = 1
		}
		samples = append(samples, []float64{x})
		labels = append(labels, label)
	}
	linear, err := logreg.Train(samples, labels, nil, []string{"x"}, logreg.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train linear: %v", err)
	}
	boost, err := gbdt.Train(samples, labels, nil, []string{"x"}, gbdt.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train boost: %v", err)
	}
	model, err := ensemble.New(linear, boost, ensemble.DefaultBlendWeight, []string{"x"})
	if err != nil {
		t.Fatalf("new ensemble: %v", err)
	}
	return model
}

// backtestRows builds two decision windows where the feature x tracks
// the rate, and each window's best day is a clear outlier, so the
// model's argmax day is the oracle day.
func backtestRows() []domain.FeatureRow {
	rates := []float64{
		83.0, 83.2, 83.1, 84.5, 83.3, 83.2, 83.1, 83.0, 83.2, 83.1,
		82.9, 83.0, 83.1, 82.8, 84.2, 83.1, 83.2, 82.9, 83.0, 83.1,
	}
	lo, hi := 82.8, 84.5
	rows := make([]domain.FeatureRow, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, domain.FeatureRow{
			From:     "USD",
			To:       "INR",
			Rate:     r,
			RangePos: 0.5,
			Values:   map[string]float64{"x": (r - lo) / (hi - lo)},
		})
	}
	return rows
}

func TestEconomicBacktestModelMatchesOracle(t *testing.T) {
	model := monotoneEnsemble(t)
	result := EconomicBacktest(backtestRows(), model)

	if result.Windows != 2 {
		t.Fatalf("windows: got %d want 2", result.Windows)
	}
	if result.OracleImprovementPct <= 0 {
		t.Fatalf("oracle must beat the window average, got %v", result.OracleImprovementPct)
	}
	// The feature encodes the rate itself, so the model's pick is the
	// oracle day in every window.
	if math.Abs(result.ModelGapCapture-1) > 1e-9 {
		t.Fatalf("model gap capture: got %v want 1", result.ModelGapCapture)
	}
	if math.Abs(result.ModelImprovementPct-result.OracleImprovementPct) > 1e-9 {
		t.Fatalf("model improvement %v should equal oracle %v", result.ModelImprovementPct, result.OracleImprovementPct)
	}
	// Flat range positions leave the percentile policy stuck on day one.
	if result.PercentileImprovementPct > result.OracleImprovementPct {
		t.Fatalf("percentile policy cannot beat the oracle: %v > %v",
			result.PercentileImprovementPct, result.OracleImprovementPct)
	}
}

func TestEconomicBacktestShortWindowDropped(t *testing.T) {
	model := monotoneEnsemble(t)
	rows := backtestRows()[:backtestWindowDays+3]
	result := EconomicBacktest(rows, model)
	if result.Windows != 1 {
		t.Fatalf("trailing partial window must be dropped, got %d windows", result.Windows)
	}
}

func TestEconomicBacktestDegenerate(t *testing.T) {
	if r := EconomicBacktest(nil, monotoneEnsemble(t)); r.Windows != 0 {
		t.Fatalf("no rows should mean no windows, got %d", r.Windows)
	}
	if r := EconomicBacktest(backtestRows(), nil); r.Windows != 0 {
		t.Fatalf("nil model should mean no windows, got %d", r.Windows)
	}
}

func TestGroupByCorridorPreservesOrder(t *testing.T) {
	rows := []domain.FeatureRow{
		{From: "USD", To: "INR", Rate: 1},
		{From: "EUR", To: "TRY", Rate: 10},
		{From: "USD", To: "INR", Rate: 2},
		{From: "EUR", To: "TRY", Rate: 20},
	}
	groups := groupByCorridor(rows)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0][0].Rate != 1 || groups[0][1].Rate != 2 {
		t.Fatalf("first corridor out of order: %v", groups[0])
	}
	if groups[1][0].Rate != 10 || groups[1][1].Rate != 20 {
		t.Fatalf("second corridor out of order: %v", groups[1])
	}
}
