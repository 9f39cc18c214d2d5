package ensemble

import (
	"math"
	"math/rand"
	"testing"

	"sendsmart/internal/ml/models/gbdt"
	"sendsmart/internal/ml/models/logreg"
)

func separableData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	samples := make([][]float64, 0, n)
	labels := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		x1 := rng.Float64()*2 - 1
		x2 := rng.Float64()*2 - 1
		label := 0.0
		if x1+x2 > 0 {
			label = 1
		}
		samples = append(samples, []float64{x1, x2})
		labels = append(labels, label)
	}
	return samples, labels
}

func trainComponents(t *testing.T) (*logreg.Model, *gbdt.Model) {
	t.Helper()
	samples, labels := separableData(400, 3)
	linear, err := logreg.Train(samples, labels, nil, []string{"x1", "x2"}, logreg.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train linear: %v", err)
	}
	boost, err := gbdt.Train(samples, labels, nil, []string{"x1", "x2"}, gbdt.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train boost: %v", err)
	}
	return linear, boost
}

func TestAUC(t *testing.T) {
	// Perfect ranking.
	if auc := AUC([]float64{0.1, 0.2, 0.8, 0.9}, []float64{0, 0, 1, 1}); auc != 1 {
		t.Fatalf("perfect ranking should score 1, got %v", auc)
	}
	// Inverted ranking.
	if auc := AUC([]float64{0.9, 0.8, 0.2, 0.1}, []float64{0, 0, 1, 1}); auc != 0 {
		t.Fatalf("inverted ranking should score 0, got %v", auc)
	}
	// All scores tied: every positive/negative comparison is a half-win.
	if auc := AUC([]float64{0.5, 0.5, 0.5, 0.5}, []float64{0, 1, 0, 1}); auc != 0.5 {
		t.Fatalf("fully tied scores should score 0.5, got %v", auc)
	}
	// Single-class labels are degenerate.
	if auc := AUC([]float64{0.1, 0.9}, []float64{1, 1}); auc != 0.5 {
		t.Fatalf("single-class labels should score 0.5, got %v", auc)
	}
	// One misranked pair out of four comparisons.
	if auc := AUC([]float64{0.6, 0.2, 0.5, 0.9}, []float64{0, 0, 1, 1}); auc != 0.75 {
		t.Fatalf("expected 0.75, got %v", auc)
	}
}

func TestPredictProbBlends(t *testing.T) {
	linear, boost := trainComponents(t)
	ens, err := New(linear, boost, 0.7, []string{"x1", "x2"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sample := []float64{0.4, 0.3}
	want := 0.7*boost.PredictProb(sample) + 0.3*linear.PredictProb(sample)
	if got := ens.PredictProb(sample); math.Abs(got-want) > 1e-12 {
		t.Fatalf("blend mismatch: got %v want %v", got, want)
	}
}

func TestNewValidation(t *testing.T) {
	linear, boost := trainComponents(t)
	if _, err := New(nil, boost, 0.5, []string{"x1"}); err == nil {
		t.Fatal("expected error for missing linear model")
	}
	if _, err := New(linear, boost, 0.5, nil); err == nil {
		t.Fatal("expected error for empty column list")
	}
	ens, err := New(linear, boost, 7, []string{"x1", "x2"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if ens.BlendWeight() != DefaultBlendWeight {
		t.Fatalf("out-of-range weight should fall back to default, got %v", ens.BlendWeight())
	}
}

func TestSelectBlendWeight(t *testing.T) {
	linear, boost := trainComponents(t)
	valX, valY := separableData(200, 17)

	w := SelectBlendWeight(linear, boost, valX, valY)
	if w < blendMin-1e-9 || w > blendMax+1e-9 {
		t.Fatalf("selected weight outside the sweep grid: %v", w)
	}
	if got := SelectBlendWeight(nil, boost, valX, valY); got != DefaultBlendWeight {
		t.Fatalf("missing component should fall back to default, got %v", got)
	}
	if got := SelectBlendWeight(linear, boost, nil, nil); got != DefaultBlendWeight {
		t.Fatalf("empty validation set should fall back to default, got %v", got)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	linear, boost := trainComponents(t)
	ens, err := New(linear, boost, 0.45, []string{"x1", "x2"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	blob, err := ens.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := UnmarshalBinary(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.BlendWeight() != 0.45 {
		t.Fatalf("blend weight lost: %v", restored.BlendWeight())
	}
	cols := restored.Columns()
	if len(cols) != 2 || cols[0] != "x1" || cols[1] != "x2" {
		t.Fatalf("columns lost: %v", cols)
	}

	samples, _ := separableData(20, 23)
	for i := range samples {
		a := ens.PredictProb(samples[i])
		b := restored.PredictProb(samples[i])
		if math.Abs(a-b) > 1e-6 {
			t.Fatalf("round-trip changed prediction at %d: %.6f vs %.6f", i, a, b)
		}
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalBinary(nil); err == nil {
		t.Fatal("expected error for empty blob")
	}
	if _, err := UnmarshalBinary([]byte(`{"columns":["x"],"linear":null,"boost":null}`)); err == nil {
		t.Fatal("expected error for missing component artifacts")
	}
}
