package gbdt

import (
	"math/rand"
	"testing"
)

func separableData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(11))
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

func TestTrainSeparable(t *testing.T) {
	samples, labels := separableData(400)
	model, err := Train(samples, labels, nil, []string{"x1", "x2"}, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	correct := 0
	for i := range samples {
		p := model.PredictProb(samples[i])
		if (p >= 0.5) == (labels[i] == 1) {
			correct++
		}
	}
	if acc := float64(correct) / float64(len(samples)); acc < 0.9 {
		t.Fatalf("expected >= 0.9 training accuracy on separable data, got %.3f", acc)
	}
	if model.Rounds() != DefaultTrainOptions().Rounds {
		t.Fatalf("unexpected rounds: %d", model.Rounds())
	}
}

func TestTrainDeterministic(t *testing.T) {
	samples, labels := separableData(400)
	first, err := Train(samples, labels, nil, []string{"x1", "x2"}, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	second, err := Train(samples, labels, nil, []string{"x1", "x2"}, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	for i := range samples {
		a, b := first.PredictProb(samples[i]), second.PredictProb(samples[i])
		if a != b {
			t.Fatalf("identical inputs produced different models at row %d: %.6f vs %.6f", i, a, b)
		}
	}
}

func TestTrainRequiresTwoClasses(t *testing.T) {
	samples := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	labels := []float64{1, 1, 1}
	if _, err := Train(samples, labels, nil, nil, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for single-class dataset")
	}
}

func TestTrainRejectsBadInput(t *testing.T) {
	if _, err := Train(nil, nil, nil, nil, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if _, err := Train([][]float64{{1}}, []float64{1, 0}, nil, nil, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for label length mismatch")
	}
}

func TestReplicate(t *testing.T) {
	samples := [][]float64{{1}, {2}, {3}}
	labels := []float64{1, 0, 1}

	// posScale is neg/pos = 0.5 here, so the positive rows come out as
	// round(1*0.5)=1 and max(round(0.2*0.5), 1)=1 copies, the negative
	// row as round(3.4)=3.
	data, intLabels := replicate(samples, labels, []float64{1, 3.4, 0.2})
	if len(data) != 5 {
		t.Fatalf("expected 5 replicated rows, got %d", len(data))
	}
	if intLabels[0] != 1 || intLabels[1] != 0 || intLabels[4] != 1 {
		t.Fatalf("unexpected labels after replication: %v", intLabels)
	}

	data, _ = replicate(samples, labels, nil)
	if len(data) != 3 {
		t.Fatalf("nil weights should leave rows untouched, got %d", len(data))
	}
}

func TestReplicateBalancesClasses(t *testing.T) {
	samples := [][]float64{{1}, {2}, {3}, {4}}
	labels := []float64{1, 0, 0, 0}

	// One positive against three negatives: the positive row is copied
	// neg/pos = 3 times so the fitted dataset is balanced.
	_, intLabels := replicate(samples, labels, nil)
	pos, neg := 0, 0
	for _, label := range intLabels {
		if label == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos != 3 || neg != 3 {
		t.Fatalf("expected 3 positive and 3 negative rows, got %d/%d", pos, neg)
	}

	// Sample weights stack on top of the class correction.
	_, intLabels = replicate(samples, labels, []float64{2, 1, 1, 1})
	pos = 0
	for _, label := range intLabels {
		if label == 1 {
			pos++
		}
	}
	if pos != 6 {
		t.Fatalf("expected weight 2 to double the corrected copies, got %d", pos)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	samples, labels := separableData(200)
	model, err := Train(samples, labels, nil, []string{"x1", "x2"}, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	blob, err := model.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := UnmarshalBinary(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Rounds() != model.Rounds() {
		t.Fatalf("rounds lost in round-trip: %d vs %d", restored.Rounds(), model.Rounds())
	}
	for i := range samples[:20] {
		a := model.PredictProb(samples[i])
		b := restored.PredictProb(samples[i])
		if diff := a - b; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("round-trip changed prediction at %d: %.6f vs %.6f", i, a, b)
		}
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalBinary(nil); err == nil {
		t.Fatal("expected error for empty blob")
	}
	if _, err := UnmarshalBinary([]byte(`{"model_text":"not a model"}`)); err == nil {
		t.Fatal("expected error for corrupt model text")
	}
}

func TestNilModelIsNeutral(t *testing.T) {
	var m *Model
	if p := m.PredictProb([]float64{1, 2}); p != 0.5 {
		t.Fatalf("nil model should return 0.5, got %v", p)
	}
	if m.Rounds() != 0 {
		t.Fatal("nil model should report zero rounds")
	}
}
