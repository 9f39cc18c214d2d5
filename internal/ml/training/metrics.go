package training

import (
	"sendsmart/internal/domain"
	"sendsmart/internal/ml/common"
	"sendsmart/internal/ml/ensemble"
)

// computeMetrics scores classifier output on a held-out segment.
// rangePos, when provided, adds an extremes-only AUC over rows near the
// bottom or top of their 60-day range, where the recommendation
// actually changes behavior.
func computeMetrics(labels, probs, rangePos []float64) map[string]float64 {
	n := len(labels)
	if n == 0 || len(probs) != n {
		return map[string]float64{"auc": 0.5, "accuracy": 0, "precision": 0, "recall": 0, "f1": 0, "brier": 0, "n_test": 0}
	}
	tp := 0.0
	fp := 0.0
	tn := 0.0
	fn := 0.0
	brier := 0.0
	clamped := make([]float64, n)
	for i := 0; i < n; i++ {
		y := labels[i]
		p := common.Clamp01(probs[i])
		clamped[i] = p
		pred := 0.0
		if p >= 0.5 {
			pred = 1
		}
		if pred == 1 && y == 1 {
			tp++
		}
		if pred == 1 && y == 0 {
			fp++
		}
		if pred == 0 && y == 0 {
			tn++
		}
		if pred == 0 && y == 1 {
			fn++
		}
		d := p - y
		brier += d * d
	}

	accuracy := (tp + tn) / float64(n)
	precision := 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	recall := 0.0
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	out := map[string]float64{
		"auc":       ensemble.AUC(clamped, labels),
		"accuracy":  accuracy,
		"precision": precision,
		"recall":    recall,
		"f1":        f1,
		"brier":     brier / float64(n),
		"n_test":    float64(n),
	}

	if len(rangePos) == n {
		var exProbs, exLabels []float64
		for i := 0; i < n; i++ {
			if rangePos[i] < 0.25 || rangePos[i] > 0.75 {
				exProbs = append(exProbs, clamped[i])
				exLabels = append(exLabels, labels[i])
			}
		}
		if len(exProbs) >= 30 {
			out["auc_extremes"] = ensemble.AUC(exProbs, exLabels)
			out["n_extremes"] = float64(len(exProbs))
		}
	}
	return out
}

// directionalAccuracy measures whether a high send-now probability
// anticipates the rate failing to improve the next day. A correct call
// is prob >= 0.5 paired with a non-positive 1-day forward return, or
// prob < 0.5 paired with a positive one.
func directionalAccuracy(rows []domain.FeatureRow, probs []float64) (float64, int) {
	if len(rows) != len(probs) {
		return 0, 0
	}
	correct, counted := 0, 0
	for i := range rows {
		if rows[i].FwdReturn1D == nil {
			continue
		}
		counted++
		predictSend := probs[i] >= 0.5
		rateImproved := *rows[i].FwdReturn1D > 0
		if predictSend != rateImproved {
			correct++
		}
	}
	if counted == 0 {
		return 0, 0
	}
	return float64(correct) / float64(counted), counted
}

func rangePositions(rows []domain.FeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i := range rows {
		out[i] = rows[i].RangePos
	}
	return out
}
