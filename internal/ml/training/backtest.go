package training

import (
	"sendsmart/internal/domain"
	"sendsmart/internal/ml/ensemble"
)

const backtestWindowDays = 10

// BacktestResult compares send-day selection policies over fixed
// 10-day decision windows on held-out rows. "Random" is the expected
// rate of a sender with no signal (the window average), "oracle" is the
// best rate in hindsight. Improvements are percentages of the random
// baseline; gap capture is the fraction of the random-to-oracle gap a
// policy actually collects.
type BacktestResult struct {
	Windows int `json:"windows"`

	ModelImprovementPct      float64 `json:"model_improvement_pct"`
	PercentileImprovementPct float64 `json:"percentile_improvement_pct"`
	OracleImprovementPct     float64 `json:"oracle_improvement_pct"`

	ModelGapCapture      float64 `json:"model_gap_capture"`
	PercentileGapCapture float64 `json:"percentile_gap_capture"`
}

// EconomicBacktest walks each corridor's test rows in order, carves
// them into non-overlapping windows, and asks which day each policy
// would have sent on. Windows shorter than the decision horizon are
// dropped rather than padded.
func EconomicBacktest(rows []domain.FeatureRow, model *ensemble.Ensemble) BacktestResult {
	result := BacktestResult{}
	if model == nil || len(rows) == 0 {
		return result
	}
	columns := model.Columns()

	var (
		modelImp, pctImp, oracleImp    float64
		modelCapSum, pctCapSum, capped float64
	)

	for _, corridorRows := range groupByCorridor(rows) {
		for start := 0; start+backtestWindowDays <= len(corridorRows); start += backtestWindowDays {
			window := corridorRows[start : start+backtestWindowDays]

			random := 0.0
			oracle := window[0].Rate
			bestProb, modelRate := -1.0, window[0].Rate
			bestPct, pctRate := -1.0, window[0].Rate
			for i := range window {
				random += window[i].Rate
				if window[i].Rate > oracle {
					oracle = window[i].Rate
				}
				prob := model.PredictProb(window[i].Vector(columns))
				if prob > bestProb {
					bestProb = prob
					modelRate = window[i].Rate
				}
				if window[i].RangePos > bestPct {
					bestPct = window[i].RangePos
					pctRate = window[i].Rate
				}
			}
			random /= float64(len(window))
			if random <= 0 {
				continue
			}

			modelImp += (modelRate - random) / random
			pctImp += (pctRate - random) / random
			oracleImp += (oracle - random) / random
			if oracle > random {
				modelCapSum += (modelRate - random) / (oracle - random)
				pctCapSum += (pctRate - random) / (oracle - random)
				capped++
			}
			result.Windows++
		}
	}

	if result.Windows > 0 {
		n := float64(result.Windows)
		result.ModelImprovementPct = 100 * modelImp / n
		result.PercentileImprovementPct = 100 * pctImp / n
		result.OracleImprovementPct = 100 * oracleImp / n
	}
	if capped > 0 {
		result.ModelGapCapture = modelCapSum / capped
		result.PercentileGapCapture = pctCapSum / capped
	}
	return result
}

// groupByCorridor preserves the chronological order rows already carry
// within each corridor.
func groupByCorridor(rows []domain.FeatureRow) [][]domain.FeatureRow {
	index := make(map[string]int)
	var groups [][]domain.FeatureRow
	for _, r := range rows {
		key := r.From + "_" + r.To
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}
