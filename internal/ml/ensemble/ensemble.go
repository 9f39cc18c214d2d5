package ensemble

import (
	"encoding/json"
	"errors"
	"sort"

	"sendsmart/internal/ml/models/gbdt"
	"sendsmart/internal/ml/models/logreg"
)

// Blend weights are swept over this grid on held-out validation AUC.
// The boosted model usually earns the larger share, but the linear
// model keeps it honest when the trees overfit a short corridor.
const (
	blendMin  = 0.30
	blendMax  = 0.80
	blendStep = 0.05

	DefaultBlendWeight = 0.60
)

type artifact struct {
	Columns     []string        `json:"columns"`
	BlendWeight float64         `json:"blend_weight"`
	Linear      json.RawMessage `json:"linear"`
	Boost       json.RawMessage `json:"boost"`
}

// Ensemble blends the boosted classifier with the logistic baseline:
//
//	p = w*boost + (1-w)*linear
type Ensemble struct {
	linear      *logreg.Model
	boost       *gbdt.Model
	blendWeight float64
	columns     []string
}

func New(linear *logreg.Model, boost *gbdt.Model, blendWeight float64, columns []string) (*Ensemble, error) {
	if linear == nil || boost == nil {
		return nil, errors.New("ensemble requires both component models")
	}
	if blendWeight < 0 || blendWeight > 1 {
		blendWeight = DefaultBlendWeight
	}
	if len(columns) == 0 {
		return nil, errors.New("ensemble requires a column list")
	}
	return &Ensemble{
		linear:      linear,
		boost:       boost,
		blendWeight: blendWeight,
		columns:     append([]string(nil), columns...),
	}, nil
}

func (e *Ensemble) PredictProb(sample []float64) float64 {
	if e == nil {
		return 0.5
	}
	w := e.blendWeight
	return w*e.boost.PredictProb(sample) + (1-w)*e.linear.PredictProb(sample)
}

func (e *Ensemble) PredictBatch(samples [][]float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = e.PredictProb(samples[i])
	}
	return out
}

func (e *Ensemble) BlendWeight() float64 {
	if e == nil {
		return DefaultBlendWeight
	}
	return e.blendWeight
}

// Columns is the ordered feature set the component models were fitted
// on; scoring callers must vectorize rows with exactly this list.
func (e *Ensemble) Columns() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.columns...)
}

// SelectBlendWeight sweeps the blend grid and returns the weight with
// the best validation AUC. Ties go to the smaller weight, which leans
// on the more stable linear model.
func SelectBlendWeight(linear *logreg.Model, boost *gbdt.Model, valX [][]float64, valY []float64) float64 {
	if linear == nil || boost == nil || len(valX) == 0 {
		return DefaultBlendWeight
	}
	linProbs := linear.PredictBatch(valX)
	boostProbs := boost.PredictBatch(valX)

	bestW := DefaultBlendWeight
	bestAUC := -1.0
	blended := make([]float64, len(valX))
	for w := blendMin; w <= blendMax+1e-9; w += blendStep {
		for i := range blended {
			blended[i] = w*boostProbs[i] + (1-w)*linProbs[i]
		}
		auc := AUC(blended, valY)
		if auc > bestAUC {
			bestAUC = auc
			bestW = w
		}
	}
	return bestW
}

// AUC is the probability a random positive outranks a random negative,
// with ties counted half. Degenerate label sets score 0.5.
func AUC(probs, labels []float64) float64 {
	if len(probs) != len(labels) || len(probs) == 0 {
		return 0.5
	}
	type pair struct {
		p float64
		y float64
	}
	pairs := make([]pair, len(probs))
	pos, neg := 0.0, 0.0
	for i := range probs {
		pairs[i] = pair{p: probs[i], y: labels[i]}
		if labels[i] >= 0.5 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })

	// Rank-sum with average ranks across tied scores.
	rankSum := 0.0
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].p == pairs[i].p {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			if pairs[k].y >= 0.5 {
				rankSum += avgRank
			}
		}
		i = j
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

func (e *Ensemble) MarshalBinary() ([]byte, error) {
	if e == nil {
		return nil, errors.New("nil ensemble")
	}
	linBlob, err := e.linear.MarshalBinary()
	if err != nil {
		return nil, err
	}
	boostBlob, err := e.boost.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return json.Marshal(artifact{
		Columns:     e.columns,
		BlendWeight: e.blendWeight,
		Linear:      linBlob,
		Boost:       boostBlob,
	})
}

func UnmarshalBinary(blob []byte) (*Ensemble, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, err
	}
	linear, err := logreg.UnmarshalBinary(a.Linear)
	if err != nil {
		return nil, err
	}
	boost, err := gbdt.UnmarshalBinary(a.Boost)
	if err != nil {
		return nil, err
	}
	return New(linear, boost, a.BlendWeight, a.Columns)
}
