package gbdt

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

type TrainOptions struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

type artifact struct {
	FeatureNames []string `json:"feature_names"`
	Rounds       int      `json:"rounds"`
	ModelText    string   `json:"model_text"`
}

type Model struct {
	featureNames []string
	rounds       int
	boost        *boo.MultiClass
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       80,
		LearningRate: 0.08,
		MaxDepth:     4,
	}
}

// Train fits a gradient-boosted classifier on the send-now label.
// sampleWeights are honored by replicating heavy rows: a row with
// weight w appears round(w) times in the fitted dataset, so rows near
// the window extremes pull harder on the split decisions. Positive
// rows are further replicated by the neg/pos class ratio to correct
// the label imbalance. Pass nil for uniform weighting.
func Train(samples [][]float64, labels []float64, sampleWeights []float64, featureNames []string, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	if sampleWeights != nil && len(sampleWeights) != len(samples) {
		return nil, errors.New("sample weight length mismatch")
	}
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultTrainOptions().Rounds
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTrainOptions().MaxDepth
	}
	if len(featureNames) != len(samples[0]) {
		featureNames = make([]string, len(samples[0]))
		for i := range featureNames {
			featureNames[i] = "f"
		}
	}

	data, intLabels := replicate(samples, labels, sampleWeights)
	classSet := make(map[int]struct{}, 2)
	for _, label := range intLabels {
		classSet[label] = struct{}{}
	}
	if len(classSet) < 2 {
		return nil, errors.New("boosting requires at least two classes")
	}

	o := boo.DefaultXOptions()
	o.Rounds = opts.Rounds
	o.LearningRate = opts.LearningRate
	o.MaxDepth = opts.MaxDepth
	o.Verbose = false
	o.EarlyStop = 0
	// Full-batch fitting. boo's row/column subsampling draws from the
	// global rand source, which cannot be seeded, and once subsampling
	// is off a positive MinSample makes boo skip every boosting round.
	o.SubSample = 1
	o.ColSubSample = 1
	o.MinSample = 0

	bunch := &utils.DataBunch{
		Data:   data,
		Labels: intLabels,
		Keys:   featureNames,
	}
	model := boo.NewMultiClass(bunch, o)
	if model == nil {
		return nil, errors.New("failed to train boosted model")
	}
	return &Model{
		featureNames: append([]string(nil), featureNames...),
		rounds:       opts.Rounds,
		boost:        model,
	}, nil
}

// replicate expands weighted rows into repeated rows. The copy count
// folds in the class-imbalance correction: positive rows are scaled by
// the neg/pos count ratio on top of their sample weight, the
// replication counterpart of the logistic model's balanced class
// weights. Every row appears at least once regardless of weight, and
// replication is deterministic so repeated training runs on the same
// split produce the same model.
func replicate(samples [][]float64, labels, weights []float64) ([][]float64, []int) {
	pos, neg := 0, 0
	for i := range labels {
		if labels[i] >= 0.5 {
			pos++
		} else {
			neg++
		}
	}
	posScale := 1.0
	if pos > 0 && neg > 0 {
		posScale = float64(neg) / float64(pos)
	}

	data := make([][]float64, 0, len(samples))
	intLabels := make([]int, 0, len(samples))
	for i := range samples {
		label := 0
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		if labels[i] >= 0.5 {
			label = 1
			w *= posScale
		}
		copies := int(math.Round(w))
		if copies < 1 {
			copies = 1
		}
		for c := 0; c < copies; c++ {
			data = append(data, samples[i])
			intLabels = append(intLabels, label)
		}
	}
	return data, intLabels
}

func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || m.boost == nil {
		return 0.5
	}
	probs := m.boost.PredictSingle(sample)
	labels := m.boost.ClassLabels()
	for i := range labels {
		if labels[i] == 1 {
			return clamp01(probs[i])
		}
	}
	if len(probs) == 0 {
		return 0.5
	}
	return clamp01(probs[len(probs)-1])
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = m.PredictProb(samples[i])
	}
	return out
}

func (m *Model) Rounds() int {
	if m == nil {
		return 0
	}
	return m.rounds
}

func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil || m.boost == nil {
		return nil, errors.New("nil model")
	}
	var buf bytes.Buffer
	if err := boo.JSONMultiClass(m.boost, "softmax", &buf); err != nil {
		return nil, err
	}
	// boo's decoder flushes a round of trees only when it reads the
	// next ROUND marker, so without a trailing marker the final round
	// is silently dropped and loaded models drift from the trained one.
	buf.WriteString("ROUND END\n")
	return json.Marshal(artifact{
		FeatureNames: m.featureNames,
		Rounds:       m.rounds,
		ModelText:    buf.String(),
	})
}

func UnmarshalBinary(blob []byte) (*Model, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, err
	}
	reader := bufio.NewReader(bytes.NewReader([]byte(a.ModelText)))
	model, err := boo.UnJSONMultiClass(reader)
	if err != nil {
		return nil, err
	}
	return &Model{
		featureNames: append([]string(nil), a.FeatureNames...),
		rounds:       a.Rounds,
		boost:        model,
	}, nil
}

func (m *Model) FeatureNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
