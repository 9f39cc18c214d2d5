package training

import (
	"log"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/dataset"
	"sendsmart/internal/ml/ensemble"
	"sendsmart/internal/ml/models/gbdt"
	"sendsmart/internal/ml/models/logreg"
)

const (
	walkTrainRows = 756 // ~3 trading years
	walkTestRows  = 252 // ~1 trading year
	walkPurgeGap  = 10

	// Acceptance thresholds. FX timing signals are weak; the gate asks
	// for a small but consistent edge rather than a large one.
	walkMinMeanDirAcc  = 0.505
	walkFoldDirAccBar  = 0.52
	walkMinFoldsAboveF = 0.5
)

type WalkForwardFold struct {
	Corridor      string  `json:"corridor"`
	TrainRows     int     `json:"train_rows"`
	TestRows      int     `json:"test_rows"`
	AUC           float64 `json:"auc"`
	DirAccuracy   float64 `json:"dir_accuracy"`
	DirectionRows int     `json:"direction_rows"`
}

type WalkForwardResult struct {
	Folds      []WalkForwardFold `json:"folds"`
	MeanAUC    float64           `json:"mean_auc"`
	MeanDirAcc float64           `json:"mean_dir_acc"`
	FoldsAbove int               `json:"folds_above"`
	Accepted   bool              `json:"accepted"`
}

// WalkForward re-trains the ensemble on rolling windows per corridor
// and scores each strictly-later segment, with a purge gap so no test
// label window overlaps training. This is the honest estimate of
// live performance; the pooled test metrics are the optimistic one.
func WalkForward(byCorridor map[string][]domain.FeatureRow, columns []string) WalkForwardResult {
	result := WalkForwardResult{}

	for corridor, rows := range byCorridor {
		rows = labeledOnly(rows)
		for start := 0; start+walkTrainRows+walkPurgeGap+walkTestRows <= len(rows); start += walkTestRows {
			trainRows := rows[start : start+walkTrainRows]
			testStart := start + walkTrainRows + walkPurgeGap
			testRows := rows[testStart : testStart+walkTestRows]

			model, err := trainFoldEnsemble(trainRows, columns)
			if err != nil {
				log.Printf("walk-forward: %s fold at %d: %v", corridor, start, err)
				continue
			}

			testX, testY, _ := dataset.Matrices(testRows, columns)
			probs := model.PredictBatch(testX)
			dirAcc, dirRows := directionalAccuracy(testRows, probs)

			result.Folds = append(result.Folds, WalkForwardFold{
				Corridor:      corridor,
				TrainRows:     len(trainRows),
				TestRows:      len(testRows),
				AUC:           ensemble.AUC(probs, testY),
				DirAccuracy:   dirAcc,
				DirectionRows: dirRows,
			})
		}
	}

	if len(result.Folds) == 0 {
		return result
	}
	for _, f := range result.Folds {
		result.MeanAUC += f.AUC
		result.MeanDirAcc += f.DirAccuracy
		if f.DirAccuracy > walkFoldDirAccBar {
			result.FoldsAbove++
		}
	}
	n := float64(len(result.Folds))
	result.MeanAUC /= n
	result.MeanDirAcc /= n
	result.Accepted = result.MeanDirAcc >= walkMinMeanDirAcc &&
		float64(result.FoldsAbove) >= walkMinFoldsAboveF*n
	return result
}

func trainFoldEnsemble(rows []domain.FeatureRow, columns []string) (*ensemble.Ensemble, error) {
	x, y, w := dataset.Matrices(rows, columns)
	linear, err := logreg.Train(x, y, w, columns, logreg.DefaultTrainOptions())
	if err != nil {
		return nil, err
	}
	boost, err := gbdt.Train(x, y, w, columns, gbdt.DefaultTrainOptions())
	if err != nil {
		return nil, err
	}
	return ensemble.New(linear, boost, ensemble.DefaultBlendWeight, columns)
}

func labeledOnly(rows []domain.FeatureRow) []domain.FeatureRow {
	out := make([]domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.TargetSendNow != nil {
			out = append(out, r)
		}
	}
	return out
}
