package dataset

import (
	"log"
	"sort"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/features"
)

type BuilderConfig struct {
	// MinHistory drops corridors too short to produce meaningful
	// rolling features.
	MinHistory int
	// TrainFrac / ValFrac split each corridor by row position; the
	// remainder is the test segment.
	TrainFrac float64
	ValFrac   float64
	// PurgeGap rows are discarded between segments so no test-row
	// forward window overlaps a training row. Must be >= the label
	// window.
	PurgeGap int
	// MinCoverage is the fraction of pooled training rows an optional
	// column must be populated in to make the usable-column list.
	MinCoverage float64
}

func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MinHistory:  120,
		TrainFrac:   0.70,
		ValFrac:     0.15,
		PurgeGap:    10,
		MinCoverage: 0.5,
	}
}

// Split is the pooled, leakage-safe view of every corridor's labeled
// feature rows. Columns is the usable feature set for this run,
// computed once from training coverage.
type Split struct {
	Train   []domain.FeatureRow
	Val     []domain.FeatureRow
	Test    []domain.FeatureRow
	Columns []string

	Corridors int
	Skipped   int
}

type Builder struct {
	engine *features.Engine
	cfg    BuilderConfig
}

func NewBuilder(engine *features.Engine, cfg BuilderConfig) *Builder {
	def := DefaultBuilderConfig()
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = def.MinHistory
	}
	if cfg.TrainFrac <= 0 || cfg.TrainFrac >= 1 {
		cfg.TrainFrac = def.TrainFrac
	}
	if cfg.ValFrac <= 0 || cfg.TrainFrac+cfg.ValFrac >= 1 {
		cfg.ValFrac = def.ValFrac
	}
	if cfg.PurgeGap < engine.LabelWindow() {
		cfg.PurgeGap = engine.LabelWindow()
	}
	if cfg.MinCoverage <= 0 || cfg.MinCoverage > 1 {
		cfg.MinCoverage = def.MinCoverage
	}
	return &Builder{engine: engine, cfg: cfg}
}

// Build engineers every corridor, splits each chronologically with a
// purge gap, and pools the segments. Corridors mix in the pooled tables
// but time never runs backwards within one corridor's segment.
func (b *Builder) Build(byCorridor map[domain.Corridor][]domain.MergedRow) *Split {
	corridors := make([]domain.Corridor, 0, len(byCorridor))
	for c := range byCorridor {
		corridors = append(corridors, c)
	}
	sort.Slice(corridors, func(i, j int) bool { return corridors[i].Key() < corridors[j].Key() })

	split := &Split{}
	for _, corridor := range corridors {
		history := byCorridor[corridor]
		if len(history) < b.cfg.MinHistory {
			log.Printf("dataset: skipping %s: %d rows < %d minimum", corridor, len(history), b.cfg.MinHistory)
			split.Skipped++
			continue
		}
		rows := labeledRows(b.engine.BuildRows(corridor.From, corridor.To, history))
		train, val, test, ok := b.splitCorridor(rows)
		if !ok {
			log.Printf("dataset: skipping %s: too few labeled rows after warm-up (%d)", corridor, len(rows))
			split.Skipped++
			continue
		}
		split.Train = append(split.Train, train...)
		split.Val = append(split.Val, val...)
		split.Test = append(split.Test, test...)
		split.Corridors++
	}

	split.Columns = usableColumns(split.Train, b.cfg.MinCoverage)
	return split
}

// splitCorridor cuts one corridor's chronological rows into three
// contiguous segments with PurgeGap rows dropped at each boundary.
func (b *Builder) splitCorridor(rows []domain.FeatureRow) (train, val, test []domain.FeatureRow, ok bool) {
	n := len(rows)
	minUsable := 3*b.cfg.PurgeGap + 10
	if n < minUsable {
		return nil, nil, nil, false
	}

	trainEnd := int(float64(n) * b.cfg.TrainFrac)
	valStart := trainEnd + b.cfg.PurgeGap
	valEnd := valStart + int(float64(n)*b.cfg.ValFrac)
	testStart := valEnd + b.cfg.PurgeGap
	if trainEnd < 1 || valEnd <= valStart || testStart >= n {
		return nil, nil, nil, false
	}

	return rows[:trainEnd], rows[valStart:valEnd], rows[testStart:], true
}

func labeledRows(rows []domain.FeatureRow) []domain.FeatureRow {
	out := make([]domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.TargetSendNow != nil {
			out = append(out, r)
		}
	}
	return out
}

// usableColumns is the explicit availability set: every price column,
// plus each optional column populated in at least minCoverage of the
// pooled training rows.
func usableColumns(train []domain.FeatureRow, minCoverage float64) []string {
	columns := append([]string(nil), features.PriceColumns...)
	if len(train) == 0 {
		return columns
	}
	for _, col := range features.OptionalColumns {
		present := 0
		for i := range train {
			if _, ok := train[i].Values[col]; ok {
				present++
			}
		}
		if float64(present) >= minCoverage*float64(len(train)) {
			columns = append(columns, col)
		}
	}
	return columns
}

// Matrices flattens rows into model inputs in column order.
func Matrices(rows []domain.FeatureRow, columns []string) (x [][]float64, y []float64, w []float64) {
	x = make([][]float64, 0, len(rows))
	y = make([]float64, 0, len(rows))
	w = make([]float64, 0, len(rows))
	for i := range rows {
		if rows[i].TargetSendNow == nil {
			continue
		}
		x = append(x, rows[i].Vector(columns))
		label := 0.0
		if *rows[i].TargetSendNow {
			label = 1
		}
		y = append(y, label)
		weight := rows[i].Weight
		if weight <= 0 {
			weight = 1
		}
		w = append(w, weight)
	}
	return x, y, w
}
