package domain

import (
	"strings"
	"time"
)

// Corridor is an ordered currency pair: money flows From -> To.
type Corridor struct {
	From string `json:"from_currency"`
	To   string `json:"to_currency"`
}

func NewCorridor(from, to string) Corridor {
	return Corridor{
		From: strings.ToUpper(strings.TrimSpace(from)),
		To:   strings.ToUpper(strings.TrimSpace(to)),
	}
}

func (c Corridor) Key() string {
	return c.From + "_" + c.To
}

func (c Corridor) String() string {
	return c.From + "->" + c.To
}

// RateObservation is one trading day of one corridor.
type RateObservation struct {
	Date time.Time `json:"date"`
	From string    `json:"from_currency"`
	To   string    `json:"to_currency"`
	Rate float64   `json:"rate"`
}

// FundamentalObservation is one macro series value on one date
// (interest rates, VIX, USD index, crude, credit spreads, yields).
type FundamentalObservation struct {
	Date   time.Time
	Series string
	Value  float64
}

// PositioningObservation is one weekly CFTC positioning report row
// for one currency.
type PositioningObservation struct {
	ReportDate   time.Time
	Currency     string
	LevNet       float64
	AssetMgrNet  float64
	OpenInterest float64
}

// MergedRow is one daily observation for one corridor after the
// fundamental and positioning series have been forward-filled onto the
// rate calendar. Extra holds whichever merged series exist for this
// corridor; absent series are simply absent, never zero.
type MergedRow struct {
	Date  time.Time
	Rate  float64
	Extra map[string]float64
}

// FeatureRow is one engineered observation. Values is keyed by feature
// column name; the dataset builder decides which columns are usable for
// a given training run. TargetSendNow is nil for rows whose forward
// label window runs past the end of history.
type FeatureRow struct {
	From string
	To   string
	Date time.Time
	Rate float64

	Values   map[string]float64
	RangePos float64
	Weight   float64

	TargetSendNow *bool
	FwdReturn1D   *float64
	FwdReturn3D   *float64
}

// Vector assembles the row's values in column order. Columns missing
// from the row are encoded as 0, which is the neutral point for the
// return/z-score features this system uses.
func (r FeatureRow) Vector(columns []string) []float64 {
	out := make([]float64, len(columns))
	for i, col := range columns {
		if v, ok := r.Values[col]; ok {
			out[i] = v
		}
	}
	return out
}

type Recommendation string

const (
	RecommendationSendNow Recommendation = "SEND_NOW"
	RecommendationWait    Recommendation = "WAIT"
	RecommendationNeutral Recommendation = "NEUTRAL"
)

type TrendLabel string

const (
	TrendUp   TrendLabel = "up"
	TrendDown TrendLabel = "down"
	TrendFlat TrendLabel = "flat"
)

type VolatilityLabel string

const (
	VolatilityLow    VolatilityLabel = "low"
	VolatilityMedium VolatilityLabel = "medium"
	VolatilityHigh   VolatilityLabel = "high"
)

// MarketSummary is the coarse recent-market block attached to every
// score result. Field names are a contract with the service boundary.
type MarketSummary struct {
	TwoMonthHigh    float64         `json:"two_month_high"`
	TwoMonthLow     float64         `json:"two_month_low"`
	TwoMonthAvg     float64         `json:"two_month_avg"`
	Trend           TrendLabel      `json:"trend"`
	Volatility      VolatilityLabel `json:"volatility"`
	UnusualActivity bool            `json:"unusual_activity"`
}

// ScoreResult is the predictor's answer for one corridor today.
type ScoreResult struct {
	From            string         `json:"from_currency"`
	To              string         `json:"to_currency"`
	CurrentRate     float64        `json:"current_rate"`
	TimingScore     float64        `json:"timing_score"`
	ModelProb       float64        `json:"model_probability"`
	RangePercentile float64        `json:"range_percentile"`
	Confidence      float64        `json:"confidence_score"`
	Recommendation  Recommendation `json:"recommendation"`
	Reasoning       string         `json:"reasoning"`
	MarketSummary   MarketSummary  `json:"market_summary"`
	ScoredAt        time.Time      `json:"scored_at"`
}

// ModelVersion is one persisted training artifact plus its metadata.
type ModelVersion struct {
	ID                 int64
	ModelKey           string
	Version            int
	FeatureSpecVersion string
	FeatureColumnsJSON string
	TrainedFrom        time.Time
	TrainedTo          time.Time
	TrainedAt          time.Time
	HyperparamsJSON    string
	MetricsJSON        string
	ArtifactFormat     string
	ArtifactBlob       []byte
	IsActive           bool
	ActivatedAt        *time.Time
	CreatedAt          time.Time
}
