package predictor

import (
	"math"

	"sendsmart/internal/domain"
	"sendsmart/internal/ta"

	"github.com/narumiruna/go-iforest/pkg/iforest"
)

const (
	summaryWindow = 60  // two trading months
	trendWindow   = 365 // calendar baseline for the trend call

	anomalyScoreBar = 0.7
	anomalyMinRows  = 120
)

// buildMarketSummary condenses the recent rate history into the coarse
// block users actually read: the two-month range, a trend call against
// the one-year baseline, a volatility bucket, and an anomaly flag.
func buildMarketSummary(merged []domain.MergedRow) domain.MarketSummary {
	rates := make([]float64, len(merged))
	for i := range merged {
		rates[i] = merged[i].Rate
	}

	recent := rates
	if len(recent) > summaryWindow {
		recent = recent[len(recent)-summaryWindow:]
	}
	high, low := recent[0], recent[0]
	sum := 0.0
	for _, r := range recent {
		if r > high {
			high = r
		}
		if r < low {
			low = r
		}
		sum += r
	}
	avg := sum / float64(len(recent))

	return domain.MarketSummary{
		TwoMonthHigh:    high,
		TwoMonthLow:     low,
		TwoMonthAvg:     avg,
		Trend:           trendLabel(rates, avg),
		Volatility:      volatilityLabel(recent, avg),
		UnusualActivity: unusualActivity(rates),
	}
}

// trendLabel compares the two-month average against the one-year one;
// moves under 1% read as flat.
func trendLabel(rates []float64, recentAvg float64) domain.TrendLabel {
	baseline := rates
	if len(baseline) > trendWindow {
		baseline = baseline[len(baseline)-trendWindow:]
	}
	baseAvg, _ := ta.MeanStd(baseline)
	if baseAvg <= 0 {
		return domain.TrendFlat
	}
	drift := (recentAvg - baseAvg) / baseAvg
	if drift > 0.01 {
		return domain.TrendUp
	}
	if drift < -0.01 {
		return domain.TrendDown
	}
	return domain.TrendFlat
}

func volatilityLabel(recent []float64, avg float64) domain.VolatilityLabel {
	if avg <= 0 {
		return domain.VolatilityLow
	}
	_, std := ta.MeanStd(recent)
	rel := std / avg
	switch {
	case rel < 0.005:
		return domain.VolatilityLow
	case rel < 0.015:
		return domain.VolatilityMedium
	default:
		return domain.VolatilityHigh
	}
}

// unusualActivity fits an isolation forest on the corridor's own daily
// return profile and flags the latest day when it scores as an outlier.
// Short histories never flag.
func unusualActivity(rates []float64) bool {
	if len(rates) < anomalyMinRows {
		return false
	}
	// The first log return is undefined; every later one is finite
	// because merged rates are strictly positive.
	returns := ta.LogReturns(rates)[1:]
	samples := make([][]float64, 0, len(returns))
	for i := range returns {
		samples = append(samples, []float64{returns[i], math.Abs(returns[i])})
	}

	forest := iforest.New()
	forest.Fit(samples)
	scores := forest.Score(samples)
	if len(scores) == 0 {
		return false
	}
	return scores[len(scores)-1] > anomalyScoreBar
}
