package dataset

import (
	"sort"
	"time"

	"sendsmart/internal/domain"
	"sendsmart/internal/ml/features"
)

// currencyRateSeries maps a currency to the fundamental series carrying
// its policy interest rate. Currencies outside this map simply get no
// interest-rate features.
var currencyRateSeries = map[string]string{
	"USD": "fed_funds_rate",
	"EUR": "ecb_deposit_rate",
	"GBP": "uk_rate",
	"JPY": "jp_rate",
	"CHF": "ch_rate",
	"TRY": "tr_rate",
	"MXN": "mx_rate",
	"INR": "in_rate",
}

// globalSeries are fundamentals that apply to every corridor.
var globalSeries = map[string]string{
	"vix":             features.SeriesVIX,
	"usd_index":       features.SeriesUSDIndex,
	"wti_crude":       features.SeriesWTICrude,
	"hy_spread":       features.SeriesHYSpread,
	"us_yield_spread": features.SeriesYieldSpread,
}

type datedValue struct {
	date  time.Time
	value float64
}

// steppedSeries forward-fills a sparse series onto arbitrary query
// dates: the last observation at or before the query date persists
// until a newer one arrives. No interpolation, no look-ahead.
type steppedSeries struct {
	points []datedValue
	cursor int
}

func newSteppedSeries(points []datedValue) *steppedSeries {
	sort.Slice(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })
	return &steppedSeries{points: points}
}

// valueAt must be called with non-decreasing dates.
func (s *steppedSeries) valueAt(date time.Time) (float64, bool) {
	for s.cursor < len(s.points) && !s.points[s.cursor].date.After(date) {
		s.cursor++
	}
	if s.cursor == 0 {
		return 0, false
	}
	return s.points[s.cursor-1].value, true
}

// Merge aligns one corridor's daily rates with the optional fundamental
// and positioning tables, forward-filling the lower-frequency series to
// the rate calendar. Missing sources leave the corridor rate-only.
func Merge(
	corridor domain.Corridor,
	rates []domain.RateObservation,
	fundamentals []domain.FundamentalObservation,
	positioning []domain.PositioningObservation,
) []domain.MergedRow {
	sorted := make([]domain.RateObservation, 0, len(rates))
	for _, r := range rates {
		if r.Rate > 0 && !r.Date.IsZero() {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	series := make(map[string]*steppedSeries)
	bySeries := make(map[string][]datedValue)
	for _, f := range fundamentals {
		bySeries[f.Series] = append(bySeries[f.Series], datedValue{date: f.Date, value: f.Value})
	}
	attach := func(key, sourceName string) {
		if points, ok := bySeries[sourceName]; ok && len(points) > 0 {
			series[key] = newSteppedSeries(points)
		}
	}
	if name, ok := currencyRateSeries[corridor.From]; ok {
		attach(features.SeriesIRFrom, name)
	}
	if name, ok := currencyRateSeries[corridor.To]; ok {
		attach(features.SeriesIRTo, name)
	}
	for name, key := range globalSeries {
		attach(key, name)
	}

	var cotFrom, cotTo []datedValue
	for _, p := range positioning {
		dv := datedValue{date: p.ReportDate, value: p.LevNet}
		switch p.Currency {
		case corridor.From:
			cotFrom = append(cotFrom, dv)
		case corridor.To:
			cotTo = append(cotTo, dv)
		}
	}
	if len(cotFrom) > 0 {
		series[features.SeriesCOTFromNet] = newSteppedSeries(cotFrom)
	}
	if len(cotTo) > 0 {
		series[features.SeriesCOTToNet] = newSteppedSeries(cotTo)
	}

	out := make([]domain.MergedRow, 0, len(sorted))
	for _, r := range sorted {
		row := domain.MergedRow{Date: r.Date, Rate: r.Rate}
		for key, s := range series {
			if v, ok := s.valueAt(r.Date); ok {
				if row.Extra == nil {
					row.Extra = make(map[string]float64, len(series))
				}
				row.Extra[key] = v
			}
		}
		out = append(out, row)
	}
	return out
}
