package features

import (
	"math"
	"sort"
	"time"

	"sendsmart/internal/domain"
	"sendsmart/internal/ta"
)

const (
	featureSpecVersion = "v2"

	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	bbPeriod   = 20
	bbStdDevs  = 2.0

	rangeWindow   = 60
	longSMAWindow = 90
	cotZWindow    = 252
	fundZWindow   = 90
)

type Config struct {
	// LabelWindow is N: the forward window of trading days the label
	// compares today against.
	LabelWindow int
	// LabelTopK is K: today is a "send now" day when its rate ranks in
	// the top K of the next N days.
	LabelTopK int
}

func DefaultConfig() Config {
	return Config{LabelWindow: 10, LabelTopK: 3}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.LabelWindow <= 0 {
		cfg.LabelWindow = DefaultConfig().LabelWindow
	}
	if cfg.LabelTopK <= 0 || cfg.LabelTopK > cfg.LabelWindow {
		cfg.LabelTopK = DefaultConfig().LabelTopK
	}
	return &Engine{cfg: cfg}
}

func FeatureSpecVersion() string {
	return featureSpecVersion
}

func (e *Engine) LabelWindow() int {
	return e.cfg.LabelWindow
}

// WarmupRows is the number of leading rows consumed by the longest
// rolling window before the first feature row can be emitted.
func (e *Engine) WarmupRows() int {
	return longSMAWindow
}

// BuildRows engineers one corridor's merged daily history into feature
// rows. Rows are emitted once every price column is computable; the
// final LabelWindow rows carry a nil target because their forward
// window is incomplete (they remain usable for inference).
func (e *Engine) BuildRows(from, to string, history []domain.MergedRow) []domain.FeatureRow {
	rows := normalizeHistory(history)
	if len(rows) <= e.WarmupRows() {
		return nil
	}

	n := len(rows)
	rates := make([]float64, n)
	for i := range rows {
		rates[i] = rows[i].Rate
	}

	logRets := ta.LogReturns(rates)
	sma7 := ta.SMASeries(rates, 7)
	sma14 := ta.SMASeries(rates, 14)
	sma30 := ta.SMASeries(rates, 30)
	sma90 := ta.SMASeries(rates, longSMAWindow)
	ema14 := ta.EMASeries(rates, 14)
	vol7 := ta.RollingStd(logRets[1:], 7)
	vol14 := ta.RollingStd(logRets[1:], 14)
	vol30 := ta.RollingStd(logRets[1:], 30)
	rsi := ta.RSISeries(rates, rsiPeriod)
	macdLine, macdSig := ta.MACDSeries(rates, macdFast, macdSlow, macdSignal)
	bbMid, bbUpper, bbLower := ta.BollingerSeries(rates, bbPeriod, bbStdDevs)
	rollMin, rollMax := ta.RollingExtrema(rates, rangeWindow)

	extras := collectExtras(rows)

	out := make([]domain.FeatureRow, 0, n-e.WarmupRows())
	for i := e.WarmupRows(); i < n; i++ {
		values := make(map[string]float64, len(PriceColumns)+len(OptionalColumns))

		// Return features are lagged one day: the label is aligned to
		// today's rate, so today's own move stays out of the predictors.
		values["log_return_lag1"] = defaultNaN(laggedLogReturn(logRets, i), 0)
		values["ret_2d"] = defaultNaN(pctReturn(rates, i-1, 2), 0)
		values["ret_5d"] = defaultNaN(pctReturn(rates, i-1, 5), 0)
		values["ret_7d"] = defaultNaN(pctReturn(rates, i-1, 7), 0)
		values["momentum_21d"] = defaultNaN(pctReturn(rates, i-1, 21), 0)

		values["sma7_dist"] = smaDist(rates[i], sma7[i])
		values["sma14_dist"] = smaDist(rates[i], sma14[i])
		values["sma30_dist"] = smaDist(rates[i], sma30[i])
		values["sma90_dist"] = smaDist(rates[i], sma90[i])
		values["ema14_dist"] = smaDist(rates[i], ema14[i])

		v7 := volAt(vol7, i)
		v14 := volAt(vol14, i)
		v30 := volAt(vol30, i)
		values["vol7"] = v7
		values["vol14"] = v14
		values["vol30"] = v30
		values["vol_ratio"] = volRatio(v7, v30)

		rangePos := rangePosition(rates[i], rollMin[i], rollMax[i])
		values["range_pos_60"] = rangePos

		rsiNorm := 0.5
		if !math.IsNaN(rsi[i]) {
			rsiNorm = rsi[i] / 100
		}
		values["rsi14"] = rsiNorm

		macdNorm := 0.0
		macdSigNorm := 0.0
		if rates[i] > 0 {
			if !math.IsNaN(macdLine[i]) {
				macdNorm = macdLine[i] / rates[i]
			}
			if !math.IsNaN(macdSig[i]) {
				macdSigNorm = macdSig[i] / rates[i]
			}
		}
		values["macd_norm"] = macdNorm
		values["macd_signal_norm"] = macdSigNorm

		values["bb_width"] = bollingerWidth(bbUpper[i], bbLower[i], bbMid[i])
		values["bb_pos"] = bollingerPosition(rates[i], bbUpper[i], bbLower[i])

		addCalendar(values, rows[i].Date)

		values["signal_agreement"] = agreement(
			values["sma30_dist"] > 0,
			rsiNorm > 0.55,
			macdNorm > macdSigNorm,
			rangePos > 0.5,
		)

		e.addOptional(values, extras, rates, i)

		row := domain.FeatureRow{
			From:     from,
			To:       to,
			Date:     rows[i].Date,
			Rate:     rates[i],
			Values:   values,
			RangePos: rangePos,
			Weight:   sampleWeight(rangePos),
		}

		if label, ok := e.sendNowLabel(rates, i); ok {
			row.TargetSendNow = &label
		}
		if i+1 < n {
			r := rates[i+1]/rates[i] - 1
			row.FwdReturn1D = &r
		}
		if i+3 < n {
			r := rates[i+3]/rates[i] - 1
			row.FwdReturn3D = &r
		}

		out = append(out, row)
	}
	return out
}

// sendNowLabel reports whether today's rate ranks within the top K of
// the next LabelWindow trading days. Incomplete windows yield no label.
func (e *Engine) sendNowLabel(rates []float64, idx int) (bool, bool) {
	if idx+e.cfg.LabelWindow >= len(rates) {
		return false, false
	}
	window := make([]float64, e.cfg.LabelWindow)
	copy(window, rates[idx+1:idx+1+e.cfg.LabelWindow])
	sort.Sort(sort.Reverse(sort.Float64Slice(window)))
	threshold := window[e.cfg.LabelTopK-1]
	return rates[idx] >= threshold, true
}

// sampleWeight amplifies rows near the extremes of the 60-day range,
// where the percentile signal is least noisy. Midpoint rows weigh 1,
// extreme rows weigh 9.
func sampleWeight(rangePos float64) float64 {
	d := 2 * math.Abs(rangePos-0.5)
	return 1 + 8*d*d
}

func (e *Engine) addOptional(values map[string]float64, extras map[string][]float64, rates []float64, i int) {
	irFrom, okFrom := seriesAt(extras, SeriesIRFrom, i)
	irTo, okTo := seriesAt(extras, SeriesIRTo, i)
	if okFrom && okTo {
		diff := irFrom - irTo
		values["ir_diff"] = diff
		if prev, ok := seriesDiffAt(extras, SeriesIRFrom, SeriesIRTo, i-30); ok {
			values["ir_diff_chg30"] = diff - prev
		}
		if z, ok := seriesZ(extras, SeriesIRFrom, SeriesIRTo, i, fundZWindow); ok {
			values["ir_diff_z90"] = z
		}
	}

	if vix, ok := seriesAt(extras, SeriesVIX, i); ok {
		values["vix_level"] = vix
		if prev, ok := seriesAt(extras, SeriesVIX, i-5); ok {
			values["vix_chg5"] = vix - prev
		}
		if z, ok := singleSeriesZ(extras[SeriesVIX], i, fundZWindow); ok {
			values["vix_z90"] = z
		}
	}

	if usd, ok := seriesAt(extras, SeriesUSDIndex, i); ok {
		if prev, ok := seriesAt(extras, SeriesUSDIndex, i-5); ok && prev != 0 {
			values["usd_index_ret5"] = usd/prev - 1
		}
		if dist, ok := seriesSMADist(extras[SeriesUSDIndex], i, 30); ok {
			values["usd_index_sma30_dist"] = dist
		}
	}

	if slope, ok := seriesAt(extras, SeriesYieldSpread, i); ok {
		values["yield_spread"] = slope
	}

	if wti, ok := seriesAt(extras, SeriesWTICrude, i); ok {
		if prev, ok := seriesAt(extras, SeriesWTICrude, i-30); ok && prev != 0 {
			values["wti_ret30"] = wti/prev - 1
		}
	}

	if _, ok := seriesAt(extras, SeriesHYSpread, i); ok {
		if z, ok := singleSeriesZ(extras[SeriesHYSpread], i, fundZWindow); ok {
			values["hy_spread_z90"] = z
		}
	}

	addPositioning(values, extras, SeriesCOTFromNet, "cot_from_net_z252", "cot_from_net_chg5", i)
	addPositioning(values, extras, SeriesCOTToNet, "cot_to_net_z252", "cot_to_net_chg5", i)
}

func addPositioning(values map[string]float64, extras map[string][]float64, series, zCol, chgCol string, i int) {
	net, ok := seriesAt(extras, series, i)
	if !ok {
		return
	}
	if z, ok := singleSeriesZ(extras[series], i, cotZWindow); ok {
		values[zCol] = z
	}
	if prev, ok := seriesAt(extras, series, i-5); ok {
		values[chgCol] = net - prev
	}
}

func addCalendar(values map[string]float64, date time.Time) {
	dow := float64(date.Weekday())
	values["dow_sin"] = math.Sin(2 * math.Pi * dow / 7)
	values["dow_cos"] = math.Cos(2 * math.Pi * dow / 7)

	month := float64(date.Month() - 1)
	values["month_sin"] = math.Sin(2 * math.Pi * month / 12)
	values["month_cos"] = math.Cos(2 * math.Pi * month / 12)

	daysInMonth := float64(time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day())
	values["day_of_month"] = (float64(date.Day()) - 1) / (daysInMonth - 1)

	values["is_month_end"] = boolToFloat(date.Day() == int(daysInMonth))
	values["is_month_start"] = boolToFloat(date.Day() == 1)
}

func normalizeHistory(in []domain.MergedRow) []domain.MergedRow {
	out := make([]domain.MergedRow, 0, len(in))
	for _, r := range in {
		if r.Rate <= 0 || r.Date.IsZero() {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for i, r := range out {
		if i > 0 && sameDay(r.Date, dedup[len(dedup)-1].Date) {
			dedup[len(dedup)-1] = r
			continue
		}
		dedup = append(dedup, r)
	}
	return dedup
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// collectExtras aligns the merged optional series into index-parallel
// slices, NaN where a row lacks the series.
func collectExtras(rows []domain.MergedRow) map[string][]float64 {
	out := make(map[string][]float64)
	for i, r := range rows {
		for key, v := range r.Extra {
			s, ok := out[key]
			if !ok {
				s = make([]float64, len(rows))
				for j := range s {
					s[j] = math.NaN()
				}
				out[key] = s
			}
			s[i] = v
		}
	}
	return out
}

func pctReturn(values []float64, idx, lag int) float64 {
	if idx < 0 || idx-lag < 0 || idx >= len(values) {
		return math.NaN()
	}
	base := values[idx-lag]
	if base == 0 {
		return math.NaN()
	}
	return values[idx]/base - 1
}

func laggedLogReturn(logRets []float64, idx int) float64 {
	if idx-1 < 0 || idx-1 >= len(logRets) {
		return math.NaN()
	}
	return logRets[idx-1]
}

func smaDist(rate, sma float64) float64 {
	if math.IsNaN(sma) || sma == 0 {
		return 0
	}
	return rate/sma - 1
}

// volAt reads the rolling-std series, which is aligned to rates[1:].
func volAt(vol []float64, rateIdx int) float64 {
	i := rateIdx - 1
	if i < 0 || i >= len(vol) || math.IsNaN(vol[i]) {
		return 0
	}
	return vol[i]
}

func volRatio(short, long float64) float64 {
	if long == 0 {
		return 1
	}
	return short / long
}

func rangePosition(rate, lo, hi float64) float64 {
	if math.IsNaN(lo) || math.IsNaN(hi) || hi == lo {
		return 0.5
	}
	pos := (rate - lo) / (hi - lo)
	return clamp(pos, 0, 1)
}

func bollingerWidth(upper, lower, mid float64) float64 {
	if math.IsNaN(upper) || math.IsNaN(lower) || math.IsNaN(mid) || mid == 0 {
		return 0
	}
	return (upper - lower) / mid
}

// bollingerPosition is clipped to [-0.5, 1.5] so razor-thin bands do
// not blow the feature up.
func bollingerPosition(rate, upper, lower float64) float64 {
	if math.IsNaN(upper) || math.IsNaN(lower) || upper == lower {
		return 0.5
	}
	return clamp((rate-lower)/(upper-lower), -0.5, 1.5)
}

func agreement(votes ...bool) float64 {
	if len(votes) == 0 {
		return 0.5
	}
	n := 0
	for _, v := range votes {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(votes))
}

func seriesAt(extras map[string][]float64, key string, idx int) (float64, bool) {
	s, ok := extras[key]
	if !ok || idx < 0 || idx >= len(s) || math.IsNaN(s[idx]) {
		return 0, false
	}
	return s[idx], true
}

func seriesDiffAt(extras map[string][]float64, a, b string, idx int) (float64, bool) {
	va, okA := seriesAt(extras, a, idx)
	vb, okB := seriesAt(extras, b, idx)
	if !okA || !okB {
		return 0, false
	}
	return va - vb, true
}

func seriesZ(extras map[string][]float64, a, b string, idx, window int) (float64, bool) {
	sa, okA := extras[a]
	sb, okB := extras[b]
	if !okA || !okB || idx < window {
		return 0, false
	}
	diff := make([]float64, idx+1)
	for i := 0; i <= idx; i++ {
		if i >= len(sa) || i >= len(sb) {
			return 0, false
		}
		diff[i] = sa[i] - sb[i]
	}
	return singleSeriesZ(diff, idx, window)
}

func singleSeriesZ(series []float64, idx, window int) (float64, bool) {
	if series == nil || idx < window || idx >= len(series) {
		return 0, false
	}
	clean := series[idx-window : idx]
	for _, v := range clean {
		if math.IsNaN(v) {
			return 0, false
		}
	}
	if math.IsNaN(series[idx]) {
		return 0, false
	}
	mean, std := ta.MeanStd(clean)
	if std == 0 {
		return 0, true
	}
	return (series[idx] - mean) / std, true
}

func seriesSMADist(series []float64, idx, window int) (float64, bool) {
	if series == nil || idx+1 < window || idx >= len(series) {
		return 0, false
	}
	clean := series[idx-window+1 : idx+1]
	for _, v := range clean {
		if math.IsNaN(v) {
			return 0, false
		}
	}
	mean, _ := ta.MeanStd(clean)
	if mean == 0 {
		return 0, false
	}
	return series[idx]/mean - 1, true
}

func defaultNaN(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
