package ta

import "math"

func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func SMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	for i := range values {
		sum += values[i]
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if period <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSISeries uses Wilder smoothing over a fixed period. Output is the
// conventional 0..100 scale; a loss-free rising series reports 100 and
// a fully flat one 50.
func RSISeries(closes []float64, period int) []float64 {
	series := nanSeries(len(closes))
	if len(closes) <= period {
		return series
	}

	var gainSum float64
	var lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func MACDSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	if len(values) == 0 {
		return nil, nil
	}
	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := EMASeries(macdLine, signal)
	return macdLine, signalLine
}

func BollingerSeries(values []float64, period int, stdDevs float64) ([]float64, []float64, []float64) {
	middle := nanSeries(len(values))
	upper := nanSeries(len(values))
	lower := nanSeries(len(values))
	if period <= 0 {
		return middle, upper, lower
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean, std := MeanStd(window)
		middle[i] = mean
		upper[i] = mean + stdDevs*std
		lower[i] = mean - stdDevs*std
	}
	return middle, upper, lower
}

// RollingExtrema returns trailing min and max series over the window
// ending at each index (inclusive).
func RollingExtrema(values []float64, window int) ([]float64, []float64) {
	mins := nanSeries(len(values))
	maxs := nanSeries(len(values))
	if window <= 0 {
		return mins, maxs
	}
	for i := window - 1; i < len(values); i++ {
		lo := values[i]
		hi := values[i]
		for j := i - window + 1; j <= i; j++ {
			if values[j] < lo {
				lo = values[j]
			}
			if values[j] > hi {
				hi = values[j]
			}
		}
		mins[i] = lo
		maxs[i] = hi
	}
	return mins, maxs
}

// LogReturns returns ln(v[i]/v[i-1]) with NaN at index 0 and wherever a
// base value is non-positive.
func LogReturns(values []float64) []float64 {
	out := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 && values[i] > 0 {
			out[i] = math.Log(values[i] / values[i-1])
		}
	}
	return out
}

// RollingStd is the trailing standard deviation of the window ending at
// each index.
func RollingStd(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 1 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		clean := values[i-window+1 : i+1]
		if anyNaNIn(clean) {
			continue
		}
		_, std := MeanStd(clean)
		out[i] = std
	}
	return out
}

// RollingZ is the z-score of the value at each index against its own
// trailing window (the window excludes the current value). Zero-variance
// windows resolve to 0.
func RollingZ(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 0 {
		return out
	}
	for i := window; i < len(values); i++ {
		clean := values[i-window : i]
		if anyNaNIn(clean) || math.IsNaN(values[i]) {
			continue
		}
		mean, std := MeanStd(clean)
		if std == 0 {
			out[i] = 0
			continue
		}
		out[i] = (values[i] - mean) / std
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func anyNaNIn(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
