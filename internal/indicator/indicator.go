// Package indicator implements the pure technical-indicator primitives
// every analyzer builds on. Every function returns a vector the same length
// as its input, with a warm-up prefix of math.NaN() for positions where the
// indicator is not yet defined. No indicator here ever panics or errors:
// short input just yields an all-NaN vector.
package indicator

import "math"

func nanVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// SMA returns the simple moving average over period.
func SMA(values []float64, period int) []float64 {
	out := nanVector(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the standard recursive exponential moving average, seeded
// with an SMA of the first period values.
func EMA(values []float64, period int) []float64 {
	out := nanVector(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed
	prev := seed
	for i := period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// RSI returns the Relative Strength Index using Wilder smoothing.
func RSI(values []float64, period int) []float64 {
	out := nanVector(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}
	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACDResult carries the MACD line, its signal line (EMA(9) of the MACD
// line, not an approximation), and their difference (the histogram).
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes MACD(fast, slow, signal) with a true EMA-of-MACD-line
// signal, not the shortcut "macd*0.8" some implementations substitute.
func MACD(values []float64, fast, slow, signalPeriod int) MACDResult {
	n := len(values)
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	macdLine := nanVector(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macdLine[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// EMA of the MACD line must skip its own NaN prefix.
	firstValid := -1
	for i, v := range macdLine {
		if !math.IsNaN(v) {
			firstValid = i
			break
		}
	}
	signalLine := nanVector(n)
	histogram := nanVector(n)
	if firstValid >= 0 && n-firstValid >= signalPeriod {
		compact := macdLine[firstValid:]
		sig := EMA(compact, signalPeriod)
		for i, v := range sig {
			if !math.IsNaN(v) {
				signalLine[firstValid+i] = v
				histogram[firstValid+i] = macdLine[firstValid+i] - v
			}
		}
	}
	return MACDResult{MACD: macdLine, Signal: signalLine, Histogram: histogram}
}

// BollingerResult carries the upper, middle (SMA), and lower bands.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes Bollinger Bands(period, numStdDev) using population
// standard deviation over the trailing window.
func Bollinger(values []float64, period int, numStdDev float64) BollingerResult {
	n := len(values)
	middle := SMA(values, period)
	upper := nanVector(n)
	lower := nanVector(n)
	if period <= 0 {
		return BollingerResult{Upper: upper, Middle: middle, Lower: lower}
	}
	for i := period - 1; i < n; i++ {
		if math.IsNaN(middle[i]) {
			continue
		}
		var sumSq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - middle[i]
			sumSq += d * d
		}
		stdDev := math.Sqrt(sumSq / float64(period))
		upper[i] = middle[i] + numStdDev*stdDev
		lower[i] = middle[i] - numStdDev*stdDev
	}
	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}
}

// ATR computes the Average True Range using Wilder smoothing (not a simple
// moving average of true range, which understates volatility shocks).
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(highs)
	out := nanVector(n)
	if period <= 0 || n <= period {
		return out
	}
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prevATR := sum / float64(period)
	out[period] = prevATR
	for i := period + 1; i < n; i++ {
		prevATR = (prevATR*float64(period-1) + tr[i]) / float64(period)
		out[i] = prevATR
	}
	return out
}

// StochasticResult carries %K and %D (a true SMA of %K, not "%K*0.9").
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes the Stochastic Oscillator(kPeriod, kSmooth, dPeriod).
func Stochastic(highs, lows, closes []float64, kPeriod, kSmooth, dPeriod int) StochasticResult {
	n := len(closes)
	rawK := nanVector(n)
	if kPeriod > 0 {
		for i := kPeriod - 1; i < n; i++ {
			hh, ll := highs[i], lows[i]
			for j := i - kPeriod + 1; j <= i; j++ {
				if highs[j] > hh {
					hh = highs[j]
				}
				if lows[j] < ll {
					ll = lows[j]
				}
			}
			if hh == ll {
				rawK[i] = 50
			} else {
				rawK[i] = 100 * (closes[i] - ll) / (hh - ll)
			}
		}
	}
	k := smoothIgnoringNaN(rawK, kSmooth)
	d := smoothIgnoringNaN(k, dPeriod)
	return StochasticResult{K: k, D: d}
}

// smoothIgnoringNaN runs an SMA over the valid (non-NaN) suffix of values,
// preserving the original indices in the output.
func smoothIgnoringNaN(values []float64, period int) []float64 {
	n := len(values)
	out := nanVector(n)
	if period <= 1 {
		copy(out, values)
		return out
	}
	firstValid := -1
	for i, v := range values {
		if !math.IsNaN(v) {
			firstValid = i
			break
		}
	}
	if firstValid < 0 {
		return out
	}
	compact := values[firstValid:]
	sma := SMA(compact, period)
	for i, v := range sma {
		out[firstValid+i] = v
	}
	return out
}

// OBV computes On-Balance Volume, an unbounded running total seeded at 0.
func OBV(closes, volumes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = volumes[0]
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// ADXResult carries +DI, -DI, and ADX, all Wilder-smoothed per the classic
// Wilder(1978) definition -- not the ATR-ratio shortcut some ports use.
type ADXResult struct {
	PlusDI  []float64
	MinusDI []float64
	ADX     []float64
}

// ADX computes the Average Directional Index(period).
func ADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(highs)
	plusDI := nanVector(n)
	minusDI := nanVector(n)
	adx := nanVector(n)
	if period <= 0 || n <= period*2 {
		return ADXResult{PlusDI: plusDI, MinusDI: minusDI, ADX: adx}
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var trSum, plusSum, minusSum float64
	for i := 1; i <= period; i++ {
		trSum += tr[i]
		plusSum += plusDM[i]
		minusSum += minusDM[i]
	}

	dx := nanVector(n)
	setDI := func(i int) {
		if trSum == 0 {
			plusDI[i], minusDI[i] = 0, 0
			return
		}
		plusDI[i] = 100 * plusSum / trSum
		minusDI[i] = 100 * minusSum / trSum
		diSum := plusDI[i] + minusDI[i]
		if diSum > 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / diSum
		} else {
			dx[i] = 0
		}
	}
	setDI(period)

	for i := period + 1; i < n; i++ {
		trSum = trSum - trSum/float64(period) + tr[i]
		plusSum = plusSum - plusSum/float64(period) + plusDM[i]
		minusSum = minusSum - minusSum/float64(period) + minusDM[i]
		setDI(i)
	}

	// ADX is Wilder-smoothed DX, first value is the SMA of the first
	// `period` DX values, i.e. available at index period*2.
	start := period * 2
	if start >= n {
		return ADXResult{PlusDI: plusDI, MinusDI: minusDI, ADX: adx}
	}
	var dxSum float64
	for i := period; i < start; i++ {
		dxSum += dx[i]
	}
	prevADX := dxSum / float64(period)
	adx[start] = prevADX
	for i := start + 1; i < n; i++ {
		prevADX = (prevADX*float64(period-1) + dx[i]) / float64(period)
		adx[i] = prevADX
	}
	return ADXResult{PlusDI: plusDI, MinusDI: minusDI, ADX: adx}
}

// ROC computes the Rate of Change(period) as a percentage.
func ROC(values []float64, period int) []float64 {
	n := len(values)
	out := nanVector(n)
	if period <= 0 {
		return out
	}
	for i := period; i < n; i++ {
		if values[i-period] == 0 {
			continue
		}
		out[i] = 100 * (values[i] - values[i-period]) / values[i-period]
	}
	return out
}

// WilliamsR computes Williams %R(period), a range-inverted stochastic.
func WilliamsR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanVector(n)
	if period <= 0 || n < period {
		return out
	}
	for i := period - 1; i < n; i++ {
		hh, ll := highs[i], lows[i]
		for j := i - period + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh == ll {
			out[i] = -50
			continue
		}
		out[i] = -100 * (hh - closes[i]) / (hh - ll)
	}
	return out
}

// CCI computes the Commodity Channel Index(period) over the typical price.
func CCI(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanVector(n)
	if period <= 0 || n < period {
		return out
	}
	typical := make([]float64, n)
	for i := range typical {
		typical[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	smaTyp := SMA(typical, period)
	for i := period - 1; i < n; i++ {
		if math.IsNaN(smaTyp[i]) {
			continue
		}
		var meanDev float64
		for j := i - period + 1; j <= i; j++ {
			meanDev += math.Abs(typical[j] - smaTyp[i])
		}
		meanDev /= float64(period)
		if meanDev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (typical[i] - smaTyp[i]) / (0.015 * meanDev)
	}
	return out
}
