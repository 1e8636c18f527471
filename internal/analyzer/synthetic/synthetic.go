// Package synthetic implements the synthetic-index analyzer group
// (Volatility/Boom-Crash/Jump/Step indices): volatility regime
// classification and the characteristic spike/step shapes these
// synthetic instruments exhibit, grounded on the category semantics in
// internal/catalog and the ATR/ROC primitives in internal/indicator.
package synthetic

import (
	"math"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/indicator"
	"marketanalysis/internal/signal"
)

const minimumWindow = 20

// Analyzers returns the synthetic-index analyzer group.
func Analyzers() []signal.Analyzer {
	return []signal.Analyzer{
		volatilityRegime{},
		boomCrashSpike{},
		jumpStep{},
		rangeCompression{},
	}
}

// volatilityRegime classifies the current ATR against its trailing average
// into a SyntheticVolatility signal -- synthetic indices are defined by
// their fixed volatility parameter, so deviations from it are meaningful.
type volatilityRegime struct{}

func (volatilityRegime) ID() string         { return "synthetic.volatility_regime" }
func (volatilityRegime) MinimumWindow() int { return minimumWindow }
func (volatilityRegime) Analyze(w candle.Window) signal.AnalysisOutput {
	atr := indicator.ATR(w.Highs(), w.Lows(), w.Closes(), 10)
	n := len(atr)
	last := -1
	for i := n - 1; i >= 0; i-- {
		if !math.IsNaN(atr[i]) {
			last = i
			break
		}
	}
	if last < 10 {
		return signal.AnalysisOutput{}
	}
	var sum float64
	count := 0
	for i := last - 10; i < last; i++ {
		if !math.IsNaN(atr[i]) {
			sum += atr[i]
			count++
		}
	}
	if count == 0 || sum == 0 {
		return signal.AnalysisOutput{}
	}
	avg := sum / float64(count)
	ratio := atr[last] / avg
	if ratio < 1.4 && ratio > 0.6 {
		return signal.AnalysisOutput{}
	}
	confidence := 50 + math.Min(45, math.Abs(ratio-1)*60)
	sig := signal.New(signal.SyntheticVolatility, signal.Neutral, confidence, "synthetic.volatility_regime")
	explanation := "volatility regime expansion"
	if ratio < 1 {
		explanation = "volatility regime contraction"
	}
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: explanation}
}

// boomCrashSpike flags the single-direction spike characteristic of
// Boom/Crash synthetic indices: one bar moving several multiples of the
// recent average bar range.
type boomCrashSpike struct{}

func (boomCrashSpike) ID() string         { return "synthetic.boom_crash_spike" }
func (boomCrashSpike) MinimumWindow() int { return minimumWindow }
func (boomCrashSpike) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	lookback := 15
	if n <= lookback {
		return signal.AnalysisOutput{}
	}
	var avgRange float64
	for _, c := range w.Candles[n-1-lookback : n-1] {
		avgRange += c.High - c.Low
	}
	avgRange /= float64(lookback)
	if avgRange == 0 {
		return signal.AnalysisOutput{}
	}
	last := w.Candles[n-1]
	spikeRange := last.High - last.Low
	if spikeRange < avgRange*4 {
		return signal.AnalysisOutput{}
	}
	direction := signal.Bullish
	if last.Close < last.Open {
		direction = signal.Bearish
	}
	confidence := 60 + math.Min(35, (spikeRange/avgRange-4)*5)
	sig := signal.New(signal.SyntheticRegime, direction, confidence, "synthetic.boom_crash_spike")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "single-bar spike consistent with a boom/crash print"}
}

// jumpStep flags the discrete, stairstep price jumps characteristic of
// Jump/Step synthetic indices: a close displaced from the prior close by
// a large, near-constant increment relative to recent moves.
type jumpStep struct{}

func (jumpStep) ID() string         { return "synthetic.jump_step" }
func (jumpStep) MinimumWindow() int { return minimumWindow }
func (jumpStep) Analyze(w candle.Window) signal.AnalysisOutput {
	roc := indicator.ROC(w.Closes(), 1)
	n := len(roc)
	if n < 10 || math.IsNaN(roc[n-1]) {
		return signal.AnalysisOutput{}
	}
	var sum float64
	count := 0
	for i := n - 10; i < n-1; i++ {
		if !math.IsNaN(roc[i]) {
			sum += math.Abs(roc[i])
			count++
		}
	}
	if count == 0 {
		return signal.AnalysisOutput{}
	}
	avgMove := sum / float64(count)
	if avgMove == 0 || math.Abs(roc[n-1]) < avgMove*3 {
		return signal.AnalysisOutput{}
	}
	direction := signal.Bullish
	if roc[n-1] < 0 {
		direction = signal.Bearish
	}
	confidence := 55 + math.Min(40, (math.Abs(roc[n-1])/avgMove-3)*8)
	sig := signal.New(signal.SyntheticRegime, direction, confidence, "synthetic.jump_step")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "discrete price jump consistent with a jump/step index tick"}
}

// rangeCompression flags unusually tight recent ranges, the setup phase
// synthetic range instruments exhibit before mean-reverting.
type rangeCompression struct{}

func (rangeCompression) ID() string         { return "synthetic.range_compression" }
func (rangeCompression) MinimumWindow() int { return minimumWindow }
func (rangeCompression) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	lookback := 20
	if n <= lookback {
		return signal.AnalysisOutput{}
	}
	recent := w.Candles[n-lookback:]
	high, low := recent[0].High, recent[0].Low
	for _, c := range recent {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	mid := (high + low) / 2
	if mid == 0 {
		return signal.AnalysisOutput{}
	}
	widthPct := (high - low) / mid * 100
	if widthPct > 0.5 {
		return signal.AnalysisOutput{}
	}
	confidence := 50 + math.Min(35, (0.5-widthPct)*60)
	sig := signal.New(signal.SyntheticVolatility, signal.Neutral, confidence, "synthetic.range_compression")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "price compressed into a tight range"}
}
