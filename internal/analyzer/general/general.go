// Package general implements the general-purpose analyzer group: a
// minimal, asset-class-agnostic subset applicable to indices, commodities,
// and crypto, grounded on the same internal/indicator primitives as the
// forex group but with shorter lookbacks per spec.md §4.2's minimum window
// of 20 for this group.
package general

import (
	"math"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/indicator"
	"marketanalysis/internal/signal"
)

const minimumWindow = 20

// Analyzers returns the general-purpose analyzer group.
func Analyzers() []signal.Analyzer {
	return []signal.Analyzer{
		smaTrend{},
		rocMomentum{},
		atrVolatility{},
		obvVolume{},
	}
}

// smaTrend compares price against a medium SMA to classify trend bias.
type smaTrend struct{}

func (smaTrend) ID() string         { return "general.sma_trend" }
func (smaTrend) MinimumWindow() int { return minimumWindow }
func (smaTrend) Analyze(w candle.Window) signal.AnalysisOutput {
	closes := w.Closes()
	sma := indicator.SMA(closes, 20)
	n := len(closes)
	if math.IsNaN(sma[n-1]) || sma[n-1] == 0 {
		return signal.AnalysisOutput{}
	}
	diffPct := (closes[n-1] - sma[n-1]) / sma[n-1] * 100
	direction := signal.Neutral
	if diffPct > 0.1 {
		direction = signal.Bullish
	} else if diffPct < -0.1 {
		direction = signal.Bearish
	} else {
		return signal.AnalysisOutput{}
	}
	confidence := 50 + math.Min(40, math.Abs(diffPct)*15)
	sig := signal.New(signal.Trend, direction, confidence, "general.sma_trend")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "price vs SMA(20) bias"}
}

// rocMomentum flags a sustained rate-of-change move.
type rocMomentum struct{}

func (rocMomentum) ID() string         { return "general.roc_momentum" }
func (rocMomentum) MinimumWindow() int { return minimumWindow }
func (rocMomentum) Analyze(w candle.Window) signal.AnalysisOutput {
	roc := indicator.ROC(w.Closes(), 10)
	n := len(roc)
	v := roc[n-1]
	if math.IsNaN(v) || math.Abs(v) < 1 {
		return signal.AnalysisOutput{}
	}
	direction := signal.Bullish
	if v < 0 {
		direction = signal.Bearish
	}
	confidence := 50 + math.Min(40, math.Abs(v)*5)
	sig := signal.New(signal.Momentum, direction, confidence, "general.roc_momentum")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "10-bar rate of change"}
}

// atrVolatility flags an expanding ATR relative to its own recent average.
type atrVolatility struct{}

func (atrVolatility) ID() string         { return "general.atr_volatility" }
func (atrVolatility) MinimumWindow() int { return minimumWindow }
func (atrVolatility) Analyze(w candle.Window) signal.AnalysisOutput {
	atr := indicator.ATR(w.Highs(), w.Lows(), w.Closes(), 7)
	n := len(atr)
	last := -1
	for i := n - 1; i >= 0; i-- {
		if !math.IsNaN(atr[i]) {
			last = i
			break
		}
	}
	if last < 7 {
		return signal.AnalysisOutput{}
	}
	var sum float64
	count := 0
	for i := last - 7; i < last; i++ {
		if !math.IsNaN(atr[i]) {
			sum += atr[i]
			count++
		}
	}
	if count == 0 || sum == 0 {
		return signal.AnalysisOutput{}
	}
	ratio := atr[last] / (sum / float64(count))
	if ratio < 1.3 {
		return signal.AnalysisOutput{}
	}
	confidence := 50 + math.Min(40, (ratio-1.3)*50)
	sig := signal.New(signal.Volatility, signal.Neutral, confidence, "general.atr_volatility")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "ATR(7) expansion vs its own average"}
}

// obvVolume flags a sustained slope in On-Balance Volume, a volume-led
// confirmation of the prevailing price move.
type obvVolume struct{}

func (obvVolume) ID() string         { return "general.obv_volume" }
func (obvVolume) MinimumWindow() int { return minimumWindow }
func (obvVolume) Analyze(w candle.Window) signal.AnalysisOutput {
	obv := indicator.OBV(w.Closes(), w.Volumes())
	n := len(obv)
	lookback := 10
	if n <= lookback {
		return signal.AnalysisOutput{}
	}
	delta := obv[n-1] - obv[n-1-lookback]
	var scale float64
	for _, v := range w.Volumes()[n-lookback:] {
		scale += v
	}
	if scale == 0 {
		return signal.AnalysisOutput{}
	}
	ratio := delta / scale
	if math.Abs(ratio) < 0.15 {
		return signal.AnalysisOutput{}
	}
	direction := signal.Bullish
	if ratio < 0 {
		direction = signal.Bearish
	}
	confidence := 50 + math.Min(40, math.Abs(ratio)*80)
	sig := signal.New(signal.Volume, direction, confidence, "general.obv_volume")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "OBV trend over the last 10 bars"}
}
