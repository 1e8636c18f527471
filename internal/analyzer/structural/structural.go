// Package structural implements the structural price-action analyzer
// group (trend structure, support/resistance tests, breakouts, time-based
// behavior): a representative sample grounded on swing-point reasoning
// shared with internal/analyzer/chart and on the session-timestamp
// handling in original_source/mt5/account_monitor.py.
package structural

import (
	"math"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/signal"
)

const minimumWindow = 20

// Analyzers returns the structural price-action analyzer group.
func Analyzers() []signal.Analyzer {
	return []signal.Analyzer{
		higherHighLow{},
		breakout{},
		supportResistanceTest{},
		timeOfDayBehavior{},
	}
}

func swingExtremes(candles []candle.Candle) (high, low float64) {
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// higherHighLow classifies market structure by comparing the first and
// second half of the window's swing highs and lows.
type higherHighLow struct{}

func (higherHighLow) ID() string         { return "structural.higher_high_low" }
func (higherHighLow) MinimumWindow() int { return minimumWindow }
func (higherHighLow) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	window := w.Candles[n-minimumWindow:]
	half := len(window) / 2
	highA, lowA := swingExtremes(window[:half])
	highB, lowB := swingExtremes(window[half:])

	switch {
	case highB > highA && lowB > lowA:
		sig := signal.New(signal.Structure, signal.Bullish, 62, "structural.higher_high_low")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "higher highs and higher lows"}
	case highB < highA && lowB < lowA:
		sig := signal.New(signal.Structure, signal.Bearish, 62, "structural.higher_high_low")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "lower highs and lower lows"}
	default:
		return signal.AnalysisOutput{}
	}
}

// breakout flags a close beyond the prior N-bar range, a continuation
// signal in the direction of the break.
type breakout struct{}

func (breakout) ID() string         { return "structural.breakout" }
func (breakout) MinimumWindow() int { return minimumWindow }
func (breakout) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	lookback := minimumWindow - 1
	if n <= lookback {
		return signal.AnalysisOutput{}
	}
	prior := w.Candles[n-1-lookback : n-1]
	high, low := swingExtremes(prior)
	last := w.Candles[n-1]
	switch {
	case last.Close > high:
		sig := signal.New(signal.Structure, signal.Bullish, 60, "structural.breakout")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "close breaks above the prior range"}
	case last.Close < low:
		sig := signal.New(signal.Structure, signal.Bearish, 60, "structural.breakout")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "close breaks below the prior range"}
	default:
		return signal.AnalysisOutput{}
	}
}

// supportResistanceTest flags a close that approaches but respects a
// recent swing level, a lower-confidence structural cue than a break.
type supportResistanceTest struct{}

func (supportResistanceTest) ID() string         { return "structural.support_resistance_test" }
func (supportResistanceTest) MinimumWindow() int { return minimumWindow }
func (supportResistanceTest) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	lookback := minimumWindow - 1
	if n <= lookback {
		return signal.AnalysisOutput{}
	}
	prior := w.Candles[n-1-lookback : n-1]
	high, low := swingExtremes(prior)
	last := w.Candles[n-1]
	if high == 0 {
		return signal.AnalysisOutput{}
	}
	switch {
	case math.Abs(last.High-high)/high < 0.002 && last.Close < high:
		sig := signal.New(signal.Structure, signal.Bearish, 48, "structural.support_resistance_test")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "resistance tested and held"}
	case math.Abs(last.Low-low)/low < 0.002 && last.Close > low:
		sig := signal.New(signal.Structure, signal.Bullish, 48, "structural.support_resistance_test")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "support tested and held"}
	default:
		return signal.AnalysisOutput{}
	}
}

// timeOfDayBehavior emits a SessionBehavior signal reflecting the
// historical volatility bias of the current hour-of-day bucket.
type timeOfDayBehavior struct{}

func (timeOfDayBehavior) ID() string         { return "structural.time_of_day_behavior" }
func (timeOfDayBehavior) MinimumWindow() int { return minimumWindow }
func (timeOfDayBehavior) Analyze(w candle.Window) signal.AnalysisOutput {
	if w.Len() == 0 {
		return signal.AnalysisOutput{}
	}
	hour := w.LastCandleTime().UTC().Hour()
	confidence := 45.0
	if hour >= 7 && hour < 11 {
		confidence = 70 // historically elevated volatility at the European open
	} else if hour >= 21 || hour < 2 {
		confidence = 35 // historically quiet rollover hours
	}
	sig := signal.New(signal.SessionBehavior, signal.Neutral, confidence, "structural.time_of_day_behavior")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "hour-of-day volatility bias"}
}
