// Package chart implements the chart-pattern formation analyzer group
// (double top/bottom, ascending/descending triangles): a representative sample of
// multi-bar geometric formations, grounded on the swing-detection style of
// the teacher's internal/patterns/detector.go continuation patterns
// (AscendingTriangle/DescendingTriangle), extended to reversal formations.
package chart

import (
	"math"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/signal"
)

const minimumWindow = 30

// Analyzers returns the chart-pattern formation analyzer group.
func Analyzers() []signal.Analyzer {
	return []signal.Analyzer{
		doubleTop{},
		doubleBottom{},
		ascendingTriangle{},
		descendingTriangle{},
	}
}

func swingHighLow(candles []candle.Candle) (high, low float64) {
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

// doubleTop looks for two comparable swing highs separated by a pullback,
// the classic bearish reversal formation.
type doubleTop struct{}

func (doubleTop) ID() string         { return "chart.double_top" }
func (doubleTop) MinimumWindow() int { return minimumWindow }
func (doubleTop) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	window := w.Candles[n-minimumWindow:]
	peak1Idx, peak2Idx := localMax(window, 0, len(window)/2), localMax(window, len(window)/2, len(window))
	if peak1Idx < 0 || peak2Idx < 0 {
		return signal.AnalysisOutput{}
	}
	p1, p2 := window[peak1Idx].High, window[peak2Idx].High
	if p1 == 0 {
		return signal.AnalysisOutput{}
	}
	diffPct := math.Abs(p1-p2) / p1 * 100
	if diffPct > 0.3 {
		return signal.AnalysisOutput{}
	}
	troughIdx := localMinIdx(window, peak1Idx, peak2Idx)
	if troughIdx < 0 {
		return signal.AnalysisOutput{}
	}
	last := window[len(window)-1]
	if last.Close >= window[troughIdx].Low {
		return signal.AnalysisOutput{}
	}
	sig := signal.New(signal.Structure, signal.Bearish, 65, "chart.double_top")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "double top formation breaking the intervening trough"}
}

// doubleBottom is the mirror image of doubleTop.
type doubleBottom struct{}

func (doubleBottom) ID() string         { return "chart.double_bottom" }
func (doubleBottom) MinimumWindow() int { return minimumWindow }
func (doubleBottom) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	window := w.Candles[n-minimumWindow:]
	trough1Idx, trough2Idx := localMinIdx(window, 0, len(window)/2), localMinIdx(window, len(window)/2, len(window))
	if trough1Idx < 0 || trough2Idx < 0 {
		return signal.AnalysisOutput{}
	}
	t1, t2 := window[trough1Idx].Low, window[trough2Idx].Low
	if t1 == 0 {
		return signal.AnalysisOutput{}
	}
	diffPct := math.Abs(t1-t2) / t1 * 100
	if diffPct > 0.3 {
		return signal.AnalysisOutput{}
	}
	peakIdx := localMax(window, trough1Idx, trough2Idx)
	if peakIdx < 0 {
		return signal.AnalysisOutput{}
	}
	last := window[len(window)-1]
	if last.Close <= window[peakIdx].High {
		return signal.AnalysisOutput{}
	}
	sig := signal.New(signal.Structure, signal.Bullish, 65, "chart.double_bottom")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "double bottom formation breaking the intervening peak"}
}

// ascendingTriangle looks for a flat resistance ceiling with rising swing
// lows, a bullish continuation formation.
type ascendingTriangle struct{}

func (ascendingTriangle) ID() string         { return "chart.ascending_triangle" }
func (ascendingTriangle) MinimumWindow() int { return minimumWindow }
func (ascendingTriangle) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	window := w.Candles[n-minimumWindow:]
	high, _ := swingHighLow(window)
	if high == 0 {
		return signal.AnalysisOutput{}
	}
	ceilingTouches := 0
	for _, c := range window {
		if (high-c.High)/high < 0.002 {
			ceilingTouches++
		}
	}
	if ceilingTouches < 2 {
		return signal.AnalysisOutput{}
	}
	half := len(window) / 2
	_, lowA := swingHighLow(window[:half])
	_, lowB := swingHighLow(window[half:])
	if lowB <= lowA {
		return signal.AnalysisOutput{}
	}
	sig := signal.New(signal.Structure, signal.Bullish, 58, "chart.ascending_triangle")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "flat resistance with rising swing lows"}
}

// descendingTriangle is the mirror image of ascendingTriangle.
type descendingTriangle struct{}

func (descendingTriangle) ID() string         { return "chart.descending_triangle" }
func (descendingTriangle) MinimumWindow() int { return minimumWindow }
func (descendingTriangle) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	window := w.Candles[n-minimumWindow:]
	_, low := swingHighLow(window)
	if low == 0 {
		return signal.AnalysisOutput{}
	}
	floorTouches := 0
	for _, c := range window {
		if (c.Low-low)/low < 0.002 {
			floorTouches++
		}
	}
	if floorTouches < 2 {
		return signal.AnalysisOutput{}
	}
	half := len(window) / 2
	highA, _ := swingHighLow(window[:half])
	highB, _ := swingHighLow(window[half:])
	if highB >= highA {
		return signal.AnalysisOutput{}
	}
	sig := signal.New(signal.Structure, signal.Bearish, 58, "chart.descending_triangle")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "flat support with falling swing highs"}
}

func localMax(candles []candle.Candle, start, end int) int {
	if start >= end || end > len(candles) {
		return -1
	}
	best := -1
	bestVal := math.Inf(-1)
	for i := start; i < end; i++ {
		if candles[i].High > bestVal {
			bestVal = candles[i].High
			best = i
		}
	}
	return best
}

func localMinIdx(candles []candle.Candle, start, end int) int {
	if start >= end || end > len(candles) {
		return -1
	}
	best := -1
	bestVal := math.Inf(1)
	for i := start; i < end; i++ {
		if candles[i].Low < bestVal {
			bestVal = candles[i].Low
			best = i
		}
	}
	return best
}
