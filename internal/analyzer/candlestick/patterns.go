package candlestick

import (
	"math"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/signal"
)

// minimumWindow covers the longest lookback any pattern's context
// derivation needs (ATR regime classification, support/resistance).
const minimumWindow = 35

func body(c candle.Candle) float64      { return math.Abs(c.Close - c.Open) }
func rangeOf(c candle.Candle) float64   { return c.High - c.Low }
func upperWick(c candle.Candle) float64 { return c.High - math.Max(c.Open, c.Close) }
func lowerWick(c candle.Candle) float64 { return math.Min(c.Open, c.Close) - c.Low }
func isBullish(c candle.Candle) bool    { return c.Close > c.Open }
func isBearish(c candle.Candle) bool    { return c.Close < c.Open }

// detector is satisfied by every single- or multi-candle pattern check; it
// reports whether the pattern holds at the tail of w, the signal's
// direction, and a raw (pre-context) confidence in [0,100].
type detector func(w candle.Window) (hit bool, direction signal.Direction, raw float64)

// patternAnalyzer adapts a detector function to signal.Analyzer, applying
// the shared PatternContext adjustment to whatever raw confidence the
// detector reports.
type patternAnalyzer struct {
	id     string
	detect detector
}

func (p patternAnalyzer) ID() string         { return p.id }
func (p patternAnalyzer) MinimumWindow() int { return minimumWindow }

func (p patternAnalyzer) Analyze(w candle.Window) signal.AnalysisOutput {
	hit, direction, raw := p.detect(w)
	if !hit {
		return signal.AnalysisOutput{}
	}
	ctx := deriveContext(w)
	confidence := adjust(raw, direction, ctx, w)
	sig := signal.New(signal.Candlestick, direction, confidence, p.id)
	return signal.AnalysisOutput{
		Signals:     []signal.Signal{sig},
		Explanation: p.id + " detected",
		Metadata: map[string]any{
			"trend_direction":   ctx.TrendDirection.String(),
			"volatility_regime": ctx.VolatilityRegime,
			"near_support":      ctx.NearSupport,
			"near_resistance":   ctx.NearResistance,
		},
	}
}

// Analyzers returns the representative set of named candlestick patterns
// matching the teacher's detector.go set, each producing a Candlestick
// signal through the shared PatternContext adjustment.
func Analyzers() []signal.Analyzer {
	return []signal.Analyzer{
		patternAnalyzer{id: "morning_star", detect: detectMorningStar},
		patternAnalyzer{id: "evening_star", detect: detectEveningStar},
		patternAnalyzer{id: "shooting_star", detect: detectShootingStar},
		patternAnalyzer{id: "hammer", detect: detectHammer},
		patternAnalyzer{id: "hanging_man", detect: detectHangingMan},
		patternAnalyzer{id: "bullish_engulfing", detect: detectBullishEngulfing},
		patternAnalyzer{id: "bearish_engulfing", detect: detectBearishEngulfing},
		patternAnalyzer{id: "doji", detect: detectDoji},
		patternAnalyzer{id: "dragonfly_doji", detect: detectDragonflyDoji},
		patternAnalyzer{id: "gravestone_doji", detect: detectGravestoneDoji},
		patternAnalyzer{id: "bullish_harami", detect: detectBullishHarami},
		patternAnalyzer{id: "bearish_harami", detect: detectBearishHarami},
	}
}

func last3(w candle.Window) (c1, c2, c3 candle.Candle, ok bool) {
	n := len(w.Candles)
	if n < 3 {
		return c1, c2, c3, false
	}
	return w.Candles[n-3], w.Candles[n-2], w.Candles[n-1], true
}

func last2(w candle.Window) (c1, c2 candle.Candle, ok bool) {
	n := len(w.Candles)
	if n < 2 {
		return c1, c2, false
	}
	return w.Candles[n-2], w.Candles[n-1], true
}

// detectMorningStar matches a long bearish candle, a small-bodied middle
// candle, then a long bullish candle closing above c1's midpoint.
func detectMorningStar(w candle.Window) (bool, signal.Direction, float64) {
	c1, c2, c3, ok := last3(w)
	if !ok || !isBearish(c1) || rangeOf(c1) == 0 || body(c1) < rangeOf(c1)*0.6 {
		return false, signal.Neutral, 0
	}
	if body(c2) > body(c1)*0.4 {
		return false, signal.Neutral, 0
	}
	if !isBullish(c3) || rangeOf(c3) == 0 || body(c3) < rangeOf(c3)*0.6 {
		return false, signal.Neutral, 0
	}
	midpoint := (c1.Open + c1.Close) / 2
	if c3.Close < midpoint {
		return false, signal.Neutral, 0
	}
	return true, signal.Bullish, 60
}

// detectEveningStar is the mirror image of the Morning Star.
func detectEveningStar(w candle.Window) (bool, signal.Direction, float64) {
	c1, c2, c3, ok := last3(w)
	if !ok || !isBullish(c1) || rangeOf(c1) == 0 || body(c1) < rangeOf(c1)*0.6 {
		return false, signal.Neutral, 0
	}
	if body(c2) > body(c1)*0.4 {
		return false, signal.Neutral, 0
	}
	if !isBearish(c3) || rangeOf(c3) == 0 || body(c3) < rangeOf(c3)*0.6 {
		return false, signal.Neutral, 0
	}
	midpoint := (c1.Open + c1.Close) / 2
	if c3.Close > midpoint {
		return false, signal.Neutral, 0
	}
	return true, signal.Bearish, 60
}

// detectShootingStar requires a long upper wick and a small lower wick,
// with the previous candle not bearish.
func detectShootingStar(w candle.Window) (bool, signal.Direction, float64) {
	c2, c, ok := last2(w)
	if !ok {
		return false, signal.Neutral, 0
	}
	b := body(c)
	if upperWick(c) < b*2 || lowerWick(c) > b*0.3 {
		return false, signal.Neutral, 0
	}
	if isBearish(c2) {
		return false, signal.Neutral, 0
	}
	return true, signal.Bearish, 58
}

// detectHammer requires a long lower wick and a small upper wick, with the
// previous candle not bullish.
func detectHammer(w candle.Window) (bool, signal.Direction, float64) {
	c2, c, ok := last2(w)
	if !ok {
		return false, signal.Neutral, 0
	}
	b := body(c)
	if lowerWick(c) < b*2 || upperWick(c) > b*0.3 {
		return false, signal.Neutral, 0
	}
	if isBullish(c2) {
		return false, signal.Neutral, 0
	}
	return true, signal.Bullish, 58
}

// detectHangingMan has the same geometry as the Hammer but requires the
// previous candle not to be bearish, making it a bearish reversal signal
// instead.
func detectHangingMan(w candle.Window) (bool, signal.Direction, float64) {
	c2, c, ok := last2(w)
	if !ok {
		return false, signal.Neutral, 0
	}
	b := body(c)
	if lowerWick(c) < b*2 || upperWick(c) > b*0.3 {
		return false, signal.Neutral, 0
	}
	if isBearish(c2) {
		return false, signal.Neutral, 0
	}
	return true, signal.Bearish, 55
}

// detectBullishEngulfing requires a bearish candle fully engulfed by the
// following bullish candle's body.
func detectBullishEngulfing(w candle.Window) (bool, signal.Direction, float64) {
	c1, c2, ok := last2(w)
	if !ok || !isBearish(c1) || !isBullish(c2) {
		return false, signal.Neutral, 0
	}
	if c2.Open > c1.Close || c2.Close < c1.Open {
		return false, signal.Neutral, 0
	}
	return true, signal.Bullish, 62
}

// detectBearishEngulfing is the mirror image of the Bullish Engulfing.
func detectBearishEngulfing(w candle.Window) (bool, signal.Direction, float64) {
	c1, c2, ok := last2(w)
	if !ok || !isBullish(c1) || !isBearish(c2) {
		return false, signal.Neutral, 0
	}
	if c2.Open < c1.Close || c2.Close > c1.Open {
		return false, signal.Neutral, 0
	}
	return true, signal.Bearish, 62
}

// detectDoji fires on a candle whose body is a small fraction of its
// range, signaling indecision rather than a directional move.
func detectDoji(w candle.Window) (bool, signal.Direction, float64) {
	n := len(w.Candles)
	if n == 0 {
		return false, signal.Neutral, 0
	}
	c := w.Candles[n-1]
	if rangeOf(c) == 0 || body(c) > rangeOf(c)*0.1 {
		return false, signal.Neutral, 0
	}
	return true, signal.Neutral, 45
}

// detectDragonflyDoji is a Doji with a long lower wick and no upper wick,
// a bullish reversal variant.
func detectDragonflyDoji(w candle.Window) (bool, signal.Direction, float64) {
	n := len(w.Candles)
	if n == 0 {
		return false, signal.Neutral, 0
	}
	c := w.Candles[n-1]
	if rangeOf(c) == 0 || body(c) > rangeOf(c)*0.1 {
		return false, signal.Neutral, 0
	}
	if upperWick(c) > rangeOf(c)*0.1 || lowerWick(c) < rangeOf(c)*0.6 {
		return false, signal.Neutral, 0
	}
	return true, signal.Bullish, 55
}

// detectGravestoneDoji is the mirror image of the Dragonfly Doji.
func detectGravestoneDoji(w candle.Window) (bool, signal.Direction, float64) {
	n := len(w.Candles)
	if n == 0 {
		return false, signal.Neutral, 0
	}
	c := w.Candles[n-1]
	if rangeOf(c) == 0 || body(c) > rangeOf(c)*0.1 {
		return false, signal.Neutral, 0
	}
	if lowerWick(c) > rangeOf(c)*0.1 || upperWick(c) < rangeOf(c)*0.6 {
		return false, signal.Neutral, 0
	}
	return true, signal.Bearish, 55
}

// detectBullishHarami requires a bearish candle followed by a small
// bullish candle fully contained within the first candle's body.
func detectBullishHarami(w candle.Window) (bool, signal.Direction, float64) {
	c1, c2, ok := last2(w)
	if !ok || !isBearish(c1) || !isBullish(c2) {
		return false, signal.Neutral, 0
	}
	if c2.Open <= c1.Close || c2.Close >= c1.Open {
		return false, signal.Neutral, 0
	}
	return true, signal.Bullish, 50
}

// detectBearishHarami is the mirror image of the Bullish Harami.
func detectBearishHarami(w candle.Window) (bool, signal.Direction, float64) {
	c1, c2, ok := last2(w)
	if !ok || !isBullish(c1) || !isBearish(c2) {
		return false, signal.Neutral, 0
	}
	if c2.Open >= c1.Close || c2.Close <= c1.Open {
		return false, signal.Neutral, 0
	}
	return true, signal.Bearish, 50
}
