// Package forex implements the forex-oriented analyzer group: a
// representative sample covering every category spec.md §4.2 lists for
// this group (Trend/Momentum/Volatility/Volume/Sessions/Liquidity/
// OrderBlocks/FairValueGaps), grounded on the indicator primitives in
// internal/indicator and on the session-window reasoning in
// original_source/mt5/account_monitor.py's trading-session handling.
package forex

import (
	"math"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/indicator"
	"marketanalysis/internal/signal"
)

const minimumWindow = 50

// Analyzers returns the forex-oriented analyzer group.
func Analyzers() []signal.Analyzer {
	return []signal.Analyzer{
		trendEMA{},
		rsiMomentum{},
		bollingerVolatility{},
		volumeSpike{},
		sessionOverlap{},
		liquiditySweep{},
		orderBlock{},
		fairValueGap{},
	}
}

// trendEMA compares a fast and slow EMA to classify the prevailing trend.
type trendEMA struct{}

func (trendEMA) ID() string         { return "forex.trend_ema" }
func (trendEMA) MinimumWindow() int { return minimumWindow }
func (trendEMA) Analyze(w candle.Window) signal.AnalysisOutput {
	closes := w.Closes()
	fast := indicator.EMA(closes, 20)
	slow := indicator.EMA(closes, 50)
	n := len(closes)
	f, s := fast[n-1], slow[n-1]
	if math.IsNaN(f) || math.IsNaN(s) {
		return signal.AnalysisOutput{}
	}
	spreadPct := 0.0
	if s != 0 {
		spreadPct = (f - s) / s * 100
	}
	direction := signal.Neutral
	if f > s {
		direction = signal.Bullish
	} else if f < s {
		direction = signal.Bearish
	}
	confidence := 50 + math.Min(40, math.Abs(spreadPct)*20)
	sig := signal.New(signal.Trend, direction, confidence, "forex.trend_ema")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "EMA20/EMA50 crossover state"}
}

// rsiMomentum flags overbought/oversold momentum extremes.
type rsiMomentum struct{}

func (rsiMomentum) ID() string         { return "forex.rsi_momentum" }
func (rsiMomentum) MinimumWindow() int { return minimumWindow }
func (rsiMomentum) Analyze(w candle.Window) signal.AnalysisOutput {
	rsi := indicator.RSI(w.Closes(), 14)
	v := rsi[len(rsi)-1]
	if math.IsNaN(v) {
		return signal.AnalysisOutput{}
	}
	var direction signal.Direction
	var confidence float64
	switch {
	case v >= 70:
		direction, confidence = signal.Bearish, 50+math.Min(40, (v-70)*2)
	case v <= 30:
		direction, confidence = signal.Bullish, 50+math.Min(40, (30-v)*2)
	default:
		return signal.AnalysisOutput{}
	}
	sig := signal.New(signal.Momentum, direction, confidence, "forex.rsi_momentum")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "RSI(14) extreme"}
}

// bollingerVolatility flags a squeeze (low volatility, breakout setup) or
// a band-walk (sustained high-volatility trend).
type bollingerVolatility struct{}

func (bollingerVolatility) ID() string         { return "forex.bollinger_volatility" }
func (bollingerVolatility) MinimumWindow() int { return minimumWindow }
func (bollingerVolatility) Analyze(w candle.Window) signal.AnalysisOutput {
	closes := w.Closes()
	bb := indicator.Bollinger(closes, 20, 2)
	n := len(closes)
	upper, middle, lower, price := bb.Upper[n-1], bb.Middle[n-1], bb.Lower[n-1], closes[n-1]
	if math.IsNaN(upper) || math.IsNaN(lower) || middle == 0 {
		return signal.AnalysisOutput{}
	}
	width := (upper - lower) / middle
	direction := signal.Neutral
	if price >= upper {
		direction = signal.Bearish
	} else if price <= lower {
		direction = signal.Bullish
	}
	if direction == signal.Neutral {
		return signal.AnalysisOutput{}
	}
	confidence := 55 + math.Min(35, width*500)
	sig := signal.New(signal.Volatility, direction, confidence, "forex.bollinger_volatility")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "price at Bollinger band extreme"}
}

// volumeSpike flags tick-volume bursts relative to the trailing average.
type volumeSpike struct{}

func (volumeSpike) ID() string         { return "forex.volume_spike" }
func (volumeSpike) MinimumWindow() int { return minimumWindow }
func (volumeSpike) Analyze(w candle.Window) signal.AnalysisOutput {
	vols := w.Volumes()
	n := len(vols)
	lookback := 20
	if n <= lookback {
		return signal.AnalysisOutput{}
	}
	var avg float64
	for _, v := range vols[n-1-lookback : n-1] {
		avg += v
	}
	avg /= float64(lookback)
	if avg == 0 {
		return signal.AnalysisOutput{}
	}
	ratio := vols[n-1] / avg
	if ratio < 1.8 {
		return signal.AnalysisOutput{}
	}
	last := w.Candles[n-1]
	direction := signal.Neutral
	if last.Close > last.Open {
		direction = signal.Bullish
	} else if last.Close < last.Open {
		direction = signal.Bearish
	}
	confidence := 50 + math.Min(45, (ratio-1.8)*20)
	sig := signal.New(signal.Volume, direction, confidence, "forex.volume_spike")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "tick volume spike vs 20-bar average"}
}

// sessionOverlap classifies the current candle's timestamp into a trading
// session and emits higher confidence during the London/New York overlap,
// the historically most liquid window.
type sessionOverlap struct{}

func (sessionOverlap) ID() string         { return "forex.session_overlap" }
func (sessionOverlap) MinimumWindow() int { return minimumWindow }
func (sessionOverlap) Analyze(w candle.Window) signal.AnalysisOutput {
	if w.Len() == 0 {
		return signal.AnalysisOutput{}
	}
	hour := w.LastCandleTime().UTC().Hour()
	confidence := 40.0
	switch {
	case hour >= 13 && hour < 16:
		confidence = 85 // London/New York overlap
	case hour >= 8 && hour < 13:
		confidence = 65 // London session
	case hour >= 13 && hour < 21:
		confidence = 60 // New York session
	case hour >= 0 && hour < 8:
		confidence = 50 // Tokyo/Sydney session
	}
	sig := signal.New(signal.Sessions, signal.Neutral, confidence, "forex.session_overlap")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "trading-session liquidity estimate"}
}

// liquiditySweep flags a candle that pierces a recent swing level and
// closes back inside it -- a classic stop-hunt/liquidity-grab shape.
type liquiditySweep struct{}

func (liquiditySweep) ID() string         { return "forex.liquidity_sweep" }
func (liquiditySweep) MinimumWindow() int { return minimumWindow }
func (liquiditySweep) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	lookback := 20
	if n <= lookback+1 {
		return signal.AnalysisOutput{}
	}
	last := w.Candles[n-1]
	prior := w.Candles[n-1-lookback : n-1]
	swingHigh, swingLow := prior[0].High, prior[0].Low
	for _, c := range prior {
		if c.High > swingHigh {
			swingHigh = c.High
		}
		if c.Low < swingLow {
			swingLow = c.Low
		}
	}
	switch {
	case last.High > swingHigh && last.Close < swingHigh:
		sig := signal.New(signal.Liquidity, signal.Bearish, 68, "forex.liquidity_sweep")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "swept resistance then rejected"}
	case last.Low < swingLow && last.Close > swingLow:
		sig := signal.New(signal.Liquidity, signal.Bullish, 68, "forex.liquidity_sweep")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "swept support then rejected"}
	default:
		return signal.AnalysisOutput{}
	}
}

// orderBlock flags the last strong displacement candle before a reversal
// as a candidate institutional order block.
type orderBlock struct{}

func (orderBlock) ID() string         { return "forex.order_block" }
func (orderBlock) MinimumWindow() int { return minimumWindow }
func (orderBlock) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	if n < 3 {
		return signal.AnalysisOutput{}
	}
	base, displacement := w.Candles[n-2], w.Candles[n-1]
	baseRange := base.High - base.Low
	dispRange := displacement.High - displacement.Low
	if baseRange <= 0 || dispRange < baseRange*2 {
		return signal.AnalysisOutput{}
	}
	direction := signal.Neutral
	if displacement.Close > displacement.Open && base.Close < base.Open {
		direction = signal.Bullish
	} else if displacement.Close < displacement.Open && base.Close > base.Open {
		direction = signal.Bearish
	}
	if direction == signal.Neutral {
		return signal.AnalysisOutput{}
	}
	sig := signal.New(signal.OrderBlocks, direction, 60, "forex.order_block")
	return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "displacement candle marks an order block"}
}

// fairValueGap flags a three-candle imbalance: candle 1's high/low doesn't
// overlap candle 3's low/high, leaving an unfilled gap.
type fairValueGap struct{}

func (fairValueGap) ID() string         { return "forex.fair_value_gap" }
func (fairValueGap) MinimumWindow() int { return minimumWindow }
func (fairValueGap) Analyze(w candle.Window) signal.AnalysisOutput {
	n := len(w.Candles)
	if n < 3 {
		return signal.AnalysisOutput{}
	}
	c1, _, c3 := w.Candles[n-3], w.Candles[n-2], w.Candles[n-1]
	switch {
	case c3.Low > c1.High:
		gapPct := (c3.Low - c1.High) / c1.High * 100
		sig := signal.New(signal.FairValueGaps, signal.Bullish, 50+math.Min(40, gapPct*50), "forex.fair_value_gap")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "bullish fair value gap left unfilled"}
	case c3.High < c1.Low:
		gapPct := (c1.Low - c3.High) / c1.Low * 100
		sig := signal.New(signal.FairValueGaps, signal.Bearish, 50+math.Min(40, gapPct*50), "forex.fair_value_gap")
		return signal.AnalysisOutput{Signals: []signal.Signal{sig}, Explanation: "bearish fair value gap left unfilled"}
	default:
		return signal.AnalysisOutput{}
	}
}
