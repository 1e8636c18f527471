package candlestick

import (
	"testing"
	"time"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/signal"
)

func flatFiller(n int, base time.Time) []candle.Candle {
	out := make([]candle.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		out[i] = candle.Candle{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Open:       price,
			High:       price + 0.2,
			Low:        price - 0.2,
			Close:      price,
			TickVolume: 1000,
		}
	}
	return out
}

func TestBullishEngulfingDetected(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := flatFiller(33, base)
	candles = append(candles,
		candle.Candle{Timestamp: base.Add(33 * time.Minute), Open: 100, High: 100.1, Low: 98, Close: 98.5, TickVolume: 1500},
		candle.Candle{Timestamp: base.Add(34 * time.Minute), Open: 98.3, High: 101, Low: 98.2, Close: 100.8, TickVolume: 3000},
	)
	w := candle.Window{Symbol: "EURUSD", Timeframe: candle.M1, Candles: candles}

	a := patternAnalyzer{id: "bullish_engulfing", detect: detectBullishEngulfing}
	if !signal.Sufficient(a, w) {
		t.Fatal("expected window to be sufficient")
	}
	out := a.Analyze(w)
	if len(out.Signals) != 1 {
		t.Fatalf("expected one signal, got %d", len(out.Signals))
	}
	if out.Signals[0].Direction != signal.Bullish {
		t.Fatalf("expected bullish direction, got %v", out.Signals[0].Direction)
	}
	if out.Signals[0].Confidence <= 0 || out.Signals[0].Confidence > 100 {
		t.Fatalf("confidence out of bounds: %v", out.Signals[0].Confidence)
	}
}

func TestNoPatternProducesEmptyOutput(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := candle.Window{Symbol: "EURUSD", Timeframe: candle.M1, Candles: flatFiller(40, base)}

	a := patternAnalyzer{id: "bullish_engulfing", detect: detectBullishEngulfing}
	out := a.Analyze(w)
	if len(out.Signals) != 0 {
		t.Fatalf("expected no signals on flat candles, got %d", len(out.Signals))
	}
}

func TestFalsePositiveFilterDiscountsWideSpread(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := flatFiller(33, base)
	candles = append(candles,
		candle.Candle{Timestamp: base.Add(33 * time.Minute), Open: 100, High: 100.1, Low: 98, Close: 98.5, TickVolume: 1500},
		candle.Candle{Timestamp: base.Add(34 * time.Minute), Open: 98.3, High: 101, Low: 98.2, Close: 100.8, TickVolume: 3000, Spread: 5},
	)
	w := candle.Window{Symbol: "EURUSD", Timeframe: candle.M1, Candles: candles}
	widenedFactor := falsePositiveFactor(w)

	candles[len(candles)-1].Spread = 0
	tightFactor := falsePositiveFactor(candle.Window{Symbol: "EURUSD", Timeframe: candle.M1, Candles: candles})

	if widenedFactor >= tightFactor {
		t.Fatalf("expected wide-spread factor (%v) to discount more than tight-spread factor (%v)", widenedFactor, tightFactor)
	}
}

func TestAnalyzersReturnsFullSet(t *testing.T) {
	analyzers := Analyzers()
	if len(analyzers) < 10 {
		t.Fatalf("expected at least 10 candlestick patterns, got %d", len(analyzers))
	}
	seen := make(map[string]bool)
	for _, a := range analyzers {
		if seen[a.ID()] {
			t.Fatalf("duplicate analyzer id %q", a.ID())
		}
		seen[a.ID()] = true
	}
}
