package forex

import (
	"testing"
	"time"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/signal"
)

func trendingWindow(n int, slopePerBar float64) candle.Window {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += slopePerBar
		candles[i] = candle.Candle{
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			Open:       price - slopePerBar,
			High:       price + 0.3,
			Low:        price - slopePerBar - 0.3,
			Close:      price,
			TickVolume: 1000,
		}
	}
	return candle.Window{Symbol: "EURUSD", Timeframe: candle.H1, Candles: candles}
}

func TestTrendEMADetectsUptrend(t *testing.T) {
	w := trendingWindow(80, 0.05)
	a := trendEMA{}
	if !signal.Sufficient(a, w) {
		t.Fatal("expected sufficient window")
	}
	out := a.Analyze(w)
	if len(out.Signals) != 1 || out.Signals[0].Direction != signal.Bullish {
		t.Fatalf("expected single bullish trend signal, got %+v", out.Signals)
	}
}

func TestRSIMomentumNeutralProducesNoSignal(t *testing.T) {
	w := trendingWindow(80, 0)
	out := rsiMomentum{}.Analyze(w)
	if len(out.Signals) != 0 {
		t.Fatalf("expected no signal on flat RSI, got %+v", out.Signals)
	}
}

func TestSessionOverlapHighDuringLondonNewYork(t *testing.T) {
	base := time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)
	w := candle.Window{Symbol: "EURUSD", Timeframe: candle.H1, Candles: []candle.Candle{{Timestamp: base, Close: 1.1}}}
	out := sessionOverlap{}.Analyze(w)
	if len(out.Signals) != 1 || out.Signals[0].Confidence < 80 {
		t.Fatalf("expected high-confidence overlap signal, got %+v", out.Signals)
	}
}

func TestAnalyzersGroupHasRepresentativeCoverage(t *testing.T) {
	analyzers := Analyzers()
	if len(analyzers) < 6 {
		t.Fatalf("expected at least 6 forex analyzers, got %d", len(analyzers))
	}
}
