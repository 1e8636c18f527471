package structural

import (
	"testing"
	"time"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/signal"
)

func stepUp(n int) candle.Window {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.5
		candles[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price - 0.5, High: price + 0.2, Low: price - 0.7, Close: price,
		}
	}
	return candle.Window{Symbol: "US30", Timeframe: candle.H1, Candles: candles}
}

func TestHigherHighLowDetectsUptrendStructure(t *testing.T) {
	w := stepUp(24)
	out := higherHighLow{}.Analyze(w)
	if len(out.Signals) != 1 || out.Signals[0].Direction != signal.Bullish {
		t.Fatalf("expected bullish structure signal, got %+v", out.Signals)
	}
}

func TestBreakoutDetectsCloseAboveRange(t *testing.T) {
	w := stepUp(24)
	out := breakout{}.Analyze(w)
	if len(out.Signals) != 1 || out.Signals[0].Direction != signal.Bullish {
		t.Fatalf("expected bullish breakout signal, got %+v", out.Signals)
	}
}

func TestAnalyzersGroupNonEmpty(t *testing.T) {
	if len(Analyzers()) < 3 {
		t.Fatal("expected at least 3 structural analyzers")
	}
}
