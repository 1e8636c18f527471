package chart

import (
	"testing"
	"time"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/signal"
)

func baseWindow(n int) []candle.Candle {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 100.2, Low: 99.8, Close: 100,
		}
	}
	return candles
}

func TestDoubleTopDetectsBreakdown(t *testing.T) {
	candles := baseWindow(30)
	candles[5] = candle.Candle{Timestamp: candles[5].Timestamp, Open: 100, High: 105, Low: 99.5, Close: 101}
	candles[14] = candle.Candle{Timestamp: candles[14].Timestamp, Open: 100, High: 98, Low: 97, Close: 97.5}
	candles[20] = candle.Candle{Timestamp: candles[20].Timestamp, Open: 100, High: 105.02, Low: 99.5, Close: 101}
	candles[29] = candle.Candle{Timestamp: candles[29].Timestamp, Open: 99, High: 99.2, Low: 96.5, Close: 96.8}
	w := candle.Window{Symbol: "XAUUSD", Timeframe: candle.H1, Candles: candles}

	out := doubleTop{}.Analyze(w)
	if len(out.Signals) != 1 || out.Signals[0].Direction != signal.Bearish {
		t.Fatalf("expected bearish double top signal, got %+v", out.Signals)
	}
}

func TestAnalyzersGroupNonEmpty(t *testing.T) {
	if len(Analyzers()) < 3 {
		t.Fatal("expected at least 3 chart analyzers")
	}
}
