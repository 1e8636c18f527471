package indicator

import (
	"math"
	"testing"
)

func closesUp(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func TestSMALength(t *testing.T) {
	vals := closesUp(10, 1)
	got := SMA(vals, 3)
	if len(got) != len(vals) {
		t.Fatalf("SMA length mismatch: got %d want %d", len(got), len(vals))
	}
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatal("expected NaN warm-up prefix")
	}
	if got[2] != 2 { // mean(1,2,3)
		t.Fatalf("expected SMA(3)[2]=2, got %v", got[2])
	}
}

func TestSMAShortInput(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	for _, v := range got {
		if !math.IsNaN(v) {
			t.Fatal("expected all-NaN vector when n < period")
		}
	}
}

func TestEMASeedsWithSMA(t *testing.T) {
	vals := closesUp(10, 1)
	got := EMA(vals, 3)
	if got[2] != 2 {
		t.Fatalf("expected EMA seed to equal SMA(3), got %v", got[2])
	}
}

func TestRSIMonotonicUptrend(t *testing.T) {
	vals := closesUp(30, 1)
	got := RSI(vals, 14)
	if got[29] < 90 {
		t.Fatalf("expected RSI near 100 for a pure uptrend, got %v", got[29])
	}
}

func TestMACDSignalIsRealEMA(t *testing.T) {
	vals := closesUp(60, 1)
	res := MACD(vals, 12, 26, 9)
	if len(res.MACD) != len(vals) || len(res.Signal) != len(vals) {
		t.Fatal("MACD result length mismatch")
	}
	last := len(vals) - 1
	if math.IsNaN(res.Signal[last]) {
		t.Fatal("expected a defined signal value by the end of the series")
	}
	// Signal line must not equal macd*0.8 (the known bad shortcut).
	if res.Signal[last] == res.MACD[last]*0.8 {
		t.Fatal("signal line looks like the macd*0.8 shortcut, not a real EMA")
	}
}

func TestStochasticDIsSMAOfK(t *testing.T) {
	vals := closesUp(40, 1)
	res := Stochastic(vals, vals, vals, 14, 3, 3)
	last := len(vals) - 1
	if math.IsNaN(res.D[last]) {
		t.Fatal("expected a defined %D by the end of the series")
	}
}

func TestATRNonNegative(t *testing.T) {
	highs := closesUp(30, 10)
	lows := closesUp(30, 8)
	closes := closesUp(30, 9)
	got := ATR(highs, lows, closes, 14)
	for _, v := range got {
		if !math.IsNaN(v) && v < 0 {
			t.Fatalf("ATR must never be negative, got %v", v)
		}
	}
}

func TestADXBounded(t *testing.T) {
	highs := closesUp(60, 10)
	lows := closesUp(60, 8)
	closes := closesUp(60, 9)
	res := ADX(highs, lows, closes, 14)
	for _, v := range res.ADX {
		if !math.IsNaN(v) && (v < 0 || v > 100) {
			t.Fatalf("ADX must be within [0,100], got %v", v)
		}
	}
}

func TestOBVLength(t *testing.T) {
	closes := []float64{1, 2, 1, 1, 3}
	vols := []float64{10, 10, 10, 10, 10}
	got := OBV(closes, vols)
	if len(got) != len(closes) {
		t.Fatal("OBV length mismatch")
	}
	if got[1] != 20 || got[2] != 10 {
		t.Fatalf("unexpected OBV values: %v", got)
	}
}

func TestWilliamsRRange(t *testing.T) {
	highs := closesUp(20, 10)
	lows := closesUp(20, 8)
	closes := closesUp(20, 9)
	got := WilliamsR(highs, lows, closes, 14)
	for _, v := range got {
		if !math.IsNaN(v) && (v > 0 || v < -100) {
			t.Fatalf("Williams %%R must be within [-100,0], got %v", v)
		}
	}
}
