package confluence

import (
	"testing"

	"marketanalysis/internal/signal"
)

func sig(cat signal.Category, dir signal.Direction, confidence float64, source string) signal.Signal {
	return signal.Signal{Category: cat, Direction: dir, Confidence: confidence, Weight: 1, Source: source}
}

// E1: single strong bullish confluence.
func TestE1StrongBullishConfluence(t *testing.T) {
	signals := []signal.Signal{
		sig(signal.Structure, signal.Bullish, 90, "hh_hl"),
		sig(signal.Trend, signal.Bullish, 80, "ema_trend"),
		sig(signal.Momentum, signal.Bullish, 75, "rsi"),
		sig(signal.OrderBlocks, signal.Bullish, 85, "bullish_ob"),
	}
	r := Calculate(signals, 40)
	if r.MarketBiasLabel != "Strong Bullish" {
		t.Fatalf("expected Strong Bullish, got %s", r.MarketBiasLabel)
	}
	if r.BullishScore <= r.BearishScore+25 {
		t.Fatalf("expected bullish to lead bearish by >25, got bullish=%v bearish=%v", r.BullishScore, r.BearishScore)
	}
	if r.ConfidencePercentage < 40 {
		t.Fatalf("expected confidence >= 40, got %v", r.ConfidencePercentage)
	}
	if len(r.TopFactors) == 0 || r.TopFactors[0].Signal.Source != "hh_hl" {
		t.Fatalf("expected top factor hh_hl, got %+v", r.TopFactors)
	}
}

// E2: conflicting signals.
func TestE2ConflictingSignals(t *testing.T) {
	signals := []signal.Signal{
		sig(signal.Trend, signal.Bullish, 70, "a"),
		sig(signal.Trend, signal.Bullish, 70, "b"),
		sig(signal.Trend, signal.Bearish, 70, "c"),
		sig(signal.Trend, signal.Bearish, 70, "d"),
	}
	r := Calculate(signals, 40)
	diff := r.BullishScore - r.BearishScore
	if diff < 0 {
		diff = -diff
	}
	if diff >= 10 {
		t.Fatalf("expected |bullish-bearish| < 10, got %v", diff)
	}
	if r.MarketBiasLabel != "Neutral" {
		t.Fatalf("expected Neutral, got %s", r.MarketBiasLabel)
	}
}

// E3: pattern downweighting.
func TestE3PatternDownweighting(t *testing.T) {
	signals := []signal.Signal{
		sig(signal.Candlestick, signal.Bullish, 90, "bullish_engulfing"),
		sig(signal.Structure, signal.Bearish, 60, "lh_ll"),
	}
	r := Calculate(signals, 40)
	if r.BearishScore <= r.BullishScore {
		t.Fatalf("expected bearish (Structure weight 1.0) to outweigh bullish (Candlestick weight 0.4): bullish=%v bearish=%v", r.BullishScore, r.BearishScore)
	}
	if r.MarketBiasLabel != "Bearish" && r.MarketBiasLabel != "Strong Bearish" {
		t.Fatalf("expected a bearish-leaning bias, got %s", r.MarketBiasLabel)
	}
}

func TestBelowThresholdReturnsNeutralZero(t *testing.T) {
	signals := []signal.Signal{sig(signal.Trend, signal.Bullish, 10, "weak")}
	r := Calculate(signals, 40)
	if r.MarketBiasLabel != "Neutral" || r.ConfidencePercentage != 0 {
		t.Fatalf("expected Neutral/0 confidence, got %s/%v", r.MarketBiasLabel, r.ConfidencePercentage)
	}
}

func TestMergeSingleIsIdentity(t *testing.T) {
	signals := []signal.Signal{sig(signal.Structure, signal.Bullish, 80, "x")}
	r := Calculate(signals, 40)
	merged := MergeConfluences([]Result{r}, []float64{1})
	if merged.MarketBiasLabel != r.MarketBiasLabel || merged.BullishScore != r.BullishScore {
		t.Fatal("merge_confluences([r]) must equal r")
	}
}

func TestDeterministic(t *testing.T) {
	signals := []signal.Signal{
		sig(signal.Trend, signal.Bullish, 80, "a"),
		sig(signal.Momentum, signal.Bearish, 55, "b"),
	}
	r1 := Calculate(signals, 40)
	r2 := Calculate(signals, 40)
	if r1.MarketBiasLabel != r2.MarketBiasLabel || r1.BullishScore != r2.BullishScore || r1.BearishScore != r2.BearishScore {
		t.Fatal("confluence calculation must be deterministic")
	}
}

func TestNormalizationInvariant(t *testing.T) {
	signals := []signal.Signal{
		sig(signal.Structure, signal.Bullish, 90, "a"),
		sig(signal.Trend, signal.Bearish, 60, "b"),
		sig(signal.Volume, signal.Neutral, 50, "c"),
	}
	r := Calculate(signals, 40)
	sum := r.BullishScore + r.BearishScore + r.NeutralProbability
	if sum < 0 || sum > 100.01 {
		t.Fatalf("expected normalized sum in [0,100+eps], got %v", sum)
	}
}
