package mtf

import (
	"context"
	"testing"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/confluence"
)

func bullishResult(bullish, bearish, confidence float64) confluence.Result {
	return confluence.Result{
		BullishScore:         bullish,
		BearishScore:         bearish,
		NeutralProbability:   100 - bullish - bearish,
		ConfidencePercentage: confidence,
		MarketBiasLabel:      biasLabel(confidence, bullish, bearish),
	}
}

// E4: multi-timeframe alignment.
func TestE4MultiTimeframeAlignment(t *testing.T) {
	tfs := []candle.Timeframe{candle.H1, candle.H4, candle.D1}
	weights := map[candle.Timeframe]float64{candle.H1: 0.9, candle.H4: 1.0, candle.D1: 1.1}

	analyze := func(ctx context.Context, tf candle.Timeframe) (confluence.Result, error) {
		return bullishResult(70, 20, 70), nil
	}

	r := AnalyzeMultiple(context.Background(), tfs, weights, analyze)
	if r.OverallBullish < 69 || r.OverallBullish > 71 {
		t.Fatalf("expected overall bullish ~= 70, got %v", r.OverallBullish)
	}
	if r.OverallBearish < 19 || r.OverallBearish > 21 {
		t.Fatalf("expected overall bearish ~= 20, got %v", r.OverallBearish)
	}
	if r.TimeframeConfluencePct != 100 {
		t.Fatalf("expected timeframe_confluence == 100, got %v", r.TimeframeConfluencePct)
	}
	tf, _, ok := SweetSpot(r)
	if !ok || tf != candle.D1 {
		t.Fatalf("expected sweet spot timeframe D1, got %v", tf)
	}
}

func TestZeroWeightFallsBackToUniform(t *testing.T) {
	tfs := []candle.Timeframe{candle.M1, candle.H1}
	overrides := map[candle.Timeframe]float64{candle.M1: 0, candle.H1: 0}
	weights := resolveWeights(tfs, overrides)
	if weights[candle.M1] != 0.5 || weights[candle.H1] != 0.5 {
		t.Fatalf("expected uniform 0.5/0.5 fallback, got %v", weights)
	}
}

func TestSingleTimeframeConfluenceIs100(t *testing.T) {
	analyze := func(ctx context.Context, tf candle.Timeframe) (confluence.Result, error) {
		return bullishResult(60, 10, 60), nil
	}
	r := AnalyzeMultiple(context.Background(), []candle.Timeframe{candle.H1}, nil, analyze)
	if r.TimeframeConfluencePct != 100 {
		t.Fatalf("single-TF case must report 100, got %v", r.TimeframeConfluencePct)
	}
}
