// Package mtf implements the multi-timeframe orchestrator: it runs the
// confluence engine across several timeframes in parallel and merges the
// results under configurable timeframe weights.
package mtf

import (
	"context"
	"sort"
	"sync"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/confluence"
)

// DefaultWeights is the default per-timeframe weight table.
var DefaultWeights = map[candle.Timeframe]float64{
	candle.M1:  0.6,
	candle.M5:  0.7,
	candle.M15: 0.8,
	candle.M30: 0.85,
	candle.H1:  0.9,
	candle.H4:  1.0,
	candle.D1:  1.1,
	candle.W1:  1.2,
	candle.MN1: 1.3,
}

// TimeframeBias is one timeframe's ConfluenceResult plus its weight.
type TimeframeBias struct {
	Timeframe candle.Timeframe
	Result    confluence.Result
	Weight    float64
	Label     string
}

// Result is the MultiTimeframeResult from spec.md §3.
type Result struct {
	Biases                  []TimeframeBias
	OverallBullish          float64
	OverallBearish          float64
	OverallNeutral          float64
	OverallConfidence       float64
	OverallLabel            string
	TimeframeConfluencePct  float64
}

// AnalyzeFunc runs a single timeframe's analysis and returns its
// ConfluenceResult. The orchestrator is analyzer-agnostic: the engine
// supplies this closure, wired through the analyzer registry + C3.
type AnalyzeFunc func(ctx context.Context, tf candle.Timeframe) (confluence.Result, error)

// resolveWeights normalizes the requested weight overrides against
// DefaultWeights, falling back to uniform weighting when the total is
// non-positive (spec invariant #14 -- this diverges intentionally from the
// original source's "return weights unchanged" behavior; see DESIGN.md).
func resolveWeights(tfs []candle.Timeframe, overrides map[candle.Timeframe]float64) map[candle.Timeframe]float64 {
	weights := make(map[candle.Timeframe]float64, len(tfs))
	var total float64
	for _, tf := range tfs {
		w, ok := overrides[tf]
		if !ok {
			w, ok = DefaultWeights[tf]
		}
		if !ok {
			w = 1
		}
		weights[tf] = w
		total += w
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(tfs))
		for _, tf := range tfs {
			weights[tf] = uniform
		}
		return weights
	}
	for _, tf := range tfs {
		weights[tf] = weights[tf] / total
	}
	return weights
}

// AnalyzeMultiple fetches/analyzes every timeframe concurrently (step 1-2),
// then aggregates per spec.md §4.4 steps 3-4.
func AnalyzeMultiple(ctx context.Context, tfs []candle.Timeframe, weightOverrides map[candle.Timeframe]float64, analyze AnalyzeFunc) Result {
	if len(tfs) == 0 {
		return Result{OverallLabel: "Neutral"}
	}
	weights := resolveWeights(tfs, weightOverrides)

	biases := make([]TimeframeBias, len(tfs))
	var wg sync.WaitGroup
	for i, tf := range tfs {
		wg.Add(1)
		go func(i int, tf candle.Timeframe) {
			defer wg.Done()
			result, err := analyze(ctx, tf)
			if err != nil {
				result = confluence.Calculate(nil, confluence.DefaultMinConfidence)
			}
			biases[i] = TimeframeBias{Timeframe: tf, Result: result, Weight: weights[tf], Label: result.MarketBiasLabel}
		}(i, tf)
	}
	wg.Wait()

	return computeAggregates(biases)
}

func computeAggregates(biases []TimeframeBias) Result {
	var bullish, bearish, neutral, confidence float64
	for _, b := range biases {
		bullish += b.Result.BullishScore * b.Weight
		bearish += b.Result.BearishScore * b.Weight
		neutral += b.Result.NeutralProbability * b.Weight
		confidence += b.Result.ConfidencePercentage * b.Weight
	}
	overallLabel := biasLabel(confidence, bullish, bearish)

	confluencePct := 100.0
	if len(biases) > 1 {
		var sum float64
		for _, b := range biases {
			if b.Label == overallLabel {
				sum += 1.0
			} else {
				sum += 0.5
			}
		}
		confluencePct = sum / float64(len(biases)) * 100
	}

	return Result{
		Biases:                 biases,
		OverallBullish:         bullish,
		OverallBearish:         bearish,
		OverallNeutral:         neutral,
		OverallConfidence:      confidence,
		OverallLabel:           overallLabel,
		TimeframeConfluencePct: confluencePct,
	}
}

func biasLabel(confidence, bullish, bearish float64) string {
	if confidence < 30 {
		return "Neutral"
	}
	diff := bullish - bearish
	switch {
	case diff > -10 && diff < 10:
		return "Neutral"
	case diff >= 10 && diff < 25:
		return "Bullish"
	case diff <= -10 && diff > -25:
		return "Bearish"
	case diff >= 25:
		return "Strong Bullish"
	default:
		return "Strong Bearish"
	}
}

// AlignmentResult is the higher-vs-lower auxiliary comparison (step 5).
type AlignmentResult struct {
	Higher Result
	Lower  Result
	Score  float64
}

// HigherLowerAlignment splits tfs into higher/lower sets at splitIndex,
// analyzes each independently and emits an alignment score.
func HigherLowerAlignment(ctx context.Context, tfs []candle.Timeframe, splitIndex int, weightOverrides map[candle.Timeframe]float64, analyze AnalyzeFunc) AlignmentResult {
	higherTFs := tfs[splitIndex:]
	lowerTFs := tfs[:splitIndex]
	higher := AnalyzeMultiple(ctx, higherTFs, weightOverrides, analyze)
	lower := AnalyzeMultiple(ctx, lowerTFs, weightOverrides, analyze)

	delta := higher.OverallBullish - lower.OverallBullish
	aligned := higher.OverallLabel == lower.OverallLabel
	var score float64
	if aligned {
		bonus := delta / 5
		if bonus < 0 {
			bonus = -bonus
		}
		if bonus > 20 {
			bonus = 20
		}
		score = 80 + bonus
	} else {
		penalty := delta / 5
		if penalty < 0 {
			penalty = -penalty
		}
		score = 30 - penalty
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return AlignmentResult{Higher: higher, Lower: lower, Score: score}
}

// SweetSpot picks the timeframe maximizing confidence * (confluencePct/100)
// among the already-computed per-TF biases within a Result. Ties (common
// when every timeframe agrees) break in favor of the higher-weighted
// timeframe, then the longer-duration one -- a higher timeframe's
// agreement is the stronger signal, matching spec.md's E4 expectation.
func SweetSpot(r Result) (candle.Timeframe, float64, bool) {
	if len(r.Biases) == 0 {
		return "", 0, false
	}
	type scored struct {
		tf     candle.Timeframe
		score  float64
		weight float64
	}
	scores := make([]scored, len(r.Biases))
	for i, b := range r.Biases {
		scores[i] = scored{
			tf:     b.Timeframe,
			score:  b.Result.ConfidencePercentage * (r.TimeframeConfluencePct / 100),
			weight: b.Weight,
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		if scores[i].weight != scores[j].weight {
			return scores[i].weight > scores[j].weight
		}
		return scores[i].tf.Minutes() > scores[j].tf.Minutes()
	})
	return scores[0].tf, scores[0].score, true
}
