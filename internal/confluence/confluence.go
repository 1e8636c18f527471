// Package confluence implements the weighted aggregation of heterogeneous
// Signals into a normalized bullish/bearish/neutral triplet with a derived
// confidence. The algorithm and category weight table are ported directly
// from the original confluence engine; this is the primary ground truth,
// not any bespoke scoring scheme.
package confluence

import (
	"sort"

	"marketanalysis/internal/signal"
)

// CategoryWeights holds the default multiplicative weight applied on top
// of each Signal's own Weight field.
var CategoryWeights = map[signal.Category]float64{
	signal.Structure:            1.00,
	signal.MultiTimeframe:       0.98,
	signal.Trend:                0.95,
	signal.OrderBlocks:          0.95,
	signal.Confluence:           0.92,
	signal.Momentum:             0.90,
	signal.Liquidity:            0.90,
	signal.FairValueGaps:        0.88,
	signal.SyntheticRegime:      0.88,
	signal.Volatility:           0.85,
	signal.SyntheticVolatility:  0.85,
	signal.Volume:               0.80,
	signal.SessionBehavior:      0.80,
	signal.Sessions:             0.75,
	signal.Candlestick:          0.40,
}

// DefaultMinConfidence is the threshold applied in step 1 of the algorithm
// when the caller does not override it.
const DefaultMinConfidence = 40.0

// Factor is one contributing signal's share of the result, used for the
// top_factors field.
type Factor struct {
	Signal         signal.Signal
	EffectiveWeight float64
	Score           float64 // confidence * effective_weight, the ranking key
}

// Result is the ConfluenceResult from spec.md §3, unchanged in meaning.
type Result struct {
	BullishScore        float64
	BearishScore        float64
	NeutralProbability  float64
	ConfidencePercentage float64
	MarketBiasLabel     string
	SignalCounts        map[string]int
	TopFactors          []Factor
	WeightedSignals     []Factor
}

func effectiveWeight(s signal.Signal) float64 {
	cw, ok := CategoryWeights[s.Category]
	if !ok {
		cw = 1.0
	}
	return cw * s.Weight
}

// Calculate runs the 9-step confluence algorithm over signals, dropping any
// below minConfidence. The threshold is applied as given: 0 keeps every
// signal, and DefaultMinConfidence is not substituted for it.
func Calculate(signals []signal.Signal, minConfidence float64) Result {
	// Step 1: drop signals below threshold.
	retained := make([]signal.Signal, 0, len(signals))
	for _, s := range signals {
		s = s.Clamp()
		if s.Confidence >= minConfidence {
			retained = append(retained, s)
		}
	}

	// Step 2: empty retained set.
	if len(retained) == 0 {
		return Result{
			NeutralProbability:  100,
			MarketBiasLabel:     "Neutral",
			SignalCounts:        map[string]int{},
			TopFactors:          nil,
			WeightedSignals:     nil,
		}
	}

	factors := make([]Factor, len(retained))
	var bullishSum, bullishCount float64
	var bearishSum, bearishCount float64
	var neutralCount float64
	var confidenceSum float64
	categories := map[signal.Category]bool{}

	for i, s := range retained {
		ew := effectiveWeight(s)
		factors[i] = Factor{Signal: s, EffectiveWeight: ew, Score: s.Confidence * ew}
		confidenceSum += s.Confidence
		categories[s.Category] = true

		switch s.Direction {
		case signal.Bullish:
			bullishSum += s.Confidence * ew
			bullishCount++
		case signal.Bearish:
			bearishSum += s.Confidence * ew
			bearishCount++
		default:
			neutralCount++
		}
	}

	total := float64(len(retained))

	// Step 4: mean confidence*effective_weight per direction.
	bullishScore := 0.0
	if bullishCount > 0 {
		bullishScore = bullishSum / bullishCount
	}
	bearishScore := 0.0
	if bearishCount > 0 {
		bearishScore = bearishSum / bearishCount
	}

	// Step 5.
	neutralProbability := 50 * neutralCount / total
	if neutralProbability > 50 {
		neutralProbability = 50
	}

	// Step 6.
	meanConfidence := confidenceSum / total
	countFactor := total / 20
	if countFactor > 1 {
		countFactor = 1
	}
	categoryFactor := float64(len(categories)) / 8
	if categoryFactor > 1 {
		categoryFactor = 1
	}
	confidencePercentage := meanConfidence * (0.5 + 0.25*countFactor + 0.25*categoryFactor)

	// Step 7: top-5 factors by score desc.
	sorted := make([]Factor, len(factors))
	copy(sorted, factors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	topN := 5
	if len(sorted) < topN {
		topN = len(sorted)
	}
	topFactors := sorted[:topN]

	// Step 8: market bias label.
	bias := determineBias(confidencePercentage, bullishScore, bearishScore)

	// Step 9: normalize bullish+bearish+neutral to sum ~= 100.
	bullishNorm, bearishNorm, neutralNorm := normalize(bullishScore, bearishScore, neutralProbability)

	counts := map[string]int{
		"bullish": int(bullishCount),
		"bearish": int(bearishCount),
		"neutral": int(neutralCount),
		"total":   len(retained),
	}

	return Result{
		BullishScore:         bullishNorm,
		BearishScore:         bearishNorm,
		NeutralProbability:   neutralNorm,
		ConfidencePercentage: clamp(confidencePercentage, 0, 100),
		MarketBiasLabel:      bias,
		SignalCounts:         counts,
		TopFactors:           topFactors,
		WeightedSignals:      factors,
	}
}

func determineBias(confidence, bullish, bearish float64) string {
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

func normalize(bullish, bearish, neutral float64) (float64, float64, float64) {
	bullish = clamp(bullish, 0, 100)
	bearish = clamp(bearish, 0, 100)
	neutral = clamp(neutral, 0, 100)
	sum := bullish + bearish + neutral
	if sum <= 0 {
		return 0, 0, 100
	}
	scale := 100 / sum
	return bullish * scale, bearish * scale, neutral * scale
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MergeConfluences merges one or more per-timeframe results, weighted by
// weights (same length as results), recomputing the bias and re-ranking
// top factors across the union of inputs. merge_confluences([r]) == r, per
// spec invariant #9.
func MergeConfluences(results []Result, weights []float64) Result {
	if len(results) == 1 {
		return results[0]
	}
	if len(results) == 0 {
		return Calculate(nil, DefaultMinConfidence)
	}

	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight <= 0 {
		totalWeight = float64(len(results))
		weights = make([]float64, len(results))
		for i := range weights {
			weights[i] = 1
		}
	}

	var bullish, bearish, neutral, confidence float64
	var allFactors []Factor
	for i, r := range results {
		w := weights[i] / totalWeight
		bullish += r.BullishScore * w
		bearish += r.BearishScore * w
		neutral += r.NeutralProbability * w
		confidence += r.ConfidencePercentage * w
		allFactors = append(allFactors, r.TopFactors...)
	}

	sort.Slice(allFactors, func(i, j int) bool { return allFactors[i].Score > allFactors[j].Score })
	topN := 5
	if len(allFactors) < topN {
		topN = len(allFactors)
	}

	bias := determineBias(confidence, bullish, bearish)
	bullishNorm, bearishNorm, neutralNorm := normalize(bullish, bearish, neutral)

	return Result{
		BullishScore:         bullishNorm,
		BearishScore:         bearishNorm,
		NeutralProbability:   neutralNorm,
		ConfidencePercentage: clamp(confidence, 0, 100),
		MarketBiasLabel:      bias,
		SignalCounts:         map[string]int{},
		TopFactors:           allFactors[:topN],
	}
}
