// Package registry assembles the analyzer groups (forex-oriented,
// synthetic-oriented, general) and dispatches the group appropriate for a
// symbol's catalog category, replacing the source's class-inheritance/
// duck-typed dispatch with a plain registry of Analyzer objects (spec §9).
package registry

import (
	"marketanalysis/internal/candle"
	"marketanalysis/internal/catalog"
	"marketanalysis/internal/errs"
	"marketanalysis/internal/signal"
)

// Group is a named, ordered list of analyzers.
type Group struct {
	Name      string
	Analyzers []signal.Analyzer
}

// Registry holds the asset-class-specific groups plus the three groups
// every symbol runs regardless of class (candlestick/chart/structural).
type Registry struct {
	Forex      Group
	Synthetic  Group
	General    Group
	Candlestick Group
	Chart       Group
	Structural  Group
}

// SelectGroups returns the analyzer groups applicable to category, per
// spec.md §4.2's table: forex categories get forex-oriented, synthetic
// categories get synthetic-oriented, everything else gets general --
// candlestick/chart/structural always run.
func (r *Registry) SelectGroups(category catalog.Category) []Group {
	always := []Group{r.Candlestick, r.Chart, r.Structural}
	switch category {
	case catalog.ForexMajors, catalog.ForexMinors, catalog.ForexExotics:
		return append([]Group{r.Forex}, always...)
	case catalog.VolatilityIndices, catalog.BoomCrash, catalog.JumpIndices, catalog.StepIndices:
		return append([]Group{r.Synthetic}, always...)
	default:
		return append([]Group{r.General}, always...)
	}
}

// RunAll invokes every analyzer in groups whose minimum window w satisfies
// (the others are skipped and contribute no output), catching panics at the
// analyzer-dispatch boundary and converting them into a logged Internal
// error rather than letting them propagate -- analyzers must never fail
// the caller (spec.md §4.2, §7).
func RunAll(groups []Group, w candle.Window) ([]signal.AnalysisOutput, []error) {
	var outputs []signal.AnalysisOutput
	var internalErrors []error
	for _, g := range groups {
		for _, a := range g.Analyzers {
			if !signal.Sufficient(a, w) {
				continue
			}
			out, err := safeAnalyze(a, w)
			if err != nil {
				internalErrors = append(internalErrors, err)
				continue
			}
			outputs = append(outputs, out)
		}
	}
	return outputs, internalErrors
}

func safeAnalyze(a signal.Analyzer, w candle.Window) (out signal.AnalysisOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Wrap(errs.Internal, "analyzer panicked: "+a.ID(), nil)
		}
	}()
	if !signal.Sufficient(a, w) {
		return signal.AnalysisOutput{}, nil
	}
	return a.Analyze(w), nil
}

// AllSignals flattens a slice of AnalysisOutput into one Signal slice.
func AllSignals(outputs []signal.AnalysisOutput) []signal.Signal {
	var all []signal.Signal
	for _, o := range outputs {
		all = append(all, o.Signals...)
	}
	return all
}
