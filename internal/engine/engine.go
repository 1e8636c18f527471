// Package engine implements the always-on analysis engine: a supervised
// background worker that polls the market-data cache, runs the analyzer
// registry and confluence/multi-timeframe layers, and pushes
// ConfluenceUpdates onto the subscriber bus every poll interval.
//
// Grounded on original_source/analysis/engine.py's thread+asyncio-loop
// shape (translated to a goroutine+ticker) and on the teacher's
// internal/bot/bot.go stopChan/sync.WaitGroup supervised-goroutine idiom.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketanalysis/internal/analyzer/registry"
	"marketanalysis/internal/bridge"
	"marketanalysis/internal/bus"
	"marketanalysis/internal/candle"
	"marketanalysis/internal/catalog"
	"marketanalysis/internal/confluence"
	"marketanalysis/internal/errs"
	"marketanalysis/internal/logging"
	"marketanalysis/internal/marketcache"
	"marketanalysis/internal/mtf"
	"marketanalysis/internal/session"
	"marketanalysis/internal/signal"
)

// State is the engine's lifecycle state.
type State int

const (
	Idle State = iota
	Starting
	Running
	Paused
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return "Idle"
	}
}

// candlesRawCap bounds how many raw candles ride along with a
// ConfluenceUpdate for UI plotting.
const candlesRawCap = 200

// currentSliceSize is a tail length for a "current" analysis window;
// iterate does not cut such a slice and analyzes the full fetched window.
const currentSliceSize = 200

// candlesPerDay approximates bars-per-day for sizing a history fetch.
var candlesPerDay = map[candle.Timeframe]int{
	candle.M1:  1440,
	candle.M5:  288,
	candle.M15: 96,
	candle.M30: 48,
	candle.H1:  24,
	candle.H4:  6,
	candle.D1:  1,
}

// Params configures one Engine instance: the symbol/timeframes it
// continuously analyzes and its timing policy.
type Params struct {
	Symbol              string
	Timeframes          []candle.Timeframe
	HistoryDays         int
	PollInterval        time.Duration
	FullRefreshInterval time.Duration
	// AutoReinitOnSessionChange is always forced true by New; retained on
	// Params rather than hardcoded inline so the policy is visible to callers.
	AutoReinitOnSessionChange bool
	TimeframeWeights    map[candle.Timeframe]float64
	MinConfidence       float64
}

// UpdateFunc is invoked once per loop iteration with the freshly computed
// result. Constructor-injected rather than a package-level global or
// registered-callback list, so multiple engines never share state.
type UpdateFunc func(bus.ConfluenceUpdate)

// Engine is a supervised, single-symbol analysis worker.
type Engine struct {
	params   Params
	bridge   bridge.Bridge
	cache    *marketcache.Cache
	registry *registry.Registry
	monitor  *session.Monitor
	onUpdate UpdateFunc
	logger   logging.Logger

	mu    sync.Mutex
	state State

	stopChan chan struct{}
	doneChan chan struct{}

	lastSession *session.AccountSnapshot
	everFetched map[candle.Timeframe]bool
}

// New constructs an Engine. onUpdate may be nil, in which case results are
// computed but not delivered anywhere (useful for tests).
func New(params Params, br bridge.Bridge, cache *marketcache.Cache, reg *registry.Registry, monitor *session.Monitor, onUpdate UpdateFunc, logger logging.Logger) *Engine {
	if params.PollInterval <= 0 {
		params.PollInterval = 30 * time.Second
	}
	if params.FullRefreshInterval <= 0 {
		params.FullRefreshInterval = marketcache.FullRefreshInterval
	}
	if params.HistoryDays <= 0 {
		params.HistoryDays = 7
	}
	if params.MinConfidence <= 0 {
		params.MinConfidence = confluence.DefaultMinConfidence
	}
	// spec.md invariant #8 / E6: a changed account identity always flushes
	// the cache and forces a full re-fetch. This isn't a configurable
	// off-switch; the field exists so callers can see the policy in Params,
	// not so they can disable it.
	params.AutoReinitOnSessionChange = true
	if onUpdate == nil {
		onUpdate = func(bus.ConfluenceUpdate) {}
	}
	return &Engine{
		params:      params,
		bridge:      br,
		cache:       cache,
		registry:    reg,
		monitor:     monitor,
		onUpdate:    onUpdate,
		logger:      logger.WithComponent("engine").WithField("symbol", params.Symbol),
		state:       Idle,
		everFetched: make(map[candle.Timeframe]bool),
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) transition(to State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !allowedTransition(e.state, to) {
		return false
	}
	e.state = to
	return true
}

func allowedTransition(from, to State) bool {
	switch from {
	case Idle:
		return to == Starting
	case Starting:
		return to == Running || to == Stopping
	case Running:
		return to == Paused || to == Stopping || to == Starting
	case Paused:
		return to == Running || to == Stopping
	case Stopping:
		return to == Stopped
	default:
		return false
	}
}

// Start transitions Idle->Starting->Running and launches the main loop in
// a background goroutine. Calling Start on an already-running engine is a
// no-op.
func (e *Engine) Start(ctx context.Context) {
	if e.State() != Idle || !e.transition(Starting) {
		return
	}
	e.stopChan = make(chan struct{})
	e.doneChan = make(chan struct{})
	e.transition(Running)
	e.logger.Info("engine starting")
	go e.run(ctx)
}

// Pause transitions Running->Paused; the loop skips analysis iterations
// while paused but keeps polling the stop signal.
func (e *Engine) Pause() bool { return e.transition(Paused) }

// Resume transitions Paused->Running.
func (e *Engine) Resume() bool { return e.transition(Running) }

// Stop requests a cooperative shutdown and waits up to 5s for the loop to
// exit, per spec's "eventual stop" contract.
func (e *Engine) Stop() {
	if !e.transition(Stopping) {
		return
	}
	close(e.stopChan)
	select {
	case <-e.doneChan:
	case <-time.After(5 * time.Second):
		e.logger.Warn("engine did not stop within 5s")
	}
	e.transition(Stopped)
	e.logger.Info("engine stopped")
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.doneChan)
	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		if e.State() == Paused {
			if !e.sleep(ctx, e.params.PollInterval) {
				return
			}
			continue
		}

		delay := e.params.PollInterval
		if err := e.iterate(ctx); err != nil {
			e.logger.WithError(err).Error("engine iteration failed")
			if delay < 5*time.Second {
				delay = 5 * time.Second
			}
		}

		if !e.sleep(ctx, delay) {
			return
		}
	}
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-e.stopChan:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// iterate runs one full loop pass: steps 1-9 of spec.md §4.7.
func (e *Engine) iterate(ctx context.Context) error {
	// Step 1: session integrity.
	if e.monitor != nil {
		current := e.monitor.CurrentSnapshot()
		if e.lastSession != nil && current != nil && !current.SameAccount(e.lastSession) {
			e.logger.Warn("session identity changed, reinitializing")
			if e.params.AutoReinitOnSessionChange {
				e.cache.Invalidate(e.params.Symbol)
				e.everFetched = make(map[candle.Timeframe]bool)
			}
		}
		e.lastSession = current
	}

	category := catalog.Classify(e.params.Symbol)
	groups := e.registry.SelectGroups(category)

	// Steps 2-3: per-TF fetch, concurrently, full-refresh-vs-top-up decided
	// per TF by whether this is the first iteration for that TF or the
	// full-refresh epoch has elapsed (the cache itself tracks the epoch;
	// here we only force on first-ever fetch per TF).
	windows := make(map[candle.Timeframe]candle.Window, len(e.params.Timeframes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, tf := range e.params.Timeframes {
		wg.Add(1)
		go func(tf candle.Timeframe) {
			defer wg.Done()
			count := historyCount(tf, e.params.HistoryDays)
			force := !e.everFetched[tf]
			w, err := e.cache.GetCandles(ctx, e.params.Symbol, tf, count, force)
			if err != nil {
				e.logger.WithError(err).WithField("timeframe", string(tf)).Warn("candle fetch failed, skipping timeframe")
				return
			}
			mu.Lock()
			windows[tf] = w
			e.everFetched[tf] = true
			mu.Unlock()
		}(tf)
	}
	wg.Wait()

	if len(windows) == 0 {
		return errs.New(errs.InsufficientData, "no timeframe produced candles for "+e.params.Symbol)
	}

	// Step 4: each fetched window is passed whole to the analyzers; no
	// separate current slice is cut and no session tag is attached to the
	// update.

	analyze := func(_ context.Context, tf candle.Timeframe) (confluence.Result, error) {
		w, ok := windows[tf]
		if !ok {
			return confluence.Calculate(nil, e.params.MinConfidence), nil
		}
		outputs, _ := registry.RunAll(groups, w)
		signals := registry.AllSignals(outputs)
		return confluence.Calculate(signals, e.params.MinConfidence), nil
	}

	// Step 5: C4 orchestrator for multi-TF, or a direct C3 call for one TF.
	var result confluence.Result
	var tfDetails []any
	if len(e.params.Timeframes) == 1 {
		r, _ := analyze(ctx, e.params.Timeframes[0])
		result = r
	} else {
		mtfResult := mtf.AnalyzeMultiple(ctx, e.params.Timeframes, e.params.TimeframeWeights, analyze)
		result = confluence.Result{
			BullishScore:         mtfResult.OverallBullish,
			BearishScore:         mtfResult.OverallBearish,
			NeutralProbability:   mtfResult.OverallNeutral,
			ConfidencePercentage: mtfResult.OverallConfidence,
			MarketBiasLabel:      mtfResult.OverallLabel,
		}
		for _, b := range mtfResult.Biases {
			tfDetails = append(tfDetails, map[string]any{
				"timeframe":  string(b.Timeframe),
				"label":      b.Label,
				"confidence": b.Result.ConfidencePercentage,
			})
			result.WeightedSignals = append(result.WeightedSignals, b.Result.WeightedSignals...)
		}
		result.TopFactors = topFactorsFrom(result.WeightedSignals)
	}

	// Step 6: setup-status heuristic.
	status, direction := setupStatus(result)

	// Step 7: attach raw candles.
	rawCandles := rawCandlesFor(windows, e.params.Timeframes)

	// Step 8: publish.
	update := bus.ConfluenceUpdate{
		Symbol:            e.params.Symbol,
		OverallBias:       result.MarketBiasLabel,
		OverallBullish:    result.BullishScore,
		OverallBearish:    result.BearishScore,
		OverallConfidence: result.ConfidencePercentage,
		TimeframeDetails:  tfDetails,
		SetupStatus:       status,
		Direction:         direction,
		RawCandles:        rawCandles,
	}
	for _, tf := range e.params.Timeframes {
		update.TimeframeSet = append(update.TimeframeSet, string(tf))
	}
	for _, f := range topFactorsAny(result) {
		update.TopFactors = append(update.TopFactors, f)
	}
	if e.lastSession != nil {
		update.SessionID = session.NewSessionID(e.lastSession.Login, e.lastSession.Server)
	}
	e.onUpdate(update)
	return nil
}

func historyCount(tf candle.Timeframe, historyDays int) int {
	perDay, ok := candlesPerDay[tf]
	if !ok {
		perDay = 24
	}
	count := int(float64(perDay*historyDays) * 1.1)
	if count < 500 {
		count = 500
	}
	if count > 10000 {
		count = 10000
	}
	return count
}

func rawCandlesFor(windows map[candle.Timeframe]candle.Window, tfs []candle.Timeframe) []any {
	if len(tfs) == 0 {
		return nil
	}
	w, ok := windows[tfs[0]]
	if !ok {
		return nil
	}
	tail := w.Tail(candlesRawCap)
	out := make([]any, len(tail.Candles))
	for i, c := range tail.Candles {
		out[i] = map[string]any{
			"timestamp": c.Timestamp,
			"open":      c.Open,
			"high":      c.High,
			"low":       c.Low,
			"close":     c.Close,
			"volume":    c.TickVolume,
		}
	}
	return out
}

// topFactorsFrom re-ranks a merged set of per-timeframe factors, mirroring
// confluence.Calculate's own top-5-by-score step for the single-timeframe
// path.
func topFactorsFrom(factors []confluence.Factor) []confluence.Factor {
	sorted := make([]confluence.Factor, len(factors))
	copy(sorted, factors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	top := 5
	if len(sorted) < top {
		top = len(sorted)
	}
	return sorted[:top]
}

func topFactorsAny(result confluence.Result) []any {
	out := make([]any, 0, len(result.TopFactors))
	for _, f := range result.TopFactors {
		out = append(out, map[string]any{
			"source":     f.Signal.Source,
			"category":   f.Signal.Category.String(),
			"direction":  f.Signal.Direction.String(),
			"confidence": f.Signal.Confidence,
			"score":      f.Score,
		})
	}
	return out
}

// setupStatus implements spec.md §4.7 step 6's heuristic: valid/forming/
// no_setup from confluence, structure, and pattern (candlestick) scores,
// and a direction from the overall bullish share.
func setupStatus(result confluence.Result) (status, direction string) {
	structureScore := categoryAvg(result.WeightedSignals, signal.Structure)
	patternScore := categoryAvg(result.WeightedSignals, signal.Candlestick)
	conf := result.ConfidencePercentage

	switch {
	case conf >= 65 && structureScore >= 55 && patternScore >= 50:
		status = "valid"
	case conf >= 50 || structureScore >= 50 || patternScore >= 45:
		status = "forming"
	default:
		status = "no_setup"
	}

	switch {
	case result.BullishScore > 52:
		direction = "bullish"
	case result.BullishScore < 48:
		direction = "bearish"
	default:
		direction = "neutral"
	}
	return status, direction
}

func categoryAvg(factors []confluence.Factor, category signal.Category) float64 {
	var sum float64
	var count int
	for _, f := range factors {
		if f.Signal.Category == category {
			sum += f.Signal.Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
