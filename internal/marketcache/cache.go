// Package marketcache implements the per-(symbol, timeframe) staleness-
// aware candle cache: incremental top-up, mandatory periodic full refresh,
// and the sufficiency/gap-filling helpers the engine depends on.
package marketcache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketanalysis/internal/candle"
)

// Fetcher is the subset of the terminal-bridge interface the cache needs to
// pull bars through; internal/bridge.Bridge satisfies this.
type Fetcher interface {
	CopyRatesFromPos(ctx context.Context, symbol string, tf candle.Timeframe, pos, count int) ([]candle.Candle, error)
}

// StalenessFactor is the multiplier on timeframe duration used to decide
// whether a cache entry is stale. It is fixed: the cache does not read the
// cache_staleness_factor config value.
const StalenessFactor = 1.5

// FullRefreshInterval forces a non-incremental fetch even when the cache
// isn't stale, bounding unbounded top-up drift.
const FullRefreshInterval = 60 * time.Minute

type key struct {
	symbol string
	tf     candle.Timeframe
}

type entry struct {
	mu             sync.RWMutex
	window         candle.Window
	ingestTime     time.Time
	lastFullFetch  time.Time
}

// Cache is the single-owner market-data cache. Reads take a per-entry
// shared lock; writers (merges/replacements) take the entry's exclusive
// lock, so concurrent reads never block behind each other.
type Cache struct {
	fetcher Fetcher

	mu      sync.RWMutex // guards the entries map itself, not its values
	entries map[key]*entry
}

// New constructs a Cache backed by fetcher.
func New(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher, entries: make(map[key]*entry)}
}

func (c *Cache) entryFor(symbol string, tf candle.Timeframe) *entry {
	k := key{symbol, tf}
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return e
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[k]; ok {
		return e
	}
	e = &entry{}
	c.entries[k] = e
	return e
}

func isStale(e *entry, tf candle.Timeframe, now time.Time) bool {
	last := e.window.LastCandleTime()
	if last.IsZero() {
		return true
	}
	threshold := time.Duration(float64(tf.Duration()) * StalenessFactor)
	return now.Sub(last) > threshold
}

// GetCandles returns a tail of at least count candles for (symbol, tf),
// serving from cache when fresh, topping up the recent tail when stale but
// non-empty, or doing a full fetch when empty or force is set.
func (c *Cache) GetCandles(ctx context.Context, symbol string, tf candle.Timeframe, count int, force bool) (candle.Window, error) {
	e := c.entryFor(symbol, tf)
	now := time.Now()

	e.mu.RLock()
	empty := e.window.Len() == 0
	needFullByEpoch := e.lastFullFetch.IsZero() || now.Sub(e.lastFullFetch) > FullRefreshInterval
	stale := !empty && isStale(e, tf, now)
	e.mu.RUnlock()

	switch {
	case force || empty || needFullByEpoch:
		bars, err := c.fetcher.CopyRatesFromPos(ctx, symbol, tf, 0, count)
		if err != nil {
			return candle.Window{}, fmt.Errorf("full fetch %s/%s: %w", symbol, tf, err)
		}
		e.mu.Lock()
		e.window = candle.Window{Symbol: symbol, Timeframe: tf, Candles: bars}
		e.ingestTime = now
		e.lastFullFetch = now
		e.mu.Unlock()

	case stale:
		topUp := count / 20 // 5%
		if topUp < 100 {
			topUp = 100
		}
		recent, err := c.fetcher.CopyRatesFromPos(ctx, symbol, tf, 0, topUp)
		if err != nil {
			return candle.Window{}, fmt.Errorf("top-up fetch %s/%s: %w", symbol, tf, err)
		}
		e.mu.Lock()
		merged := mergeDedupSorted(e.window.Candles, recent)
		if len(merged) != len(e.window.Candles) || !sameLast(merged, e.window.Candles) {
			e.window = candle.Window{Symbol: symbol, Timeframe: tf, Candles: merged}
			e.ingestTime = now
		}
		e.mu.Unlock()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.window.Tail(count), nil
}

func sameLast(a, b []candle.Candle) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return a[len(a)-1].Timestamp.Equal(b[len(b)-1].Timestamp)
}

// mergeDedupSorted merges two candle slices, deduplicating by timestamp
// (last write wins) and sorting ascending -- per spec.md §4.5's top-up
// contract.
func mergeDedupSorted(existing, incoming []candle.Candle) []candle.Candle {
	byTime := make(map[int64]candle.Candle, len(existing)+len(incoming))
	for _, c := range existing {
		byTime[c.Timestamp.UnixNano()] = c
	}
	for _, c := range incoming {
		byTime[c.Timestamp.UnixNano()] = c
	}
	merged := make([]candle.Candle, 0, len(byTime))
	for _, c := range byTime {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	return merged
}

// GetCached returns a read-only tail view without triggering any fetch.
func (c *Cache) GetCached(symbol string, tf candle.Timeframe) candle.Window {
	e := c.entryFor(symbol, tf)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.window
}

// Invalidate drops the cache for one symbol (all timeframes), or the whole
// cache when symbol is empty.
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if symbol == "" {
		c.entries = make(map[key]*entry)
		return
	}
	for k := range c.entries {
		if k.symbol == symbol {
			delete(c.entries, k)
		}
	}
}

// IsTFAvailable probes the bridge with a 1-bar fetch.
func (c *Cache) IsTFAvailable(ctx context.Context, symbol string, tf candle.Timeframe) bool {
	bars, err := c.fetcher.CopyRatesFromPos(ctx, symbol, tf, 0, 1)
	return err == nil && len(bars) > 0
}

// HandleMissing forward-fills OHLC gaps, zero-fills volumes, and back-fills
// any residual leading gap from the first valid candle.
func HandleMissing(w candle.Window) candle.Window {
	out := make([]candle.Candle, len(w.Candles))
	copy(out, w.Candles)
	for i := 1; i < len(out); i++ {
		if out[i].Open == 0 && out[i].High == 0 && out[i].Low == 0 && out[i].Close == 0 {
			prev := out[i-1]
			out[i].Open, out[i].High, out[i].Low, out[i].Close = prev.Close, prev.Close, prev.Close, prev.Close
			out[i].TickVolume = 0
			out[i].RealVolume = 0
		}
	}
	for i := 0; i < len(out); i++ {
		if out[i].Open != 0 || out[i].High != 0 || out[i].Low != 0 || out[i].Close != 0 {
			for j := 0; j < i; j++ {
				out[j].Open, out[j].High, out[j].Low, out[j].Close = out[i].Open, out[i].Open, out[i].Open, out[i].Open
			}
			break
		}
	}
	return candle.Window{Symbol: w.Symbol, Timeframe: w.Timeframe, Candles: out}
}

// CheckSufficiency reports whether w has at least min candles and a
// reasonably fresh latest bar (<24h old).
func CheckSufficiency(w candle.Window, min int) (bool, string) {
	if w.Len() == 0 {
		return false, "empty"
	}
	if w.Len() < min {
		return false, "insufficient count"
	}
	if time.Since(w.LastCandleTime()) > 24*time.Hour {
		return false, "stale"
	}
	return true, ""
}
