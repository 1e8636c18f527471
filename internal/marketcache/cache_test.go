package marketcache

import (
	"context"
	"testing"
	"time"

	"marketanalysis/internal/candle"
)

type stubFetcher struct {
	bars     []candle.Candle
	calls    int
	lastReq  int
}

func (s *stubFetcher) CopyRatesFromPos(ctx context.Context, symbol string, tf candle.Timeframe, pos, count int) ([]candle.Candle, error) {
	s.calls++
	s.lastReq = count
	if count > len(s.bars) {
		return s.bars, nil
	}
	return s.bars[len(s.bars)-count:], nil
}

func genBars(n int, start time.Time, step time.Duration) []candle.Candle {
	out := make([]candle.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = candle.Candle{Timestamp: start.Add(time.Duration(i) * step), Open: 1, High: 2, Low: 0, Close: 1, TickVolume: 10}
	}
	return out
}

func TestFullFetchWhenEmpty(t *testing.T) {
	bars := genBars(500, time.Now().Add(-500*time.Hour), time.Hour)
	f := &stubFetcher{bars: bars}
	c := New(f)
	w, err := c.GetCandles(context.Background(), "EURUSD", candle.H1, 500, false)
	if err != nil {
		t.Fatal(err)
	}
	if w.Len() != 500 {
		t.Fatalf("expected 500 candles, got %d", w.Len())
	}
	if f.calls != 1 {
		t.Fatalf("expected exactly one fetch, got %d", f.calls)
	}
}

// E5: cache staleness and top-up.
func TestE5StalenessAndTopUp(t *testing.T) {
	now := time.Now()
	oldBars := genBars(500, now.Add(-500*time.Hour), time.Hour)
	// Force last candle to be 100 minutes stale relative to H1 (threshold 90min).
	oldBars[len(oldBars)-1].Timestamp = now.Add(-100 * time.Minute)

	f := &stubFetcher{bars: genBars(100, now.Add(-99*time.Hour), time.Hour)}
	c := New(f)
	e := c.entryFor("EURUSD", candle.H1)
	e.window = candle.Window{Symbol: "EURUSD", Timeframe: candle.H1, Candles: oldBars}
	e.ingestTime = now.Add(-40 * time.Minute)
	e.lastFullFetch = now.Add(-5 * time.Minute)

	w, err := c.GetCandles(context.Background(), "EURUSD", candle.H1, 500, false)
	if err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Fatalf("expected the stale top-up branch to call the fetcher exactly once, got %d", f.calls)
	}
	if f.lastReq > 100 {
		t.Fatalf("expected top-up window <= max(100,25)=100, got %d", f.lastReq)
	}
	if w.Len() == 0 {
		t.Fatal("expected a non-empty merged window")
	}
	if w.LastCandleTime().Before(oldBars[len(oldBars)-1].Timestamp) {
		t.Fatal("newest bar should be >= old last_candle_time")
	}
	if !w.LastCandleTime().After(oldBars[len(oldBars)-1].Timestamp) {
		t.Fatal("top-up should have merged in a newer last bar than the stale cache held")
	}
}

func TestInvalidateDropsSymbol(t *testing.T) {
	f := &stubFetcher{bars: genBars(10, time.Now().Add(-10*time.Hour), time.Hour)}
	c := New(f)
	_, _ = c.GetCandles(context.Background(), "EURUSD", candle.H1, 10, false)
	c.Invalidate("EURUSD")
	if c.GetCached("EURUSD", candle.H1).Len() != 0 {
		t.Fatal("expected empty cache after invalidate")
	}
}

func TestCheckSufficiency(t *testing.T) {
	ok, reason := CheckSufficiency(candle.Window{}, 20)
	if ok || reason != "empty" {
		t.Fatalf("expected empty, got ok=%v reason=%s", ok, reason)
	}
	w := candle.Window{Candles: genBars(5, time.Now(), time.Hour)}
	ok, reason = CheckSufficiency(w, 20)
	if ok || reason != "insufficient count" {
		t.Fatalf("expected insufficient count, got ok=%v reason=%s", ok, reason)
	}
}

func TestTopUpNoNewBarsKeepsLastCandleTime(t *testing.T) {
	now := time.Now()
	// Last candle 4 minutes old, stale relative to M1's 1.5-minute threshold.
	bars := genBars(200, now.Add(-203*time.Minute), time.Minute)
	f := &stubFetcher{bars: bars} // returns the same tail every call, so top-up finds nothing new
	c := New(f)
	e := c.entryFor("EURUSD", candle.M1)
	e.window = candle.Window{Symbol: "EURUSD", Timeframe: candle.M1, Candles: bars}
	e.ingestTime = now
	e.lastFullFetch = now

	before := e.window.LastCandleTime()
	_, err := c.GetCandles(context.Background(), "EURUSD", candle.M1, 200, false)
	if err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Fatalf("expected the stale top-up branch to call the fetcher exactly once, got %d", f.calls)
	}
	after := c.GetCached("EURUSD", candle.M1).LastCandleTime()
	if !before.Equal(after) {
		t.Fatalf("last_candle_time should be unchanged when top-up returns no new bars: before=%v after=%v", before, after)
	}
}
