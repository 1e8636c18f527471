// Package candle defines the OHLCV value types shared by every analyzer,
// the market-data cache, and the orchestration layers above them.
package candle

import "time"

// Timeframe is a discrete, totally ordered bar interval.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
	W1  Timeframe = "W1"
	MN1 Timeframe = "MN1"
)

// minutesPerBar is the known minutes-per-bar table for every enumerated
// timeframe. Used both for staleness math and for duration-based ordering.
var minutesPerBar = map[Timeframe]int{
	M1:  1,
	M5:  5,
	M15: 15,
	M30: 30,
	H1:  60,
	H4:  240,
	D1:  1440,
	W1:  10080,
	MN1: 43200,
}

// Minutes returns the bar duration in minutes, or 0 if tf is not a known
// timeframe.
func (tf Timeframe) Minutes() int {
	return minutesPerBar[tf]
}

// Duration returns the bar duration as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Minutes()) * time.Minute
}

// Valid reports whether tf is one of the nine enumerated timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := minutesPerBar[tf]
	return ok
}

// Less orders timeframes by duration, establishing the total ordering spec
// requires (M1 < M5 < ... < MN1).
func (tf Timeframe) Less(other Timeframe) bool {
	return tf.Minutes() < other.Minutes()
}

// Candle is one immutable OHLCV bar. Once appended to a cached Window it is
// never mutated; invariant low <= min(open,close) <= max(open,close) <= high
// is expected to hold for every candle a Bridge implementation returns.
type Candle struct {
	Timestamp   time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	TickVolume  float64
	RealVolume  float64
	Spread      float64
}

// Valid reports whether the candle's OHLC relationship holds.
func (c Candle) Valid() bool {
	lo := c.Open
	if c.Close < lo {
		lo = c.Close
	}
	hi := c.Open
	if c.Close > hi {
		hi = c.Close
	}
	return c.Low <= lo && hi <= c.High
}

// Window is an ordered, read-only sequence of Candles for one
// (symbol, timeframe) pair. Analyzers receive a borrowed tail of a Window;
// they never own or mutate the underlying slice.
type Window struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle
}

// Len returns the number of candles in the window.
func (w Window) Len() int { return len(w.Candles) }

// Tail returns the last n candles as a new Window sharing the same backing
// array (a read-only borrow, never a copy).
func (w Window) Tail(n int) Window {
	if n <= 0 || n >= len(w.Candles) {
		return w
	}
	return Window{
		Symbol:    w.Symbol,
		Timeframe: w.Timeframe,
		Candles:   w.Candles[len(w.Candles)-n:],
	}
}

// Closes returns the slice of closing prices, the vector most indicators
// operate over.
func (w Window) Closes() []float64 {
	out := make([]float64, len(w.Candles))
	for i, c := range w.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs returns the slice of high prices.
func (w Window) Highs() []float64 {
	out := make([]float64, len(w.Candles))
	for i, c := range w.Candles {
		out[i] = c.High
	}
	return out
}

// Lows returns the slice of low prices.
func (w Window) Lows() []float64 {
	out := make([]float64, len(w.Candles))
	for i, c := range w.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the slice of tick volumes.
func (w Window) Volumes() []float64 {
	out := make([]float64, len(w.Candles))
	for i, c := range w.Candles {
		out[i] = c.TickVolume
	}
	return out
}

// LastCandleTime returns the timestamp of the most recent candle, or the
// zero time if the window is empty.
func (w Window) LastCandleTime() time.Time {
	if len(w.Candles) == 0 {
		return time.Time{}
	}
	return w.Candles[len(w.Candles)-1].Timestamp
}

// MonotonicTimestamps reports whether candle timestamps are strictly
// increasing, per the CandleWindow invariant.
func (w Window) MonotonicTimestamps() bool {
	for i := 1; i < len(w.Candles); i++ {
		if !w.Candles[i].Timestamp.After(w.Candles[i-1].Timestamp) {
			return false
		}
	}
	return true
}
