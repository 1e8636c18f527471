package bridge

import (
	"context"
	"sync"
	"time"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/session"
)

// Mock is a Bridge implementation suitable for tests and for running the
// engine without a live terminal connection. It serves candles and
// account state from in-memory fixtures, serializing calls behind a mutex
// since real bridges are assumed not thread-safe across interleaved calls
// on the same handle (spec.md §6).
type Mock struct {
	mu        sync.Mutex
	connected bool

	Account *session.AccountSnapshot
	Symbols []SymbolRef
	Bars    map[string]map[candle.Timeframe][]candle.Candle
}

// NewMock constructs an empty Mock bridge.
func NewMock() *Mock {
	return &Mock{Bars: make(map[string]map[candle.Timeframe][]candle.Candle)}
}

// SetBars installs fixture candles for (symbol, tf).
func (m *Mock) SetBars(symbol string, tf candle.Timeframe, bars []candle.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Bars[symbol] == nil {
		m.Bars[symbol] = make(map[candle.Timeframe][]candle.Candle)
	}
	m.Bars[symbol][tf] = bars
}

func (m *Mock) Initialize(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return true, nil
}

func (m *Mock) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *Mock) AccountInfo(ctx context.Context) (*session.AccountSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Account == nil {
		return nil, nil
	}
	snap := *m.Account
	snap.Timestamp = time.Now()
	return &snap, nil
}

func (m *Mock) SymbolsList(ctx context.Context) ([]SymbolRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SymbolRef, len(m.Symbols))
	copy(out, m.Symbols)
	return out, nil
}

func (m *Mock) SymbolInfo(ctx context.Context, name string) (*SymbolInfo, error) {
	return &SymbolInfo{Name: name}, nil
}

func (m *Mock) CopyRatesFromPos(ctx context.Context, symbol string, tf candle.Timeframe, pos, count int) ([]candle.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bars := m.Bars[symbol][tf]
	if pos >= len(bars) {
		return nil, nil
	}
	end := len(bars) - pos
	start := end - count
	if start < 0 {
		start = 0
	}
	out := make([]candle.Candle, end-start)
	copy(out, bars[start:end])
	return out, nil
}

func (m *Mock) CopyRatesFrom(ctx context.Context, symbol string, tf candle.Timeframe, start time.Time, count int) ([]candle.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bars := m.Bars[symbol][tf]
	var out []candle.Candle
	for _, b := range bars {
		if !b.Timestamp.Before(start) {
			out = append(out, b)
			if len(out) >= count {
				break
			}
		}
	}
	return out, nil
}
