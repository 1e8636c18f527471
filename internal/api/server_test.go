package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketanalysis/internal/analyzer/candlestick"
	"marketanalysis/internal/analyzer/chart"
	"marketanalysis/internal/analyzer/forex"
	"marketanalysis/internal/analyzer/general"
	"marketanalysis/internal/analyzer/registry"
	"marketanalysis/internal/analyzer/structural"
	"marketanalysis/internal/analyzer/synthetic"
	"marketanalysis/internal/bridge"
	"marketanalysis/internal/bus"
	"marketanalysis/internal/candle"
	"marketanalysis/internal/config"
	"marketanalysis/internal/logging"
	"marketanalysis/internal/marketcache"
	"marketanalysis/internal/session"
)

func buildRegistry() *registry.Registry {
	return &registry.Registry{
		Forex:       registry.Group{Name: "forex", Analyzers: forex.Analyzers()},
		Synthetic:   registry.Group{Name: "synthetic", Analyzers: synthetic.Analyzers()},
		General:     registry.Group{Name: "general", Analyzers: general.Analyzers()},
		Candlestick: registry.Group{Name: "candlestick", Analyzers: candlestick.Analyzers()},
		Chart:       registry.Group{Name: "chart", Analyzers: chart.Analyzers()},
		Structural:  registry.Group{Name: "structural", Analyzers: structural.Analyzers()},
	}
}

func trendingBars(n int) []candle.Candle {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	price := 1.10
	for i := 0; i < n; i++ {
		price += 0.0004
		candles[i] = candle.Candle{
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			Open:       price - 0.0004,
			High:       price + 0.0003,
			Low:        price - 0.0005,
			Close:      price,
			TickVolume: 1000 + float64(i),
		}
	}
	return candles
}

func newTestServer(t *testing.T) (*Server, *bridge.Mock) {
	t.Helper()
	mock := bridge.NewMock()
	mock.SetBars("EURUSD", candle.H1, trendingBars(150))
	mock.Symbols = []bridge.SymbolRef{{Name: "EURUSD", Path: "Forex\\EURUSD", Visible: true}}

	return NewServer(Deps{
		Config:   config.Default(),
		Bridge:   mock,
		Cache:    marketcache.New(mock),
		Registry: buildRegistry(),
		Monitor:  session.New(mock, nil),
		Bus:      bus.New(),
		Logger:   logging.Default(),
	}), mock
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleStartThenStatusThenStop(t *testing.T) {
	s, _ := newTestServer(t)

	body := strings.NewReader(`{"symbol":"EURUSD","timeframe":"H1","history_days":3,"poll_interval":1}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/start", body)
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	time.Sleep(50 * time.Millisecond)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	s.Handler().ServeHTTP(rec, req)
	var status map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status["running"] {
		t.Fatal("expected engine to be running after /start")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/stop", nil)
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	s.Handler().ServeHTTP(rec, req)
	status = nil
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status["running"] {
		t.Fatal("expected engine to be stopped after /stop")
	}
}

func TestHandleStartRejectsInvalidTimeframe(t *testing.T) {
	s, _ := newTestServer(t)
	body := strings.NewReader(`{"symbol":"EURUSD","timeframe":"bogus"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/start", body)
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid timeframe, got %d", rec.Code)
	}
}

func TestHandleCandles(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/candles?symbol=EURUSD&timeframe=H1&count=10", nil)
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode candles: %v", err)
	}
	if len(out) != 10 {
		t.Fatalf("expected 10 candles, got %d", len(out))
	}
}

func TestHandleCandlesRequiresSymbolAndTimeframe(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/candles", nil)
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSymbols(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/symbols", nil)
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode symbols: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one symbol from the mock bridge")
	}
}
