// Package bridge defines the terminal-bridge interface this engine
// consumes. The interface is deliberately incomplete with respect to the
// native client library it wraps: it has no method that can mutate
// account or order state. That is the type-level safety wall spec.md §9
// calls for -- the wrapper cannot expose order-mutating methods at all,
// rather than relying on a runtime name check against a blocklist.
package bridge

import (
	"context"
	"time"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/session"
)

// SymbolRef is one entry of the bridge's symbol listing.
type SymbolRef struct {
	Name    string
	Path    string
	Visible bool
}

// SymbolInfo is per-symbol metadata used for display and sanity checks.
type SymbolInfo struct {
	Name         string
	Bid          float64
	Ask          float64
	Digits       int
	Point        float64
	Spread       float64
	ContractSize float64
	TradeMode    string
}

// Bridge is the read-only surface this engine is allowed to call. There is
// intentionally no PlaceOrder, CancelOrder, ModifyPosition, or any other
// mutating method on this interface -- analysis-only mode is enforced by
// the type system, not by a runtime blocklist.
type Bridge interface {
	Initialize(ctx context.Context) (bool, error)
	Shutdown(ctx context.Context) error
	AccountInfo(ctx context.Context) (*session.AccountSnapshot, error)
	SymbolsList(ctx context.Context) ([]SymbolRef, error)
	SymbolInfo(ctx context.Context, name string) (*SymbolInfo, error)
	CopyRatesFromPos(ctx context.Context, symbol string, tf candle.Timeframe, pos, count int) ([]candle.Candle, error)
	CopyRatesFrom(ctx context.Context, symbol string, tf candle.Timeframe, start time.Time, count int) ([]candle.Candle, error)
}

// compile-time assertions that the mock adapter and any future adapter
// satisfy the read-only Bridge contract.
var _ Bridge = (*Mock)(nil)
