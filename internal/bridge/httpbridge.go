package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marketanalysis/internal/candle"
	"marketanalysis/internal/errs"
	"marketanalysis/internal/session"
)

// HTTPBridge talks to an out-of-process terminal-bridge sidecar over plain
// JSON/HTTP GET endpoints. Grounded on the teacher's internal/binance.Client
// GET-then-json.Unmarshal shape, with Binance's REST paths replaced by the
// bridge's own (/account, /symbols, /symbol, /rates_from_pos, /rates_from)
// and response codes mapped onto the errs taxonomy instead of a bare
// fmt.Errorf.
type HTTPBridge struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBridge constructs an HTTPBridge against baseURL (e.g.
// "http://127.0.0.1:9191") with the given request timeout.
func NewHTTPBridge(baseURL string, timeout time.Duration) *HTTPBridge {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBridge{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Bridge = (*HTTPBridge)(nil)

func (b *HTTPBridge) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s%s", b.baseURL, path)
	if params != nil {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errs.Wrap(errs.Internal, "build bridge request", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errs.Wrap(errs.Cancelled, "bridge request cancelled", err)
		}
		return errs.Wrap(errs.BridgeTransient, "bridge request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.BridgeTransient, "read bridge response", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return errs.New(errs.BridgeUnavailable, "bridge reports unavailable")
	case resp.StatusCode >= 500:
		return errs.New(errs.BridgeTransient, fmt.Sprintf("bridge %s: %s", path, body))
	case resp.StatusCode >= 400:
		return errs.New(errs.BridgeUnavailable, fmt.Sprintf("bridge %s: %s", path, body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errs.Wrap(errs.Internal, "decode bridge response", err)
	}
	return nil
}

func (b *HTTPBridge) Initialize(ctx context.Context) (bool, error) {
	var out struct {
		Connected bool `json:"connected"`
	}
	if err := b.get(ctx, "/initialize", nil, &out); err != nil {
		return false, err
	}
	return out.Connected, nil
}

func (b *HTTPBridge) Shutdown(ctx context.Context) error {
	return b.get(ctx, "/shutdown", nil, nil)
}

func (b *HTTPBridge) AccountInfo(ctx context.Context) (*session.AccountSnapshot, error) {
	var out session.AccountSnapshot
	if err := b.get(ctx, "/account", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBridge) SymbolsList(ctx context.Context) ([]SymbolRef, error) {
	var out []SymbolRef
	if err := b.get(ctx, "/symbols", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *HTTPBridge) SymbolInfo(ctx context.Context, name string) (*SymbolInfo, error) {
	params := url.Values{"symbol": {name}}
	var out SymbolInfo
	if err := b.get(ctx, "/symbol", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBridge) CopyRatesFromPos(ctx context.Context, symbol string, tf candle.Timeframe, pos, count int) ([]candle.Candle, error) {
	params := url.Values{
		"symbol": {symbol},
		"tf":     {string(tf)},
		"pos":    {strconv.Itoa(pos)},
		"count":  {strconv.Itoa(count)},
	}
	var out []candle.Candle
	if err := b.get(ctx, "/rates_from_pos", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *HTTPBridge) CopyRatesFrom(ctx context.Context, symbol string, tf candle.Timeframe, start time.Time, count int) ([]candle.Candle, error) {
	params := url.Values{
		"symbol": {symbol},
		"tf":     {string(tf)},
		"start":  {strconv.FormatInt(start.Unix(), 10)},
		"count":  {strconv.Itoa(count)},
	}
	var out []candle.Candle
	if err := b.get(ctx, "/rates_from", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
