package errs

import (
	"fmt"
	"testing"
)

func TestKindOfUnwraps(t *testing.T) {
	base := Wrap(BridgeTransient, "timeout", fmt.Errorf("dial tcp: i/o timeout"))
	wrapped := fmt.Errorf("fetch candles: %w", base)
	if KindOf(wrapped) != BridgeTransient {
		t.Fatalf("expected BridgeTransient, got %v", KindOf(wrapped))
	}
}

func TestKindOfUnrelatedError(t *testing.T) {
	if KindOf(fmt.Errorf("plain error")) != Unknown {
		t.Fatal("expected Unknown for a non-*Error chain")
	}
}

func TestSurfacedPolicy(t *testing.T) {
	surfaced := []Kind{BridgeUnavailable, NoAccount, NoSymbols, SessionChanged}
	for _, k := range surfaced {
		if !k.Surfaced() {
			t.Fatalf("%v should be surfaced", k)
		}
	}
	notSurfaced := []Kind{InsufficientData, InvalidTimeframe, Cancelled, Internal, BridgeTransient}
	for _, k := range notSurfaced {
		if k.Surfaced() {
			t.Fatalf("%v should not be surfaced directly", k)
		}
	}
}
