package catalog

import "testing"

func TestClassifyKnownBuckets(t *testing.T) {
	cases := map[string]Category{
		"EURUSD":        ForexMajors,
		"eurusd":        ForexMajors,
		"EURGBP":        ForexMinors,
		"USDZAR":        ForexExotics,
		"VOLATILITY75":  VolatilityIndices,
		"BOOM1000":      BoomCrash,
		"JUMP50S":       JumpIndices,
		"STEP25":        StepIndices,
		"XAUUSD":        Metals,
		"GOLD":          Metals,
		"BTCUSD":        Crypto,
		"WTI":           Commodities,
		"SPX500":        Indices,
		"UNKNOWNSYMBOL": Other,
	}
	for symbol, want := range cases {
		if got := Classify(symbol); got != want {
			t.Errorf("Classify(%q) = %v, want %v", symbol, got, want)
		}
	}
}

func TestClassifyIsTotal(t *testing.T) {
	// Every symbol must land in exactly one category; demonstrated here by
	// confirming an arbitrary unknown symbol lands in Other rather than
	// panicking or returning an invalid zero value ambiguously.
	if Classify("ZZZNOTREAL") != Other {
		t.Fatal("unknown symbols must classify as Other")
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	if Classify("EURUSD") != Classify("EURUSD") {
		t.Fatal("classification must be idempotent")
	}
}

func TestDiffAddedRemoved(t *testing.T) {
	added, removed := Diff([]string{"EURUSD", "GBPUSD"}, []string{"EURUSD", "USDJPY"})
	if len(added) != 1 || added[0] != "USDJPY" {
		t.Fatalf("expected added=[USDJPY], got %v", added)
	}
	if len(removed) != 1 || removed[0] != "GBPUSD" {
		t.Fatalf("expected removed=[GBPUSD], got %v", removed)
	}
}

func TestCatalogRefresh(t *testing.T) {
	c := &Catalog{}
	added, removed := c.Refresh([]string{"EURUSD", "GBPUSD"})
	if len(added) != 2 || len(removed) != 0 {
		t.Fatalf("first refresh should add all symbols, got added=%v removed=%v", added, removed)
	}
	added, removed = c.Refresh([]string{"EURUSD", "USDJPY"})
	if len(added) != 1 || len(removed) != 1 {
		t.Fatalf("expected one added one removed, got added=%v removed=%v", added, removed)
	}
	cats := c.Categorize()
	if len(cats[ForexMajors]) != 2 {
		t.Fatalf("expected 2 forex majors, got %v", cats[ForexMajors])
	}
}
