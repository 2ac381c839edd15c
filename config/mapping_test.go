package config

import "testing"

func TestMappingResolve(t *testing.T) {
	m := NewMapping(map[string]string{"symbol": "ukey"}, []string{"junk"})

	if got, ok := m.Resolve("symbol"); !ok || got != "ukey" {
		t.Errorf("expected symbol -> ukey, got %q ok=%v", got, ok)
	}
	if got, ok := m.Resolve("fill_price"); !ok || got != "fill_price" {
		t.Errorf("expected passthrough for unmapped column, got %q ok=%v", got, ok)
	}
	if _, ok := m.Resolve("junk"); ok {
		t.Error("expected dropped column to resolve to false")
	}
}

func TestMappingMerge(t *testing.T) {
	parent := NewMapping(map[string]string{"a": "x", "b": "y"}, []string{"d1"})
	child := NewMapping(map[string]string{"b": "z", "c": "w"}, []string{"d2"})

	merged := parent.Merge(child)

	if got, _ := merged.Resolve("a"); got != "x" {
		t.Errorf("expected inherited rename a -> x, got %q", got)
	}
	if got, _ := merged.Resolve("b"); got != "z" {
		t.Errorf("expected child to shadow parent for b, got %q", got)
	}
	if got, _ := merged.Resolve("c"); got != "w" {
		t.Errorf("expected child rename c -> w, got %q", got)
	}
	for _, d := range []string{"d1", "d2"} {
		if _, ok := merged.Resolve(d); ok {
			t.Errorf("expected %s dropped in merged mapping", d)
		}
	}

	// Merge must not mutate its inputs.
	if got, _ := parent.Resolve("b"); got != "y" {
		t.Errorf("parent mutated by merge: b -> %q", got)
	}
	if _, ok := parent.Resolve("d2"); !ok {
		t.Error("parent drop set mutated by merge")
	}
}

func TestMappingCopiesInputs(t *testing.T) {
	renames := map[string]string{"a": "x"}
	m := NewMapping(renames, nil)
	renames["a"] = "mutated"

	if got, _ := m.Resolve("a"); got != "x" {
		t.Errorf("mapping shares caller map: a -> %q", got)
	}
}

func TestPresetLookup(t *testing.T) {
	trade, err := Preset("ylin_v20251204")
	if err != nil {
		t.Fatalf("Preset failed: %v", err)
	}
	if got, _ := trade.Resolve("symbol"); got != "ukey" {
		t.Errorf("expected symbol -> ukey, got %q", got)
	}
	if got, _ := trade.Resolve("alphaTs"); got != "alpha_ts" {
		t.Errorf("expected alphaTs -> alpha_ts, got %q", got)
	}
	if _, ok := trade.Resolve("isRebasedQuote"); ok {
		t.Error("expected isRebasedQuote dropped")
	}

	alpha, err := Preset("jyao_v20251114")
	if err != nil {
		t.Fatalf("Preset failed: %v", err)
	}
	if got, _ := alpha.Resolve("TimeStamp"); got != "ticktime" {
		t.Errorf("expected TimeStamp -> ticktime, got %q", got)
	}
	if got, _ := alpha.Resolve("alpha1"); got != "x_3m" {
		t.Errorf("expected alpha1 -> x_3m, got %q", got)
	}

	if _, err := Preset("missing"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestConfigMappings(t *testing.T) {
	cfg := &Config{
		Columns: ColumnsConfig{
			TradePreset:  "ylin_v20251204",
			TradeRenames: map[string]string{"symbol": "instrument"},
			Drop:         []string{"seq_num"},
		},
	}

	m, err := cfg.TradeMapping()
	if err != nil {
		t.Fatalf("TradeMapping failed: %v", err)
	}
	if got, _ := m.Resolve("symbol"); got != "instrument" {
		t.Errorf("expected custom rename to shadow preset, got %q", got)
	}
	if got, _ := m.Resolve("fillPrice"); got != "fill_price" {
		t.Errorf("expected preset rename preserved, got %q", got)
	}
	if _, ok := m.Resolve("seq_num"); ok {
		t.Error("expected configured drop applied")
	}

	cfg.Columns.TradePreset = "bogus"
	if _, err := cfg.TradeMapping(); err == nil {
		t.Error("expected error for unknown preset")
	}
}
