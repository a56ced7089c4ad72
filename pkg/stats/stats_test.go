package stats

import "testing"

// TestLerp ensures fractional days blend neighbouring samples and clamp at the ends.
func TestLerp(t *testing.T) {
	values := []float64{0, 10, 30}
	for _, tc := range []struct {
		day  float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 5},
		{1.25, 15},
		{2, 30},
		{7.5, 30},
	} {
		if got := Lerp(values, tc.day); got != tc.want {
			t.Fatalf("Lerp(%v) = %v, want %v", tc.day, got, tc.want)
		}
	}
	if got := Lerp(nil, 1); got != 0 {
		t.Fatalf("Lerp(nil) = %v, want 0", got)
	}
}

// TestCombine ensures every row/mode pair maps to its own metric.
func TestCombine(t *testing.T) {
	seen := make(map[Metric]bool)
	for _, row := range []Row{Cases, Deaths} {
		for _, mode := range []DeltaMode{Total, Daily} {
			seen[Combine(row, mode)] = true
		}
	}
	if len(seen) != len(Metrics) {
		t.Fatalf("Combine covers %d metrics, want %d", len(seen), len(Metrics))
	}
	if got := Combine(Deaths, Daily); got != DeathsDaily {
		t.Fatalf("Combine(deaths, daily) = %v, want %v", got, DeathsDaily)
	}
}

// TestParseRowAndMode ensures the textual forms round trip through String.
func TestParseRowAndMode(t *testing.T) {
	for _, r := range []Row{Cases, Deaths} {
		got, err := ParseRow(r.String())
		if err != nil || got != r {
			t.Fatalf("ParseRow(%q) = %v, %v", r.String(), got, err)
		}
	}
	for _, m := range []DeltaMode{Total, Daily} {
		got, err := ParseDeltaMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseDeltaMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseRow("recovered"); err == nil {
		t.Fatal("expected an error for an unknown row")
	}
}

// TestModelLookups ensures out-of-range references resolve to nil.
func TestModelLookups(t *testing.T) {
	m := buildScenario(t)

	if r := m.Region(RegionRef{Country: 0, Region: 1}); r == nil || r.Name != "X" {
		t.Fatalf("Region(0,1) = %v, want X", r)
	}
	if r := m.Region(RegionRef{Country: 0, Region: 2}); r != nil {
		t.Fatalf("Region(0,2) = %v, want nil", r)
	}
	if c := m.Country(-1); c != nil {
		t.Fatalf("Country(-1) = %v, want nil", c)
	}
	if got := m.ClampDay(99); got != 2 {
		t.Fatalf("ClampDay(99) = %v, want 2", got)
	}
	if got := m.ClampDay(-3); got != 0 {
		t.Fatalf("ClampDay(-3) = %v, want 0", got)
	}
}
