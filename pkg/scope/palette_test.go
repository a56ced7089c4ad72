package scope

import (
	"math"
	"testing"

	"github.com/anrid/covid-scope/pkg/stats"
)

// TestHeightMonotonic ensures heights never decrease and vanish up to 1.
func TestHeightMonotonic(t *testing.T) {
	for _, v := range []float64{-3, 0, 0.5, 1} {
		if got := Height(v, 2); got != 0 {
			t.Fatalf("Height(%v) = %v, want 0", v, got)
		}
	}
	prev := 0.0
	for v := 1.0; v < 1e7; v *= 1.7 {
		h := Height(v, 2)
		if h < prev {
			t.Fatalf("Height(%v) = %v below previous %v", v, h, prev)
		}
		prev = h
	}
	if got, want := Height(math.E, 3), 3.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("Height(e, 3) = %v, want %v", got, want)
	}
}

// TestPaletteAt ensures ramp ends, clamping and rounded interpolation.
func TestPaletteAt(t *testing.T) {
	p := Palette{{0, 0, 0}, {255, 100, 10}}
	for _, tc := range []struct {
		ratio float64
		want  RGB
	}{
		{-1, RGB{0, 0, 0}},
		{0, RGB{0, 0, 0}},
		{0.5, RGB{128, 50, 5}},
		{1, RGB{255, 100, 10}},
		{2, RGB{255, 100, 10}},
		{math.NaN(), RGB{0, 0, 0}},
	} {
		if got := p.At(tc.ratio); got != tc.want {
			t.Fatalf("At(%v) = %v, want %v", tc.ratio, got, tc.want)
		}
	}
}

// TestPalettes ensures the built-in ramps run dark-to-light for cases and dark-first for deaths.
func TestPalettes(t *testing.T) {
	if got := CasesPalette[0]; got != (RGB{0, 0, 4}) {
		t.Fatalf("cases first stop = %v", got)
	}
	if got := DeathsPalette[0]; got != (RGB{0x67, 0, 0x0d}) {
		t.Fatalf("deaths first stop = %v", got)
	}
	if got := DeathsPalette[len(DeathsPalette)-1]; got != (RGB{0xff, 0xf5, 0xf0}) {
		t.Fatalf("deaths last stop = %v", got)
	}
	if len(CasesPalette) != 10 || len(DeathsPalette) != 9 {
		t.Fatalf("palette sizes = %d/%d, want 10/9", len(CasesPalette), len(DeathsPalette))
	}
}

// TestParseHexRejectsGarbage ensures malformed colors are errors.
func TestParseHexRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "fff", "#12345", "#zzzzzz", "123456#"} {
		if _, err := ParseHex(s); err == nil {
			t.Fatalf("ParseHex(%q) returned no error", s)
		}
	}
}

// TestColorForOpacity ensures opacity follows the selection state.
func TestColorForOpacity(t *testing.T) {
	for _, tc := range []struct {
		selectionMode, selected bool
		want                    float32
	}{
		{false, false, 0.75},
		{false, true, 0.75},
		{true, true, 1},
		{true, false, 0.25},
	} {
		if got := ColorFor(stats.Cases, 10, 100, tc.selectionMode, tc.selected)[3]; got != tc.want {
			t.Fatalf("opacity(%v, %v) = %v, want %v", tc.selectionMode, tc.selected, got, tc.want)
		}
	}
}

// TestColorForRatio ensures the log ratio picks the ramp ends.
func TestColorForRatio(t *testing.T) {
	top := ColorFor(stats.Cases, 100, 100, false, false)
	last := CasesPalette[len(CasesPalette)-1]
	if top[0] != float32(last[0])/255 || top[2] != float32(last[2])/255 {
		t.Fatalf("ColorFor(max) = %v, want last stop %v", top, last)
	}

	low := ColorFor(stats.Deaths, 1, 100, false, false)
	if low[0] != float32(DeathsPalette[0][0])/255 {
		t.Fatalf("ColorFor(1) = %v, want first stop", low)
	}

	// a max of 1 or less has no log range; everything sits on the first stop
	flat := ColorFor(stats.Cases, 1, 1, false, false)
	if flat[0] != 0 || flat[2] != float32(4)/255 {
		t.Fatalf("ColorFor(1, max 1) = %v, want first stop", flat)
	}
}
