package scope

import (
	"fmt"
	"math"
	"strconv"

	"github.com/anrid/covid-scope/pkg/stats"
)

type RGB [3]uint8

// Palette is an ordered color ramp sampled by a ratio in [0, 1].
type Palette []RGB

var (
	CasesPalette = mustPalette(
		"#000004", "#36106b", "#792282", "#b3367a", "#e34e65",
		"#f9785d", "#fea16e", "#fec68a", "#fde3a5", "#fcfdbf",
	)
	DeathsPalette = mustPalette(
		"#67000d", "#a50f15", "#cb181d", "#ef3b2c", "#fb6a4a",
		"#fc9272", "#fcbba1", "#fee0d2", "#fff5f0",
	)
)

// PaletteFor returns the ramp used for row.
func PaletteFor(row stats.Row) Palette {
	if row == stats.Deaths {
		return DeathsPalette
	}
	return CasesPalette
}

func mustPalette(hex ...string) Palette {
	p := make(Palette, len(hex))
	for i, h := range hex {
		c, err := ParseHex(h)
		if err != nil {
			panic(err)
		}
		p[i] = c
	}
	return p
}

// ParseHex reads a #rrggbb color.
func ParseHex(s string) (RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return RGB{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// At samples the ramp, blending the two neighbouring stops and rounding to
// whole channel values.
func (p Palette) At(ratio float64) RGB {
	if ratio <= 0 || math.IsNaN(ratio) {
		return p[0]
	}
	if ratio >= 1 {
		return p[len(p)-1]
	}

	pos := float64(len(p)-1) * ratio
	left := int(math.Floor(pos))
	frac := pos - float64(left)

	var out RGB
	for i := range out {
		out[i] = uint8(math.Round(float64(p[left][i])*(1-frac) + float64(p[left+1][i])*frac))
	}
	return out
}

// Opacities of the visible pass.
const (
	OpacityNoSelection = 0.75
	OpacitySelected    = 1
	OpacityUnselected  = 0.25
)

// Height maps a value to a column height: log scaled, 0 for values up to 1.
func Height(value, scale float64) float64 {
	return logValue(value) * scale
}

func logValue(v float64) float64 {
	if !(v > 1) {
		return 0
	}
	return math.Log(v)
}

// ColorFor colors a column by the log ratio of value to maxValue on the row's
// palette.
func ColorFor(row stats.Row, value, maxValue float64, selectionMode, selected bool) [4]float32 {
	num := logValue(value)
	den := logValue(maxValue)

	var ratio float64
	if den > 0 {
		ratio = num / den
	}
	rgb := PaletteFor(row).At(ratio)

	opacity := OpacityNoSelection
	switch {
	case selectionMode && selected:
		opacity = OpacitySelected
	case selectionMode:
		opacity = OpacityUnselected
	}

	return [4]float32{
		float32(rgb[0]) / 255,
		float32(rgb[1]) / 255,
		float32(rgb[2]) / 255,
		float32(opacity),
	}
}
