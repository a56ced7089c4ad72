package scope

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/anrid/covid-scope/pkg/stats"
)

// TestTooltipTitles ensures sub-regions carry their country as subtitle.
func TestTooltipTitles(t *testing.T) {
	m := testModel(t)
	l := NewLabels(language.English)

	tip, ok := l.Tooltip(m, stats.RegionRef{Country: 0, Region: 0}, 2.9, stats.Total)
	if !ok {
		t.Fatal("Tooltip returned false")
	}
	if tip.Title != "A" || tip.Subtitle != "" {
		t.Fatalf("country tooltip = %+v", tip)
	}
	if tip.Cases != "1,234" || tip.Deaths != "2" {
		t.Fatalf("counts = %q/%q, want 1,234/2", tip.Cases, tip.Deaths)
	}

	tip, ok = l.Tooltip(m, stats.RegionRef{Country: 0, Region: 1}, 1.5, stats.Daily)
	if !ok || tip.Title != "X" || tip.Subtitle != "A" {
		t.Fatalf("region tooltip = %+v, %v", tip, ok)
	}
	if tip.Cases != "5" || tip.Deaths != "0" {
		t.Fatalf("daily counts = %q/%q, want 5/0", tip.Cases, tip.Deaths)
	}

	if _, ok := l.Tooltip(m, stats.RegionRef{Country: 5}, 0, stats.Total); ok {
		t.Fatal("Tooltip resolved an unknown region")
	}
}

// TestLabelsLocale ensures digit grouping follows the locale.
func TestLabelsLocale(t *testing.T) {
	if got := NewLabels(language.German).Count(1234567); got != "1.234.567" {
		t.Fatalf("German Count = %q, want 1.234.567", got)
	}
	if got := NewLabels(language.English).Count(999); got != "999" {
		t.Fatalf("English Count = %q, want 999", got)
	}
}

// TestDateLabel ensures fractional days render the day they fall in.
func TestDateLabel(t *testing.T) {
	m := testModel(t)
	if got := NewLabels(language.English).Date(m, 1.9); got != "23.01.2020" {
		t.Fatalf("Date(1.9) = %q, want 23.01.2020", got)
	}
}
