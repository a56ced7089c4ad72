package scope

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anrid/covid-scope/pkg/stats"
)

// DateLayout renders the date indicator.
const DateLayout = "02.01.2006"

// Tooltip describes the column under the pointer.
type Tooltip struct {
	Region   stats.RegionRef `json:"-"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle,omitempty"`
	Cases    string          `json:"cases"`
	Deaths   string          `json:"deaths"`
}

// Labels formats numbers and dates for one locale.
type Labels struct {
	printer *message.Printer
}

func NewLabels(tag language.Tag) *Labels {
	return &Labels{printer: message.NewPrinter(tag)}
}

// Count renders a count with the locale's digit grouping.
func (l *Labels) Count(v float64) string {
	return l.printer.Sprintf("%d", int64(math.Round(v)))
}

// Tooltip builds the tooltip of ref for the whole day containing day. The
// counts follow mode.
func (l *Labels) Tooltip(m *stats.Model, ref stats.RegionRef, day float64, mode stats.DeltaMode) (Tooltip, bool) {
	r := m.Region(ref)
	if r == nil {
		return Tooltip{}, false
	}
	c := m.Country(r.Country)

	t := Tooltip{Region: ref, Title: c.Name}
	if r.Name != "" {
		t.Title = r.Name
		t.Subtitle = c.Name
	}

	d := int(math.Floor(m.ClampDay(day)))
	t.Cases = l.Count(r.Rows.Get(stats.Combine(stats.Cases, mode))[d])
	t.Deaths = l.Count(r.Rows.Get(stats.Combine(stats.Deaths, mode))[d])
	return t, true
}

// Date renders the calendar date of a fractional day.
func (l *Labels) Date(m *stats.Model, day float64) string {
	return m.DateOf(day).Format(DateLayout)
}
