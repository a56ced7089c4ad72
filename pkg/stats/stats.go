package stats

import (
	"fmt"
	"math"
	"time"
)

// Metric names one of the four combined daily series kept for every
// region, country and the world.
type Metric int

const (
	CasesTotal Metric = iota
	DeathsTotal
	CasesDaily
	DeathsDaily

	metricCount
)

// Metrics lists every combined metric in storage order.
var Metrics = [metricCount]Metric{CasesTotal, DeathsTotal, CasesDaily, DeathsDaily}

func (m Metric) String() string {
	switch m {
	case CasesTotal:
		return "casesTotal"
	case DeathsTotal:
		return "deathsTotal"
	case CasesDaily:
		return "casesDaily"
	case DeathsDaily:
		return "deathsDaily"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// Row selects the counted quantity.
type Row int

const (
	Cases Row = iota
	Deaths
)

func (r Row) String() string {
	if r == Deaths {
		return "deaths"
	}
	return "cases"
}

// ParseRow accepts "cases" or "deaths".
func ParseRow(s string) (Row, error) {
	switch s {
	case "cases":
		return Cases, nil
	case "deaths":
		return Deaths, nil
	}
	return Cases, fmt.Errorf("unknown row %q", s)
}

// DeltaMode selects between the cumulative series and its daily increments.
type DeltaMode int

const (
	Total DeltaMode = iota
	Daily
)

func (m DeltaMode) String() string {
	if m == Daily {
		return "daily"
	}
	return "total"
}

// ParseDeltaMode accepts "total" or "daily".
func ParseDeltaMode(s string) (DeltaMode, error) {
	switch s {
	case "total":
		return Total, nil
	case "daily":
		return Daily, nil
	}
	return Total, fmt.Errorf("unknown delta mode %q", s)
}

// Combine maps a row and a delta mode to the stored metric.
func Combine(row Row, mode DeltaMode) Metric {
	switch {
	case row == Cases && mode == Total:
		return CasesTotal
	case row == Deaths && mode == Total:
		return DeathsTotal
	case row == Cases && mode == Daily:
		return CasesDaily
	default:
		return DeathsDaily
	}
}

// Rows holds one series per combined metric, each dayCount long.
type Rows [metricCount][]float64

func newRows(dayCount int) Rows {
	var r Rows
	for _, m := range Metrics {
		r[m] = make([]float64, dayCount)
	}
	return r
}

// Get returns the series for m.
func (r *Rows) Get(m Metric) []float64 {
	return r[m]
}

// MaxValues maps every combined metric to its largest per-region value.
type MaxValues [metricCount]float64

// Get returns the maximum for m.
func (v MaxValues) Get(m Metric) float64 {
	return v[m]
}

// Model is the world -> country -> region rollup. It is built once by Build
// and never written to afterwards.
type Model struct {
	DayCount  int
	Epoch     time.Time
	MaxValues MaxValues
	Rows      Rows
	Countries []*Country
}

// Country groups the regions sharing a country name. Its rows are the sum of
// its regions' rows.
type Country struct {
	ID      int
	Name    string
	Rows    Rows
	Regions []*Region
}

// Region is a single input row: a country or one of its subdivisions. An
// empty Name denotes the country itself.
type Region struct {
	ID      int
	Country int
	Name    string
	Lng     float64
	Lat     float64
	Rows    Rows
}

// RegionRef identifies a region by its country id and its id within that
// country.
type RegionRef struct {
	Country int
	Region  int
}

// Region resolves ref, or returns nil when it is out of range.
func (m *Model) Region(ref RegionRef) *Region {
	c := m.Country(ref.Country)
	if c == nil || ref.Region < 0 || ref.Region >= len(c.Regions) {
		return nil
	}
	return c.Regions[ref.Region]
}

// Country returns the country with the given id, or nil.
func (m *Model) Country(id int) *Country {
	if id < 0 || id >= len(m.Countries) {
		return nil
	}
	return m.Countries[id]
}

// Regions returns every region in country order, then region order.
func (m *Model) Regions() []RegionRef {
	var refs []RegionRef
	for _, c := range m.Countries {
		for _, r := range c.Regions {
			refs = append(refs, RegionRef{Country: c.ID, Region: r.ID})
		}
	}
	return refs
}

// Ref returns the reference of r.
func (r *Region) Ref() RegionRef {
	return RegionRef{Country: r.Country, Region: r.ID}
}

// DateOf returns the calendar date shown for a fractional day.
func (m *Model) DateOf(day float64) time.Time {
	return m.Epoch.AddDate(0, 0, int(math.Floor(day)))
}

// ClampDay limits day to [0, DayCount-1].
func (m *Model) ClampDay(day float64) float64 {
	return math.Min(math.Max(day, 0), float64(m.DayCount-1))
}

// Lerp samples values at a fractional day, blending linearly between the
// two neighbouring samples.
func Lerp(values []float64, day float64) float64 {
	if len(values) == 0 {
		return 0
	}
	left := int(math.Floor(day))
	if left < 0 {
		return values[0]
	}
	if left >= len(values)-1 {
		return values[len(values)-1]
	}
	ratio := day - float64(left)
	return (1-ratio)*values[left] + ratio*values[left+1]
}
