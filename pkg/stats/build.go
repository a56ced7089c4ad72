package stats

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Identity columns shared by both input tables.
const (
	ColumnCountry = "Country/Region"
	ColumnRegion  = "Province/State"
	ColumnLat     = "Lat"
	ColumnLong    = "Long"
)

// DateLayout is the header format of day columns (M/D/YY).
const DateLayout = "1/2/06"

// DefaultEpoch is the date of the first day column.
var DefaultEpoch = time.Date(2020, time.January, 22, 0, 0, 0, 0, time.UTC)

var (
	ErrNoDayColumns  = errors.New("no day columns in header")
	ErrMissingColumn = errors.New("missing identity column")
	ErrMisaligned    = errors.New("tables are not aligned")
)

var dayShape = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`)

// BuildOptions tunes Build. The zero value uses DefaultEpoch.
type BuildOptions struct {
	Epoch time.Time
}

// IsDayColumn reports whether header names a calendar day. Headers that are
// date-shaped but not a real date (2/30/20) are not days.
func IsDayColumn(header string) bool {
	if !dayShape.MatchString(header) {
		return false
	}
	_, err := time.Parse(DateLayout, header)
	return err == nil
}

// DayCount counts the day columns of a header row.
func DayCount(header []string) int {
	var n int
	for _, h := range header {
		if IsDayColumn(h) {
			n++
		}
	}
	return n
}

// FormatDay renders t the way day columns are named.
func FormatDay(t time.Time) string {
	return fmt.Sprintf("%d/%d/%02d", int(t.Month()), t.Day(), t.Year()%100)
}

// CheckAligned verifies that deaths lists the same regions as cases, in the
// same order. Build relies on that and does not check it itself.
func CheckAligned(cases, deaths *Table) error {
	if len(cases.Records) != len(deaths.Records) {
		return fmt.Errorf("%w: %d cases rows, %d deaths rows", ErrMisaligned, len(cases.Records), len(deaths.Records))
	}
	for _, name := range []string{ColumnCountry, ColumnRegion} {
		cc, dc := cases.Column(name), deaths.Column(name)
		if cc < 0 || dc < 0 {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		for i := range cases.Records {
			cv := strings.TrimSpace(cases.Cell(i, cc))
			dv := strings.TrimSpace(deaths.Cell(i, dc))
			if cv != dv {
				return fmt.Errorf("%w: row %d %s is %q in cases, %q in deaths", ErrMisaligned, i+1, name, cv, dv)
			}
		}
	}
	return nil
}

// Build aggregates the cases and deaths tables into a Model. Both tables are
// expected to list the same regions in the same order (see CheckAligned).
// Cells that are not numbers read as 0.
func Build(cases, deaths *Table, opts BuildOptions) (*Model, error) {
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}

	dayCount := DayCount(cases.Header)
	if dayCount == 0 {
		return nil, fmt.Errorf("table %q: %w", cases.Name, ErrNoDayColumns)
	}

	var identity [4]int
	for i, name := range []string{ColumnCountry, ColumnRegion, ColumnLong, ColumnLat} {
		identity[i] = cases.Column(name)
		if identity[i] < 0 {
			return nil, fmt.Errorf("table %q: %w: %s", cases.Name, ErrMissingColumn, name)
		}
	}
	countryCol, regionCol, lngCol, latCol := identity[0], identity[1], identity[2], identity[3]

	casesCols := make([]int, dayCount)
	deathsCols := make([]int, dayCount)
	for d := 0; d < dayCount; d++ {
		name := FormatDay(epoch.AddDate(0, 0, d))
		casesCols[d] = cases.Column(name)
		deathsCols[d] = deaths.Column(name)
	}

	m := &Model{
		DayCount: dayCount,
		Epoch:    epoch,
		Rows:     newRows(dayCount),
	}

	countries := make(map[string]*Country)

	for i := range cases.Records {
		countryName := strings.TrimSpace(cases.Cell(i, countryCol))

		c, ok := countries[countryName]
		if !ok {
			c = &Country{
				ID:   len(m.Countries),
				Name: countryName,
				Rows: newRows(dayCount),
			}
			countries[countryName] = c
			m.Countries = append(m.Countries, c)
		}

		r := &Region{
			ID:      len(c.Regions),
			Country: c.ID,
			Name:    strings.TrimSpace(cases.Cell(i, regionCol)),
			Lng:     parseCoord(cases.Cell(i, lngCol)),
			Lat:     parseCoord(cases.Cell(i, latCol)),
			Rows:    newRows(dayCount),
		}
		c.Regions = append(c.Regions, r)

		var prevCases, prevDeaths float64
		for d := 0; d < dayCount; d++ {
			casesValue := parseCell(cases.Cell(i, casesCols[d]))
			deathsValue := parseCell(deaths.Cell(i, deathsCols[d]))

			var casesDelta, deathsDelta float64
			if d > 0 {
				casesDelta = math.Max(casesValue-prevCases, 0)
				deathsDelta = math.Max(deathsValue-prevDeaths, 0)
			}
			prevCases, prevDeaths = casesValue, deathsValue

			values := [metricCount]float64{
				CasesTotal:  casesValue,
				DeathsTotal: deathsValue,
				CasesDaily:  casesDelta,
				DeathsDaily: deathsDelta,
			}
			for _, mt := range Metrics {
				v := values[mt]
				r.Rows[mt][d] = v
				c.Rows[mt][d] += v
				m.Rows[mt][d] += v
				if v > m.MaxValues[mt] {
					m.MaxValues[mt] = v
				}
			}
		}
	}

	return m, nil
}

// parseCell reads a cumulative count. Anything that is not a non-negative
// decimal number counts as 0.
func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}

func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
