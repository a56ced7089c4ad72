package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"math"
	"os"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/message"

	"github.com/anrid/covid-scope/pkg/camera"
	"github.com/anrid/covid-scope/pkg/config"
	"github.com/anrid/covid-scope/pkg/gpu/soft"
	"github.com/anrid/covid-scope/pkg/hostmap"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/scope"
	"github.com/anrid/covid-scope/pkg/shaders"
	"github.com/anrid/covid-scope/pkg/stats"
)

type options struct {
	configFile string
	top        int
	debug      bool

	out     string
	flat    bool
	day     float64
	row     string
	mode    string
	country int
	pickX   int
	pickY   int

	camera camera.State
}

func parseFlags() options {
	o := options{}
	flag.StringVar(&o.configFile, "config", "", "config file (yaml, json or toml)")
	flag.IntVar(&o.top, "top", 15, "countries listed in the summary")
	flag.BoolVar(&o.debug, "debug", false, "dump the selected country and picked tooltip")

	flag.StringVar(&o.out, "png", "", "render a frame into this PNG file")
	flag.BoolVar(&o.flat, "flat", false, "render flat palette colors without shading")
	flag.Float64Var(&o.day, "day", -1, "day to show, the last day when negative")
	flag.StringVar(&o.row, "row", "cases", "cases or deaths")
	flag.StringVar(&o.mode, "mode", "total", "total or daily")
	flag.IntVar(&o.country, "select", -1, "country id to select")
	flag.IntVar(&o.pickX, "pick-x", -1, "pick the column under this pixel")
	flag.IntVar(&o.pickY, "pick-y", -1, "pick the column under this pixel")

	flag.Float64Var(&o.camera.Center.Lng, "lng", 10, "camera center longitude")
	flag.Float64Var(&o.camera.Center.Lat, "lat", 30, "camera center latitude")
	flag.Float64Var(&o.camera.Zoom, "zoom", 1, "camera zoom")
	flag.Float64Var(&o.camera.Bearing, "bearing", 0, "camera bearing in degrees")
	flag.Float64Var(&o.camera.Pitch, "pitch", 40, "camera pitch in degrees")
	flag.IntVar(&o.camera.Width, "width", 1024, "frame width")
	flag.IntVar(&o.camera.Height, "height", 640, "frame height")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	cfg, err := config.Load(o.configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, found, err := stats.LoadIfExists(cfg.Data.CachePath)
	if err != nil {
		logger.Fatal(ctx, err)
	}
	if !found {
		logger.Fatal(ctx, fmt.Errorf("no database at %s, run the create command in `cmd/create` first", cfg.Data.CachePath))
	}

	model, err := db.Model(stats.BuildOptions{Epoch: cfg.Epoch()})
	if err != nil {
		logger.Fatal(ctx, err)
	}

	row, err := stats.ParseRow(o.row)
	if err != nil {
		logger.Fatal(ctx, err)
	}
	mode, err := stats.ParseDeltaMode(o.mode)
	if err != nil {
		logger.Fatal(ctx, err)
	}
	day := o.day
	if day < 0 {
		day = float64(model.DayCount - 1)
	}
	day = model.ClampDay(day)

	p := message.NewPrinter(cfg.Language())
	if err := checkTotals(model); err != nil {
		logger.Fatal(ctx, err)
	}
	printSummary(p, model, stats.Combine(row, mode), day, o.top)

	if o.out == "" && o.pickX < 0 {
		return
	}

	m := hostmap.New(o.camera)
	dev := soft.New(shaders.SoftKernels())
	dev.Resize(o.camera.Width, o.camera.Height)
	m.OnResize(dev.Resize)

	// one-shot render: a fake clock lets the picking pass run without waiting
	clock := clockwork.NewFakeClock()
	opts := cfg.ScopeOptions()
	opts.Clock = clock
	if o.flat {
		opts.Unlit = true
	}

	sc, err := scope.New(dev, model, m, opts)
	if err != nil {
		logger.Fatal(ctx, err)
	}
	if _, err := hostmap.Attach(ctx, m, sc); err != nil {
		logger.Fatal(ctx, err)
	}

	sc.SetRow(row)
	sc.SetDeltaMode(mode)
	sc.SetDay(day)
	if c := model.Country(o.country); c != nil {
		sc.SelectCountry(c.ID)
		if o.debug {
			spew.Dump(c.Name, c.Regions)
		}
	}

	m.Frame()
	clock.Advance(opts.Debounce)
	m.Frame()

	if o.out != "" {
		if err := writePNG(o.out, dev); err != nil {
			logger.Fatal(ctx, err)
		}
		logger.Infof(ctx, "wrote %s (%s, %s)", o.out, sc.Date(), sc.Metric())
	}

	if o.pickX >= 0 && o.pickY >= 0 {
		tip, ok := sc.Hover(o.pickX, o.pickY)
		if !ok {
			p.Printf("\nNothing at (%d, %d)\n", o.pickX, o.pickY)
			return
		}
		p.Printf("\n%s %s\n  cases  %s\n  deaths %s\n", tip.Title, tip.Subtitle, tip.Cases, tip.Deaths)
		if o.debug {
			spew.Dump(tip)
		}
	}
}

// checkTotals verifies that the world series is the sum of the country
// series for every metric on the last day.
func checkTotals(m *stats.Model) error {
	last := m.DayCount - 1
	for _, mt := range stats.Metrics {
		var sum float64
		for _, c := range m.Countries {
			sum += c.Rows.Get(mt)[last]
		}
		world := m.Rows.Get(mt)[last]
		if math.Abs(sum-world) > 1e-9*math.Max(1, math.Abs(world)) {
			return fmt.Errorf("%s: countries sum to %f, world is %f", mt, sum, world)
		}
	}
	return nil
}

func printSummary(p *message.Printer, m *stats.Model, mt stats.Metric, day float64, top int) {
	type entry struct {
		name  string
		value float64
	}
	entries := make([]entry, 0, len(m.Countries))
	for _, c := range m.Countries {
		entries = append(entries, entry{c.Name, stats.Lerp(c.Rows.Get(mt), day)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].value > entries[j].value
	})

	world := stats.Lerp(m.Rows.Get(mt), day)
	p.Printf("\n\nWorld, %s on %s: %.f\n\n", mt, m.DateOf(day).Format(scope.DateLayout), world)
	p.Printf("By Country (%d countries, %d days):\n", len(m.Countries), m.DayCount)

	for i, e := range entries {
		if i >= top {
			break
		}
		var pct float64
		if world > 0 {
			pct = e.value / world
		}
		p.Printf("%02d. %-25s  --  %12.f  %6.02f%%\n", i+1, e.name, e.value, pct*100)
	}
}

func writePNG(file string, dev *soft.Device) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create %s: %w", file, err)
	}
	defer f.Close()

	if err := png.Encode(f, dev.Image()); err != nil {
		return fmt.Errorf("encode %s: %w", file, err)
	}
	return f.Close()
}
