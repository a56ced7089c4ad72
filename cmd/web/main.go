//go:build js && wasm

// Command web runs the columns layer in a browser canvas. The page drives the
// camera and the controls through the global covidScope object.
package main

import (
	"context"
	"fmt"
	"math"
	"syscall/js"

	"github.com/anrid/covid-scope/pkg/camera"
	"github.com/anrid/covid-scope/pkg/gpu/webgl"
	"github.com/anrid/covid-scope/pkg/hostmap"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/scope"
	"github.com/anrid/covid-scope/pkg/stats"
)

const (
	canvasID      = "scope"
	casesDataKey  = "casesUrl"
	deathsDataKey = "deathsUrl"
)

type app struct {
	m     *hostmap.Map
	scope *scope.Scope
	funcs []js.Func
}

func main() {
	ctx := context.Background()
	if err := logger.Init("info", true); err != nil {
		panic(err)
	}

	doc := js.Global().Get("document")
	canvas := doc.Call("getElementById", canvasID)
	if canvas.IsNull() {
		logger.Fatal(ctx, fmt.Errorf("no #%s canvas", canvasID))
	}
	dataset := canvas.Get("dataset")

	cases, deaths, err := stats.FetchTables(ctx, dataset.Get(casesDataKey).String(), dataset.Get(deathsDataKey).String())
	if err != nil {
		logger.Fatal(ctx, err)
	}
	db := stats.NewDatabase()
	db.Put(stats.CasesTable, cases)
	db.Put(stats.DeathsTable, deaths)
	model, err := db.Model(stats.BuildOptions{})
	if err != nil {
		logger.Fatal(ctx, err)
	}

	dev, err := webgl.New(canvas)
	if err != nil {
		logger.Fatal(ctx, err)
	}

	width, height := canvas.Get("clientWidth").Int(), canvas.Get("clientHeight").Int()
	canvas.Set("width", width)
	canvas.Set("height", height)

	a := &app{m: hostmap.New(camera.State{
		Center: camera.LngLat{Lng: 10, Lat: 30},
		Zoom:   1,
		Width:  width,
		Height: height,
	})}

	a.scope, err = scope.New(dev, model, a.m, scope.DefaultOptions())
	if err != nil {
		logger.Fatal(ctx, err)
	}
	if _, err := hostmap.Attach(ctx, a.m, a.scope); err != nil {
		logger.Fatal(ctx, err)
	}

	a.scope.Subscribe(scope.ObserverFunc(a.dispatch))
	a.export()
	a.watchResize(canvas)
	a.requestFrame()

	logger.Infof(ctx, "covid scope ready: %d regions", len(model.Regions()))
	select {}
}

func (a *app) fn(f func(args []js.Value) any) js.Func {
	jf := js.FuncOf(func(this js.Value, args []js.Value) any { return f(args) })
	a.funcs = append(a.funcs, jf)
	return jf
}

func (a *app) requestFrame() {
	var frame js.Func
	frame = a.fn(func([]js.Value) any {
		a.m.Frame()
		js.Global().Call("requestAnimationFrame", frame)
		return nil
	})
	js.Global().Call("requestAnimationFrame", frame)
}

func (a *app) watchResize(canvas js.Value) {
	js.Global().Call("addEventListener", "resize", a.fn(func([]js.Value) any {
		w, h := canvas.Get("clientWidth").Int(), canvas.Get("clientHeight").Int()
		canvas.Set("width", w)
		canvas.Set("height", h)
		a.m.Resize(w, h)
		return nil
	}))
}

func tooltipValue(t scope.Tooltip) js.Value {
	return js.ValueOf(map[string]any{
		"country":  t.Region.Country,
		"region":   t.Region.Region,
		"title":    t.Title,
		"subtitle": t.Subtitle,
		"cases":    t.Cases,
		"deaths":   t.Deaths,
	})
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func number(v js.Value) float64 {
	if v.Type() != js.TypeNumber {
		return 0
	}
	return v.Float()
}

func (a *app) export() {
	sc := a.scope
	api := map[string]any{
		"setCamera": a.fn(func(args []js.Value) any {
			a.m.Jump(camera.State{
				Center:  camera.LngLat{Lng: number(arg(args, 0)), Lat: number(arg(args, 1))},
				Zoom:    number(arg(args, 2)),
				Bearing: number(arg(args, 3)),
				Pitch:   number(arg(args, 4)),
			})
			return nil
		}),
		"setDay": a.fn(func(args []js.Value) any {
			sc.SetDay(number(arg(args, 0)))
			return nil
		}),
		"setRow": a.fn(func(args []js.Value) any {
			if row, err := stats.ParseRow(arg(args, 0).String()); err == nil {
				sc.SetRow(row)
			}
			return nil
		}),
		"setMode": a.fn(func(args []js.Value) any {
			if mode, err := stats.ParseDeltaMode(arg(args, 0).String()); err == nil {
				sc.SetDeltaMode(mode)
			}
			return nil
		}),
		"play":  a.fn(func([]js.Value) any { sc.Play(); return nil }),
		"pause": a.fn(func([]js.Value) any { sc.Pause(); return nil }),
		"isPlaying": a.fn(func([]js.Value) any {
			return sc.IsPlaying()
		}),
		"selectCountry": a.fn(func(args []js.Value) any {
			sc.SelectCountry(int(number(arg(args, 0))))
			return nil
		}),
		"selectRegion": a.fn(func(args []js.Value) any {
			sc.SelectRegion(stats.RegionRef{Country: int(number(arg(args, 0))), Region: int(number(arg(args, 1)))})
			return nil
		}),
		"deselect": a.fn(func([]js.Value) any { sc.Deselect(); return nil }),
		"click": a.fn(func(args []js.Value) any {
			ref, ok := sc.Click(int(number(arg(args, 0))), int(number(arg(args, 1))))
			if ok {
				sc.SelectRegion(ref)
			} else {
				sc.Deselect()
			}
			return ok
		}),
		"hover": a.fn(func(args []js.Value) any {
			tip, ok := sc.Hover(int(number(arg(args, 0))), int(number(arg(args, 1))))
			if !ok {
				return js.Null()
			}
			return tooltipValue(tip)
		}),
		"date": a.fn(func([]js.Value) any { return sc.Date() }),
		"dayCount": a.fn(func([]js.Value) any {
			return sc.Model().DayCount
		}),
	}
	js.Global().Set("covidScope", js.ValueOf(api))
}

// dispatch forwards scope events to the page as "covidscope:<name>" events
// on window.
func (a *app) dispatch(e scope.Event) {
	var (
		name   string
		detail = map[string]any{}
	)
	switch ev := e.(type) {
	case scope.DayChanged:
		name = "day"
		detail["day"] = ev.Day
		detail["date"] = a.scope.Date()
		detail["index"] = int(math.Floor(ev.Day))
	case scope.Played:
		name = "play"
	case scope.Paused:
		name = "pause"
	case scope.RowChanged:
		name = "row"
		detail["row"] = ev.Row.String()
	case scope.DeltaModeChanged:
		name = "mode"
		detail["mode"] = ev.Mode.String()
	case scope.SelectionChanged:
		name = "selection"
		refs := make([]any, len(ev.Selected))
		for i, ref := range ev.Selected {
			refs[i] = map[string]any{"country": ref.Country, "region": ref.Region}
		}
		detail["selected"] = refs
	case scope.Clicked:
		name = "click"
		detail["hit"] = ev.Hit
		if ev.Hit {
			detail["country"] = ev.Region.Country
			detail["region"] = ev.Region.Region
		}
	default:
		return
	}

	init := js.ValueOf(map[string]any{"detail": detail})
	event := js.Global().Get("CustomEvent").New("covidscope:"+name, init)
	js.Global().Call("dispatchEvent", event)
}
