// Package scope is the controller behind the columns layer. It owns the
// interaction state (day, row, delta mode, selection, playback) layered on
// top of an immutable stats.Model, draws the visible pass and keeps the
// picker in step.
//
// A Scope is single-threaded: every method must be called from the host's
// refresh goroutine.
package scope

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/language"

	"github.com/anrid/covid-scope/pkg/camera"
	"github.com/anrid/covid-scope/pkg/geometry"
	"github.com/anrid/covid-scope/pkg/gpu"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/picker"
	"github.com/anrid/covid-scope/pkg/shaders"
	"github.com/anrid/covid-scope/pkg/stats"
)

// Host is the map the layer is glued to.
type Host interface {
	Camera() camera.State
}

type Options struct {
	Camera      camera.Options
	Column      geometry.ColumnOptions
	HeightScale float64
	// Speed is the playback rate in days per second.
	Speed    float64
	Debounce time.Duration
	Clock    clockwork.Clock
	Locale   language.Tag
	// Unlit draws columns in their flat palette colors.
	Unlit bool
}

// Sizes in unit Mercator space; scaled by the world size.
const (
	unitColumnRadius = 0.002
	unitColumnHeight = 0.0047
)

func DefaultOptions() Options {
	cam := camera.DefaultOptions()
	return Options{
		Camera:      cam,
		Column:      geometry.DefaultColumnOptions(unitColumnRadius * cam.WorldSize),
		HeightScale: unitColumnHeight * cam.WorldSize,
		Speed:       15,
		Debounce:    picker.DefaultDebounce,
		Locale:      language.English,
	}
}

type Scope struct {
	dev    gpu.Device
	model  *stats.Model
	host   Host
	opts   Options
	clock  clockwork.Clock
	labels *Labels

	prog   *gpu.Program
	mesh   *geometry.Mesh
	cam    *camera.Cache
	picker *picker.Picker

	refs    []stats.RegionRef
	centers [][][2]float32 // [country][region]

	day      float64
	row      stats.Row
	mode     stats.DeltaMode
	selected map[stats.RegionRef]struct{}

	playing   bool
	playStart time.Time
	playDay   float64

	needsRerender bool
	width, height int

	observers observers
}

// New builds the shared column mesh, the visible program and the picker.
// The day starts at the last day of the model.
func New(dev gpu.Device, model *stats.Model, host Host, opts Options) (*Scope, error) {
	if model.DayCount < 1 {
		return nil, fmt.Errorf("model has no days")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	col, err := geometry.NewColumn(opts.Column)
	if err != nil {
		return nil, fmt.Errorf("column geometry: %w", err)
	}
	mesh, err := col.Upload(dev)
	if err != nil {
		return nil, fmt.Errorf("upload column: %w", err)
	}

	prog, err := gpu.NewProgram(dev, shaders.ColumnVertex, shaders.ShadedFragment, shaders.Attributes, shaders.ShadedUniforms())
	if err != nil {
		return nil, fmt.Errorf("rendering program: %w", err)
	}

	s := &Scope{
		dev:           dev,
		model:         model,
		host:          host,
		opts:          opts,
		clock:         opts.Clock,
		labels:        NewLabels(opts.Locale),
		prog:          prog,
		mesh:          mesh,
		cam:           camera.NewCache(opts.Camera),
		refs:          model.Regions(),
		day:           float64(model.DayCount - 1),
		selected:      make(map[stats.RegionRef]struct{}),
		needsRerender: true,
	}

	s.centers = make([][][2]float32, len(model.Countries))
	for _, c := range model.Countries {
		s.centers[c.ID] = make([][2]float32, len(c.Regions))
		for _, r := range c.Regions {
			x, y := opts.Camera.Project(camera.LngLat{Lng: r.Lng, Lat: r.Lat})
			s.centers[c.ID][r.ID] = [2]float32{float32(x), float32(y)}
		}
	}

	s.picker, err = picker.New(dev, model, mesh, s, picker.Options{
		Debounce: opts.Debounce,
		Clock:    opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	logger.Debugf(context.Background(), "scope ready: %d regions, %d days", len(s.refs), model.DayCount)
	return s, nil
}

func (s *Scope) Model() *stats.Model { return s.model }

func (s *Scope) Labels() *Labels { return s.labels }

// Subscribe registers o and returns a function removing it.
func (s *Scope) Subscribe(o Observer) func() {
	return s.observers.add(o)
}

func (s *Scope) markDirty() {
	s.needsRerender = true
	s.picker.Invalidate()
}

// NeedsRerender reports whether the next Refresh will draw.
func (s *Scope) NeedsRerender() bool { return s.needsRerender }

// SetDay moves to a fractional day, clamped to the model's range.
func (s *Scope) SetDay(day float64) {
	s.day = s.model.ClampDay(day)
	s.markDirty()
	s.observers.emit(DayChanged{Day: s.day})
}

func (s *Scope) Day() float64 { return s.day }

func (s *Scope) SetRow(row stats.Row) {
	s.row = row
	s.markDirty()
	s.observers.emit(RowChanged{Row: row})
}

func (s *Scope) Row() stats.Row { return s.row }

func (s *Scope) SetDeltaMode(mode stats.DeltaMode) {
	s.mode = mode
	s.markDirty()
	s.observers.emit(DeltaModeChanged{Mode: mode})
}

func (s *Scope) DeltaMode() stats.DeltaMode { return s.mode }

// Metric is the combined metric currently shown.
func (s *Scope) Metric() stats.Metric {
	return stats.Combine(s.row, s.mode)
}

// Play starts the animation clock, rewinding to day 0 when already at the
// last day.
func (s *Scope) Play() {
	if s.day >= float64(s.model.DayCount-1) {
		s.SetDay(0)
	}
	s.playStart = s.clock.Now()
	s.playDay = s.day
	s.playing = true
	s.observers.emit(Played{})
}

func (s *Scope) Pause() {
	if !s.playing {
		return
	}
	s.playing = false
	s.observers.emit(Paused{})
}

func (s *Scope) IsPlaying() bool { return s.playing }

func (s *Scope) updateAnimation() {
	if !s.playing {
		return
	}
	last := float64(s.model.DayCount - 1)
	elapsed := float64(s.clock.Since(s.playStart)) / float64(time.Millisecond)
	day := s.playDay + elapsed*s.opts.Speed/1000

	if day < last {
		s.SetDay(day)
		return
	}
	s.SetDay(last)
	s.Pause()
}

// SelectRegion replaces the selection with ref.
func (s *Scope) SelectRegion(ref stats.RegionRef) {
	s.clearSelection()
	if s.model.Region(ref) != nil {
		s.selected[ref] = struct{}{}
	}
	s.selectionChanged()
}

// SelectCountry replaces the selection with every region of country id.
func (s *Scope) SelectCountry(id int) {
	s.clearSelection()
	if c := s.model.Country(id); c != nil {
		for _, r := range c.Regions {
			s.selected[r.Ref()] = struct{}{}
		}
	}
	s.selectionChanged()
}

func (s *Scope) Deselect() {
	s.clearSelection()
	s.selectionChanged()
}

func (s *Scope) clearSelection() {
	for ref := range s.selected {
		delete(s.selected, ref)
	}
}

func (s *Scope) selectionChanged() {
	s.markDirty()
	s.observers.emit(SelectionChanged{Selected: s.Selection()})
}

func (s *Scope) IsSelected(ref stats.RegionRef) bool {
	_, ok := s.selected[ref]
	return ok
}

// Selection returns the selected regions in model order.
func (s *Scope) Selection() []stats.RegionRef {
	out := make([]stats.RegionRef, 0, len(s.selected))
	for ref := range s.selected {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// CameraMoved recomputes the cached matrix from the host camera.
func (s *Scope) CameraMoved() {
	if err := s.cam.Update(s.host.Camera()); err != nil {
		logger.Debugf(context.Background(), "camera update skipped: %v", err)
		return
	}
	s.markDirty()
}

// Resize sets the viewport size of both passes.
func (s *Scope) Resize(width, height int) error {
	s.width, s.height = width, height
	if err := s.picker.SetViewportSize(width, height); err != nil {
		return err
	}
	s.CameraMoved()
	s.markDirty()
	return nil
}

// Refresh is called on every display refresh: it advances playback, draws
// the visible pass when something changed and runs a due picking pass. It
// reports whether the visible pass was drawn.
func (s *Scope) Refresh() bool {
	s.updateAnimation()

	drawn := false
	if s.needsRerender {
		s.Render()
		s.needsRerender = false
		drawn = true
	}
	s.picker.Tick()
	return drawn
}

// Matrix is the cached camera matrix.
func (s *Scope) Matrix() [16]float32 { return s.cam.Matrix() }

func (s *Scope) value(ref stats.RegionRef) float64 {
	r := s.model.Region(ref)
	if r == nil {
		return 0
	}
	return stats.Lerp(r.Rows.Get(s.Metric()), s.day)
}

// Placement positions ref for the current day and metric. Columns whose
// value is 0 are not drawn.
func (s *Scope) Placement(ref stats.RegionRef) (picker.Placement, bool) {
	v := s.value(ref)
	if v == 0 {
		return picker.Placement{}, false
	}
	return picker.Placement{
		Center: s.centers[ref.Country][ref.Region],
		Height: float32(Height(v, s.opts.HeightScale)),
	}, true
}

// Render draws the visible pass into the default framebuffer. With a
// selection, selected columns are drawn first and the translucent unselected
// ones are blended over them.
func (s *Scope) Render() {
	dev := s.dev
	dev.BindFramebuffer(gpu.DefaultFramebuffer)
	dev.Viewport(0, 0, s.width, s.height)
	dev.ClearColor(0, 0, 0, 0)
	dev.Clear()
	dev.Enable(gpu.DepthTest)
	dev.Enable(gpu.CullFace)
	dev.Enable(gpu.Blend)

	s.prog.Use()
	s.prog.BindAttribute(shaders.Position, s.mesh.Positions)
	s.prog.BindAttribute(shaders.Normal, s.mesh.Normals)
	s.prog.SetMat4(shaders.MVP, s.cam.Matrix())
	lighting := int32(1)
	if s.opts.Unlit {
		lighting = 0
	}
	s.prog.SetInt(shaders.Lighting, lighting)

	selectionMode := len(s.selected) > 0
	maxValue := s.model.MaxValues.Get(s.Metric())

	if !selectionMode {
		s.drawPass(maxValue, false, func(stats.RegionRef) bool { return true })
		return
	}
	s.drawPass(maxValue, true, s.IsSelected)
	s.drawPass(maxValue, true, func(ref stats.RegionRef) bool { return !s.IsSelected(ref) })
}

func (s *Scope) drawPass(maxValue float64, selectionMode bool, include func(stats.RegionRef) bool) {
	for _, ref := range s.refs {
		if !include(ref) {
			continue
		}
		v := s.value(ref)
		if v == 0 {
			continue
		}
		pl, _ := s.Placement(ref)
		s.prog.SetVec2(shaders.Center, pl.Center[0], pl.Center[1])
		s.prog.SetFloat(shaders.Height, pl.Height)
		s.prog.SetVec4(shaders.Color, ColorFor(s.row, v, maxValue, selectionMode, s.IsSelected(ref)))
		s.dev.DrawTriangles(0, s.mesh.VertexCount)
	}
}

// PickAt resolves a viewport pixel against the last picking pass.
func (s *Scope) PickAt(x, y int) (stats.RegionRef, bool) {
	return s.picker.PickAt(x, y)
}

// Click resolves (x, y) and emits Clicked.
func (s *Scope) Click(x, y int) (stats.RegionRef, bool) {
	ref, ok := s.picker.PickAt(x, y)
	s.observers.emit(Clicked{Region: ref, Hit: ok})
	return ref, ok
}

// Hover builds the tooltip for the column under (x, y).
func (s *Scope) Hover(x, y int) (Tooltip, bool) {
	ref, ok := s.picker.PickAt(x, y)
	if !ok {
		return Tooltip{}, false
	}
	return s.labels.Tooltip(s.model, ref, s.day, s.mode)
}

// Date is the label of the current day.
func (s *Scope) Date() string {
	return s.labels.Date(s.model, s.day)
}

// PickerValid reports whether the picking copy is current.
func (s *Scope) PickerValid() bool { return s.picker.Valid() }

var _ picker.Frame = (*Scope)(nil)

