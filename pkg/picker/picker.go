// Package picker resolves which column is under a viewport pixel. It draws
// every visible column into an off-screen target with a color encoding its
// flat index, reads the whole target back once and answers lookups from
// that copy.
//
// Lookups between an Invalidate and the next redraw answer from nothing:
// they report no hit. That window is bounded by the debounce wait.
package picker

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/anrid/covid-scope/pkg/geometry"
	"github.com/anrid/covid-scope/pkg/gpu"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/shaders"
	"github.com/anrid/covid-scope/pkg/stats"
)

const DefaultDebounce = 50 * time.Millisecond

// Placement is where and how tall a column is drawn this frame.
type Placement struct {
	Center [2]float32
	Height float32
}

// Frame supplies the per-frame inputs shared with the visible pass.
// Placement reports false for columns that are not drawn.
type Frame interface {
	Matrix() [16]float32
	Placement(ref stats.RegionRef) (Placement, bool)
}

type Options struct {
	Debounce time.Duration
	Clock    clockwork.Clock
}

type Picker struct {
	dev   gpu.Device
	prog  *gpu.Program
	mesh  *geometry.Mesh
	frame Frame
	refs  []stats.RegionRef
	clock clockwork.Clock

	fb            gpu.Framebuffer
	width, height int
	pixels        []byte
	valid         bool

	debounce *Debouncer
}

// New builds the picking program and its off-screen target. The target is
// sized by SetViewportSize.
func New(dev gpu.Device, model *stats.Model, mesh *geometry.Mesh, frame Frame, opts Options) (*Picker, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	prog, err := gpu.NewProgram(dev, shaders.PickVertex, shaders.FlatFragment, shaders.PickAttributes, shaders.FlatUniforms())
	if err != nil {
		return nil, fmt.Errorf("picking program: %w", err)
	}

	fb, err := dev.CreateFramebuffer(1, 1)
	if err != nil {
		return nil, fmt.Errorf("picking framebuffer: %w", err)
	}

	refs := model.Regions()
	if len(refs) > MaxIndex+1 {
		return nil, fmt.Errorf("%d regions do not fit a 24-bit color id", len(refs))
	}

	return &Picker{
		dev:      dev,
		prog:     prog,
		mesh:     mesh,
		frame:    frame,
		refs:     refs,
		clock:    opts.Clock,
		fb:       fb,
		debounce: NewDebouncer(opts.Clock, opts.Debounce),
	}, nil
}

// SetViewportSize resizes the off-screen target and schedules a redraw.
func (p *Picker) SetViewportSize(width, height int) error {
	if width <= 0 || height <= 0 {
		p.width, p.height = 0, 0
		p.pixels = nil
		p.valid = false
		return nil
	}
	if err := p.dev.ResizeFramebuffer(p.fb, width, height); err != nil {
		return fmt.Errorf("resize picking target: %w", err)
	}
	p.width, p.height = width, height
	p.pixels = make([]byte, width*height*4)
	p.Invalidate()
	return nil
}

// Invalidate marks the read-back copy stale and (re)starts the debounce.
func (p *Picker) Invalidate() {
	p.valid = false
	p.debounce.Trigger()
}

// Tick runs the pending redraw once the debounce has elapsed. It reports
// whether a redraw happened.
func (p *Picker) Tick() bool {
	if !p.debounce.Due() {
		return false
	}
	p.Render()
	return true
}

// Render redraws the picking target and reads it back immediately.
func (p *Picker) Render() {
	if p.width == 0 || p.height == 0 {
		return
	}
	start := p.clock.Now()

	dev := p.dev
	dev.BindFramebuffer(p.fb)
	dev.Viewport(0, 0, p.width, p.height)
	dev.ClearColor(0, 0, 0, 0)
	dev.Clear()
	dev.Enable(gpu.DepthTest)
	dev.Enable(gpu.CullFace)
	dev.Disable(gpu.Blend)

	p.prog.Use()
	p.prog.BindAttribute(shaders.Position, p.mesh.Positions)
	p.prog.SetMat4(shaders.MVP, p.frame.Matrix())

	var drawn int
	for i, ref := range p.refs {
		pl, ok := p.frame.Placement(ref)
		if !ok {
			continue
		}
		p.prog.SetVec2(shaders.Center, pl.Center[0], pl.Center[1])
		p.prog.SetFloat(shaders.Height, pl.Height)
		p.prog.SetVec4(shaders.Color, EncodeID(i))
		dev.DrawTriangles(0, p.mesh.VertexCount)
		drawn++
	}

	dev.ReadPixels(0, 0, p.width, p.height, p.pixels)
	dev.BindFramebuffer(gpu.DefaultFramebuffer)
	p.valid = true

	logger.Debugf(context.Background(), "picking pass: %d columns in %s", drawn, p.clock.Since(start))
}

// Valid reports whether the read-back copy matches the last invalidation.
func (p *Picker) Valid() bool { return p.valid }

// PickAt resolves the viewport pixel (x, y), origin at the top left.
func (p *Picker) PickAt(x, y int) (stats.RegionRef, bool) {
	if !p.valid || x < 0 || y < 0 || x >= p.width || y >= p.height {
		return stats.RegionRef{}, false
	}

	row := p.height - 1 - y
	off := (row*p.width + x) * 4
	if off+3 >= len(p.pixels) {
		return stats.RegionRef{}, false
	}

	index, ok := DecodeID(p.pixels[off], p.pixels[off+1], p.pixels[off+2])
	if !ok || index >= len(p.refs) {
		return stats.RegionRef{}, false
	}
	return p.refs[index], true
}
