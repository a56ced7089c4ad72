// Package soft is a CPU rasterizer implementing gpu.Device. It renders into
// RGBA8 color and float depth targets and exists for headless rendering and
// for tests.
//
// Triangles with a vertex at or behind the eye plane (w <= 0) are dropped
// rather than clipped.
package soft

import (
	"fmt"
	"image"

	"github.com/anrid/covid-scope/pkg/gpu"
)

type program struct {
	vs       VertexKernel
	fs       FragmentKernel
	uniforms Uniforms
}

type target struct {
	width  int
	height int
	color  []byte // RGBA8, bottom row first
	depth  []float32
}

func newTarget(width, height int) *target {
	t := &target{}
	t.resize(width, height)
	return t
}

func (t *target) resize(width, height int) {
	t.width, t.height = width, height
	t.color = make([]byte, width*height*4)
	t.depth = make([]float32, width*height)
	for i := range t.depth {
		t.depth[i] = 1
	}
}

type binding struct {
	buf  gpu.Buffer
	size int
}

// Device is a software gpu.Device. It is not safe for concurrent use.
type Device struct {
	kernels Kernels

	buffers  [][]float32
	programs []*program
	targets  []*target

	current  *program
	bound    gpu.Framebuffer
	attribs  map[gpu.Location]binding
	viewport [4]int
	clear    [4]float32
	caps     map[gpu.Capability]bool
}

var _ gpu.Device = (*Device)(nil)

// New creates a device with an empty default framebuffer; call Resize before
// drawing to it.
func New(kernels Kernels) *Device {
	return &Device{
		kernels: kernels,
		targets: []*target{newTarget(0, 0)},
		attribs: make(map[gpu.Location]binding),
		caps:    make(map[gpu.Capability]bool),
	}
}

// Resize reallocates the default framebuffer.
func (d *Device) Resize(width, height int) {
	d.targets[gpu.DefaultFramebuffer].resize(width, height)
}

// Image returns a top-down copy of the default framebuffer.
func (d *Device) Image() *image.RGBA {
	t := d.targets[gpu.DefaultFramebuffer]
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	stride := t.width * 4
	for row := 0; row < t.height; row++ {
		src := t.color[(t.height-1-row)*stride : (t.height-row)*stride]
		copy(img.Pix[row*img.Stride:row*img.Stride+stride], src)
	}
	return img
}

func (d *Device) CreateBuffer(data []float32) (gpu.Buffer, error) {
	buf := make([]float32, len(data))
	copy(buf, data)
	d.buffers = append(d.buffers, buf)
	return gpu.Buffer(len(d.buffers)), nil
}

func (d *Device) CreateProgram(vs, fs gpu.Stage) (gpu.ProgramID, error) {
	vk, ok := d.kernels.Vertex[vs.Name]
	if !ok {
		return 0, fmt.Errorf("%w: no vertex kernel %q", gpu.ErrCompile, vs.Name)
	}
	fk, ok := d.kernels.Fragment[fs.Name]
	if !ok {
		return 0, fmt.Errorf("%w: no fragment kernel %q", gpu.ErrCompile, fs.Name)
	}
	if vk.Run == nil || fk.Run == nil {
		return 0, fmt.Errorf("%w: %s+%s has no entry point", gpu.ErrLink, vs.Name, fs.Name)
	}

	d.programs = append(d.programs, &program{
		vs:       vk,
		fs:       fk,
		uniforms: newUniforms(vk.Uniforms, fk.Uniforms),
	})
	return gpu.ProgramID(len(d.programs)), nil
}

func (d *Device) program(id gpu.ProgramID) *program {
	if id == 0 || int(id) > len(d.programs) {
		return nil
	}
	return d.programs[id-1]
}

func (d *Device) AttribLocation(id gpu.ProgramID, name string) gpu.Location {
	p := d.program(id)
	if p == nil {
		return gpu.NoLocation
	}
	for i, a := range p.vs.Attributes {
		if a == name {
			return gpu.Location(i)
		}
	}
	return gpu.NoLocation
}

func (d *Device) UniformLocation(id gpu.ProgramID, name string) gpu.Location {
	p := d.program(id)
	if p == nil {
		return gpu.NoLocation
	}
	i, ok := p.uniforms.index[name]
	if !ok {
		return gpu.NoLocation
	}
	return gpu.Location(i)
}

func (d *Device) UseProgram(id gpu.ProgramID) {
	d.current = d.program(id)
}

func (d *Device) BindAttribute(loc gpu.Location, buf gpu.Buffer, size int) {
	if loc < 0 {
		return
	}
	d.attribs[loc] = binding{buf: buf, size: size}
}

func (d *Device) uniformSlot(loc gpu.Location) *[16]float32 {
	if d.current == nil || loc < 0 || int(loc) >= len(d.current.uniforms.values) {
		return nil
	}
	return &d.current.uniforms.values[loc]
}

func (d *Device) Uniform1i(loc gpu.Location, v int32) {
	if s := d.uniformSlot(loc); s != nil {
		s[0] = float32(v)
	}
}

func (d *Device) Uniform1f(loc gpu.Location, v float32) {
	if s := d.uniformSlot(loc); s != nil {
		s[0] = v
	}
}

func (d *Device) Uniform2f(loc gpu.Location, x, y float32) {
	if s := d.uniformSlot(loc); s != nil {
		s[0], s[1] = x, y
	}
}

func (d *Device) Uniform4f(loc gpu.Location, x, y, z, w float32) {
	if s := d.uniformSlot(loc); s != nil {
		s[0], s[1], s[2], s[3] = x, y, z, w
	}
}

func (d *Device) UniformMatrix4fv(loc gpu.Location, m [16]float32) {
	if s := d.uniformSlot(loc); s != nil {
		*s = m
	}
}

func (d *Device) CreateFramebuffer(width, height int) (gpu.Framebuffer, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: size %dx%d", gpu.ErrFramebuffer, width, height)
	}
	d.targets = append(d.targets, newTarget(width, height))
	return gpu.Framebuffer(len(d.targets) - 1), nil
}

func (d *Device) ResizeFramebuffer(fb gpu.Framebuffer, width, height int) error {
	if int(fb) >= len(d.targets) {
		return fmt.Errorf("%w: unknown framebuffer %d", gpu.ErrFramebuffer, fb)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: size %dx%d", gpu.ErrFramebuffer, width, height)
	}
	d.targets[fb].resize(width, height)
	return nil
}

func (d *Device) BindFramebuffer(fb gpu.Framebuffer) {
	if int(fb) < len(d.targets) {
		d.bound = fb
	}
}

func (d *Device) target() *target {
	return d.targets[d.bound]
}

func (d *Device) Viewport(x, y, width, height int) {
	d.viewport = [4]int{x, y, width, height}
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.clear = [4]float32{r, g, b, a}
}

// Clear resets color and depth of the bound framebuffer.
func (d *Device) Clear() {
	t := d.target()
	px := [4]byte{toByte(d.clear[0]), toByte(d.clear[1]), toByte(d.clear[2]), toByte(d.clear[3])}
	for i := 0; i < len(t.color); i += 4 {
		copy(t.color[i:i+4], px[:])
	}
	for i := range t.depth {
		t.depth[i] = 1
	}
}

func (d *Device) Enable(c gpu.Capability)  { d.caps[c] = true }
func (d *Device) Disable(c gpu.Capability) { d.caps[c] = false }

func (d *Device) ReadPixels(x, y, width, height int, dst []byte) {
	t := d.target()
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			o := (j*width + i) * 4
			if o+4 > len(dst) {
				return
			}
			sx, sy := x+i, y+j
			if sx < 0 || sy < 0 || sx >= t.width || sy >= t.height {
				copy(dst[o:o+4], []byte{0, 0, 0, 0})
				continue
			}
			s := (sy*t.width + sx) * 4
			copy(dst[o:o+4], t.color[s:s+4])
		}
	}
}

func toByte(v float32) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return byte(v*255 + 0.5)
}
