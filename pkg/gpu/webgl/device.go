//go:build js && wasm

// Package webgl implements gpu.Device on a browser WebGL context.
package webgl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"syscall/js"

	"github.com/anrid/covid-scope/pkg/gpu"
)

type glConsts struct {
	arrayBuffer         int
	staticDraw          int
	floatType           int
	triangles           int
	framebuffer         int
	framebufferComplete int
	renderbuffer        int
	colorAttachment0    int
	depthAttachment     int
	depthComponent16    int
	texture2D           int
	rgba                int
	unsignedByte        int
	textureMinFilter    int
	textureMagFilter    int
	textureWrapS        int
	textureWrapT        int
	nearest             int
	clampToEdge         int
	colorBufferBit      int
	depthBufferBit      int
	depthTest           int
	less                int
	blend               int
	srcAlpha            int
	oneMinusSrcAlpha    int
	cullFace            int
	back                int
	ccw                 int
	compileStatus       int
	linkStatus          int
	vertexShader        int
	fragmentShader      int
}

func loadConsts(gl js.Value) glConsts {
	return glConsts{
		arrayBuffer:         gl.Get("ARRAY_BUFFER").Int(),
		staticDraw:          gl.Get("STATIC_DRAW").Int(),
		floatType:           gl.Get("FLOAT").Int(),
		triangles:           gl.Get("TRIANGLES").Int(),
		framebuffer:         gl.Get("FRAMEBUFFER").Int(),
		framebufferComplete: gl.Get("FRAMEBUFFER_COMPLETE").Int(),
		renderbuffer:        gl.Get("RENDERBUFFER").Int(),
		colorAttachment0:    gl.Get("COLOR_ATTACHMENT0").Int(),
		depthAttachment:     gl.Get("DEPTH_ATTACHMENT").Int(),
		depthComponent16:    gl.Get("DEPTH_COMPONENT16").Int(),
		texture2D:           gl.Get("TEXTURE_2D").Int(),
		rgba:                gl.Get("RGBA").Int(),
		unsignedByte:        gl.Get("UNSIGNED_BYTE").Int(),
		textureMinFilter:    gl.Get("TEXTURE_MIN_FILTER").Int(),
		textureMagFilter:    gl.Get("TEXTURE_MAG_FILTER").Int(),
		textureWrapS:        gl.Get("TEXTURE_WRAP_S").Int(),
		textureWrapT:        gl.Get("TEXTURE_WRAP_T").Int(),
		nearest:             gl.Get("NEAREST").Int(),
		clampToEdge:         gl.Get("CLAMP_TO_EDGE").Int(),
		colorBufferBit:      gl.Get("COLOR_BUFFER_BIT").Int(),
		depthBufferBit:      gl.Get("DEPTH_BUFFER_BIT").Int(),
		depthTest:           gl.Get("DEPTH_TEST").Int(),
		less:                gl.Get("LESS").Int(),
		blend:               gl.Get("BLEND").Int(),
		srcAlpha:            gl.Get("SRC_ALPHA").Int(),
		oneMinusSrcAlpha:    gl.Get("ONE_MINUS_SRC_ALPHA").Int(),
		cullFace:            gl.Get("CULL_FACE").Int(),
		back:                gl.Get("BACK").Int(),
		ccw:                 gl.Get("CCW").Int(),
		compileStatus:       gl.Get("COMPILE_STATUS").Int(),
		linkStatus:          gl.Get("LINK_STATUS").Int(),
		vertexShader:        gl.Get("VERTEX_SHADER").Int(),
		fragmentShader:      gl.Get("FRAGMENT_SHADER").Int(),
	}
}

type framebuffer struct {
	fbo     js.Value
	texture js.Value
	depth   js.Value
}

// Device draws through a WebGLRenderingContext. Handles index the slices
// below, offset by one so that zero stays invalid (or default, for
// framebuffers).
type Device struct {
	gl js.Value
	c  glConsts

	buffers      []js.Value
	programs     []js.Value
	uniforms     []js.Value
	framebuffers []*framebuffer
}

var _ gpu.Device = (*Device)(nil)

var ErrNoContext = errors.New("webgl context unavailable")

// New takes a WebGL context from canvas.
func New(canvas js.Value) (*Device, error) {
	attrs := js.ValueOf(map[string]any{"antialias": true, "alpha": true})
	gl := canvas.Call("getContext", "webgl", attrs)
	if gl.IsUndefined() || gl.IsNull() {
		return nil, ErrNoContext
	}
	return NewFromContext(gl), nil
}

// NewFromContext wraps a context owned by someone else, such as the basemap.
func NewFromContext(gl js.Value) *Device {
	d := &Device{gl: gl, c: loadConsts(gl)}
	gl.Call("depthFunc", d.c.less)
	gl.Call("blendFunc", d.c.srcAlpha, d.c.oneMinusSrcAlpha)
	gl.Call("cullFace", d.c.back)
	gl.Call("frontFace", d.c.ccw)
	return d
}

func float32Array(data []float32) js.Value {
	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	u8 := js.Global().Get("Uint8Array").New(len(raw))
	js.CopyBytesToJS(u8, raw)
	return js.Global().Get("Float32Array").New(u8.Get("buffer"))
}

func (d *Device) CreateBuffer(data []float32) (gpu.Buffer, error) {
	buf := d.gl.Call("createBuffer")
	if buf.IsNull() {
		return 0, fmt.Errorf("create buffer: %w", ErrNoContext)
	}
	d.gl.Call("bindBuffer", d.c.arrayBuffer, buf)
	d.gl.Call("bufferData", d.c.arrayBuffer, float32Array(data), d.c.staticDraw)
	d.buffers = append(d.buffers, buf)
	return gpu.Buffer(len(d.buffers)), nil
}

func (d *Device) compileShader(kind int, st gpu.Stage) (js.Value, error) {
	shader := d.gl.Call("createShader", kind)
	d.gl.Call("shaderSource", shader, st.Source)
	d.gl.Call("compileShader", shader)
	if !d.gl.Call("getShaderParameter", shader, d.c.compileStatus).Bool() {
		log := d.gl.Call("getShaderInfoLog", shader).String()
		d.gl.Call("deleteShader", shader)
		return js.Null(), fmt.Errorf("%w: %s: %s", gpu.ErrCompile, st.Name, log)
	}
	return shader, nil
}

func (d *Device) CreateProgram(vs, fs gpu.Stage) (gpu.ProgramID, error) {
	vertex, err := d.compileShader(d.c.vertexShader, vs)
	if err != nil {
		return 0, err
	}
	fragment, err := d.compileShader(d.c.fragmentShader, fs)
	if err != nil {
		d.gl.Call("deleteShader", vertex)
		return 0, err
	}

	program := d.gl.Call("createProgram")
	d.gl.Call("attachShader", program, vertex)
	d.gl.Call("attachShader", program, fragment)
	d.gl.Call("linkProgram", program)
	d.gl.Call("deleteShader", vertex)
	d.gl.Call("deleteShader", fragment)

	if !d.gl.Call("getProgramParameter", program, d.c.linkStatus).Bool() {
		log := d.gl.Call("getProgramInfoLog", program).String()
		return 0, fmt.Errorf("%w: %s+%s: %s", gpu.ErrLink, vs.Name, fs.Name, log)
	}

	d.programs = append(d.programs, program)
	return gpu.ProgramID(len(d.programs)), nil
}

func (d *Device) program(p gpu.ProgramID) js.Value {
	if p == 0 || int(p) > len(d.programs) {
		return js.Null()
	}
	return d.programs[p-1]
}

func (d *Device) AttribLocation(p gpu.ProgramID, name string) gpu.Location {
	prog := d.program(p)
	if prog.IsNull() {
		return gpu.NoLocation
	}
	return gpu.Location(d.gl.Call("getAttribLocation", prog, name).Int())
}

func (d *Device) UniformLocation(p gpu.ProgramID, name string) gpu.Location {
	prog := d.program(p)
	if prog.IsNull() {
		return gpu.NoLocation
	}
	loc := d.gl.Call("getUniformLocation", prog, name)
	if loc.IsNull() {
		return gpu.NoLocation
	}
	d.uniforms = append(d.uniforms, loc)
	return gpu.Location(len(d.uniforms) - 1)
}

func (d *Device) uniform(loc gpu.Location) (js.Value, bool) {
	if loc < 0 || int(loc) >= len(d.uniforms) {
		return js.Null(), false
	}
	return d.uniforms[loc], true
}

func (d *Device) UseProgram(p gpu.ProgramID) {
	d.gl.Call("useProgram", d.program(p))
}

func (d *Device) BindAttribute(loc gpu.Location, buf gpu.Buffer, size int) {
	if loc < 0 || buf == 0 || int(buf) > len(d.buffers) {
		return
	}
	d.gl.Call("bindBuffer", d.c.arrayBuffer, d.buffers[buf-1])
	d.gl.Call("enableVertexAttribArray", int(loc))
	d.gl.Call("vertexAttribPointer", int(loc), size, d.c.floatType, false, 0, 0)
}

func (d *Device) Uniform1i(loc gpu.Location, v int32) {
	if u, ok := d.uniform(loc); ok {
		d.gl.Call("uniform1i", u, v)
	}
}

func (d *Device) Uniform1f(loc gpu.Location, v float32) {
	if u, ok := d.uniform(loc); ok {
		d.gl.Call("uniform1f", u, v)
	}
}

func (d *Device) Uniform2f(loc gpu.Location, x, y float32) {
	if u, ok := d.uniform(loc); ok {
		d.gl.Call("uniform2f", u, x, y)
	}
}

func (d *Device) Uniform4f(loc gpu.Location, x, y, z, w float32) {
	if u, ok := d.uniform(loc); ok {
		d.gl.Call("uniform4f", u, x, y, z, w)
	}
}

func (d *Device) UniformMatrix4fv(loc gpu.Location, m [16]float32) {
	if u, ok := d.uniform(loc); ok {
		d.gl.Call("uniformMatrix4fv", u, false, float32Array(m[:]))
	}
}

func (d *Device) CreateFramebuffer(width, height int) (gpu.Framebuffer, error) {
	fb := &framebuffer{
		fbo:     d.gl.Call("createFramebuffer"),
		texture: d.gl.Call("createTexture"),
		depth:   d.gl.Call("createRenderbuffer"),
	}
	d.framebuffers = append(d.framebuffers, fb)
	handle := gpu.Framebuffer(len(d.framebuffers))

	if err := d.ResizeFramebuffer(handle, width, height); err != nil {
		return 0, err
	}
	return handle, nil
}

// ResizeFramebuffer reallocates the color texture and depth renderbuffer and
// checks completeness. The default framebuffer follows the canvas and is not
// resized here.
func (d *Device) ResizeFramebuffer(handle gpu.Framebuffer, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", gpu.ErrFramebuffer, width, height)
	}
	if handle == gpu.DefaultFramebuffer || int(handle) > len(d.framebuffers) {
		return fmt.Errorf("%w: no framebuffer %d", gpu.ErrFramebuffer, handle)
	}
	fb := d.framebuffers[handle-1]
	c := d.c

	d.gl.Call("bindTexture", c.texture2D, fb.texture)
	d.gl.Call("texParameteri", c.texture2D, c.textureMinFilter, c.nearest)
	d.gl.Call("texParameteri", c.texture2D, c.textureMagFilter, c.nearest)
	d.gl.Call("texParameteri", c.texture2D, c.textureWrapS, c.clampToEdge)
	d.gl.Call("texParameteri", c.texture2D, c.textureWrapT, c.clampToEdge)
	d.gl.Call("texImage2D", c.texture2D, 0, c.rgba, width, height, 0, c.rgba, c.unsignedByte, nil)

	d.gl.Call("bindRenderbuffer", c.renderbuffer, fb.depth)
	d.gl.Call("renderbufferStorage", c.renderbuffer, c.depthComponent16, width, height)

	d.gl.Call("bindFramebuffer", c.framebuffer, fb.fbo)
	d.gl.Call("framebufferTexture2D", c.framebuffer, c.colorAttachment0, c.texture2D, fb.texture, 0)
	d.gl.Call("framebufferRenderbuffer", c.framebuffer, c.depthAttachment, c.renderbuffer, fb.depth)

	status := d.gl.Call("checkFramebufferStatus", c.framebuffer).Int()
	d.gl.Call("bindFramebuffer", c.framebuffer, js.Null())
	d.gl.Call("bindTexture", c.texture2D, js.Null())
	d.gl.Call("bindRenderbuffer", c.renderbuffer, js.Null())

	if status != c.framebufferComplete {
		return fmt.Errorf("%w: status 0x%x", gpu.ErrFramebuffer, status)
	}
	return nil
}

func (d *Device) BindFramebuffer(handle gpu.Framebuffer) {
	if handle == gpu.DefaultFramebuffer || int(handle) > len(d.framebuffers) {
		d.gl.Call("bindFramebuffer", d.c.framebuffer, js.Null())
		return
	}
	d.gl.Call("bindFramebuffer", d.c.framebuffer, d.framebuffers[handle-1].fbo)
}

func (d *Device) Viewport(x, y, width, height int) {
	d.gl.Call("viewport", x, y, width, height)
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.gl.Call("clearColor", r, g, b, a)
}

func (d *Device) Clear() {
	d.gl.Call("clear", d.c.colorBufferBit|d.c.depthBufferBit)
}

func (d *Device) capability(c gpu.Capability) int {
	switch c {
	case gpu.DepthTest:
		return d.c.depthTest
	case gpu.Blend:
		return d.c.blend
	default:
		return d.c.cullFace
	}
}

func (d *Device) Enable(c gpu.Capability) {
	d.gl.Call("enable", d.capability(c))
}

func (d *Device) Disable(c gpu.Capability) {
	d.gl.Call("disable", d.capability(c))
}

func (d *Device) DrawTriangles(first, count int) {
	d.gl.Call("drawArrays", d.c.triangles, first, count)
}

func (d *Device) ReadPixels(x, y, width, height int, dst []byte) {
	n := width * height * 4
	if n <= 0 || len(dst) < n {
		return
	}
	u8 := js.Global().Get("Uint8Array").New(n)
	d.gl.Call("readPixels", x, y, width, height, d.c.rgba, d.c.unsignedByte, u8)
	js.CopyBytesToGo(dst[:n], u8)
}
