// Package gpu is the narrow slice of a GL-style device the renderer needs:
// static vertex buffers, two-stage programs with named attributes and
// uniforms, off-screen framebuffers, triangle draws and pixel read-back.
package gpu

import "errors"

var (
	ErrCompile     = errors.New("shader compile failed")
	ErrLink        = errors.New("program link failed")
	ErrUnknownName = errors.New("unknown attribute or uniform")
	ErrFramebuffer = errors.New("framebuffer incomplete")
)

// Opaque handles. The zero Framebuffer is the default (visible) target.
type (
	Buffer      uint32
	ProgramID   uint32
	Framebuffer uint32
	Location    int32
)

// DefaultFramebuffer targets the visible canvas.
const DefaultFramebuffer Framebuffer = 0

// NoLocation is returned for names the program does not declare.
const NoLocation Location = -1

// Capability is a toggle passed to Enable and Disable.
type Capability int

const (
	DepthTest Capability = iota
	Blend
	CullFace
)

// Stage is one shader stage. Source is GLSL for real devices; Name keys the
// kernel table of the software device.
type Stage struct {
	Name   string
	Source string
}

// Device is implemented by soft.Device and, in the browser, webgl.Device.
// Blending, when enabled, is always SRC_ALPHA, ONE_MINUS_SRC_ALPHA and the
// depth function is always LESS.
type Device interface {
	CreateBuffer(data []float32) (Buffer, error)
	CreateProgram(vs, fs Stage) (ProgramID, error)
	AttribLocation(p ProgramID, name string) Location
	UniformLocation(p ProgramID, name string) Location
	UseProgram(p ProgramID)
	BindAttribute(loc Location, buf Buffer, size int)

	Uniform1i(loc Location, v int32)
	Uniform1f(loc Location, v float32)
	Uniform2f(loc Location, x, y float32)
	Uniform4f(loc Location, x, y, z, w float32)
	UniformMatrix4fv(loc Location, m [16]float32)

	CreateFramebuffer(width, height int) (Framebuffer, error)
	ResizeFramebuffer(fb Framebuffer, width, height int) error
	BindFramebuffer(fb Framebuffer)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear()
	Enable(c Capability)
	Disable(c Capability)
	DrawTriangles(first, count int)

	// ReadPixels copies RGBA8 pixels of the bound framebuffer into dst,
	// bottom row first.
	ReadPixels(x, y, width, height int, dst []byte)
}
