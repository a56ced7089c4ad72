package soft

import (
	"errors"
	"testing"

	"github.com/anrid/covid-scope/pkg/gpu"
)

func testKernels() Kernels {
	return Kernels{
		Vertex: map[string]VertexKernel{
			"pass.vert": {
				Attributes: []string{"position"},
				Run: func(u *Uniforms, attrs [][3]float32) ([4]float32, Varying) {
					p := attrs[0]
					return [4]float32{p[0], p[1], p[2], 1}, Varying{}
				},
			},
		},
		Fragment: map[string]FragmentKernel{
			"flat.frag": {
				Uniforms: []string{"color"},
				Run: func(u *Uniforms, in Varying) [4]float32 {
					return u.Vec4("color")
				},
			},
		},
	}
}

type fixture struct {
	dev   *Device
	prog  gpu.ProgramID
	color gpu.Location
	pos   gpu.Location
}

func newFixture(t *testing.T, width, height int) *fixture {
	t.Helper()
	dev := New(testKernels())
	dev.Resize(width, height)
	dev.Viewport(0, 0, width, height)

	prog, err := dev.CreateProgram(gpu.Stage{Name: "pass.vert"}, gpu.Stage{Name: "flat.frag"})
	if err != nil {
		t.Fatalf("CreateProgram returned error: %v", err)
	}
	dev.UseProgram(prog)
	return &fixture{
		dev:   dev,
		prog:  prog,
		color: dev.UniformLocation(prog, "color"),
		pos:   dev.AttribLocation(prog, "position"),
	}
}

func (f *fixture) draw(t *testing.T, positions []float32, color [4]float32) {
	t.Helper()
	buf, err := f.dev.CreateBuffer(positions)
	if err != nil {
		t.Fatalf("CreateBuffer returned error: %v", err)
	}
	f.dev.BindAttribute(f.pos, buf, 3)
	f.dev.Uniform4f(f.color, color[0], color[1], color[2], color[3])
	f.dev.DrawTriangles(0, len(positions)/3)
}

func (f *fixture) pixel(x, y int) [4]byte {
	var px [4]byte
	f.dev.ReadPixels(x, y, 1, 1, px[:])
	return px
}

// lower-left half of NDC, counter-clockwise.
var lowerLeft = []float32{
	-1, -1, 0,
	1, -1, 0,
	-1, 1, 0,
}

// TestDrawCoversBottomLeft ensures read-back rows start at the bottom.
func TestDrawCoversBottomLeft(t *testing.T) {
	f := newFixture(t, 8, 8)
	f.dev.Clear()
	f.draw(t, lowerLeft, [4]float32{1, 0, 0, 1})

	if got := f.pixel(0, 0); got != [4]byte{255, 0, 0, 255} {
		t.Fatalf("pixel(0,0) = %v, want red", got)
	}
	if got := f.pixel(7, 7); got != [4]byte{} {
		t.Fatalf("pixel(7,7) = %v, want cleared", got)
	}

	img := f.dev.Image()
	if got := img.RGBAAt(0, 7); got.R != 255 {
		t.Fatalf("image bottom-left = %v, want red", got)
	}
	if got := img.RGBAAt(7, 0); got.R != 0 {
		t.Fatalf("image top-right = %v, want cleared", got)
	}
}

// TestCullFaceDropsClockwiseTriangles ensures only counter-clockwise faces survive culling.
func TestCullFaceDropsClockwiseTriangles(t *testing.T) {
	clockwise := []float32{
		-1, -1, 0,
		-1, 1, 0,
		1, -1, 0,
	}

	f := newFixture(t, 4, 4)
	f.dev.Enable(gpu.CullFace)
	f.dev.Clear()
	f.draw(t, clockwise, [4]float32{0, 1, 0, 1})
	if got := f.pixel(0, 0); got != [4]byte{} {
		t.Fatalf("pixel(0,0) = %v, want culled", got)
	}

	f.dev.Disable(gpu.CullFace)
	f.draw(t, clockwise, [4]float32{0, 1, 0, 1})
	if got := f.pixel(0, 0); got != [4]byte{0, 255, 0, 255} {
		t.Fatalf("pixel(0,0) = %v, want green", got)
	}
}

// TestDepthTestKeepsNearest ensures a farther triangle cannot overwrite a nearer one.
func TestDepthTestKeepsNearest(t *testing.T) {
	near := []float32{-1, -1, -0.5, 1, -1, -0.5, -1, 1, -0.5}
	far := []float32{-1, -1, 0.5, 1, -1, 0.5, -1, 1, 0.5}

	f := newFixture(t, 4, 4)
	f.dev.Enable(gpu.DepthTest)
	f.dev.Clear()
	f.draw(t, near, [4]float32{0, 0, 1, 1})
	f.draw(t, far, [4]float32{1, 0, 0, 1})

	if got := f.pixel(0, 0); got != [4]byte{0, 0, 255, 255} {
		t.Fatalf("pixel(0,0) = %v, want blue", got)
	}
}

// TestBlendMixesWithDestination ensures src-alpha blending over the cleared color.
func TestBlendMixesWithDestination(t *testing.T) {
	f := newFixture(t, 2, 2)
	f.dev.ClearColor(0, 0, 0, 1)
	f.dev.Clear()
	f.dev.Enable(gpu.Blend)
	f.draw(t, lowerLeft, [4]float32{1, 1, 1, 0.5})

	got := f.pixel(0, 0)
	if got[0] != 128 || got[1] != 128 || got[2] != 128 {
		t.Fatalf("pixel(0,0) = %v, want mid grey", got)
	}
}

// TestExactColorRoundTrip ensures unblended writes keep byte-exact channels.
func TestExactColorRoundTrip(t *testing.T) {
	f := newFixture(t, 2, 2)
	f.dev.Clear()
	f.draw(t, lowerLeft, [4]float32{1.0 / 255, 128.0 / 255, 254.0 / 255, 1})

	if got := f.pixel(0, 0); got != [4]byte{1, 128, 254, 255} {
		t.Fatalf("pixel(0,0) = %v, want [1 128 254 255]", got)
	}
}

// TestOffscreenFramebuffer ensures draws land in the bound target only.
func TestOffscreenFramebuffer(t *testing.T) {
	f := newFixture(t, 4, 4)
	fb, err := f.dev.CreateFramebuffer(4, 4)
	if err != nil {
		t.Fatalf("CreateFramebuffer returned error: %v", err)
	}

	f.dev.BindFramebuffer(fb)
	f.dev.Clear()
	f.draw(t, lowerLeft, [4]float32{1, 0, 0, 1})
	if got := f.pixel(0, 0); got[0] != 255 {
		t.Fatalf("offscreen pixel(0,0) = %v, want red", got)
	}

	f.dev.BindFramebuffer(gpu.DefaultFramebuffer)
	if got := f.pixel(0, 0); got != [4]byte{} {
		t.Fatalf("default pixel(0,0) = %v, want untouched", got)
	}
}

// TestCreateFramebufferRejectsEmptySize ensures empty targets are refused.
func TestCreateFramebufferRejectsEmptySize(t *testing.T) {
	dev := New(testKernels())
	if _, err := dev.CreateFramebuffer(0, 10); !errors.Is(err, gpu.ErrFramebuffer) {
		t.Fatalf("CreateFramebuffer error = %v, want %v", err, gpu.ErrFramebuffer)
	}
}

// TestCreateProgramUnknownKernel ensures missing kernels fail like a compile error.
func TestCreateProgramUnknownKernel(t *testing.T) {
	dev := New(testKernels())
	_, err := dev.CreateProgram(gpu.Stage{Name: "missing.vert"}, gpu.Stage{Name: "flat.frag"})
	if !errors.Is(err, gpu.ErrCompile) {
		t.Fatalf("CreateProgram error = %v, want %v", err, gpu.ErrCompile)
	}
}
