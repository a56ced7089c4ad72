// Package shaders holds the column programs: GLSL sources for WebGL and the
// equivalent kernels for the software device.
package shaders

import (
	_ "embed"
	"math"

	"github.com/anrid/covid-scope/pkg/gpu"
	"github.com/anrid/covid-scope/pkg/gpu/soft"
)

var (
	//go:embed column.vert
	columnVertSource string
	//go:embed shaded.frag
	shadedFragSource string
	//go:embed flat.frag
	flatFragSource string
	//go:embed pick.vert
	pickVertSource string
)

// Stages. The visible program is ColumnVertex + ShadedFragment, the picking
// program PickVertex + FlatFragment.
var (
	ColumnVertex   = gpu.Stage{Name: "column.vert", Source: columnVertSource}
	PickVertex     = gpu.Stage{Name: "pick.vert", Source: pickVertSource}
	ShadedFragment = gpu.Stage{Name: "shaded.frag", Source: shadedFragSource}
	FlatFragment   = gpu.Stage{Name: "flat.frag", Source: flatFragSource}
)

// Attribute and uniform names.
const (
	Position = "position"
	Normal   = "normal"
	MVP      = "mvp"
	Center   = "center"
	Height   = "height"
	Color    = "color"
	Lighting = "lighting"
)

// Attributes of ColumnVertex.
var Attributes = []string{Position, Normal}

// PickAttributes of PickVertex. Picking needs no normals.
var PickAttributes = []string{Position}

var vertexUniforms = []gpu.UniformDecl{
	{Name: MVP, Kind: gpu.Mat4},
	{Name: Center, Kind: gpu.Vec2},
	{Name: Height, Kind: gpu.Float},
}

// ShadedUniforms is the uniform list of the visible program.
func ShadedUniforms() []gpu.UniformDecl {
	return append(append([]gpu.UniformDecl(nil), vertexUniforms...),
		gpu.UniformDecl{Name: Color, Kind: gpu.Vec4},
		gpu.UniformDecl{Name: Lighting, Kind: gpu.Int},
	)
}

// FlatUniforms is the uniform list of the picking program.
func FlatUniforms() []gpu.UniformDecl {
	return append(append([]gpu.UniformDecl(nil), vertexUniforms...),
		gpu.UniformDecl{Name: Color, Kind: gpu.Vec4},
	)
}

var light = func() [3]float64 {
	x, y, z := 0.5, 0.7, 1.0
	l := math.Sqrt(x*x + y*y + z*z)
	return [3]float64{x / l, y / l, z / l}
}()

// SoftKernels returns kernels equivalent to the GLSL stages.
func SoftKernels() soft.Kernels {
	return soft.Kernels{
		Vertex: map[string]soft.VertexKernel{
			ColumnVertex.Name: {
				Attributes: Attributes,
				Uniforms:   []string{MVP, Center, Height},
				Run:        columnVertex,
			},
			PickVertex.Name: {
				Attributes: PickAttributes,
				Uniforms:   []string{MVP, Center, Height},
				Run: func(u *soft.Uniforms, attrs [][3]float32) ([4]float32, soft.Varying) {
					return place(u, attrs[0]), soft.Varying{}
				},
			},
		},
		Fragment: map[string]soft.FragmentKernel{
			ShadedFragment.Name: {
				Uniforms: []string{Color, Lighting},
				Run:      shadedFragment,
			},
			FlatFragment.Name: {
				Uniforms: []string{Color},
				Run: func(u *soft.Uniforms, _ soft.Varying) [4]float32 {
					return u.Vec4(Color)
				},
			},
		},
	}
}

func columnVertex(u *soft.Uniforms, attrs [][3]float32) ([4]float32, soft.Varying) {
	normal := attrs[1]
	return place(u, attrs[0]), soft.Varying{normal[0], normal[1], normal[2], 0}
}

// place moves a unit-column vertex onto its center, scales it to height and
// projects it.
func place(u *soft.Uniforms, pos [3]float32) [4]float32 {
	m := u.Mat4(MVP)
	c := u.Vec2(Center)
	h := u.Float(Height)

	world := [4]float64{
		float64(c[0]) + float64(pos[0]),
		float64(c[1]) + float64(pos[1]),
		float64(pos[2]) * float64(h),
		1,
	}

	var clip [4]float32
	for row := 0; row < 4; row++ {
		var v float64
		for col := 0; col < 4; col++ {
			v += float64(m[col*4+row]) * world[col]
		}
		clip[row] = float32(v)
	}
	return clip
}

func shadedFragment(u *soft.Uniforms, in soft.Varying) [4]float32 {
	color := u.Vec4(Color)
	shade := 1.0
	if u.Int(Lighting) == 1 {
		n := [3]float64{float64(in[0]), float64(in[1]), float64(in[2])}
		if l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]); l > 0 {
			dot := (n[0]*light[0] + n[1]*light[1] + n[2]*light[2]) / l
			shade = 0.55 + 0.45*math.Max(dot, 0)
		}
	}
	return [4]float32{
		color[0] * float32(shade),
		color[1] * float32(shade),
		color[2] * float32(shade),
		color[3],
	}
}
