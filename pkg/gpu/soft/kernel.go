package soft

import "fmt"

// Varying carries per-vertex outputs from a vertex kernel to a fragment
// kernel. Values are interpolated perspective-correctly.
type Varying [4]float32

// VertexKernel is the software stand-in for a vertex shader.
type VertexKernel struct {
	Attributes []string
	Uniforms   []string
	Run        func(u *Uniforms, attrs [][3]float32) (clip [4]float32, out Varying)
}

// FragmentKernel is the software stand-in for a fragment shader.
type FragmentKernel struct {
	Uniforms []string
	Run      func(u *Uniforms, in Varying) [4]float32
}

// Kernels maps stage names to kernels.
type Kernels struct {
	Vertex   map[string]VertexKernel
	Fragment map[string]FragmentKernel
}

// Uniforms holds the values bound to a program, by name. Every value is
// stored in a 16-float slot regardless of its shape.
type Uniforms struct {
	index  map[string]int
	values [][16]float32
}

func newUniforms(names ...[]string) Uniforms {
	u := Uniforms{index: make(map[string]int)}
	for _, list := range names {
		for _, name := range list {
			if _, ok := u.index[name]; ok {
				continue
			}
			u.index[name] = len(u.values)
			u.values = append(u.values, [16]float32{})
		}
	}
	return u
}

func (u *Uniforms) slot(name string) *[16]float32 {
	i, ok := u.index[name]
	if !ok {
		panic(fmt.Sprintf("soft: kernel reads undeclared uniform %q", name))
	}
	return &u.values[i]
}

func (u *Uniforms) Int(name string) int32 {
	return int32(u.slot(name)[0])
}

func (u *Uniforms) Float(name string) float32 {
	return u.slot(name)[0]
}

func (u *Uniforms) Vec2(name string) [2]float32 {
	s := u.slot(name)
	return [2]float32{s[0], s[1]}
}

func (u *Uniforms) Vec4(name string) [4]float32 {
	s := u.slot(name)
	return [4]float32{s[0], s[1], s[2], s[3]}
}

func (u *Uniforms) Mat4(name string) [16]float32 {
	return *u.slot(name)
}
