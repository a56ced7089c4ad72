package gpu

import (
	"fmt"
)

// UniformKind is the value shape of a uniform.
type UniformKind int

const (
	Int UniformKind = iota
	Float
	Vec2
	Vec4
	Mat4
)

func (k UniformKind) String() string {
	switch k {
	case Int:
		return "1i"
	case Float:
		return "1f"
	case Vec2:
		return "2f"
	case Vec4:
		return "4f"
	case Mat4:
		return "4m"
	default:
		return fmt.Sprintf("UniformKind(%d)", int(k))
	}
}

type UniformDecl struct {
	Name string
	Kind UniformKind
}

type uniform struct {
	loc  Location
	kind UniformKind
}

// Program is a linked program whose attribute and uniform locations were
// resolved once, at construction. Binding a name that was not declared, or
// with the wrong shape, panics.
type Program struct {
	dev        Device
	id         ProgramID
	attributes map[string]Location
	uniforms   map[string]uniform
}

// NewProgram compiles and links vs and fs and resolves every declared name.
// A declared name the program does not expose fails with ErrUnknownName.
func NewProgram(dev Device, vs, fs Stage, attributes []string, uniforms []UniformDecl) (*Program, error) {
	id, err := dev.CreateProgram(vs, fs)
	if err != nil {
		return nil, fmt.Errorf("program %s+%s: %w", vs.Name, fs.Name, err)
	}

	p := &Program{
		dev:        dev,
		id:         id,
		attributes: make(map[string]Location, len(attributes)),
		uniforms:   make(map[string]uniform, len(uniforms)),
	}

	for _, name := range attributes {
		loc := dev.AttribLocation(id, name)
		if loc == NoLocation {
			return nil, fmt.Errorf("program %s+%s: attribute %q: %w", vs.Name, fs.Name, name, ErrUnknownName)
		}
		p.attributes[name] = loc
	}
	for _, u := range uniforms {
		loc := dev.UniformLocation(id, u.Name)
		if loc == NoLocation {
			return nil, fmt.Errorf("program %s+%s: uniform %q: %w", vs.Name, fs.Name, u.Name, ErrUnknownName)
		}
		p.uniforms[u.Name] = uniform{loc: loc, kind: u.Kind}
	}

	return p, nil
}

func (p *Program) ID() ProgramID { return p.id }

// Use makes p the current program.
func (p *Program) Use() {
	p.dev.UseProgram(p.id)
}

// BindAttribute feeds buf to the named vec3 attribute.
func (p *Program) BindAttribute(name string, buf Buffer) {
	loc, ok := p.attributes[name]
	if !ok {
		panic(fmt.Sprintf("gpu: attribute %q not declared", name))
	}
	p.dev.BindAttribute(loc, buf, 3)
}

func (p *Program) SetInt(name string, v int32) {
	p.dev.Uniform1i(p.lookup(name, Int), v)
}

func (p *Program) SetFloat(name string, v float32) {
	p.dev.Uniform1f(p.lookup(name, Float), v)
}

func (p *Program) SetVec2(name string, x, y float32) {
	p.dev.Uniform2f(p.lookup(name, Vec2), x, y)
}

func (p *Program) SetVec4(name string, v [4]float32) {
	p.dev.Uniform4f(p.lookup(name, Vec4), v[0], v[1], v[2], v[3])
}

func (p *Program) SetMat4(name string, m [16]float32) {
	p.dev.UniformMatrix4fv(p.lookup(name, Mat4), m)
}

func (p *Program) lookup(name string, kind UniformKind) Location {
	u, ok := p.uniforms[name]
	if !ok {
		panic(fmt.Sprintf("gpu: uniform %q not declared", name))
	}
	if u.kind != kind {
		panic(fmt.Sprintf("gpu: uniform %q is %s, set as %s", name, u.kind, kind))
	}
	return u.loc
}
