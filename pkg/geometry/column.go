// Package geometry builds the one prism mesh shared by every column draw.
package geometry

import (
	"fmt"
	"math"

	"github.com/anrid/covid-scope/pkg/gpu"
)

// ColumnOptions shapes the prism. A zero Rotation is used as given; callers
// wanting faces aligned to north pass pi/FaceCount.
type ColumnOptions struct {
	FaceCount int
	Radius    float64
	Rotation  float64
}

// DefaultColumnOptions is a four-sided column of the given radius turned so
// its faces point at the cardinal directions.
func DefaultColumnOptions(radius float64) ColumnOptions {
	return ColumnOptions{
		FaceCount: 4,
		Radius:    radius,
		Rotation:  math.Pi / 4,
	}
}

// Column is a unit-height prism: per face one cap triangle fanned from the
// axis at z=1 and two wall triangles down to z=0. Every triangle winds
// counter-clockwise seen from outside, in a frame where x grows east, y
// grows north and z grows up.
type Column struct {
	Positions   []float32
	Normals     []float32
	VertexCount int
}

// NewColumn builds the prism for opts.
func NewColumn(opts ColumnOptions) (*Column, error) {
	if opts.FaceCount < 3 {
		return nil, fmt.Errorf("column needs at least 3 faces, got %d", opts.FaceCount)
	}
	if opts.Radius <= 0 {
		return nil, fmt.Errorf("column radius must be positive, got %v", opts.Radius)
	}

	n := opts.FaceCount
	c := &Column{
		Positions:   make([]float32, 0, n*9*3),
		Normals:     make([]float32, 0, n*9*3),
		VertexCount: n * 9,
	}

	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		a1 := opts.Rotation + float64(i)*step
		a2 := a1 + step
		mid := a1 + step/2

		x1, y1 := opts.Radius*math.Cos(a1), opts.Radius*math.Sin(a1)
		x2, y2 := opts.Radius*math.Cos(a2), opts.Radius*math.Sin(a2)
		nx, ny := math.Cos(mid), math.Sin(mid)

		// cap
		c.add(0, 0, 1, 0, 0, 1)
		c.add(x1, y1, 1, 0, 0, 1)
		c.add(x2, y2, 1, 0, 0, 1)

		// wall
		c.add(x1, y1, 0, nx, ny, 0)
		c.add(x2, y2, 0, nx, ny, 0)
		c.add(x1, y1, 1, nx, ny, 0)

		c.add(x2, y2, 0, nx, ny, 0)
		c.add(x2, y2, 1, nx, ny, 0)
		c.add(x1, y1, 1, nx, ny, 0)
	}

	return c, nil
}

func (c *Column) add(x, y, z, nx, ny, nz float64) {
	c.Positions = append(c.Positions, float32(x), float32(y), float32(z))
	c.Normals = append(c.Normals, float32(nx), float32(ny), float32(nz))
}

// Mesh is a Column uploaded to a device. Its buffers are never written again.
type Mesh struct {
	Positions   gpu.Buffer
	Normals     gpu.Buffer
	VertexCount int
}

// Upload creates the position and normal buffers on dev.
func (c *Column) Upload(dev gpu.Device) (*Mesh, error) {
	positions, err := dev.CreateBuffer(c.Positions)
	if err != nil {
		return nil, fmt.Errorf("position buffer: %w", err)
	}
	normals, err := dev.CreateBuffer(c.Normals)
	if err != nil {
		return nil, fmt.Errorf("normal buffer: %w", err)
	}
	return &Mesh{
		Positions:   positions,
		Normals:     normals,
		VertexCount: c.VertexCount,
	}, nil
}
