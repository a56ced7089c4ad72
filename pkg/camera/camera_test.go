package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func toNDC(m [16]float32, x, y, z float64) (float64, float64) {
	var mm mgl64.Mat4
	for i := range m {
		mm[i] = float64(m[i])
	}
	v := mm.Mul4x1(mgl64.Vec4{x, y, z, 1})
	return v[0] / v[3], v[1] / v[3]
}

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

// TestProjectMercator ensures the projection corners and north-up orientation.
func TestProjectMercator(t *testing.T) {
	o := DefaultOptions()

	x, y := o.Project(LngLat{0, 0})
	if !near(x, 256, 1e-9) || !near(y, 256, 1e-9) {
		t.Fatalf("Project(0,0) = (%v, %v), want (256, 256)", x, y)
	}
	x, _ = o.Project(LngLat{-180, 0})
	if !near(x, 0, 1e-9) {
		t.Fatalf("Project(-180,0).x = %v, want 0", x)
	}
	_, north := o.Project(LngLat{0, 60})
	_, south := o.Project(LngLat{0, -60})
	if north <= 256 || south >= 256 {
		t.Fatalf("north y = %v, south y = %v; want y to grow north", north, south)
	}
	_, top := o.Project(LngLat{0, 90})
	if !near(top, 512, 1e-6) || math.IsInf(top, 0) {
		t.Fatalf("Project(0,90).y = %v, want the clamped top edge 512", top)
	}
}

// TestMatrixCenterProjectsToOrigin ensures the map center lands at the viewport center.
func TestMatrixCenterProjectsToOrigin(t *testing.T) {
	o := DefaultOptions()
	for _, s := range []State{
		{Center: LngLat{0, 0}, Zoom: 1, Width: 800, Height: 600},
		{Center: LngLat{139.7, 35.7}, Zoom: 4.5, Bearing: 30, Pitch: 45, Width: 1024, Height: 768},
		{Center: LngLat{-70, -33}, Zoom: 8, Bearing: -120, Pitch: 60, Width: 300, Height: 900},
	} {
		m, err := o.Matrix(s)
		if err != nil {
			t.Fatalf("Matrix(%+v) returned error: %v", s, err)
		}
		cx, cy := o.Project(s.Center)
		x, y := toNDC(m, cx, cy, 0)
		if !near(x, 0, 1e-3) || !near(y, 0, 1e-3) {
			t.Fatalf("center of %+v projects to (%v, %v), want (0, 0)", s, x, y)
		}
	}
}

// TestMatrixPixelScale ensures one world unit covers PixelsPerUnit pixels at pitch 0.
func TestMatrixPixelScale(t *testing.T) {
	o := DefaultOptions()
	s := State{Center: LngLat{10, 20}, Zoom: 3, Width: 800, Height: 600}

	m, err := o.Matrix(s)
	if err != nil {
		t.Fatalf("Matrix returned error: %v", err)
	}
	cx, cy := o.Project(s.Center)

	_, ny := toNDC(m, cx, cy+1, 0)
	gotPixels := ny * float64(s.Height) / 2
	if want := o.PixelsPerUnit(s.Zoom); !near(gotPixels, want, 1e-2) {
		t.Fatalf("north step = %v px, want %v", gotPixels, want)
	}

	nx, _ := toNDC(m, cx+1, cy, 0)
	if px := nx * float64(s.Width) / 2; !near(px, o.PixelsPerUnit(s.Zoom), 1e-2) {
		t.Fatalf("east step = %v px, want %v", px, o.PixelsPerUnit(s.Zoom))
	}
}

// TestMatrixBearingRotatesNorth ensures bearing 90 puts east at the top of the screen.
func TestMatrixBearingRotatesNorth(t *testing.T) {
	o := DefaultOptions()
	s := State{Center: LngLat{0, 0}, Zoom: 2, Bearing: 90, Width: 500, Height: 500}

	m, err := o.Matrix(s)
	if err != nil {
		t.Fatalf("Matrix returned error: %v", err)
	}
	cx, cy := o.Project(s.Center)

	x, y := toNDC(m, cx+1, cy, 0)
	if !(y > 0) || !near(x, 0, 1e-4) {
		t.Fatalf("east of center projects to (%v, %v), want straight up", x, y)
	}
}

// TestMatrixPitchTiltsNorthAway ensures pitched views shrink the far side.
func TestMatrixPitchTiltsNorthAway(t *testing.T) {
	o := DefaultOptions()
	s := State{Center: LngLat{0, 0}, Zoom: 2, Pitch: 50, Width: 500, Height: 500}

	m, err := o.Matrix(s)
	if err != nil {
		t.Fatalf("Matrix returned error: %v", err)
	}
	cx, cy := o.Project(s.Center)

	_, north := toNDC(m, cx, cy+5, 0)
	_, south := toNDC(m, cx, cy-5, 0)
	if !(north > 0 && south < 0) {
		t.Fatalf("north = %v, south = %v; want north above south", north, south)
	}
	if !(north < -south) {
		t.Fatalf("north span %v should be shorter than south span %v", north, -south)
	}

	// columns rise toward the top of the screen
	_, up := toNDC(m, cx, cy, 1)
	if !(up > 0) {
		t.Fatalf("column top projects to y = %v, want above center", up)
	}
}

// TestMatrixRejectsEmptyViewport ensures a zero-sized viewport is an error.
func TestMatrixRejectsEmptyViewport(t *testing.T) {
	_, err := DefaultOptions().Matrix(State{Width: 0, Height: 10})
	if !errors.Is(err, ErrViewport) {
		t.Fatalf("Matrix error = %v, want %v", err, ErrViewport)
	}
}

// TestCacheKeepsLastGoodMatrix ensures failed updates do not clobber the cache.
func TestCacheKeepsLastGoodMatrix(t *testing.T) {
	c := NewCache(DefaultOptions())
	if c.Valid() {
		t.Fatal("new cache should not be valid")
	}

	s := State{Center: LngLat{1, 2}, Zoom: 3, Width: 10, Height: 10}
	if err := c.Update(s); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	want := c.Matrix()

	if err := c.Update(State{}); err == nil {
		t.Fatal("expected an error for an empty viewport")
	}
	if c.Matrix() != want || !c.Valid() {
		t.Fatal("cache changed after a failed update")
	}
}
