// Package camera rebuilds the host map's view as a model-view-projection
// matrix so columns drawn into the same viewport stay glued to the basemap.
//
// World space is a WorldSize square holding a spherical Mercator projection
// with x growing east, y growing north and z growing up. Column heights are
// expressed in the same units.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxLatitude is the Mercator cut-off.
const MaxLatitude = 85.0511287798066

var ErrViewport = errors.New("empty viewport")

type LngLat struct {
	Lng float64
	Lat float64
}

// State is the host camera. Bearing and pitch are in degrees, as the host
// reports them; Width and Height are the viewport size in pixels.
type State struct {
	Center  LngLat
	Zoom    float64
	Bearing float64
	Pitch   float64
	Width   int
	Height  int
}

// Options calibrates the projection against the host engine. FOV is the
// vertical field of view in radians; at zoom z the host draws the whole
// world TileSize*2^z pixels wide.
type Options struct {
	FOV        float64
	TileSize   float64
	WorldSize  float64
	NearFactor float64
	FarFactor  float64
}

func DefaultOptions() Options {
	return Options{
		FOV:        0.6435011087932844,
		TileSize:   512,
		WorldSize:  512,
		NearFactor: 0.01,
		FarFactor:  100,
	}
}

// Project maps p into world space.
func (o Options) Project(p LngLat) (x, y float64) {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p.Lat))
	phi := mgl64.DegToRad(lat)

	x = (p.Lng + 180) / 360 * o.WorldSize
	y = (1 + math.Log(math.Tan(math.Pi/4+phi/2))/math.Pi) / 2 * o.WorldSize
	return x, y
}

// PixelsPerUnit is the on-screen size of one world unit at the map center.
func (o Options) PixelsPerUnit(zoom float64) float64 {
	return o.TileSize * math.Exp2(zoom) / o.WorldSize
}

// EyeHeight is the eye to center distance that makes one world unit cover
// PixelsPerUnit(zoom) pixels in a viewport height pixels tall.
func (o Options) EyeHeight(zoom float64, height int) float64 {
	return float64(height) / (2 * math.Tan(o.FOV/2) * o.PixelsPerUnit(zoom))
}

// Matrix returns projection x view for s in column-major order.
func (o Options) Matrix(s State) ([16]float32, error) {
	var out [16]float32
	if s.Width <= 0 || s.Height <= 0 {
		return out, fmt.Errorf("%w: %dx%d", ErrViewport, s.Width, s.Height)
	}

	cx, cy := o.Project(s.Center)
	dist := o.EyeHeight(s.Zoom, s.Height)
	bearing := -mgl64.DegToRad(s.Bearing)
	pitch := mgl64.DegToRad(s.Pitch)

	offset := dist * math.Sin(pitch)
	sinB, cosB := math.Sincos(bearing)

	eye := mgl64.Vec3{cx + sinB*offset, cy - cosB*offset, dist * math.Cos(pitch)}
	target := mgl64.Vec3{cx, cy, 0}
	// screen up is the bearing direction, which stays valid at pitch 0
	up := mgl64.Vec3{-sinB, cosB, 0}

	view := mgl64.LookAtV(eye, target, up)
	aspect := float64(s.Width) / float64(s.Height)
	proj := mgl64.Perspective(o.FOV, aspect, dist*o.NearFactor, dist*o.FarFactor)

	mvp := proj.Mul4(view)
	for i := range out {
		out[i] = float32(mvp[i])
	}
	return out, nil
}

// Cache keeps the matrix of the last camera change.
type Cache struct {
	opts   Options
	matrix [16]float32
	valid  bool
}

func NewCache(opts Options) *Cache {
	return &Cache{opts: opts}
}

func (c *Cache) Options() Options { return c.opts }

// Update recomputes the matrix for s. On error the previous matrix is kept.
func (c *Cache) Update(s State) error {
	m, err := c.opts.Matrix(s)
	if err != nil {
		return err
	}
	c.matrix = m
	c.valid = true
	return nil
}

// Matrix returns the cached matrix, the zero matrix before the first Update.
func (c *Cache) Matrix() [16]float32 {
	return c.matrix
}

func (c *Cache) Valid() bool { return c.valid }
