package soft

import (
	"math"

	"github.com/anrid/covid-scope/pkg/gpu"
)

type vertex struct {
	clip [4]float32
	out  Varying
}

// screen-space vertex: window x, y, depth in [0,1] and 1/w.
type projected struct {
	x, y, z float64
	invW    float64
	out     Varying
}

func (d *Device) DrawTriangles(first, count int) {
	p := d.current
	if p == nil || first < 0 {
		return
	}

	attrs := make([][3]float32, len(p.vs.Attributes))
	var tri [3]vertex
	for i := first; i+3 <= first+count; i += 3 {
		for k := 0; k < 3; k++ {
			d.fetch(i+k, attrs)
			tri[k].clip, tri[k].out = p.vs.Run(&p.uniforms, attrs)
		}
		d.rasterize(p, tri)
	}
}

func (d *Device) fetch(index int, attrs [][3]float32) {
	for loc := range attrs {
		attrs[loc] = [3]float32{}
		b, ok := d.attribs[gpu.Location(loc)]
		if !ok || b.buf == 0 || int(b.buf) > len(d.buffers) {
			continue
		}
		data := d.buffers[b.buf-1]
		off := index * b.size
		for c := 0; c < b.size && c < 3 && off+c < len(data); c++ {
			attrs[loc][c] = data[off+c]
		}
	}
}

func edge(ax, ay, bx, by, cx, cy float64) float64 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

func (d *Device) rasterize(p *program, tri [3]vertex) {
	t := d.target()
	vx, vy, vw, vh := d.viewport[0], d.viewport[1], d.viewport[2], d.viewport[3]

	var s [3]projected
	for k, v := range tri {
		w := float64(v.clip[3])
		if w <= 1e-9 {
			return
		}
		s[k] = projected{
			x:    float64(vx) + (float64(v.clip[0])/w+1)*0.5*float64(vw),
			y:    float64(vy) + (float64(v.clip[1])/w+1)*0.5*float64(vh),
			z:    (float64(v.clip[2])/w + 1) * 0.5,
			invW: 1 / w,
			out:  v.out,
		}
	}

	area := edge(s[0].x, s[0].y, s[1].x, s[1].y, s[2].x, s[2].y)
	if area == 0 || math.IsNaN(area) {
		return
	}
	if area < 0 && d.caps[gpu.CullFace] {
		return
	}

	minX := math.Min(s[0].x, math.Min(s[1].x, s[2].x))
	maxX := math.Max(s[0].x, math.Max(s[1].x, s[2].x))
	minY := math.Min(s[0].y, math.Min(s[1].y, s[2].y))
	maxY := math.Max(s[0].y, math.Max(s[1].y, s[2].y))

	x0 := clampInt(int(math.Floor(minX)), max(vx, 0), min(vx+vw, t.width))
	x1 := clampInt(int(math.Ceil(maxX)), max(vx, 0), min(vx+vw, t.width))
	y0 := clampInt(int(math.Floor(minY)), max(vy, 0), min(vy+vh, t.height))
	y1 := clampInt(int(math.Ceil(maxY)), max(vy, 0), min(vy+vh, t.height))

	depthTest := d.caps[gpu.DepthTest]
	blend := d.caps[gpu.Blend]

	for py := y0; py < y1; py++ {
		cy := float64(py) + 0.5
		for px := x0; px < x1; px++ {
			cx := float64(px) + 0.5

			w0 := edge(s[1].x, s[1].y, s[2].x, s[2].y, cx, cy) / area
			w1 := edge(s[2].x, s[2].y, s[0].x, s[0].y, cx, cy) / area
			w2 := edge(s[0].x, s[0].y, s[1].x, s[1].y, cx, cy) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*s[0].z + w1*s[1].z + w2*s[2].z
			if z < 0 || z > 1 {
				continue
			}

			idx := py*t.width + px
			if depthTest && !(float32(z) < t.depth[idx]) {
				continue
			}

			var in Varying
			iw := w0*s[0].invW + w1*s[1].invW + w2*s[2].invW
			for j := range in {
				v := w0*float64(s[0].out[j])*s[0].invW +
					w1*float64(s[1].out[j])*s[1].invW +
					w2*float64(s[2].out[j])*s[2].invW
				in[j] = float32(v / iw)
			}

			color := p.fs.Run(&p.uniforms, in)
			writePixel(t.color[idx*4:idx*4+4], color, blend)
			if depthTest {
				t.depth[idx] = float32(z)
			}
		}
	}
}

func writePixel(dst []byte, c [4]float32, blend bool) {
	if !blend {
		dst[0], dst[1], dst[2], dst[3] = toByte(c[0]), toByte(c[1]), toByte(c[2]), toByte(c[3])
		return
	}
	a := clamp01(c[3])
	for i := 0; i < 4; i++ {
		src := c[i]
		if i < 3 {
			src = clamp01(src)
		} else {
			src = a
		}
		dst[i] = toByte(src*a + float32(dst[i])/255*(1-a))
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
