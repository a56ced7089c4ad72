// Package hostmap is a headless stand-in for the basemap the columns layer
// is drawn over. It holds the camera, tells subscribers when the camera moves
// or the viewport changes, and fires a render notification every frame.
//
// A Map is not safe for concurrent use; drive it from a Loop.
package hostmap

import (
	"context"
	"sort"

	"github.com/anrid/covid-scope/pkg/camera"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/scope"
)

type Map struct {
	state camera.State

	nextID int
	move   map[int]func()
	resize map[int]func(width, height int)
	render map[int]func()
}

func New(state camera.State) *Map {
	return &Map{
		state:  state,
		move:   make(map[int]func()),
		resize: make(map[int]func(int, int)),
		render: make(map[int]func()),
	}
}

// Camera is the current camera, viewport size included.
func (m *Map) Camera() camera.State { return m.state }

func (m *Map) id() int {
	m.nextID++
	return m.nextID
}

// OnMove registers fn for camera moves and returns a function removing it.
func (m *Map) OnMove(fn func()) func() {
	id := m.id()
	m.move[id] = fn
	return func() { delete(m.move, id) }
}

func (m *Map) OnResize(fn func(width, height int)) func() {
	id := m.id()
	m.resize[id] = fn
	return func() { delete(m.resize, id) }
}

func (m *Map) OnRender(fn func()) func() {
	id := m.id()
	m.render[id] = fn
	return func() { delete(m.render, id) }
}

// Jump moves the camera to the center, zoom, bearing and pitch of s. The
// viewport size is left alone; use Resize for that.
func (m *Map) Jump(s camera.State) {
	m.state.Center = s.Center
	m.state.Zoom = s.Zoom
	m.state.Bearing = s.Bearing
	m.state.Pitch = s.Pitch
	for _, id := range sortedIDs(m.move) {
		m.move[id]()
	}
}

func (m *Map) Resize(width, height int) {
	m.state.Width, m.state.Height = width, height
	for _, id := range sortedIDs(m.resize) {
		m.resize[id](width, height)
	}
}

// Frame fires the render notification.
func (m *Map) Frame() {
	for _, id := range sortedIDs(m.render) {
		m.render[id]()
	}
}

func sortedIDs[T any](subs map[int]T) []int {
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Attach glues sc to m the way a custom layer is added to a map: the scope
// takes the current viewport, then follows camera moves, resizes and frames.
// The returned function detaches it.
func Attach(ctx context.Context, m *Map, sc *scope.Scope) (func(), error) {
	if err := sc.Resize(m.state.Width, m.state.Height); err != nil {
		return nil, err
	}

	offMove := m.OnMove(sc.CameraMoved)
	offResize := m.OnResize(func(width, height int) {
		if err := sc.Resize(width, height); err != nil {
			logger.Errorf(ctx, "resize layer to %dx%d: %v", width, height, err)
		}
	})
	offRender := m.OnRender(func() { sc.Refresh() })

	return func() {
		offMove()
		offResize()
		offRender()
	}, nil
}
