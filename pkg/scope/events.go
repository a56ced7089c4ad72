package scope

import "github.com/anrid/covid-scope/pkg/stats"

// Event is one of DayChanged, Played, Paused, RowChanged, DeltaModeChanged,
// SelectionChanged or Clicked.
type Event interface {
	event()
}

type DayChanged struct {
	Day float64
}

type Played struct{}

type Paused struct{}

type RowChanged struct {
	Row stats.Row
}

type DeltaModeChanged struct {
	Mode stats.DeltaMode
}

type SelectionChanged struct {
	Selected []stats.RegionRef
}

// Clicked reports a click on the viewport. Hit is false when the click
// landed on no column.
type Clicked struct {
	Region stats.RegionRef
	Hit    bool
}

func (DayChanged) event()       {}
func (Played) event()           {}
func (Paused) event()           {}
func (RowChanged) event()       {}
func (DeltaModeChanged) event() {}
func (SelectionChanged) event() {}
func (Clicked) event()          {}

// Observer receives Scope events synchronously, on the caller's goroutine.
type Observer interface {
	Notify(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

type observers struct {
	next int
	subs []subscription
}

type subscription struct {
	id int
	o  Observer
}

func (os *observers) add(o Observer) func() {
	id := os.next
	os.next++
	os.subs = append(os.subs, subscription{id: id, o: o})
	return func() {
		for i, s := range os.subs {
			if s.id == id {
				os.subs = append(os.subs[:i:i], os.subs[i+1:]...)
				return
			}
		}
	}
}

func (os *observers) emit(e Event) {
	for _, s := range append([]subscription(nil), os.subs...) {
		s.o.Notify(e)
	}
}
