package event

import (
	"github.com/nicky-ayoub/ebitcompare/internal/compare"
	"go.uber.org/zap"
)

// Touch is one active touch point.
type Touch struct {
	ID   int
	X, Y float64
}

// Frame holds the polled input of a single frame.
type Frame struct {
	Cursor        compare.Point
	MousePressed  bool // left button just pressed
	MouseReleased bool // left button just released

	// Touches lists the active touches in the order they began.
	Touches []Touch
	// TouchesPressed are the IDs that began this frame.
	TouchesPressed []int
	// TouchesReleased are the IDs that ended this frame.
	TouchesReleased []int

	Keys      []compare.Key
	FocusNext bool // Tab
	Blur      bool // Escape
}

// Target is the comparator surface the dispatcher drives.
type Target interface {
	PointerDown(compare.PointerEvent)
	KeyDown(compare.Key) bool
	Focus()
	Blur()
}

// Dispatcher converts frames into container and window events. A press is
// only delivered to the target when it lands inside the container, where it
// also focuses the handle; moves and releases always go to the window
// registry.
type Dispatcher struct {
	window *Registry
	log    *zap.Logger

	lastCursor  compare.Point
	haveCursor  bool
	lastTouches map[int]compare.Point
}

func NewDispatcher(window *Registry, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		window:      window,
		log:         log,
		lastTouches: make(map[int]compare.Point),
	}
}

// Dispatch delivers f. target may be nil while no comparator is mounted; the
// container is measured through geom at dispatch time.
func (d *Dispatcher) Dispatch(f Frame, target Target, geom compare.Geometry) {
	d.dispatchMouse(f, target, geom)
	d.dispatchTouch(f, target, geom)
	d.dispatchKeys(f, target)
}

func (d *Dispatcher) dispatchMouse(f Frame, target Target, geom compare.Geometry) {
	ev := compare.PointerEvent{Source: compare.SourceMouse, Points: []compare.Point{f.Cursor}}
	moved := !d.haveCursor || f.Cursor != d.lastCursor
	d.lastCursor, d.haveCursor = f.Cursor, true

	if f.MousePressed {
		d.press(ev, f.Cursor, target, geom)
	} else if moved {
		d.window.Move(ev)
	}
	if f.MouseReleased {
		d.window.Up(ev)
	}
}

func (d *Dispatcher) dispatchTouch(f Frame, target Target, geom compare.Geometry) {
	ev := compare.PointerEvent{Source: compare.SourceTouch}
	moved := false
	seen := make(map[int]bool, len(f.Touches))
	for _, t := range f.Touches {
		p := compare.Point{X: t.X, Y: t.Y}
		ev.Points = append(ev.Points, p)
		seen[t.ID] = true
		if last, ok := d.lastTouches[t.ID]; ok && last != p {
			moved = true
		}
		d.lastTouches[t.ID] = p
	}
	for id := range d.lastTouches {
		if !seen[id] {
			delete(d.lastTouches, id)
		}
	}

	// Moves and releases belong to touches that were already down, so they
	// are delivered before this frame's presses. A finger landing in the
	// frame another one lifts then starts a session that stays alive.
	if moved {
		d.window.Move(ev)
	}
	if len(f.TouchesReleased) > 0 {
		d.window.Up(ev)
	}
	for _, id := range f.TouchesPressed {
		for _, t := range f.Touches {
			if t.ID == id {
				d.press(ev, compare.Point{X: t.X, Y: t.Y}, target, geom)
			}
		}
	}
}

func (d *Dispatcher) press(ev compare.PointerEvent, at compare.Point, target Target, geom compare.Geometry) {
	if target == nil || geom == nil {
		return
	}
	r, ok := geom.ContainerRect()
	if !ok || !contains(r, at) {
		target.Blur()
		return
	}
	d.log.Debug("Pointer down in container",
		zap.Stringer("source", ev.Source),
		zap.Float64("x", at.X),
		zap.Float64("y", at.Y))
	target.Focus()
	target.PointerDown(ev)
}

func (d *Dispatcher) dispatchKeys(f Frame, target Target) {
	if target == nil {
		return
	}
	if f.FocusNext {
		target.Focus()
	}
	if f.Blur {
		target.Blur()
	}
	for _, k := range f.Keys {
		target.KeyDown(k)
	}
}

func contains(r compare.Rect, p compare.Point) bool {
	return p.X >= r.Left && p.X < r.Left+r.Width &&
		p.Y >= r.Top && p.Y < r.Top+r.Height
}
