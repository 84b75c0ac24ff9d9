package compare

import "sync"

// Source identifies the device family a pointer event came from. Move and
// release listeners are registered per source, mirroring mouse-move/mouse-up
// and touch-move/touch-end pairs.
type Source int

const (
	SourceMouse Source = iota
	SourceTouch
)

func (s Source) String() string {
	switch s {
	case SourceMouse:
		return "mouse"
	case SourceTouch:
		return "touch"
	default:
		return "unknown"
	}
}

// Point is a pointer location in client coordinates.
type Point struct {
	X, Y float64
}

// PointerEvent carries the active points of a single input event. A mouse
// event has one point; a touch event lists active touches in the order they
// began.
type PointerEvent struct {
	Source Source
	Points []Point
}

// ClientX returns the horizontal coordinate of the first point. Any further
// touches are ignored.
func (e PointerEvent) ClientX() (float64, bool) {
	if len(e.Points) == 0 {
		return 0, false
	}
	return e.Points[0].X, true
}

// Subscription is an acquired listener or observer registration.
type Subscription interface {
	Remove()
}

// Listener receives window-scoped pointer events for one source.
type Listener struct {
	Move func(PointerEvent)
	Up   func(PointerEvent)
}

// Window registers listeners that see every pointer event of a source,
// including those that happen outside the comparator's container.
type Window interface {
	Listen(src Source, l Listener) Subscription
}

// dragSession owns the window subscription for a single drag. release is
// safe to call any number of times; the subscription is removed once.
type dragSession struct {
	source Source
	sub    Subscription
	once   sync.Once
}

func (s *dragSession) release() {
	s.once.Do(func() {
		if s.sub != nil {
			s.sub.Remove()
		}
	})
}
