package compare

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// State is the drag state of a comparator.
type State int

const (
	StateIdle State = iota
	StateDragging
)

func (s State) String() string {
	if s == StateDragging {
		return "dragging"
	}
	return "idle"
}

// Key is a keyboard key delivered to the focused handle.
type Key int

const (
	KeyOther Key = iota
	KeyLeft
	KeyRight
)

const (
	DefaultInitial = 50.0
	DefaultStep    = 2.0
	DefaultLabel   = "Image comparison slider"
	ContainerID    = "image-comparison-container"
)

// Pair names the two images being compared. Reference is drawn full-bleed
// underneath; Comparison is drawn on top and clipped to the slider position.
type Pair struct {
	Reference  string
	Comparison string
}

// Options tunes a comparator. Zero fields take the package defaults.
type Options struct {
	Label   string
	Initial float64
	Step    float64
}

func (o Options) withDefaults() Options {
	if o.Label == "" {
		o.Label = DefaultLabel
	}
	if o.Initial == 0 {
		o.Initial = DefaultInitial
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	o.Initial = clamp(o.Initial, minPercent, maxPercent)
	return o
}

// Deps are the host capabilities a comparator is wired to. Geometry and
// Window are required; Sizer, Sizes and Logger may be nil.
type Deps struct {
	Geometry Geometry
	Window   Window
	Sizer    ForegroundSizer
	Sizes    SizeObserver
	Logger   *zap.Logger
}

// Comparator is the drag/keyboard driven before/after slider. The slider
// percentage is the only stored value; overlay width, handle offset and the
// accessibility value are derived from it on read.
type Comparator struct {
	mu sync.Mutex

	pair Pair
	opts Options
	deps Deps
	log  *zap.Logger

	position float64
	state    State
	session  *dragSession
	focused  bool

	mounted bool
	sizeSub Subscription
}

// New creates an unmounted comparator for pair.
func New(pair Pair, deps Deps, opts Options) *Comparator {
	opts = opts.withDefaults()
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Comparator{
		pair:     pair,
		opts:     opts,
		deps:     deps,
		log:      log.With(zap.String("comparison", pair.Comparison)),
		position: opts.Initial,
	}
}

// Mount attaches the comparator to its container: it seeds the initial
// position through the geometry engine, starts observing container size and
// applies the foreground width once. Mounting twice is a no-op.
func (c *Comparator) Mount() {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	if r, ok := c.containerRect(); ok {
		c.moveToLocked(r.Left + r.Width*c.opts.Initial/maxPercent)
	}
	c.reconcileLocked()
	c.mu.Unlock()

	// Subscribe outside the lock: an observer may report synchronously.
	if c.deps.Sizes == nil {
		return
	}
	sub := c.deps.Sizes.ObserveSize(c.reconcile)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		// Unmounted while subscribing.
		sub.Remove()
		return
	}
	c.sizeSub = sub
}

// Unmount ends any drag session and releases the window and size
// subscriptions.
func (c *Comparator) Unmount() {
	c.mu.Lock()
	c.endSessionLocked()
	sub := c.sizeSub
	c.sizeSub = nil
	c.mounted = false
	c.focused = false
	c.mu.Unlock()

	if sub != nil {
		sub.Remove()
	}
}

// PointerDown starts a drag session at the event's first point. The slider
// jumps to that point immediately and window-level move/up listeners are
// attached for the event's source until the pointer is released.
func (c *Comparator) PointerDown(ev PointerEvent) {
	x, ok := ev.ClientX()
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	// A new press replaces the previous session instead of stacking listeners.
	c.endSessionLocked()

	s := &dragSession{source: ev.Source}
	c.session = s
	c.state = StateDragging
	c.moveToLocked(x)
	s.sub = c.deps.Window.Listen(ev.Source, Listener{
		Move: func(e PointerEvent) { c.dragMove(s, e) },
		Up:   func(PointerEvent) { c.dragEnd(s) },
	})
	c.log.Debug("Drag started",
		zap.Stringer("source", ev.Source),
		zap.Float64("position", c.position))
}

func (c *Comparator) dragMove(s *dragSession, ev PointerEvent) {
	x, ok := ev.ClientX()
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s || c.state != StateDragging {
		return
	}
	c.moveToLocked(x)
}

func (c *Comparator) dragEnd(s *dragSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s {
		return
	}
	c.endSessionLocked()
	c.log.Debug("Drag ended", zap.Float64("position", c.position))
}

func (c *Comparator) endSessionLocked() {
	if c.session == nil {
		return
	}
	c.session.release()
	c.session = nil
	c.state = StateIdle
}

// MoveTo moves the slider to the client-space x coordinate. It is a no-op
// until the comparator is mounted and its container has been measured.
func (c *Comparator) MoveTo(x float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveToLocked(x)
}

func (c *Comparator) moveToLocked(x float64) {
	if !c.mounted {
		return
	}
	r, ok := c.containerRect()
	if !ok {
		return
	}
	if p, ok := PercentAt(r, x); ok {
		c.position = p
	}
}

func (c *Comparator) containerRect() (Rect, bool) {
	if c.deps.Geometry == nil {
		return Rect{}, false
	}
	return c.deps.Geometry.ContainerRect()
}

// KeyDown steps the slider by the configured step for Left and Right while
// the handle has focus. It reports whether the key changed the position, in
// which case the host should not handle the key further.
func (c *Comparator) KeyDown(k Key) bool {
	var delta float64
	switch k {
	case KeyLeft:
		delta = -c.opts.Step
	case KeyRight:
		delta = c.opts.Step
	default:
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted || !c.focused {
		return false
	}
	if r, ok := c.containerRect(); !ok || !(r.Width > 0) {
		return false
	}
	next := clamp(c.position+delta, minPercent, maxPercent)
	if next == c.position {
		return false
	}
	c.position = next
	return true
}

// Focus gives the handle keyboard focus.
func (c *Comparator) Focus() {
	c.mu.Lock()
	c.focused = c.mounted
	c.mu.Unlock()
}

// Blur removes keyboard focus from the handle.
func (c *Comparator) Blur() {
	c.mu.Lock()
	c.focused = false
	c.mu.Unlock()
}

func (c *Comparator) Focused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// reconcile re-applies the foreground width from the container's current
// width. The slider position is left untouched.
func (c *Comparator) reconcile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked()
}

func (c *Comparator) reconcileLocked() {
	if !c.mounted || c.deps.Sizer == nil {
		return
	}
	r, ok := c.containerRect()
	if !ok {
		return
	}
	c.deps.Sizer.SetForegroundWidth(r.Width)
}

// Position returns the slider percentage in [0, 100].
func (c *Comparator) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Comparator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Comparator) Pair() Pair {
	return c.pair
}

// View returns the render state derived from the current position.
func (c *Comparator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return viewAt(c.position)
}

// Accessibility returns the slider control surface of the handle.
func (c *Comparator) Accessibility() Accessibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Accessibility{
		Role:     "slider",
		Label:    c.opts.Label,
		Controls: ContainerID,
		Min:      int(minPercent),
		Max:      int(maxPercent),
		Now:      int(math.Round(c.position)),
		Focused:  c.focused,
	}
}
