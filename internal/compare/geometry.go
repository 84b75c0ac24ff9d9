// Package compare implements the before/after comparison slider: input
// unification, the geometry engine, derived render state and resize
// reconciliation. It has no dependency on a graphics library; the host
// supplies measurement and sizing capabilities.
package compare

import "math"

// Rect is the container's bounding rectangle in client coordinates.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Geometry reports the container's current bounding rectangle.
// ok is false while the container is not laid out yet.
// Implementations must measure on every call; the comparator never caches
// the result across events.
type Geometry interface {
	ContainerRect() (r Rect, ok bool)
}

// ForegroundSizer applies an explicit pixel width to the comparison image so
// that it keeps tracking the container while only its parent is clipped.
type ForegroundSizer interface {
	SetForegroundWidth(px float64)
}

// SizeObserver notifies fn whenever the observed container changes size.
// The returned Subscription stops the notifications. fn may be called on
// any goroutine.
type SizeObserver interface {
	ObserveSize(fn func()) Subscription
}

const (
	minPercent = 0.0
	maxPercent = 100.0
)

// clamp restricts a value to a given range.
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// PercentAt converts a client-space x coordinate to a slider percentage
// relative to r. The offset is clamped to [0, r.Width] before scaling, so the
// result is always within [0, 100]. ok is false for a container without
// width or an x that is not a number.
func PercentAt(r Rect, x float64) (percent float64, ok bool) {
	if !(r.Width > 0) || math.IsNaN(x) || math.IsNaN(r.Left) {
		return 0, false
	}
	offset := clamp(x-r.Left, 0, r.Width)
	return clamp(offset/r.Width*maxPercent, minPercent, maxPercent), true
}
