package compare

import "math"

// View is the render/clip state for one frame. All three fields are derived
// from the same position, so they never disagree.
type View struct {
	// OverlayPercent is the width of the clipped comparison layer as a
	// percentage of the container width.
	OverlayPercent float64
	// HandlePercent is the handle's left offset as a percentage of the
	// container width.
	HandlePercent float64
	// ValueNow is the rounded percentage reported to assistive technology.
	ValueNow int
}

func viewAt(p float64) View {
	return View{
		OverlayPercent: p,
		HandlePercent:  p,
		ValueNow:       int(math.Round(p)),
	}
}

// OverlayWidth returns the clipped layer width in pixels for a container of
// the given width.
func (v View) OverlayWidth(containerWidth float64) float64 {
	return containerWidth * v.OverlayPercent / maxPercent
}

// HandleX returns the handle centre in client coordinates for r.
func (v View) HandleX(r Rect) float64 {
	return r.Left + r.Width*v.HandlePercent/maxPercent
}

// Accessibility describes the handle as a slider control.
type Accessibility struct {
	Role     string
	Label    string
	Controls string
	Min, Max int
	Now      int
	Focused  bool
}
