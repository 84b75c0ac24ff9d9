// Package history tracks the generated scenes available for comparison and
// which one is on screen.
package history

import (
	"fmt"
	"sync"

	"github.com/nicky-ayoub/ebitcompare/internal/service"
)

// ViewportItem is a helper struct for the thumbnail strip, bundling a scene
// with its index in the history.
type ViewportItem struct {
	Scene service.Scene
	Index int
}

// History manages the ordered list of scenes and the current index. Scenes
// are kept in arrival order; the newest is last.
type History struct {
	mu sync.RWMutex

	scenes service.Scenes
	known  map[string]bool

	// The current index into scenes, -1 when empty.
	index int

	// When set, newly added scenes become current.
	followLatest bool
}

// New creates an empty History that follows the latest scene.
func New() *History {
	return &History{
		known:        make(map[string]bool),
		index:        -1,
		followLatest: true,
	}
}

// Add appends scenes that are not yet known. If the history follows the
// latest scene, the last added scene becomes current. It returns the number
// of scenes added.
func (h *History) Add(scenes ...service.Scene) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	added := 0
	for _, s := range scenes {
		if h.known[s.Path] {
			continue
		}
		h.known[s.Path] = true
		h.scenes = append(h.scenes, s)
		added++
	}
	if added > 0 && (h.followLatest || h.index < 0) {
		h.index = len(h.scenes) - 1
	}
	return added
}

// Count returns the number of scenes.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scenes)
}

// Index returns the current index, or -1 when the history is empty.
func (h *History) Index() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index
}

// SetIndex selects a scene. Selecting anything but the newest scene stops
// following new arrivals until the newest is selected again.
func (h *History) SetIndex(i int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.scenes) {
		return fmt.Errorf("scene index %d out of bounds", i)
	}
	h.index = i
	h.followLatest = i == len(h.scenes)-1
	return nil
}

// Navigate moves the current index by delta, wrapping around the list.
func (h *History) Navigate(delta int) {
	h.mu.Lock()
	count := len(h.scenes)
	if count == 0 {
		h.mu.Unlock()
		return
	}
	// The formula `(a % n + n) % n` handles negative numbers correctly for modular arithmetic.
	next := (h.index + delta%count + count) % count
	h.mu.Unlock()
	_ = h.SetIndex(next)
}

// Current returns the current scene, or nil when the history is empty.
func (h *History) Current() *service.Scene {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.index < 0 || h.index >= len(h.scenes) {
		return nil
	}
	s := h.scenes[h.index]
	return &s
}

// IsCurrent reports whether path is the current scene. A scene that finished
// loading after the user moved on must not be shown.
func (h *History) IsCurrent(path string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index >= 0 && h.index < len(h.scenes) && h.scenes[h.index].Path == path
}

// FollowsLatest reports whether new scenes will be selected on arrival.
func (h *History) FollowsLatest() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.followLatest
}

// Remove drops a scene by path, for example after it failed to load, and
// keeps the current index pointing at a valid scene. It returns true if the
// history became empty.
func (h *History) Remove(path string) (becameEmpty bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	at := -1
	for i, s := range h.scenes {
		if s.Path == path {
			at = i
			break
		}
	}
	if at == -1 {
		return len(h.scenes) == 0
	}
	h.scenes = append(h.scenes[:at], h.scenes[at+1:]...)
	delete(h.known, path)

	if len(h.scenes) == 0 {
		h.index = -1
		return true
	}
	// If the removed item was before the current one, decrement the index.
	if h.index > at {
		h.index--
	}
	// If the index is now out of bounds (e.g., we deleted the last item), clamp it.
	if h.index >= len(h.scenes) {
		h.index = len(h.scenes) - 1
	}
	return false
}

// GetViewportItems returns a slice of ViewportItems representing the current viewport
// for the thumbnail strip, along with the index of the central item within that slice.
func (h *History) GetViewportItems(centerIndex int, windowSize int) ([]ViewportItem, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := len(h.scenes)
	if count == 0 || centerIndex < 0 {
		return []ViewportItem{}, -1
	}

	halfWindow := windowSize / 2
	start := centerIndex - halfWindow
	end := centerIndex + halfWindow

	// Adjust viewport if it goes out of bounds.
	if start < 0 {
		end -= start // equivalent to end += abs(start)
		start = 0
	}
	if end >= count {
		start -= (end - (count - 1))
		end = count - 1
	}
	// Final check in case the list is smaller than the window.
	if start < 0 {
		start = 0
	}

	items := make([]ViewportItem, 0, end-start+1)
	for i := start; i <= end; i++ {
		items = append(items, ViewportItem{Scene: h.scenes[i], Index: i})
	}
	return items, centerIndex - start
}
