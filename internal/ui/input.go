package ui

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/nicky-ayoub/ebitcompare/internal/compare"
	"github.com/nicky-ayoub/ebitcompare/internal/event"
)

// InputState holds the polled state of application-level inputs for a
// single frame. Slider input travels separately as an event.Frame.
type InputState struct {
	Quit             bool
	ToggleFullscreen bool
	ToggleThumbnails bool
	ToggleInfo       bool
	NextScene        bool
	PrevScene        bool
}

const (
	keyRepeatDelay    = 30 // frames before a held key repeats
	keyRepeatInterval = 4  // frames between repeats
)

// repeatingKeyPressed reports a key press on the first frame and then at a
// steady rate while the key is held.
func repeatingKeyPressed(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	if d == 1 {
		return true
	}
	return d >= keyRepeatDelay && (d-keyRepeatDelay)%keyRepeatInterval == 0
}

// Poller gathers raw Ebiten input each frame. It remembers the order in
// which touches began so the first finger stays first.
type Poller struct {
	touchOrder []ebiten.TouchID
}

func NewPoller() *Poller {
	return &Poller{}
}

// Poll reads this frame's input.
func (p *Poller) Poll() (InputState, event.Frame) {
	input := InputState{
		Quit:             inpututil.IsKeyJustPressed(ebiten.KeyQ),
		ToggleFullscreen: inpututil.IsKeyJustPressed(ebiten.KeyF11),
		ToggleThumbnails: inpututil.IsKeyJustPressed(ebiten.KeyT),
		ToggleInfo:       inpututil.IsKeyJustPressed(ebiten.KeyI),
		NextScene:        inpututil.IsKeyJustPressed(ebiten.KeyPageDown),
		PrevScene:        inpututil.IsKeyJustPressed(ebiten.KeyPageUp),
	}

	mx, my := ebiten.CursorPosition()
	frame := event.Frame{
		Cursor:        compare.Point{X: float64(mx), Y: float64(my)},
		MousePressed:  inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		MouseReleased: inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft),
		FocusNext:     inpututil.IsKeyJustPressed(ebiten.KeyTab),
		Blur:          inpututil.IsKeyJustPressed(ebiten.KeyEscape),
	}
	if repeatingKeyPressed(ebiten.KeyArrowLeft) {
		frame.Keys = append(frame.Keys, compare.KeyLeft)
	}
	if repeatingKeyPressed(ebiten.KeyArrowRight) {
		frame.Keys = append(frame.Keys, compare.KeyRight)
	}

	p.pollTouches(&frame)
	return input, frame
}

func (p *Poller) pollTouches(frame *event.Frame) {
	active := ebiten.AppendTouchIDs(nil)
	isActive := make(map[ebiten.TouchID]bool, len(active))
	for _, id := range active {
		isActive[id] = true
	}

	// Drop ended touches, keeping start order for the rest.
	kept := p.touchOrder[:0]
	for _, id := range p.touchOrder {
		if isActive[id] {
			kept = append(kept, id)
		}
	}
	p.touchOrder = kept

	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		p.touchOrder = append(p.touchOrder, id)
		frame.TouchesPressed = append(frame.TouchesPressed, int(id))
	}
	for _, id := range inpututil.AppendJustReleasedTouchIDs(nil) {
		frame.TouchesReleased = append(frame.TouchesReleased, int(id))
	}

	for _, id := range p.touchOrder {
		x, y := ebiten.TouchPosition(id)
		frame.Touches = append(frame.Touches, event.Touch{ID: int(id), X: float64(x), Y: float64(y)})
	}
}
