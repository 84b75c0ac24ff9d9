package ui

import (
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/nicky-ayoub/ebitcompare/internal/event"
	"github.com/nicky-ayoub/ebitcompare/internal/history"
	"github.com/nicky-ayoub/ebitcompare/internal/service"
	"go.uber.org/zap"
)

const (
	viewportWidth = 11 // Must be an odd number for a clear center
	thumbSize     = 80
	thumbSpacing  = 10
	stripHeight   = thumbSize + 2*thumbSpacing
)

// ThumbnailStrip shows the scene history along the bottom of the window and
// lets the user pick the scene to compare.
type ThumbnailStrip struct {
	history *history.History
	loader  *service.ThumbnailLoader
	log     *zap.Logger

	thumbCache map[string]*ebiten.Image
	cacheMu    sync.RWMutex

	selectionBox *ebiten.Image
}

// NewThumbnailStrip creates and initializes a new thumbnail strip UI component.
func NewThumbnailStrip(h *history.History, ivs *service.ImageService, log *zap.Logger) *ThumbnailStrip {
	ts := &ThumbnailStrip{
		history:    h,
		loader:     service.NewThumbnailLoader(ivs, thumbSize, 2, log), // starts two workers
		log:        log,
		thumbCache: make(map[string]*ebiten.Image),
	}

	ts.selectionBox = ebiten.NewImage(thumbSize, thumbSize)
	borderColor := color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	vector.StrokeRect(ts.selectionBox, 0, 0, float32(thumbSize), float32(thumbSize), 3, borderColor, false)

	return ts
}

// Height returns the total height of the thumbnail strip.
func (ts *ThumbnailStrip) Height() int {
	return stripHeight
}

// Close stops the loader goroutines.
func (ts *ThumbnailStrip) Close() {
	ts.loader.Close()
}

// slotRects returns the screen rectangles of the visible thumbnail slots.
func slotRects(n, screenWidth, screenHeight int) []image.Rectangle {
	totalWidth := n*(thumbSize+thumbSpacing) - thumbSpacing
	startX := (screenWidth - totalWidth) / 2
	startY := screenHeight - stripHeight + thumbSpacing
	rects := make([]image.Rectangle, n)
	for i := range rects {
		x := startX + i*(thumbSize+thumbSpacing)
		rects[i] = image.Rect(x, startY, x+thumbSize, startY+thumbSize)
	}
	return rects
}

// Update processes loaded thumbnails, queues missing ones and handles clicks.
// It returns the index of a clicked scene, or the current index.
func (ts *ThumbnailStrip) Update(frame event.Frame, screenWidth, screenHeight int) int {
	currentIndex := ts.history.Index()

	// 1. Process any results that have come back from the loader goroutines.
	// This must be done in the main thread as ebiten.Image creation is not thread-safe.
	for _, result := range ts.loader.Drain() {
		ebitenImg := ebiten.NewImageFromImage(result.Image)
		ts.cacheMu.Lock()
		ts.thumbCache[result.Path] = ebitenImg
		ts.cacheMu.Unlock()
		ts.log.Debug("Thumbnail ready", zap.String("path", result.Path))
	}

	// 2. Queue jobs for any missing thumbnails in the viewport.
	viewportItems, _ := ts.history.GetViewportItems(currentIndex, viewportWidth)
	for _, vpItem := range viewportItems {
		path := vpItem.Scene.Path

		ts.cacheMu.RLock()
		_, inCache := ts.thumbCache[path]
		ts.cacheMu.RUnlock()
		if inCache {
			continue
		}
		// Already queued, failed, or the queue is full; the latter is
		// retried next frame.
		ts.loader.Request(path)
	}

	// 3. Handle clicks and taps on a slot.
	var presses []image.Point
	if frame.MousePressed {
		presses = append(presses, image.Pt(int(frame.Cursor.X), int(frame.Cursor.Y)))
	}
	for _, id := range frame.TouchesPressed {
		for _, t := range frame.Touches {
			if t.ID == id {
				presses = append(presses, image.Pt(int(t.X), int(t.Y)))
			}
		}
	}
	rects := slotRects(len(viewportItems), screenWidth, screenHeight)
	for _, p := range presses {
		for i, r := range rects {
			if p.In(r) {
				return viewportItems[i].Index
			}
		}
	}

	return currentIndex
}

// Draw renders the thumbnail strip onto the bottom of the screen.
func (ts *ThumbnailStrip) Draw(screen *ebiten.Image) {
	viewportItems, centerIdxInViewport := ts.history.GetViewportItems(ts.history.Index(), viewportWidth)
	if len(viewportItems) == 0 {
		return
	}

	b := screen.Bounds()
	rects := slotRects(len(viewportItems), b.Dx(), b.Dy())

	ts.cacheMu.RLock()
	defer ts.cacheMu.RUnlock()

	for i, vpItem := range viewportItems {
		slot := rects[i]
		thumb, exists := ts.thumbCache[vpItem.Scene.Path]
		if exists {
			op := &ebiten.DrawImageOptions{}

			// Scale the thumbnail to fit the thumbSize box, preserving aspect ratio.
			tb := thumb.Bounds()
			imgW, imgH := tb.Dx(), tb.Dy()
			scale := float64(thumbSize) / float64(imgW)
			if hScale := float64(thumbSize) / float64(imgH); hScale < scale {
				scale = hScale
			}
			op.GeoM.Scale(scale, scale)

			// Center the thumbnail within its slot.
			scaledW, scaledH := float64(imgW)*scale, float64(imgH)*scale
			op.GeoM.Translate(float64(slot.Min.X)+(thumbSize-scaledW)/2, float64(slot.Min.Y)+(thumbSize-scaledH)/2)
			screen.DrawImage(thumb, op)
		}

		if i == centerIdxInViewport {
			selOp := &ebiten.DrawImageOptions{}
			selOp.GeoM.Translate(float64(slot.Min.X), float64(slot.Min.Y))
			screen.DrawImage(ts.selectionBox, selOp)
		}
	}
}
