package ui

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/nicky-ayoub/ebitcompare/internal/compare"
	"github.com/nicky-ayoub/ebitcompare/internal/service"
	"go.uber.org/zap"
)

const (
	containerPadding = 16
	handleWidth      = 4
	knobRadius       = 22
)

var (
	handleColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb3}
	knobColor   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xcc}
	chevronClr  = color.RGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff}
	focusColor  = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
)

// scaleJob asks the scaler to render the foreground at a container size.
type scaleJob struct {
	gen  int
	src  image.Image
	w, h int
}

// scaleResult holds a scaled foreground, ready to be converted to an ebiten.Image.
type scaleResult struct {
	gen int
	img *image.RGBA
}

// ComparatorView lays out, measures and draws the comparison container. It
// provides the comparator's Geometry, ForegroundSizer and SizeObserver
// capabilities on top of Ebiten's layout.
type ComparatorView struct {
	mu  sync.Mutex
	log *zap.Logger

	screenW, screenH int
	bottomInset      int

	background    *ebiten.Image
	foregroundSrc image.Image
	foreground    *ebiten.Image // full-size comparison, used until a scaled one arrives
	scaled        *ebiten.Image
	scaledW       int
	scaleGen      int
	toDeallocate  []*ebiten.Image

	observers  map[int]func()
	nextObsID  int
	jobQueue   chan scaleJob
	resultChan chan scaleResult
	done       chan struct{}
}

// NewComparatorView creates an empty view and starts its background scaler.
func NewComparatorView(log *zap.Logger) *ComparatorView {
	v := &ComparatorView{
		log:        log,
		observers:  make(map[int]func()),
		jobQueue:   make(chan scaleJob, 1),
		resultChan: make(chan scaleResult, 1),
		done:       make(chan struct{}),
	}
	go v.scaler()
	return v
}

// Close stops the background scaler.
func (v *ComparatorView) Close() {
	close(v.done)
}

// scaler renders cover-fit foregrounds off the main thread. Only the latest
// job matters; stale results are dropped in Update.
func (v *ComparatorView) scaler() {
	for {
		select {
		case <-v.done:
			return
		case job := <-v.jobQueue:
			img := service.Cover(job.src, job.w, job.h)
			select {
			case v.resultChan <- scaleResult{gen: job.gen, img: img}:
			case <-v.done:
				return
			}
		}
	}
}

// SetPair installs the images of a new comparison. The background is the
// generated scene; the foreground is the clipped product image. Previous
// GPU images are released at the start of the next Update.
func (v *ComparatorView) SetPair(background, foreground *ebiten.Image, foregroundSrc image.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.retireLocked(v.background, v.foreground, v.scaled)
	v.background = background
	v.foreground = foreground
	v.foregroundSrc = foregroundSrc
	v.scaled = nil
	v.scaledW = 0
	v.scaleGen++ // Invalidate in-flight scales of the old pair.
}

func (v *ComparatorView) retireLocked(imgs ...*ebiten.Image) {
	for _, img := range imgs {
		if img != nil {
			v.toDeallocate = append(v.toDeallocate, img)
		}
	}
}

// SetBottomInset reserves space below the container, e.g. for the thumbnail
// strip. A change is reported to size observers.
func (v *ComparatorView) SetBottomInset(px int) {
	v.mu.Lock()
	changed := v.bottomInset != px
	v.bottomInset = px
	v.mu.Unlock()
	if changed {
		v.notify()
	}
}

// SetScreenSize records the layout size from Game.Layout. A change is
// reported to size observers.
func (v *ComparatorView) SetScreenSize(w, h int) {
	v.mu.Lock()
	changed := v.screenW != w || v.screenH != h
	v.screenW, v.screenH = w, h
	v.mu.Unlock()
	if changed {
		v.notify()
	}
}

func (v *ComparatorView) notify() {
	v.mu.Lock()
	fns := make([]func(), 0, len(v.observers))
	for _, fn := range v.observers {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type observerHandle struct {
	v  *ComparatorView
	id int
}

func (h observerHandle) Remove() {
	h.v.mu.Lock()
	delete(h.v.observers, h.id)
	h.v.mu.Unlock()
}

// ObserveSize implements compare.SizeObserver.
func (v *ComparatorView) ObserveSize(fn func()) compare.Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextObsID++
	v.observers[v.nextObsID] = fn
	return observerHandle{v: v, id: v.nextObsID}
}

// ContainerRect implements compare.Geometry. The container is the largest
// rectangle with the background's aspect ratio that fits the area above the
// bottom inset, centred.
func (v *ComparatorView) ContainerRect() (compare.Rect, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.containerRectLocked()
}

func (v *ComparatorView) containerRectLocked() (compare.Rect, bool) {
	if v.background == nil || v.screenW <= 0 || v.screenH <= 0 {
		return compare.Rect{}, false
	}
	availW := float64(v.screenW - 2*containerPadding)
	availH := float64(v.screenH - v.bottomInset - 2*containerPadding)
	if availW <= 0 || availH <= 0 {
		return compare.Rect{}, false
	}
	b := v.background.Bounds()
	aspect := 1.0
	if b.Dy() > 0 {
		aspect = float64(b.Dx()) / float64(b.Dy())
	}
	w, h := availW, availW/aspect
	if h > availH {
		w, h = availH*aspect, availH
	}
	w, h = math.Floor(w), math.Floor(h)
	return compare.Rect{
		Left:   math.Floor(containerPadding + (availW-w)/2),
		Top:    math.Floor(containerPadding + (availH-h)/2),
		Width:  w,
		Height: h,
	}, true
}

// SetForegroundWidth implements compare.ForegroundSizer. The foreground is
// re-rendered to cover a px-wide container on the scaler goroutine.
func (v *ComparatorView) SetForegroundWidth(px float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.containerRectLocked()
	if !ok || v.foregroundSrc == nil {
		return
	}
	w := int(math.Round(px))
	if w == v.scaledW {
		return
	}
	v.scaledW = w
	v.scaleGen++
	job := scaleJob{gen: v.scaleGen, src: v.foregroundSrc, w: w, h: int(r.Height)}

	// Replace any queued job; only the newest size matters.
	select {
	case <-v.jobQueue:
	default:
	}
	select {
	case v.jobQueue <- job:
	default:
	}
	v.log.Debug("Foreground resize requested", zap.Int("width", w), zap.Int("height", job.h))
}

// ForegroundWidth returns the width the foreground was last sized to.
func (v *ComparatorView) ForegroundWidth() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scaledW
}

// Update releases retired GPU images and installs finished scales. It must
// be called from Game.Update.
func (v *ComparatorView) Update() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, img := range v.toDeallocate {
		img.Deallocate()
	}
	v.toDeallocate = v.toDeallocate[:0]

	for {
		select {
		case res := <-v.resultChan:
			if res.gen != v.scaleGen {
				continue // Stale: the container changed again or the pair was replaced.
			}
			v.retireLocked(v.scaled)
			v.scaled = ebiten.NewImageFromImage(res.img)
		default:
			return
		}
	}
}

// Draw renders the background, the clipped foreground and the handle.
func (v *ComparatorView) Draw(screen *ebiten.Image, view compare.View, a11y compare.Accessibility) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.containerRectLocked()
	if !ok {
		return
	}
	container := image.Rect(int(r.Left), int(r.Top), int(r.Left+r.Width), int(r.Top+r.Height))
	dst := screen.SubImage(container).(*ebiten.Image)
	drawCover(dst, v.background, r)

	overlayW := int(math.Round(view.OverlayWidth(r.Width)))
	if overlayW > 0 {
		clip := image.Rect(container.Min.X, container.Min.Y, container.Min.X+overlayW, container.Max.Y)
		overlay := screen.SubImage(clip).(*ebiten.Image)
		if v.scaled != nil && v.scaled.Bounds().Dx() == int(r.Width) {
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(r.Left, r.Top)
			overlay.DrawImage(v.scaled, op)
		} else if v.foreground != nil {
			drawCover(overlay, v.foreground, r)
		}
	}

	v.drawHandle(screen, view.HandleX(r), r, a11y.Focused)
}

// drawCover draws img scaled to cover r, cropped by dst's bounds.
func drawCover(dst, img *ebiten.Image, r compare.Rect) {
	if img == nil {
		return
	}
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw == 0 || ih == 0 {
		return
	}
	scale := math.Max(r.Width/iw, r.Height/ih)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(r.Left+(r.Width-iw*scale)/2, r.Top+(r.Height-ih*scale)/2)
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(img, op)
}

func (v *ComparatorView) drawHandle(screen *ebiten.Image, x float64, r compare.Rect, focused bool) {
	cx, cy := float32(x), float32(r.Top+r.Height/2)
	vector.DrawFilledRect(screen, cx-handleWidth/2, float32(r.Top), handleWidth, float32(r.Height), handleColor, false)
	vector.DrawFilledCircle(screen, cx, cy, knobRadius, knobColor, true)
	vector.StrokeCircle(screen, cx, cy, knobRadius, 2, color.White, true)

	// Left/right chevrons.
	const arm, gap = 6, 5
	for _, dir := range []float32{-1, 1} {
		tip := cx + dir*(gap+arm)
		base := cx + dir*gap
		vector.StrokeLine(screen, base, cy-arm, tip, cy, 2, chevronClr, true)
		vector.StrokeLine(screen, base, cy+arm, tip, cy, 2, chevronClr, true)
	}

	if focused {
		vector.StrokeCircle(screen, cx, cy, knobRadius+4, 2, focusColor, true)
	}
}
