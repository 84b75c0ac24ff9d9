package main

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/nicky-ayoub/ebitcompare/internal/compare"
	"github.com/nicky-ayoub/ebitcompare/internal/config"
	"github.com/nicky-ayoub/ebitcompare/internal/event"
	"github.com/nicky-ayoub/ebitcompare/internal/history"
	"github.com/nicky-ayoub/ebitcompare/internal/service"
	"github.com/nicky-ayoub/ebitcompare/internal/ui"
	"go.uber.org/zap"
)

var backgroundColor = color.RGBA{R: 0xf9, G: 0xfa, B: 0xfb, A: 0xff}

type Game struct {
	cfg *config.Config
	log *zap.Logger
	ctx context.Context

	imageService *service.ImageService
	history      *history.History
	watcher      *service.SceneWatcher

	thumbnailStrip        *ui.ThumbnailStrip
	thumbnailStripVisible bool
	infoVisible           bool

	view       *ui.ComparatorView
	poller     *ui.Poller
	window     *event.Registry
	dispatcher *event.Dispatcher
	comparator *compare.Comparator

	shownScenePath   string            // Scene in the current comparator
	shownInfo        *service.ImageInfo
	loadingScenePath string            // Scene currently being loaded
	pairJobChan      chan string
	pairResultChan   chan pairResult

	screenW, screenH int
}

// pairResult holds the result of a background pair loading operation.
type pairResult struct {
	path string
	pair service.DecodedPair
	info *service.ImageInfo
	err  error
}

func NewGame(ctx context.Context, cfg *config.Config, log *zap.Logger) *Game {
	g := &Game{
		cfg:                   cfg,
		log:                   log,
		ctx:                   ctx,
		imageService:          service.NewImageService(log.Named("images")),
		history:               history.New(),
		thumbnailStripVisible: cfg.Thumbnails.Visible,
		view:                  ui.NewComparatorView(log.Named("view")),
		poller:                ui.NewPoller(),
		window:                event.NewRegistry(),
		pairJobChan:           make(chan string, 1),
		pairResultChan:        make(chan pairResult, 1),
	}
	g.dispatcher = event.NewDispatcher(g.window, log.Named("input"))
	g.thumbnailStrip = ui.NewThumbnailStrip(g.history, g.imageService, log.Named("thumbnails"))
	g.applyStripInset()

	// Start the background worker for loading image pairs.
	go g.pairLoader()
	return g
}

// AddScenes appends scenes to the history; the newest becomes current
// unless the user picked an older one.
func (g *Game) AddScenes(scenes ...service.Scene) {
	if n := g.history.Add(scenes...); n > 0 {
		g.log.Info("Scenes added", zap.Int("added", n), zap.Int("total", g.history.Count()))
	}
}

// WatchScenes starts a watcher on dir for newly generated scenes.
func (g *Game) WatchScenes(dir string) error {
	existing, err := service.ScanScenes(dir, g.cfg.Product)
	if err != nil {
		return err
	}
	g.AddScenes(existing...)

	w, err := service.NewSceneWatcher(dir, g.cfg.DebounceDuration(), g.log.Named("watcher"), g.cfg.Product)
	if err != nil {
		return err
	}
	if err := w.Start(g.ctx); err != nil {
		w.Stop()
		return err
	}
	g.watcher = w
	return nil
}

// Close releases workers and the comparator's subscriptions.
func (g *Game) Close() {
	if g.watcher != nil {
		g.watcher.Stop()
	}
	if g.comparator != nil {
		g.comparator.Unmount()
	}
	close(g.pairJobChan)
	g.view.Close()
	g.thumbnailStrip.Close()
}

func (g *Game) applyStripInset() {
	inset := 0
	if g.thumbnailStripVisible {
		inset = g.thumbnailStrip.Height()
	}
	g.view.SetBottomInset(inset)
}

func (g *Game) Update() error {
	// 1. Release GPU images retired last frame and install finished scales.
	g.view.Update()

	// 2. Poll all input at the beginning of the frame.
	input, frame := g.poller.Poll()

	// 3. Handle non-state-dependent inputs immediately.
	if input.Quit || g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if input.ToggleFullscreen {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if input.ToggleThumbnails {
		g.thumbnailStripVisible = !g.thumbnailStripVisible
		g.applyStripInset()
	}
	if input.ToggleInfo {
		g.infoVisible = !g.infoVisible
	}

	// 4. Pick up newly generated scenes.
	g.drainWatcher()

	// 5. Process results from the background pair loader.
	select {
	case result := <-g.pairResultChan:
		g.applyPairResult(result)
	default:
		// Nothing loaded this frame.
	}

	// 6. Request the current scene if it is neither shown nor loading.
	if item := g.history.Current(); item != nil &&
		item.Path != g.shownScenePath && item.Path != g.loadingScenePath {
		g.loadingScenePath = item.Path
		// Replace a queued request; only the newest selection matters.
		select {
		case <-g.pairJobChan:
		default:
		}
		g.pairJobChan <- item.Path
	}

	// 7. Scene selection.
	if g.thumbnailStripVisible {
		if idx := g.thumbnailStrip.Update(frame, g.screenW, g.screenH); idx != g.history.Index() {
			_ = g.history.SetIndex(idx)
		}
	}
	if input.NextScene {
		g.history.Navigate(1)
	}
	if input.PrevScene {
		g.history.Navigate(-1)
	}

	// 8. Slider input.
	var target event.Target
	if g.comparator != nil {
		target = g.comparator
	}
	g.dispatcher.Dispatch(frame, target, g.view)

	return nil
}

func (g *Game) drainWatcher() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case scene, ok := <-g.watcher.Scenes():
			if !ok {
				g.watcher = nil
				return
			}
			g.AddScenes(scene)
		default:
			return
		}
	}
}

func (g *Game) applyPairResult(result pairResult) {
	if result.path != g.loadingScenePath {
		return // Stale: the user moved on while this was loading.
	}
	g.loadingScenePath = ""
	if result.err != nil {
		g.log.Error("Failed to load scene", zap.String("path", result.path), zap.Error(result.err))
		// Drop it so the loop does not retry; the previous comparison stays up.
		g.history.Remove(result.path)
		return
	}
	if !g.history.IsCurrent(result.path) {
		// Navigated away and back to the shown scene while this loaded.
		return
	}
	g.showPair(result)
}

// showPair replaces the comparator. The image pair of a comparator never
// changes, so a new scene gets a new comparator.
func (g *Game) showPair(result pairResult) {
	if g.comparator != nil {
		g.comparator.Unmount()
	}
	background := ebiten.NewImageFromImage(result.pair.Reference)
	foreground := ebiten.NewImageFromImage(result.pair.Comparison)
	g.view.SetPair(background, foreground, result.pair.Comparison)

	g.comparator = compare.New(
		compare.Pair{Reference: result.path, Comparison: g.cfg.Product},
		compare.Deps{
			Geometry: g.view,
			Window:   g.window,
			Sizer:    g.view,
			Sizes:    g.view,
			Logger:   g.log.Named("slider"),
		},
		compare.Options{
			Label:   g.cfg.Slider.Label,
			Initial: g.cfg.Slider.Initial,
			Step:    g.cfg.Slider.Step,
		},
	)
	g.comparator.Mount()
	g.shownScenePath = result.path
	g.shownInfo = result.info
	g.log.Info("Showing scene", zap.String("path", result.path))
}

// pairLoader is a background worker that decodes scene/product pairs.
func (g *Game) pairLoader() {
	for path := range g.pairJobChan {
		pair, err := g.imageService.LoadPair(g.ctx, path, g.cfg.Product)
		var info *service.ImageInfo
		if err == nil {
			info, _ = g.imageService.GetImageInfo(path)
		}
		// Send the result back to the main thread.
		select {
		case g.pairResultChan <- pairResult{path: path, pair: pair, info: info, err: err}:
		case <-g.ctx.Done():
			return
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	if g.comparator != nil {
		g.view.Draw(screen, g.comparator.View(), g.comparator.Accessibility())
	} else if g.loadingScenePath != "" {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("Loading: %s", g.loadingScenePath))
	} else {
		ebitenutil.DebugPrint(screen, "Your generated scene will appear here.")
	}

	if g.infoVisible {
		ebitenutil.DebugPrintAt(screen, g.infoText(), 8, 8)
	}

	if g.thumbnailStripVisible {
		g.thumbnailStrip.Draw(screen)
	}
}

func (g *Game) infoText() string {
	text := fmt.Sprintf("Product: %s\nScene: %s (%d/%d)",
		filepath.Base(g.cfg.Product),
		filepath.Base(g.shownScenePath),
		g.history.Index()+1,
		g.history.Count())
	if g.comparator != nil {
		a := g.comparator.Accessibility()
		text += fmt.Sprintf("\n%s %q: %d (%d-%d) %s",
			a.Role, a.Label, a.Now, a.Min, a.Max, g.comparator.State())
	}
	if info := g.shownInfo; info != nil {
		text += fmt.Sprintf("\n%dx%d %s, %d bytes", info.Width, info.Height, info.Format, info.Size)
		for _, line := range info.EXIFLines() {
			text += "\n" + line
		}
	}
	if g.loadingScenePath != "" {
		text += fmt.Sprintf("\nLoading: %s", filepath.Base(g.loadingScenePath))
	}
	return text
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	// A 1:1 logical-to-window mapping keeps container measurements in
	// window pixels. A change here is the container's resize signal.
	g.screenW, g.screenH = outsideWidth, outsideHeight
	g.view.SetScreenSize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}
