package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Scene is a generated comparison image on disk.
type Scene struct {
	Path    string
	ModTime time.Time
}

// Scenes is a list of scenes, oldest first.
type Scenes []Scene

// ScanScenes lists the supported images directly inside dir, oldest first.
// Paths in exclude (typically the product image) are skipped.
func ScanScenes(dir string, exclude ...string) (Scenes, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scene dir: %w", err)
	}
	skip := newPathSet(exclude)

	scenes := make(Scenes, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if skip.has(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // Removed while listing.
		}
		scenes = append(scenes, Scene{Path: path, ModTime: info.ModTime()})
	}
	sort.SliceStable(scenes, func(i, j int) bool {
		if scenes[i].ModTime.Equal(scenes[j].ModTime) {
			return scenes[i].Path < scenes[j].Path
		}
		return scenes[i].ModTime.Before(scenes[j].ModTime)
	})
	return scenes, nil
}

// pathSet matches paths by absolute form.
type pathSet map[string]bool

func newPathSet(paths []string) pathSet {
	set := make(pathSet, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = true
		}
	}
	return set
}

func (s pathSet) has(path string) bool {
	abs, err := filepath.Abs(path)
	return err == nil && s[abs]
}

// SceneWatcher reports scenes that appear in a directory. Writes are
// debounced so a scene is reported once its file has stopped changing.
type SceneWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	log      *zap.Logger
	debounce time.Duration
	exclude  pathSet
	pending  map[string]time.Time
	out      chan Scene
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewSceneWatcher creates a watcher for dir. Paths in exclude are never
// reported, as with ScanScenes. Call Start to begin watching.
func NewSceneWatcher(dir string, debounce time.Duration, log *zap.Logger, exclude ...string) (*SceneWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &SceneWatcher{
		watcher:  watcher,
		dir:      dir,
		log:      log.With(zap.String("dir", dir)),
		debounce: debounce,
		exclude:  newPathSet(exclude),
		pending:  make(map[string]time.Time),
		out:      make(chan Scene, 16),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Scenes returns the channel new scenes are delivered on. It is closed when
// the watcher stops.
func (sw *SceneWatcher) Scenes() <-chan Scene {
	return sw.out
}

// Start begins watching. It is non-blocking.
func (sw *SceneWatcher) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.running {
		return nil
	}
	if err := sw.watcher.Add(sw.dir); err != nil {
		return fmt.Errorf("watching %s: %w", sw.dir, err)
	}
	sw.running = true
	sw.log.Info("Watching for generated scenes")
	go sw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (sw *SceneWatcher) Stop() {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		_ = sw.watcher.Close()
		return
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.stopCh)
	<-sw.doneCh
	if err := sw.watcher.Close(); err != nil {
		sw.log.Warn("Closing scene watcher", zap.Error(err))
	}
}

func (sw *SceneWatcher) run(ctx context.Context) {
	defer close(sw.doneCh)
	defer close(sw.out)

	tick := sw.debounce / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopCh:
			return
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handleEvent(ev)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.log.Warn("Scene watcher error", zap.Error(err))
		case <-ticker.C:
			if !sw.flush(ctx) {
				return
			}
		}
	}
}

func (sw *SceneWatcher) handleEvent(ev fsnotify.Event) {
	if !IsSupported(ev.Name) || sw.exclude.has(ev.Name) {
		return
	}
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		sw.pending[ev.Name] = time.Now()
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(sw.pending, ev.Name)
	}
}

// flush emits scenes that have settled past the debounce window. It returns
// false when the watcher was stopped while delivering.
func (sw *SceneWatcher) flush(ctx context.Context) bool {
	now := time.Now()
	settled := make([]string, 0)
	for path, at := range sw.pending {
		if now.Sub(at) >= sw.debounce {
			settled = append(settled, path)
			delete(sw.pending, path)
		}
	}
	sort.Strings(settled)

	for _, path := range settled {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		sw.log.Debug("Scene settled", zap.String("path", path))
		select {
		case sw.out <- Scene{Path: path, ModTime: info.ModTime()}:
		case <-sw.stopCh:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}
