package service

import (
	"image"
	"sync"

	"go.uber.org/zap"
)

// ThumbnailResult is a decoded thumbnail, ready to be uploaded to the GPU on
// the main thread.
type ThumbnailResult struct {
	Path  string
	Image image.Image
}

// ThumbnailLoader decodes thumbnails on background workers. A path is loaded
// at most once at a time; a path that failed is not retried.
type ThumbnailLoader struct {
	is   *ImageService
	size int
	log  *zap.Logger

	mu      sync.Mutex
	pending map[string]bool
	failed  map[string]error

	jobs      chan string
	results   chan ThumbnailResult
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewThumbnailLoader starts workers that produce size×size thumbnails.
func NewThumbnailLoader(is *ImageService, size, workers int, log *zap.Logger) *ThumbnailLoader {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	l := &ThumbnailLoader{
		is:      is,
		size:    size,
		log:     log,
		pending: make(map[string]bool),
		failed:  make(map[string]error),
		jobs:    make(chan string, 50),
		results: make(chan ThumbnailResult, workers),
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	return l
}

func (l *ThumbnailLoader) worker() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case path := <-l.jobs:
			img, err := l.is.Thumbnail(path, l.size)
			if err != nil {
				l.log.Debug("Thumbnail failed", zap.String("path", path), zap.Error(err))
				l.mu.Lock()
				delete(l.pending, path)
				l.failed[path] = err
				l.mu.Unlock()
				continue
			}
			select {
			case l.results <- ThumbnailResult{Path: path, Image: img}:
			case <-l.done:
				return
			}
		}
	}
}

// Request queues path. It reports false when path is already queued, has
// failed before, or the queue is full; a full queue can be retried later.
func (l *ThumbnailLoader) Request(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending[path] || l.failed[path] != nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.jobs <- path:
		l.pending[path] = true
		return true
	default:
		return false
	}
}

// Failed reports whether path could not be loaded.
func (l *ThumbnailLoader) Failed(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed[path] != nil
}

// Drain returns the thumbnails finished since the last call without
// blocking.
func (l *ThumbnailLoader) Drain() []ThumbnailResult {
	var out []ThumbnailResult
	for {
		select {
		case r := <-l.results:
			l.mu.Lock()
			delete(l.pending, r.Path)
			l.mu.Unlock()
			out = append(out, r)
		default:
			return out
		}
	}
}

// Close stops the workers and waits for them, even if finished thumbnails
// were never drained.
func (l *ThumbnailLoader) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}
