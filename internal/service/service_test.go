package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "product.png")
	writePNG(t, path, 40, 20, color.White)

	is := NewImageService(nil)
	img, err := is.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	is := NewImageService(nil)

	_, err := is.Decode(filepath.Join(dir, "notes.txt"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = is.Decode(filepath.Join(dir, "missing.png"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o644))
	_, err = is.Decode(bad)
	assert.Error(t, err)
}

func TestLoadPair(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "product.png")
	cmp := filepath.Join(dir, "scene.png")
	writePNG(t, ref, 10, 10, color.White)
	writePNG(t, cmp, 30, 20, color.Black)

	is := NewImageService(nil)
	pair, err := is.LoadPair(context.Background(), ref, cmp)
	require.NoError(t, err)
	assert.Equal(t, 10, pair.Reference.Bounds().Dx())
	assert.Equal(t, 30, pair.Comparison.Bounds().Dx())

	_, err = is.LoadPair(context.Background(), ref, filepath.Join(dir, "gone.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comparison")
}

func TestGetImageInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.png")
	writePNG(t, path, 64, 48, color.Black)

	info, err := NewImageService(nil).GetImageInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 48, info.Height)
	assert.Positive(t, info.Size)
	assert.Empty(t, info.EXIFData)
}

func TestEXIFLinesSorted(t *testing.T) {
	info := &ImageInfo{EXIFData: map[string]string{
		"Software": "gen-2",
		"FNumber":  "f/2.8",
		"Model":    "X100",
	}}
	want := []string{"FNumber: f/2.8", "Model: X100", "Software: gen-2"}
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, info.EXIFLines())
	}
	assert.Empty(t, (&ImageInfo{}).EXIFLines())
}

func TestThumbnailFallsBackToDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.png")
	writePNG(t, path, 200, 100, color.Black)

	thumb, err := NewImageService(nil).Thumbnail(path, 80)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 40), thumb.Bounds())
}

func TestCover(t *testing.T) {
	// Left half red, right half blue: a square crop of the wide source keeps
	// both colours around the centre.
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 100 {
				c = color.RGBA{B: 255, A: 255}
			}
			src.Set(x, y, c)
		}
	}

	dst := Cover(src, 50, 50)
	assert.Equal(t, image.Rect(0, 0, 50, 50), dst.Bounds())
	left, right := dst.RGBAAt(2, 25), dst.RGBAAt(47, 25)
	assert.InDelta(t, 255, int(left.R), 2)
	assert.InDelta(t, 0, int(left.B), 2)
	assert.InDelta(t, 255, int(right.B), 2)
	assert.InDelta(t, 0, int(right.R), 2)

	assert.True(t, Cover(src, 0, 10).Bounds().Empty())
	assert.Equal(t, image.Rectangle{}, Cover(src, 0, 10).Bounds())
	assert.Equal(t, image.Rectangle{}, Cover(src, 10, -1).Bounds())
}

func TestContain(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 400))
	assert.Equal(t, image.Rect(0, 0, 20, 80), Contain(src, 80, 80).Bounds())
}

func TestScanScenes(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "product.png")
	writePNG(t, ref, 4, 4, color.White)
	older := filepath.Join(dir, "b-scene.png")
	newer := filepath.Join(dir, "a-scene.png")
	writePNG(t, older, 4, 4, color.Black)
	writePNG(t, newer, 4, 4, color.Black)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.txt"), []byte("kitchen"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, base, base))
	require.NoError(t, os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)))

	scenes, err := ScanScenes(dir, ref)
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, older, scenes[0].Path)
	assert.Equal(t, newer, scenes[1].Path)

	_, err = ScanScenes(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSceneWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	sw, err := NewSceneWatcher(dir, 20*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, sw.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	path := filepath.Join(dir, "scene-1.png")
	writePNG(t, path, 8, 8, color.Black)

	select {
	case s := <-sw.Scenes():
		assert.Equal(t, path, s.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scene")
	}

	sw.Stop()
	_, ok := <-sw.Scenes()
	assert.False(t, ok, "scene channel closed after Stop")
}

func TestSceneWatcherSkipsExcluded(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	product := filepath.Join(dir, "product.png")
	sw, err := NewSceneWatcher(dir, 20*time.Millisecond, nil, product)
	require.NoError(t, err)
	require.NoError(t, sw.Start(context.Background()))
	defer sw.Stop()

	// The product sorts first, so it would be reported first if it leaked.
	writePNG(t, product, 8, 8, color.White)
	scene := filepath.Join(dir, "scene-1.png")
	writePNG(t, scene, 8, 8, color.Black)

	select {
	case s := <-sw.Scenes():
		assert.Equal(t, scene, s.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scene")
	}
}

func TestSceneWatcherStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	sw, err := NewSceneWatcher(t.TempDir(), time.Millisecond, nil)
	require.NoError(t, err)
	sw.Stop()
}

func TestThumbnailLoader(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "scene.png")
	writePNG(t, good, 200, 100, color.Black)
	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o644))

	l := NewThumbnailLoader(NewImageService(nil), 80, 2, nil)
	defer l.Close()

	assert.True(t, l.Request(good))
	assert.False(t, l.Request(good), "already queued")
	assert.True(t, l.Request(bad))

	var got []ThumbnailResult
	require.Eventually(t, func() bool {
		got = append(got, l.Drain()...)
		return len(got) == 1 && l.Failed(bad)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, good, got[0].Path)
	assert.Equal(t, image.Rect(0, 0, 80, 40), got[0].Image.Bounds())

	assert.False(t, l.Request(bad), "failed thumbnails are not retried")
	assert.True(t, l.Request(good), "drained thumbnails can be requested again")
}

func TestThumbnailLoaderCloseWithUndrainedResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	l := NewThumbnailLoader(NewImageService(nil), 16, 2, nil)
	for i := 0; i < 8; i++ {
		path := filepath.Join(dir, fmt.Sprintf("scene-%d.png", i))
		writePNG(t, path, 8, 8, color.Black)
		require.True(t, l.Request(path))
	}

	// Nothing is drained, so workers end up blocked on delivery.
	time.Sleep(50 * time.Millisecond)
	l.Close()
	assert.False(t, l.Request(filepath.Join(dir, "late.png")))
}
