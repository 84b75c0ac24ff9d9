// Package service provides image loading, scaling and metadata extraction
// services, and discovery of generated scenes on disk.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // Register WebP decoder
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedFormat is returned for files whose extension is not a
// supported image type.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Extensions lists the file extensions the decoders above understand.
var Extensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsSupported reports whether path has a supported image extension.
func IsSupported(path string) bool {
	return Extensions[strings.ToLower(filepath.Ext(path))]
}

// ImageInfo holds metadata about an image.
type ImageInfo struct {
	Path     string
	Format   string
	Width    int
	Height   int
	Size     int64
	ModTime  time.Time
	EXIFData map[string]string
}

// EXIFLines returns the EXIF fields as "key: value" lines sorted by key, so
// repeated renders list them in the same order.
func (info *ImageInfo) EXIFLines() []string {
	keys := make([]string, 0, len(info.EXIFData))
	for k := range info.EXIFData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + info.EXIFData[k]
	}
	return lines
}

// ImageService provides methods for loading and decoding images.
type ImageService struct {
	log *zap.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(log *zap.Logger) *ImageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageService{log: log}
}

// Decode opens and fully decodes the image at path.
func (is *ImageService) Decode(path string) (image.Image, error) {
	if !IsSupported(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	is.log.Debug("Decoded image",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// DecodedPair is a decoded reference/comparison pair.
type DecodedPair struct {
	Reference  image.Image
	Comparison image.Image
}

// LoadPair decodes both images concurrently. It fails if either image fails.
func (is *ImageService) LoadPair(ctx context.Context, reference, comparison string) (DecodedPair, error) {
	var pair DecodedPair
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := is.decodeCtx(ctx, reference)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		pair.Reference = img
		return nil
	})
	g.Go(func() error {
		img, err := is.decodeCtx(ctx, comparison)
		if err != nil {
			return fmt.Errorf("comparison: %w", err)
		}
		pair.Comparison = img
		return nil
	})
	if err := g.Wait(); err != nil {
		return DecodedPair{}, err
	}
	return pair, nil
}

func (is *ImageService) decodeCtx(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return is.Decode(path)
}

// GetImageInfo reads an image file and extracts metadata without decoding the full image,
// which is significantly more performant.
func (is *ImageService) GetImageInfo(path string) (*ImageInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("decoding image config: %w", err)
	}

	// Reset file pointer to read EXIF data
	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("seeking file for exif: %w", err)
	}

	exifData, _ := exif.Decode(file) // Generated scenes rarely carry EXIF.

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("getting file stats: %w", err)
	}

	info := &ImageInfo{
		Path:     path,
		Format:   format,
		Width:    config.Width,
		Height:   config.Height,
		Size:     fileInfo.Size(),
		ModTime:  fileInfo.ModTime(),
		EXIFData: make(map[string]string),
	}

	if exifData != nil {
		if camModel, err := exifData.Get(exif.Model); err == nil {
			info.EXIFData["Camera Model"] = camModel.String()
		}
		if software, err := exifData.Get(exif.Software); err == nil {
			info.EXIFData["Software"] = software.String()
		}
		if fNum, err := exifData.Get(exif.FNumber); err == nil {
			numer, denom, _ := fNum.Rat2(0)
			if denom != 0 {
				info.EXIFData["F-Number"] = fmt.Sprintf("f/%.1f", float64(numer)/float64(denom))
			}
		}
	}

	return info, nil
}

// GetEmbeddedThumbnail attempts to read an embedded EXIF thumbnail from an image file.
// It returns the decoded thumbnail image or an error if one is not found or cannot be decoded.
func (is *ImageService) GetEmbeddedThumbnail(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file for thumbnail: %w", err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return nil, errors.New("no EXIF data found")
	}

	thumbBytes, err := x.JpegThumbnail()
	if err != nil {
		return nil, fmt.Errorf("no JPEG thumbnail in EXIF: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(thumbBytes))
	return img, err
}

// Thumbnail returns a small preview of path: the embedded EXIF thumbnail when
// present, otherwise the full image scaled to fit size×size.
func (is *ImageService) Thumbnail(path string, size int) (image.Image, error) {
	if img, err := is.GetEmbeddedThumbnail(path); err == nil {
		return img, nil
	}
	img, err := is.Decode(path)
	if err != nil {
		return nil, err
	}
	return Contain(img, size, size), nil
}
