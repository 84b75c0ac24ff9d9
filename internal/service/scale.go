package service

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Cover scales src to fill a w×h box, preserving aspect ratio and cropping
// the overflow evenly on both sides, like CSS object-fit: cover.
func Cover(src image.Image, w, h int) *image.RGBA {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	// Crop the source to the destination aspect ratio, then scale.
	crop := sb
	if sw*h > sh*w {
		cw := sh * w / h
		crop.Min.X = sb.Min.X + (sw-cw)/2
		crop.Max.X = crop.Min.X + cw
	} else {
		ch := sw * h / w
		crop.Min.Y = sb.Min.Y + (sh-ch)/2
		crop.Max.Y = crop.Min.Y + ch
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Src, nil)
	return dst
}

// Contain scales src to fit inside a w×h box, preserving aspect ratio. The
// result has the scaled size, not the box size.
func Contain(src image.Image, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 || w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	dw, dh := w, sh*w/sw
	if dh > h {
		dw, dh = sw*h/sh, h
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(dw, 1), max(dh, 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return dst
}
