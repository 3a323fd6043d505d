// Package raster turns crest images into fixed-size pixel buffers.
//
// Contain places an image inside a W×H box, preserving aspect ratio,
// centred, with the rest of the box left transparent. The same call is used
// for targets and guesses so both land in an identical index space.
package raster

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Rasterizer renders an image into a w×h non-premultiplied buffer.
type Rasterizer interface {
	Rasterize(img image.Image, w, h int) *image.NRGBA
}

// ContainRasterizer is the default contain-fit Rasterizer.
type ContainRasterizer struct {
	// Scaler defaults to CatmullRom.
	Scaler xdraw.Scaler
}

// Rasterize implements Rasterizer.
func (r ContainRasterizer) Rasterize(img image.Image, w, h int) *image.NRGBA {
	s := r.Scaler
	if s == nil {
		s = xdraw.CatmullRom
	}
	return contain(img, w, h, s)
}

// Contain renders img contain-fit into a fresh w×h buffer with CatmullRom.
func Contain(img image.Image, w, h int) *image.NRGBA {
	return contain(img, w, h, xdraw.CatmullRom)
}

func contain(img image.Image, w, h int, s xdraw.Scaler) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	sb := img.Bounds()
	iw, ih := sb.Dx(), sb.Dy()
	if iw <= 0 || ih <= 0 || w <= 0 || h <= 0 {
		return dst
	}

	scale := math.Min(float64(w)/float64(iw), float64(h)/float64(ih))
	dw := max(1, int(math.Round(float64(iw)*scale)))
	dh := max(1, int(math.Round(float64(ih)*scale)))
	dx := int(math.Round(float64(w-dw) / 2))
	dy := int(math.Round(float64(h-dh) / 2))
	rect := image.Rect(dx, dy, dx+dw, dy+dh)

	if dw == iw && dh == ih {
		draw.Draw(dst, rect, img, sb.Min, draw.Src)
		return dst
	}
	s.Scale(dst, rect, img, sb, xdraw.Src, nil)
	return dst
}

// CanvasSize picks the puzzle canvas for a target: its natural size, shrunk
// to fit within maxSide×maxSide when larger. maxSide ≤ 0 disables the limit.
func CanvasSize(img image.Image, maxSide int) (w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h
	}
	scale := math.Min(float64(maxSide)/float64(w), float64(maxSide)/float64(h))
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}
