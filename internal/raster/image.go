package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// White returns an opaque white image of the given size.
func White(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// Clone copies src into a new RGBA image anchored at the origin.
func Clone(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// CopyInto overwrites dst with src, reusing dst's pixel buffer. The images
// must be the same size.
func CopyInto(dst, src *image.RGBA) {
	copy(dst.Pix, src.Pix)
}

// Scale resamples src to w x h pixels on a white background.
func Scale(src image.Image, w, h int) *image.RGBA {
	dst := White(w, h)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
