package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"InkBoard/internal/state"
)

// Composite blends the rectangle r of src onto dst. Both images are
// premultiplied RGBA with the same coordinate space.
func Composite(dst, src *image.RGBA, r image.Rectangle, mode state.BlendMode, opacity float64) {
	r = r.Intersect(dst.Bounds()).Intersect(src.Bounds())
	if r.Empty() || opacity <= 0 {
		return
	}
	opacity = math.Min(opacity, 1)

	if mode == state.BlendMultiply {
		multiply(dst, src, r, opacity)
		return
	}
	mask := image.NewUniform(color.Alpha{A: to8(opacity)})
	draw.DrawMask(dst, r, src, r.Min, mask, image.Point{}, draw.Over)
}

// multiply applies the separable multiply blend mode with source-over
// alpha compositing:
//
//	out = s*(1-da) + d*(1-sa) + s*d
func multiply(dst, src *image.RGBA, r image.Rectangle, opacity float64) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X, y)
		di := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, si, di = x+1, si+4, di+4 {
			sa := float64(src.Pix[si+3]) / 255 * opacity
			if sa == 0 {
				continue
			}
			da := float64(dst.Pix[di+3]) / 255
			for k := 0; k < 3; k++ {
				sc := float64(src.Pix[si+k]) / 255 * opacity
				dc := float64(dst.Pix[di+k]) / 255
				dst.Pix[di+k] = to8(sc*(1-da) + dc*(1-sa) + sc*dc)
			}
			dst.Pix[di+3] = to8(sa + da - sa*da)
		}
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}
