// Package raster implements the render.Surface drawing capability on top
// of an in-memory RGBA image using rasterx for vector paths.
package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"InkBoard/internal/render"
	"InkBoard/internal/state"
)

var _ render.Surface = (*Canvas)(nil)

// Canvas draws page-space geometry onto an RGBA image. Page coordinates are
// multiplied by Scale to get pixels.
type Canvas struct {
	img   *image.RGBA
	scale float64
	fonts *Fonts

	path   rasterx.Path
	pathBB bbox

	// layer state; dst is img outside a layer
	dst     *image.RGBA
	scratch *image.RGBA
	dirty   image.Rectangle
	mode    state.BlendMode
	opacity float64
	inLayer bool
}

// NewCanvas wraps img. A nil fonts uses DefaultFonts.
func NewCanvas(img *image.RGBA, scale float64, fonts *Fonts) *Canvas {
	if scale <= 0 {
		scale = 1
	}
	if fonts == nil {
		fonts = DefaultFonts()
	}
	return &Canvas{img: img, dst: img, scale: scale, fonts: fonts}
}

func (c *Canvas) Image() *image.RGBA { return c.img }
func (c *Canvas) Scale() float64     { return c.scale }

// Reset points the canvas at a new image, dropping any open layer.
func (c *Canvas) Reset(img *image.RGBA) {
	c.img, c.dst = img, img
	c.inLayer = false
	c.path.Clear()
	c.pathBB = bbox{}
	if c.scratch != nil && c.scratch.Bounds() != img.Bounds() {
		c.scratch = nil
	}
}

func (c *Canvas) MeasureText(text string, size float64) float64 {
	return c.fonts.MeasureText(text, size)
}

func (c *Canvas) BeginPath() {
	c.path.Clear()
	c.pathBB = bbox{}
}

func (c *Canvas) pt(x, y float64) fixed.Point26_6 {
	x, y = x*c.scale, y*c.scale
	c.pathBB.add(x, y)
	return rasterx.ToFixedP(x, y)
}

func (c *Canvas) MoveTo(x, y float64) {
	c.path.Start(c.pt(x, y))
}

func (c *Canvas) LineTo(x, y float64) {
	c.path.Line(c.pt(x, y))
}

func (c *Canvas) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	c.path.CubeBezier(c.pt(c1x, c1y), c.pt(c2x, c2y), c.pt(x, y))
}

func (c *Canvas) ClosePath() {
	c.path.Stop(true)
}

func (c *Canvas) Stroke(col color.Color, width float64, dash []float64) {
	if len(c.path) == 0 {
		return
	}
	b := c.dst.Bounds()
	w := width * c.scale
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), c.dst, b)
	dasher := rasterx.NewDasher(b.Dx(), b.Dy(), scanner)

	var dashes []float64
	for _, d := range dash {
		dashes = append(dashes, d*c.scale)
	}
	dasher.SetStroke(floatToFixed(w), floatToFixed(4), rasterx.RoundCap, rasterx.RoundCap,
		rasterx.RoundGap, rasterx.Round, dashes, 0)
	dasher.SetColor(col)
	c.path.AddTo(dasher)
	dasher.Draw()

	c.markDirty(c.pathBB.rect(w/2 + 1))
}

func (c *Canvas) Fill(col color.Color) {
	if len(c.path) == 0 {
		return
	}
	b := c.dst.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), c.dst, b)
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
	filler.SetColor(col)
	c.path.AddTo(filler)
	filler.Draw()

	c.markDirty(c.pathBB.rect(1))
}

func (c *Canvas) FillText(text string, x, y, size float64, col color.Color) {
	px, py, ps := x*c.scale, y*c.scale, size*c.scale
	c.fonts.DrawText(c.dst, text, px, py, ps, col)

	w := c.fonts.MeasureText(text, ps)
	c.markDirty(image.Rect(int(px)-1, int(py)-1, int(math.Ceil(px+w))+1, int(math.Ceil(py+ps*render.LineHeight))+1))
}

func (c *Canvas) BeginLayer(mode state.BlendMode, opacity float64) {
	if c.inLayer {
		return
	}
	if c.scratch == nil {
		c.scratch = image.NewRGBA(c.img.Bounds())
	} else {
		clear(c.scratch.Pix)
	}
	c.dst = c.scratch
	c.dirty = image.Rectangle{}
	c.mode, c.opacity = mode, opacity
	c.inLayer = true
}

func (c *Canvas) EndLayer() {
	if !c.inLayer {
		return
	}
	c.inLayer = false
	c.dst = c.img
	Composite(c.img, c.scratch, c.dirty, c.mode, c.opacity)
}

func (c *Canvas) markDirty(r image.Rectangle) {
	if c.inLayer {
		c.dirty = c.dirty.Union(r)
	}
}

type bbox struct {
	minX, minY, maxX, maxY float64
	set                    bool
}

func (b *bbox) add(x, y float64) {
	if !b.set {
		*b = bbox{x, y, x, y, true}
		return
	}
	b.minX = math.Min(b.minX, x)
	b.minY = math.Min(b.minY, y)
	b.maxX = math.Max(b.maxX, x)
	b.maxY = math.Max(b.maxY, y)
}

func (b bbox) rect(pad float64) image.Rectangle {
	if !b.set {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(b.minX-pad)), int(math.Floor(b.minY-pad)),
		int(math.Ceil(b.maxX+pad)), int(math.Ceil(b.maxY+pad)),
	)
}
