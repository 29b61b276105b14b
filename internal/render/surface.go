// Package render holds the pure geometry and drawing routines for
// annotations. Everything here draws through the Surface interface, so the
// same code renders the live view, the export and the tests.
package render

import (
	"image/color"
	"strconv"
	"strings"
	"unicode/utf8"

	"InkBoard/internal/state"
)

// TextMeasurer reports the advance width of a single line of text drawn at
// the given font size.
type TextMeasurer interface {
	MeasureText(text string, size float64) float64
}

// Surface is the drawing capability the renderer needs. Paths follow the
// usual canvas model: BeginPath clears the current path, Stroke and Fill
// paint it without clearing it.
type Surface interface {
	TextMeasurer

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()

	// Stroke paints the current path with round caps and joins. A non-empty
	// dash alternates on/off lengths.
	Stroke(c color.Color, width float64, dash []float64)
	Fill(c color.Color)

	// BeginLayer redirects drawing into an offscreen layer; EndLayer
	// composites it onto whatever was below with the given blend mode and
	// opacity. Layers do not nest.
	BeginLayer(mode state.BlendMode, opacity float64)
	EndLayer()

	// FillText draws one line of text with its top edge at y.
	FillText(text string, x, y, size float64, c color.Color)
}

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Expand grows r by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{r.MinX - d, r.MinY - d, r.MaxX + d, r.MaxY + d}
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// ParseColor parses "#rgb" or "#rrggbb". Anything else yields opaque black.
func ParseColor(s string) color.NRGBA {
	black := color.NRGBA{A: 0xff}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return black
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return black
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// approxMeasurer is used when no font metrics are available.
type approxMeasurer struct{}

func (approxMeasurer) MeasureText(text string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.6
}

func measurerOrDefault(m TextMeasurer) TextMeasurer {
	if m == nil {
		return approxMeasurer{}
	}
	return m
}
