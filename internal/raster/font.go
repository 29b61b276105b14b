package raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const faceCacheSize = 32

// Fonts draws and measures text with the Go Regular face. Faces are cached
// per pixel size. A Fonts value is safe for concurrent use.
type Fonts struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces *lru.Cache[float64, font.Face]
}

func NewFonts() (*Fonts, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	faces, err := lru.NewWithEvict[float64, font.Face](faceCacheSize, func(_ float64, face font.Face) {
		face.Close()
	})
	if err != nil {
		return nil, err
	}
	return &Fonts{font: f, faces: faces}, nil
}

var (
	defaultFonts     *Fonts
	defaultFontsOnce sync.Once
)

// DefaultFonts returns a process-wide Fonts. goregular is compiled in, so
// parsing cannot fail in practice.
func DefaultFonts() *Fonts {
	defaultFontsOnce.Do(func() {
		f, err := NewFonts()
		if err != nil {
			panic(err)
		}
		defaultFonts = f
	})
	return defaultFonts
}

// face must be called with mu held.
func (f *Fonts) face(size float64) (font.Face, error) {
	if face, ok := f.faces.Get(size); ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	f.faces.Add(size, face)
	return face, nil
}

// MeasureText returns the advance width of text at size, in the same units
// as size.
func (f *Fonts) MeasureText(text string, size float64) float64 {
	if size <= 0 || text == "" {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.face(size)
	if err != nil {
		return 0
	}
	return fixedToFloat(font.MeasureString(face, text))
}

// DrawText draws text with its top-left corner at (x, y) in pixels.
func (f *Fonts) DrawText(dst draw.Image, text string, x, y, size float64, c color.Color) {
	if size <= 0 || text == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.face(size)
	if err != nil {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: floatToFixed(x),
			Y: floatToFixed(y) + face.Metrics().Ascent,
		},
	}
	d.DrawString(text)
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
