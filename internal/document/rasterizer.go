package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	"InkBoard/internal/raster"
)

// Rasterizer turns one page of a document into a bitmap. scale 1 renders
// at the page's natural size (1 pixel per point for PDFs).
type Rasterizer interface {
	Render(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error)
}

// RasterizerFunc adapts a function to Rasterizer.
type RasterizerFunc func(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error)

func (f RasterizerFunc) Render(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error) {
	return f(ctx, doc, page, scale)
}

// ImageRasterizer renders single-image documents.
type ImageRasterizer struct{}

func (ImageRasterizer) Render(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error) {
	if doc.Type != TypeImage {
		return nil, fmt.Errorf("%s: %w", doc.Name, ErrUnsupported)
	}
	if page != 0 {
		return nil, fmt.Errorf("page %d of %d: %w", page, doc.PageCount, ErrPageRange)
	}
	src, _, err := image.Decode(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := scaledSize(PageSize{W: float64(src.Bounds().Dx()), H: float64(src.Bounds().Dy())}, scale)
	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		return raster.Clone(src), nil
	}
	return raster.Scale(src, w, h), nil
}

// BlankRasterizer renders white pages at each page's media box size. It
// stands in for a real PDF renderer, which this module does not link.
type BlankRasterizer struct{}

func (BlankRasterizer) Render(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error) {
	size, err := doc.PageSize(page)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := scaledSize(size, scale)
	return raster.White(w, h), nil
}

// ByType routes image documents to Image and PDFs to PDF.
type ByType struct {
	PDF   Rasterizer
	Image Rasterizer
}

// DefaultRasterizer decodes images and renders blank PDF pages.
func DefaultRasterizer() Rasterizer {
	return ByType{PDF: BlankRasterizer{}, Image: ImageRasterizer{}}
}

func (b ByType) Render(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error) {
	switch doc.Type {
	case TypePDF:
		return b.PDF.Render(ctx, doc, page, scale)
	case TypeImage:
		return b.Image.Render(ctx, doc, page, scale)
	}
	return nil, fmt.Errorf("%s: %w", doc.Name, ErrUnsupported)
}

func scaledSize(s PageSize, scale float64) (int, int) {
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Round(s.W * scale))
	h := int(math.Round(s.H * scale))
	return max(w, 1), max(h, 1)
}
