// Package export flattens annotated pages into a raster PDF.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"InkBoard/internal/document"
	"InkBoard/internal/raster"
	"InkBoard/internal/render"
	"InkBoard/internal/state"
)

const (
	DefaultScale    = 2.0
	DefaultQuality  = 92
	DefaultFilename = "annotated.pdf"
)

var ErrNoPages = errors.New("document has no pages")

// Exporter renders each source page at Scale, draws that page's
// annotations on top and writes the results as JPEG pages of one PDF.
type Exporter struct {
	Rasterizer document.Rasterizer
	Scale      float64
	Quality    int
	Fonts      *raster.Fonts

	// Progress is called after each finished page.
	Progress func(done, total int)
}

func New(r document.Rasterizer) *Exporter {
	return &Exporter{Rasterizer: r, Scale: DefaultScale, Quality: DefaultQuality}
}

func (e *Exporter) scale() float64 {
	if e.Scale <= 0 {
		return DefaultScale
	}
	return e.Scale
}

func (e *Exporter) quality() int {
	if e.Quality <= 0 || e.Quality > 100 {
		return DefaultQuality
	}
	return e.Quality
}

// ComposePage returns page flattened onto an opaque background with list
// drawn over it.
func (e *Exporter) ComposePage(ctx context.Context, doc *document.Document, page int, list []state.Annotation) (*image.RGBA, error) {
	src, err := e.Rasterizer.Render(ctx, doc, page, e.scale())
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page+1, err)
	}
	b := src.Bounds()
	img := raster.White(b.Dx(), b.Dy())
	raster.Composite(img, raster.Clone(src), img.Bounds(), state.BlendNormal, 1)

	c := raster.NewCanvas(img, e.scale(), e.Fonts)
	render.RenderAll(c, list, "")
	return img, nil
}

// Export writes the annotated document to w. Pages are processed one at a
// time in order; the first failure aborts and nothing is written.
func (e *Exporter) Export(ctx context.Context, doc *document.Document, pages state.PageAnnotations, w io.Writer) error {
	if doc == nil || doc.PageCount == 0 {
		return ErrNoPages
	}

	var pdf *gofpdf.Fpdf
	for page := 0; page < doc.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := e.ComposePage(ctx, doc, page, pages[page])
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality()}); err != nil {
			return fmt.Errorf("encode page %d: %w", page+1, err)
		}

		wd, ht := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		orientation, size := pageFormat(wd, ht)
		if pdf == nil {
			pdf = newPDF(doc.Name, size)
		}
		pdf.AddPageFormat(orientation, size)

		name := fmt.Sprintf("page-%d", page)
		opts := gofpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, 0, 0, wd, ht, false, opts, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("add page %d: %w", page+1, err)
		}

		log.Printf("[EXPORT] Page %d/%d (%dx%d)", page+1, doc.PageCount, int(wd), int(ht))
		if e.Progress != nil {
			e.Progress(page+1, doc.PageCount)
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	_, err := w.Write(out.Bytes())
	return err
}

// ExportFile writes the PDF to path, replacing it only once the whole
// export has succeeded.
func (e *Exporter) ExportFile(ctx context.Context, doc *document.Document, pages state.PageAnnotations, path string) error {
	var buf bytes.Buffer
	if err := e.Export(ctx, doc, pages, &buf); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	log.Printf("[EXPORT] Wrote %s (%d bytes)", path, buf.Len())
	return nil
}

// pageFormat returns the gofpdf orientation and size for a page of wd x ht
// points. gofpdf swaps the dimensions for landscape pages.
func pageFormat(wd, ht float64) (string, gofpdf.SizeType) {
	if wd > ht {
		return "L", gofpdf.SizeType{Wd: ht, Ht: wd}
	}
	return "P", gofpdf.SizeType{Wd: wd, Ht: ht}
}

func newPDF(title string, size gofpdf.SizeType) *gofpdf.Fpdf {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           size,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("InkBoard", true)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	return pdf
}
