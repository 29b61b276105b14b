// Package document opens source documents and turns their pages into
// bitmaps for the annotation surface and the exporter.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"InkBoard/internal/state"
)

type Type string

const (
	TypePDF   Type = "pdf"
	TypeImage Type = "image"
)

var (
	ErrUnsupported = errors.New("unsupported document type")
	ErrPageRange   = errors.New("page out of range")
)

// PageSize is a page's natural size: points for PDFs, pixels for images.
type PageSize struct {
	W, H float64
}

type Document struct {
	Name      string
	Type      Type
	Data      []byte
	PageCount int
	Sizes     []PageSize
}

// Open inspects data and returns a Document. PDFs are recognised by their
// header, everything else must decode as an image.
func Open(name string, data []byte) (*Document, error) {
	if bytes.HasPrefix(data, []byte("%PDF-")) || strings.EqualFold(filepath.Ext(name), ".pdf") {
		return openPDF(name, data)
	}
	return openImage(name, data)
}

func OpenFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Open(filepath.Base(path), data)
}

func openPDF(name string, data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("%s: PDF has no pages", name)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page sizes: %w", err)
	}
	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{W: d.Width, H: d.Height}
	}

	return &Document{Name: name, Type: TypePDF, Data: data, PageCount: ctx.PageCount, Sizes: sizes}, nil
}

func openImage(name string, data []byte) (*Document, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%s: empty %s image", name, format)
	}
	return &Document{
		Name:      name,
		Type:      TypeImage,
		Data:      data,
		PageCount: 1,
		Sizes:     []PageSize{{W: float64(cfg.Width), H: float64(cfg.Height)}},
	}, nil
}

// PageSize returns the natural size of page. A PDF whose page tree is
// shorter than PageCount reuses the last known size.
func (d *Document) PageSize(page int) (PageSize, error) {
	if page < 0 || page >= d.PageCount {
		return PageSize{}, fmt.Errorf("page %d of %d: %w", page, d.PageCount, ErrPageRange)
	}
	if len(d.Sizes) == 0 {
		return PageSize{}, fmt.Errorf("%s: no page sizes", d.Name)
	}
	if page >= len(d.Sizes) {
		page = len(d.Sizes) - 1
	}
	return d.Sizes[page], nil
}

// Ref describes the document for the session state.
func (d *Document) Ref(id string) state.DocumentRef {
	return state.DocumentRef{ID: id, Name: d.Name, Type: string(d.Type)}
}
