package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InkBoard/internal/document"
	"InkBoard/internal/raster"
	"InkBoard/internal/state"
)

// gradient renders distinct deterministic content for every page.
var gradient = document.RasterizerFunc(func(ctx context.Context, doc *document.Document, page int, scale float64) (image.Image, error) {
	size, err := doc.PageSize(page)
	if err != nil {
		return nil, err
	}
	w, h := int(size.W*scale), int(size.H*scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), uint8(page * 40), 255})
		}
	}
	return img, nil
})

func twoPages() *document.Document {
	return &document.Document{
		Name:      "two.pdf",
		Type:      document.TypePDF,
		PageCount: 2,
		Sizes:     []document.PageSize{{W: 60, H: 80}, {W: 90, H: 50}},
	}
}

func stroke() state.Stroke {
	return state.Stroke{
		ID:     "s",
		Points: []state.Point{{X: 5, Y: 5, Pressure: 1}, {X: 30, Y: 30, Pressure: 1}, {X: 55, Y: 5, Pressure: 1}},
		Style:  state.StrokeStyle{Color: "#111111", Size: 4, Opacity: 1, BlendMode: state.BlendNormal},
	}
}

func TestExport_TwoPages(t *testing.T) {
	doc := twoPages()
	pages := state.PageAnnotations{0: {stroke()}}
	e := New(gradient)

	var progress []int
	e.Progress = func(done, total int) { progress = append(progress, done) }

	var buf bytes.Buffer
	require.NoError(t, e.Export(context.Background(), doc, pages, &buf))
	assert.Equal(t, []int{1, 2}, progress)

	out, err := document.Open(DefaultFilename, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, out.PageCount)

	// Pages are sized to the 2x raster, landscape pages stay landscape.
	assert.InDelta(t, 120, out.Sizes[0].W, 0.5)
	assert.InDelta(t, 160, out.Sizes[0].H, 0.5)
	assert.InDelta(t, 180, out.Sizes[1].W, 0.5)
	assert.InDelta(t, 100, out.Sizes[1].H, 0.5)
}

func TestComposePage_UnannotatedMatchesSource(t *testing.T) {
	doc := twoPages()
	e := New(gradient)
	ctx := context.Background()

	src, err := gradient.Render(ctx, doc, 1, DefaultScale)
	require.NoError(t, err)
	got, err := e.ComposePage(ctx, doc, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, raster.Clone(src).Pix, got.Pix)

	src0, err := gradient.Render(ctx, doc, 0, DefaultScale)
	require.NoError(t, err)
	annotated, err := e.ComposePage(ctx, doc, 0, []state.Annotation{stroke()})
	require.NoError(t, err)
	assert.NotEqual(t, raster.Clone(src0).Pix, annotated.Pix)
	// stroke passes through (30,30) in page units
	assert.Less(t, annotated.RGBAAt(60, 60).R, uint8(40))
}

func TestExport_AbortsOnFirstError(t *testing.T) {
	boom := errors.New("render failed")
	calls := 0
	failing := document.RasterizerFunc(func(ctx context.Context, doc *document.Document, page int, scale float64) (image.Image, error) {
		calls++
		if page == 0 {
			return nil, boom
		}
		return gradient(ctx, doc, page, scale)
	})

	var buf bytes.Buffer
	err := New(failing).Export(context.Background(), twoPages(), nil, &buf)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Zero(t, buf.Len())
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := New(gradient).Export(ctx, twoPages(), nil, &buf)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestExport_NoPages(t *testing.T) {
	var buf bytes.Buffer
	err := New(gradient).Export(context.Background(), &document.Document{Name: "empty"}, nil, &buf)
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestExportFile_LeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	failing := document.RasterizerFunc(func(context.Context, *document.Document, int, float64) (image.Image, error) {
		return nil, errors.New("nope")
	})

	require.Error(t, New(failing).ExportFile(context.Background(), twoPages(), nil, path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, New(gradient).ExportFile(context.Background(), twoPages(), nil, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPageFormat(t *testing.T) {
	o, size := pageFormat(200, 100)
	assert.Equal(t, "L", o)
	assert.Equal(t, 100.0, size.Wd)
	assert.Equal(t, 200.0, size.Ht)

	o, size = pageFormat(100, 200)
	assert.Equal(t, "P", o)
	assert.Equal(t, 100.0, size.Wd)
}
