package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pdfBytes(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	for i := 0; i < pages; i++ {
		pdf.AddPage()
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestOpen_Image(t *testing.T) {
	doc, err := Open("scan.png", pngBytes(t, 40, 30))
	require.NoError(t, err)
	assert.Equal(t, TypeImage, doc.Type)
	assert.Equal(t, 1, doc.PageCount)

	size, err := doc.PageSize(0)
	require.NoError(t, err)
	assert.Equal(t, PageSize{W: 40, H: 30}, size)

	_, err = doc.PageSize(1)
	assert.ErrorIs(t, err, ErrPageRange)
}

func TestOpen_PDF(t *testing.T) {
	doc, err := Open("notes.pdf", pdfBytes(t, 3))
	require.NoError(t, err)
	assert.Equal(t, TypePDF, doc.Type)
	assert.Equal(t, 3, doc.PageCount)

	size, err := doc.PageSize(2)
	require.NoError(t, err)
	assert.InDelta(t, 595.28, size.W, 1)
	assert.InDelta(t, 841.89, size.H, 1)
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open("notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOpen_RefKeepsName(t *testing.T) {
	doc, err := Open("scan.png", pngBytes(t, 4, 4))
	require.NoError(t, err)
	ref := doc.Ref("abc")
	assert.Equal(t, "abc", ref.ID)
	assert.Equal(t, "scan.png", ref.Name)
	assert.Equal(t, "image", ref.Type)
}

func TestRasterizers(t *testing.T) {
	ctx := context.Background()
	r := DefaultRasterizer()

	imgDoc, err := Open("scan.png", pngBytes(t, 40, 30))
	require.NoError(t, err)
	img, err := r.Render(ctx, imgDoc, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 60), img.Bounds())

	img, err = r.Render(ctx, imgDoc, 0, 1)
	require.NoError(t, err)
	red, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), red)

	pdfDoc, err := Open("notes.pdf", pdfBytes(t, 2))
	require.NoError(t, err)
	img, err = r.Render(ctx, pdfDoc, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 595, img.Bounds().Dx())

	_, err = r.Render(ctx, pdfDoc, 5, 1)
	assert.ErrorIs(t, err, ErrPageRange)
}

func TestLoader_CachesPages(t *testing.T) {
	var calls atomic.Int32
	r := RasterizerFunc(func(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error) {
		calls.Add(1)
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	l, err := NewLoader(r, 4)
	require.NoError(t, err)
	l.SetDocument(&Document{Name: "x", Type: TypePDF, PageCount: 2})

	for i := 0; i < 3; i++ {
		_, err := l.Load(context.Background(), 1, 1)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, calls.Load())

	l.SetDocument(&Document{Name: "y", Type: TypePDF, PageCount: 2})
	_, err = l.Load(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestLoader_NewerRequestCancelsOlder(t *testing.T) {
	started := make(chan struct{})
	r := RasterizerFunc(func(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error) {
		if page == 0 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	l, err := NewLoader(r, 4)
	require.NoError(t, err)
	l.SetDocument(&Document{Name: "x", Type: TypePDF, PageCount: 2})

	errc := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), 0, 1)
		errc <- err
	}()
	<-started

	img, err := l.Load(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.NotNil(t, img)

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, ErrSuperseded))
	case <-time.After(2 * time.Second):
		t.Fatal("superseded render was not cancelled")
	}
}

func TestLoader_SurfacesRenderErrors(t *testing.T) {
	boom := errors.New("boom")
	r := RasterizerFunc(func(ctx context.Context, doc *Document, page int, scale float64) (image.Image, error) {
		return nil, boom
	})
	l, err := NewLoader(r, 0)
	require.NoError(t, err)

	_, err = l.Load(context.Background(), 0, 1)
	assert.Error(t, err)

	l.SetDocument(&Document{Name: "x", Type: TypePDF, PageCount: 1})
	_, err = l.Load(context.Background(), 0, 1)
	assert.ErrorIs(t, err, boom)
}
