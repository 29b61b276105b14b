package ui

import (
	"image"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"InkBoard/internal/state"
	"InkBoard/internal/surface"
)

// zoomStep is the zoom factor applied per scroll notch.
const zoomStep = 1.1

var deskColor = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}

// BoardWidget shows a Board inside a fyne window. It maps mouse input to
// page coordinates through the session viewport and forwards it; all
// drawing behaviour lives in Board. Dispatches are expected on the fyne
// UI goroutine.
type BoardWidget struct {
	widget.BaseWidget
	board   *surface.Board
	machine *state.Machine

	// page size in page units, set when a document is loaded
	page      state.Size
	image     *canvas.Image
	statusBar *widget.Label
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)

func NewBoardWidget(m *state.Machine, b *surface.Board) *BoardWidget {
	w := &BoardWidget{
		board:     b,
		machine:   m,
		image:     canvas.NewImageFromImage(nil),
		statusBar: widget.NewLabel("Ready"),
	}
	w.image.FillMode = canvas.ImageFillStretch
	w.image.ScaleMode = canvas.ImageScaleSmooth
	w.ExtendBaseWidget(w)

	b.OnFrame = func(img *image.RGBA) {
		w.image.Image = img
		w.image.Refresh()
	}
	m.Subscribe(func(prev, next state.State) {
		if prev.Viewport != next.Viewport || prev.CurrentPage != next.CurrentPage {
			w.Refresh()
		}
	})
	return w
}

// SetPageSize sets the size of the current page in page units.
func (w *BoardWidget) SetPageSize(s state.Size) {
	w.page = s
	w.Refresh()
}

func (w *BoardWidget) SetStatus(text string) {
	fyne.Do(func() { w.statusBar.SetText(text) })
}

func (w *BoardWidget) StatusBar() *widget.Label { return w.statusBar }

func (w *BoardWidget) view() state.Size {
	s := w.Size()
	return state.Size{W: float64(s.Width), H: float64(s.Height)}
}

// fit is the scale at zoom 1 that fits the whole page into the view.
func (w *BoardWidget) fit() float64 {
	view := w.view()
	if w.page.W <= 0 || w.page.H <= 0 || view.W <= 0 || view.H <= 0 {
		return 1
	}
	return math.Min(view.W/w.page.W, view.H/w.page.H)
}

func (w *BoardWidget) toPage(p fyne.Position) surface.PointerEvent {
	vp := w.machine.State().Viewport
	x, y := vp.ToPage(float64(p.X), float64(p.Y), w.view(), w.page, w.fit())
	return surface.PointerEvent{X: x, Y: y}
}

// pageRect is where the page is drawn inside the widget.
func (w *BoardWidget) pageRect() (fyne.Position, fyne.Size) {
	vp := w.machine.State().Viewport
	view, fit := w.view(), w.fit()
	x0, y0 := vp.ToView(0, 0, view, w.page, fit)
	x1, y1 := vp.ToView(w.page.W, w.page.H, view, w.page, fit)
	return fyne.NewPos(float32(x0), float32(y0)), fyne.NewSize(float32(x1-x0), float32(y1-y0))
}

func (w *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		w.board.PointerDown(w.toPage(e.Position))
	}
}

func (w *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		w.board.PointerUp(w.toPage(e.Position))
	}
}

func (w *BoardWidget) Dragged(e *fyne.DragEvent) {
	if w.board.Active() {
		w.board.PointerMove(w.toPage(e.Position))
		return
	}
	// dragging with nothing in progress pans the zoomed page
	vp := w.machine.State().Viewport
	w.machine.Dispatch(state.SetPan{
		PanX: vp.PanX + float64(e.Dragged.DX),
		PanY: vp.PanY + float64(e.Dragged.DY),
		View: w.view(),
	})
}

// DragEnd covers a release outside the widget, where no MouseUp arrives.
func (w *BoardWidget) DragEnd() {
	if w.board.Active() {
		w.board.PointerCancel()
	}
}

// Scrolled zooms around the cursor.
func (w *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	if e.Scrolled.DY == 0 {
		return
	}
	st := w.machine.State()
	zoom := st.Viewport.Zoom * zoomStep
	if e.Scrolled.DY < 0 {
		zoom = st.Viewport.Zoom / zoomStep
	}
	view := w.view()
	focal := st.Viewport.Focal(float64(e.Position.X)-view.W/2, float64(e.Position.Y)-view.H/2)
	w.machine.Dispatch(state.ZoomAt{Zoom: zoom, Focal: focal, View: view})
}

func (w *BoardWidget) ZoomIn()  { w.zoomBy(zoomStep) }
func (w *BoardWidget) ZoomOut() { w.zoomBy(1 / zoomStep) }

func (w *BoardWidget) zoomBy(f float64) {
	st := w.machine.State()
	w.machine.Dispatch(state.ZoomAt{Zoom: st.Viewport.Zoom * f, Focal: st.Viewport.Focal(0, 0), View: w.view()})
}

func (w *BoardWidget) ResetView() {
	w.machine.Dispatch(state.ResetView{})
}

func (w *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (w *BoardWidget) MouseOut()                      {}
func (w *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (w *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	return &boardWidgetRenderer{
		board:      w,
		background: canvas.NewRectangle(deskColor),
	}
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.board.image}
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	pos, s := r.board.pageRect()
	r.board.image.Move(pos)
	r.board.image.Resize(s)
}

func (r *boardWidgetRenderer) Refresh() {
	r.Layout(r.board.Size())
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Destroy() {}
