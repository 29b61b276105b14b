package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"InkBoard/internal/render"
	"InkBoard/internal/state"
)

// palette is the swatch row, as #rrggbb.
var palette = []string{"#000000", "#e53935", "#43a047", "#1e88e5", "#ffeb3b", "#ff9800", "#ffffff"}

var shapeTypes = []string{
	string(state.ShapeRectangle),
	string(state.ShapeCircle),
	string(state.ShapeLine),
	string(state.ShapeArrow),
}

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(render.ParseColor(s.Hex))
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

// NewToolbar builds the tool, style, history, page and zoom controls. Every
// control dispatches to m; the controls follow the session through a
// subscription so undo or a page change is reflected immediately.
func NewToolbar(m *state.Machine, board *BoardWidget) fyne.CanvasObject {
	st := m.State()

	names := make([]string, 0, len(state.Tools()))
	for _, t := range state.Tools() {
		names = append(names, t.String())
	}
	tools := widget.NewRadioGroup(names, func(name string) {
		if t, err := state.ParseTool(name); err == nil && t != m.State().Tool {
			m.Dispatch(state.SetTool{Tool: t})
		}
	})
	tools.Horizontal = true
	tools.Required = true
	tools.SetSelected(st.Tool.String())

	// --- Color Palette ---
	colorBox := container.NewHBox()
	for _, hex := range palette {
		colorBox.Add(newColorSwatch(hex, func(hex string) {
			m.Dispatch(state.SetToolColor{Tool: m.State().Tool, Color: hex})
		}))
	}

	// --- Size Slider ---
	size := widget.NewSlider(state.MinToolSize, state.MaxToolSize)
	sizeLabel := widget.NewLabel("")
	syncSize := func(s state.State) {
		lo, hi := state.MinToolSize, state.MaxToolSize
		if s.Tool == state.ToolText {
			lo, hi = state.MinFontSize, state.MaxFontSize
		}
		size.Min, size.Max = lo, hi
		if ts, ok := s.Styles.Settings(s.Tool); ok {
			size.SetValue(ts.Size)
			sizeLabel.SetText(fmt.Sprintf("%.0f", ts.Size))
		} else {
			sizeLabel.SetText("-")
		}
	}
	syncSize(st)
	size.OnChangeEnded = func(val float64) {
		m.Dispatch(state.SetToolSize{Tool: m.State().Tool, Size: val})
	}
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), size)

	shape := widget.NewSelect(shapeTypes, func(v string) {
		m.Dispatch(state.SetShapeType{ShapeType: state.ShapeType(v)})
	})
	shape.SetSelected(string(st.Styles.ShapeType))

	history := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { m.Dispatch(state.Undo{}) }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { m.Dispatch(state.Redo{}) }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { m.Dispatch(state.DeleteSelected{}) }),
	)

	pageLabel := widget.NewLabel("")
	syncPage := func(s state.State) {
		if s.PageCount == 0 {
			pageLabel.SetText("-")
			return
		}
		pageLabel.SetText(fmt.Sprintf("%d / %d", s.CurrentPage+1, s.PageCount))
	}
	syncPage(st)
	pages := widget.NewToolbar(
		widget.NewToolbarAction(theme.NavigateBackIcon(), func() {
			m.Dispatch(state.SetPage{Page: m.State().CurrentPage - 1})
		}),
		widget.NewToolbarAction(theme.NavigateNextIcon(), func() {
			m.Dispatch(state.SetPage{Page: m.State().CurrentPage + 1})
		}),
	)

	zoom := widget.NewToolbar(
		widget.NewToolbarAction(theme.ZoomOutIcon(), board.ZoomOut),
		widget.NewToolbarAction(theme.ZoomInIcon(), board.ZoomIn),
		widget.NewToolbarAction(theme.ZoomFitIcon(), board.ResetView),
	)

	m.Subscribe(func(prev, next state.State) {
		if prev.Tool != next.Tool {
			tools.SetSelected(next.Tool.String())
		}
		if prev.Tool != next.Tool || prev.Styles != next.Styles {
			syncSize(next)
		}
		if prev.CurrentPage != next.CurrentPage || prev.PageCount != next.PageCount {
			syncPage(next)
		}
	})

	// --- Assemble everything ---
	return container.NewVBox(
		container.NewHBox(
			tools,
			widget.NewSeparator(),
			shape,
			layout.NewSpacer(),
			history,
		),
		container.NewHBox(
			widget.NewLabel("Color:"),
			colorBox,
			widget.NewSeparator(),
			widget.NewLabel("Size:"),
			sliderContainer,
			sizeLabel,
			layout.NewSpacer(),
			pages,
			pageLabel,
			widget.NewSeparator(),
			zoom,
		),
	)
}
