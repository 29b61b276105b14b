package render

import (
	"image/color"
	"math"
	"strings"

	"InkBoard/internal/state"
)

const (
	// curveTension controls the cardinal spline through stroke points.
	curveTension = 0.5

	// LineHeight is the spacing between text lines as a multiple of the
	// font size.
	LineHeight = 1.4

	arrowAngle     = math.Pi / 6
	minArrowLength = 12.0
	minStrokeWidth = 0.5

	// ellipse control point factor for a four-segment Bézier circle
	kappa = 0.5522847498
)

var (
	SelectionColor   = color.NRGBA{R: 0x21, G: 0x96, B: 0xf3, A: 0xff}
	selectionDash    = []float64{6, 4}
	selectionPadding = 6.0
	handleRadius     = 4.0
)

// RenderStroke draws a freehand stroke as a smooth curve. Each segment's
// width follows the average pressure of its two end points.
func RenderStroke(s Surface, st state.Stroke) {
	pts := st.Points
	if len(pts) == 0 {
		return
	}
	style := st.Style
	col := ParseColor(style.Color)

	s.BeginLayer(style.BlendMode, layerOpacity(style.Opacity))
	defer s.EndLayer()

	switch len(pts) {
	case 1:
		r := segmentWidth(style.Size, pts[0], pts[0]) / 2
		s.BeginPath()
		ellipse(s, pts[0].X, pts[0].Y, r, r)
		s.Fill(col)
	case 2:
		s.BeginPath()
		s.MoveTo(pts[0].X, pts[0].Y)
		s.LineTo(pts[1].X, pts[1].Y)
		s.Stroke(col, segmentWidth(style.Size, pts[0], pts[1]), nil)
	default:
		n := len(pts)
		for i := 0; i < n-1; i++ {
			p0 := pts[max(i-1, 0)]
			p1 := pts[i]
			p2 := pts[i+1]
			p3 := pts[min(i+2, n-1)]

			c1x := p1.X + (p2.X-p0.X)*curveTension/3
			c1y := p1.Y + (p2.Y-p0.Y)*curveTension/3
			c2x := p2.X - (p3.X-p1.X)*curveTension/3
			c2y := p2.Y - (p3.Y-p1.Y)*curveTension/3

			s.BeginPath()
			s.MoveTo(p1.X, p1.Y)
			s.CubicTo(c1x, c1y, c2x, c2y, p2.X, p2.Y)
			s.Stroke(col, segmentWidth(style.Size, p1, p2), nil)
		}
	}
}

// RenderShape draws a line, rectangle, ellipse or arrow between the
// shape's start and end points.
func RenderShape(s Surface, sh state.Shape) {
	style := sh.Style
	col := ParseColor(style.Color)
	width := math.Max(style.Size, minStrokeWidth)

	s.BeginLayer(style.BlendMode, layerOpacity(style.Opacity))
	defer s.EndLayer()

	s.BeginPath()
	switch sh.ShapeType {
	case state.ShapeRectangle:
		r := shapeRect(sh)
		s.MoveTo(r.MinX, r.MinY)
		s.LineTo(r.MaxX, r.MinY)
		s.LineTo(r.MaxX, r.MaxY)
		s.LineTo(r.MinX, r.MaxY)
		s.ClosePath()
	case state.ShapeCircle:
		cx, cy, rx, ry := ellipseParams(sh)
		ellipse(s, cx, cy, rx, ry)
	case state.ShapeArrow:
		s.MoveTo(sh.Start.X, sh.Start.Y)
		s.LineTo(sh.End.X, sh.End.Y)
		for _, h := range arrowHead(sh) {
			s.MoveTo(sh.End.X, sh.End.Y)
			s.LineTo(h.X, h.Y)
		}
	default:
		s.MoveTo(sh.Start.X, sh.Start.Y)
		s.LineTo(sh.End.X, sh.End.Y)
	}
	s.Stroke(col, width, nil)
}

// RenderText draws each line of the text below the previous one.
func RenderText(s Surface, t state.Text) {
	col := ParseColor(t.Color)
	size := fontSize(t)
	for i, line := range textLines(t.Content) {
		s.FillText(line, t.X, t.Y+float64(i)*size*LineHeight, size, col)
	}
}

// RenderAnnotation dispatches on the annotation kind.
func RenderAnnotation(s Surface, a state.Annotation) {
	switch v := a.(type) {
	case state.Stroke:
		RenderStroke(s, v)
	case state.Shape:
		RenderShape(s, v)
	case state.Text:
		RenderText(s, v)
	}
}

// RenderAll draws list in order, skipping the annotation whose id equals
// exclude. An empty exclude draws everything.
func RenderAll(s Surface, list []state.Annotation, exclude string) {
	for _, a := range list {
		if exclude != "" && a.AnnotationID() == exclude {
			continue
		}
		RenderAnnotation(s, a)
	}
}

// RenderSelectionBox outlines the bounds of a with a dashed frame and
// corner handles.
func RenderSelectionBox(s Surface, a state.Annotation) {
	r := Bounds(a, s).Expand(selectionPadding)

	s.BeginPath()
	s.MoveTo(r.MinX, r.MinY)
	s.LineTo(r.MaxX, r.MinY)
	s.LineTo(r.MaxX, r.MaxY)
	s.LineTo(r.MinX, r.MaxY)
	s.ClosePath()
	s.Stroke(SelectionColor, 1.5, selectionDash)

	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	for _, c := range [][2]float64{{r.MinX, r.MinY}, {r.MaxX, r.MinY}, {r.MaxX, r.MaxY}, {r.MinX, r.MaxY}} {
		s.BeginPath()
		ellipse(s, c[0], c[1], handleRadius, handleRadius)
		s.Fill(white)
		s.Stroke(SelectionColor, 1.5, nil)
	}
}

func ellipse(s Surface, cx, cy, rx, ry float64) {
	ox, oy := rx*kappa, ry*kappa
	s.MoveTo(cx+rx, cy)
	s.CubicTo(cx+rx, cy+oy, cx+ox, cy+ry, cx, cy+ry)
	s.CubicTo(cx-ox, cy+ry, cx-rx, cy+oy, cx-rx, cy)
	s.CubicTo(cx-rx, cy-oy, cx-ox, cy-ry, cx, cy-ry)
	s.CubicTo(cx+ox, cy-ry, cx+rx, cy-oy, cx+rx, cy)
	s.ClosePath()
}

func arrowHead(sh state.Shape) [2]state.Pos {
	angle := math.Atan2(sh.End.Y-sh.Start.Y, sh.End.X-sh.Start.X)
	length := math.Max(minArrowLength, sh.Style.Size*3)
	var out [2]state.Pos
	for i, sign := range []float64{-1, 1} {
		a := angle + sign*arrowAngle
		out[i] = state.Pos{X: sh.End.X - length*math.Cos(a), Y: sh.End.Y - length*math.Sin(a)}
	}
	return out
}

func shapeRect(sh state.Shape) Rect {
	return Rect{
		MinX: math.Min(sh.Start.X, sh.End.X),
		MinY: math.Min(sh.Start.Y, sh.End.Y),
		MaxX: math.Max(sh.Start.X, sh.End.X),
		MaxY: math.Max(sh.Start.Y, sh.End.Y),
	}
}

// ellipseParams returns the ellipse inscribed in the shape's box.
func ellipseParams(sh state.Shape) (cx, cy, rx, ry float64) {
	cx = (sh.Start.X + sh.End.X) / 2
	cy = (sh.Start.Y + sh.End.Y) / 2
	rx = math.Abs(sh.End.X-sh.Start.X) / 2
	ry = math.Abs(sh.End.Y-sh.Start.Y) / 2
	return cx, cy, rx, ry
}

func segmentWidth(size float64, a, b state.Point) float64 {
	p := (clampPressure(a.Pressure) + clampPressure(b.Pressure)) / 2
	return math.Max(size*p, minStrokeWidth)
}

func clampPressure(p float64) float64 {
	return math.Min(math.Max(p, 0), 1)
}

func layerOpacity(o float64) float64 {
	return math.Min(math.Max(o, 0), 1)
}

func fontSize(t state.Text) float64 {
	if t.FontSize <= 0 {
		return state.DefaultStyles().Text.FontSize
	}
	return t.FontSize
}

func textLines(content string) []string {
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}
