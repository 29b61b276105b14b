package render

import (
	"math"

	"InkBoard/internal/state"
)

// Bounds returns the axis-aligned bounding box of a. Stroke and shape
// boxes grow by half the stroke width; text is measured with m, falling
// back to an estimate when m is nil.
func Bounds(a state.Annotation, m TextMeasurer) Rect {
	switch v := a.(type) {
	case state.Stroke:
		if len(v.Points) == 0 {
			return Rect{}
		}
		r := Rect{v.Points[0].X, v.Points[0].Y, v.Points[0].X, v.Points[0].Y}
		for _, p := range v.Points[1:] {
			r.MinX = math.Min(r.MinX, p.X)
			r.MinY = math.Min(r.MinY, p.Y)
			r.MaxX = math.Max(r.MaxX, p.X)
			r.MaxY = math.Max(r.MaxY, p.Y)
		}
		return r.Expand(v.Style.Size / 2)
	case state.Shape:
		r := shapeRect(v)
		if v.ShapeType == state.ShapeArrow {
			for _, h := range arrowHead(v) {
				r.MinX = math.Min(r.MinX, h.X)
				r.MinY = math.Min(r.MinY, h.Y)
				r.MaxX = math.Max(r.MaxX, h.X)
				r.MaxY = math.Max(r.MaxY, h.Y)
			}
		}
		return r.Expand(v.Style.Size / 2)
	case state.Text:
		return textBounds(v, measurerOrDefault(m))
	}
	return Rect{}
}

func textBounds(t state.Text, m TextMeasurer) Rect {
	size := fontSize(t)
	lines := textLines(t.Content)
	width := 0.0
	for _, l := range lines {
		width = math.Max(width, m.MeasureText(l, size))
	}
	height := size + float64(len(lines)-1)*size*LineHeight
	return Rect{MinX: t.X, MinY: t.Y, MaxX: t.X + width, MaxY: t.Y + height}
}

// Move returns a copy of a translated by (dx, dy). The input is left
// untouched.
func Move(a state.Annotation, dx, dy float64) state.Annotation {
	switch v := a.(type) {
	case state.Stroke:
		pts := make([]state.Point, len(v.Points))
		for i, p := range v.Points {
			pts[i] = state.Point{X: p.X + dx, Y: p.Y + dy, Pressure: p.Pressure}
		}
		v.Points = pts
		return v
	case state.Shape:
		v.Start = state.Pos{X: v.Start.X + dx, Y: v.Start.Y + dy}
		v.End = state.Pos{X: v.End.X + dx, Y: v.End.Y + dy}
		return v
	case state.Text:
		v.X += dx
		v.Y += dy
		return v
	}
	return a
}

// FindAnnotationAtPoint returns the id of the topmost annotation within
// radius of (x, y), or "" when nothing is hit. list is in draw order, so it
// is searched from the end.
func FindAnnotationAtPoint(x, y float64, list []state.Annotation, radius float64, m TextMeasurer) string {
	m = measurerOrDefault(m)
	for i := len(list) - 1; i >= 0; i-- {
		if hit(list[i], x, y, radius, m) {
			return list[i].AnnotationID()
		}
	}
	return ""
}

func hit(a state.Annotation, x, y, radius float64, m TextMeasurer) bool {
	switch v := a.(type) {
	case state.Stroke:
		return hitStroke(v, x, y, radius)
	case state.Shape:
		return hitShape(v, x, y, radius)
	case state.Text:
		return textBounds(v, m).Expand(radius).Contains(x, y)
	}
	return false
}

func hitStroke(s state.Stroke, x, y, radius float64) bool {
	tol := radius + s.Style.Size/2
	switch len(s.Points) {
	case 0:
		return false
	case 1:
		return math.Hypot(x-s.Points[0].X, y-s.Points[0].Y) < tol
	}
	for i := 0; i < len(s.Points)-1; i++ {
		a, b := s.Points[i], s.Points[i+1]
		if segmentDistance(x, y, a.X, a.Y, b.X, b.Y) < tol {
			return true
		}
	}
	return false
}

func hitShape(sh state.Shape, x, y, radius float64) bool {
	tol := radius + sh.Style.Size/2
	switch sh.ShapeType {
	case state.ShapeRectangle:
		r := shapeRect(sh)
		edges := [4][4]float64{
			{r.MinX, r.MinY, r.MaxX, r.MinY},
			{r.MaxX, r.MinY, r.MaxX, r.MaxY},
			{r.MaxX, r.MaxY, r.MinX, r.MaxY},
			{r.MinX, r.MaxY, r.MinX, r.MinY},
		}
		for _, e := range edges {
			if segmentDistance(x, y, e[0], e[1], e[2], e[3]) < tol {
				return true
			}
		}
		return false
	case state.ShapeCircle:
		cx, cy, rx, ry := ellipseParams(sh)
		if rx < 1e-9 || ry < 1e-9 {
			return segmentDistance(x, y, sh.Start.X, sh.Start.Y, sh.End.X, sh.End.Y) < tol
		}
		d := math.Hypot((x-cx)/rx, (y-cy)/ry)
		return math.Abs(d-1) < tol/math.Min(rx, ry)
	case state.ShapeArrow:
		if segmentDistance(x, y, sh.Start.X, sh.Start.Y, sh.End.X, sh.End.Y) < tol {
			return true
		}
		for _, h := range arrowHead(sh) {
			if segmentDistance(x, y, sh.End.X, sh.End.Y, h.X, h.Y) < tol {
				return true
			}
		}
		return false
	default:
		return segmentDistance(x, y, sh.Start.X, sh.Start.Y, sh.End.X, sh.End.Y) < tol
	}
}

// segmentDistance is the distance from (px, py) to the segment a-b.
func segmentDistance(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}
