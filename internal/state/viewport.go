package state

import "math"

const (
	DefaultMinZoom = 0.5
	DefaultMaxZoom = 3.0
)

// Size is a width/height pair in screen units.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type ZoomLimits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func DefaultZoomLimits() ZoomLimits {
	return ZoomLimits{Min: DefaultMinZoom, Max: DefaultMaxZoom}
}

func (l ZoomLimits) clamp(z float64) float64 {
	if l.Min <= 0 || l.Max < l.Min {
		l = DefaultZoomLimits()
	}
	return clamp(z, l.Min, l.Max)
}

// Viewport is the zoom factor and the pan offset of the page center from
// the view center, in screen units.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ZoomAt changes the zoom to z while keeping the content point focal fixed
// on screen. focal is measured from the view center in unzoomed content
// units (see Focal) and dim is the view size.
func (v Viewport) ZoomAt(focal Pos, z float64, dim Size, limits ZoomLimits) Viewport {
	z = limits.clamp(z)
	next := Viewport{
		Zoom: z,
		PanX: focal.X*v.Zoom + v.PanX - focal.X*z,
		PanY: focal.Y*v.Zoom + v.PanY - focal.Y*z,
	}
	return next.clampPan(dim)
}

// Focal converts a screen offset from the view center into the content
// point ZoomAt expects.
func (v Viewport) Focal(dx, dy float64) Pos {
	if v.Zoom <= 0 {
		return Pos{X: dx, Y: dy}
	}
	return Pos{X: (dx - v.PanX) / v.Zoom, Y: (dy - v.PanY) / v.Zoom}
}

// WithPan sets the pan offset, clamped so the page cannot be dragged out of
// view.
func (v Viewport) WithPan(x, y float64, dim Size) Viewport {
	v.PanX, v.PanY = x, y
	return v.clampPan(dim)
}

func (v Viewport) clampPan(dim Size) Viewport {
	if v.Zoom <= 1 {
		v.PanX, v.PanY = 0, 0
		return v
	}
	maxX := (v.Zoom - 1) * dim.W / 2
	maxY := (v.Zoom - 1) * dim.H / 2
	v.PanX = clamp(v.PanX, -maxX, maxX)
	v.PanY = clamp(v.PanY, -maxY, maxY)
	if math.IsNaN(v.PanX) || math.IsNaN(v.PanY) {
		v.PanX, v.PanY = 0, 0
	}
	return v
}

// ToPage converts a point in view coordinates to page coordinates. The page
// of size page is drawn centered in a view of size view, scaled by fit*Zoom
// and shifted by the pan offset.
func (v Viewport) ToPage(sx, sy float64, view, page Size, fit float64) (float64, float64) {
	scale := fit * v.Zoom
	if scale <= 0 {
		return sx, sy
	}
	x := (sx-view.W/2-v.PanX)/scale + page.W/2
	y := (sy-view.H/2-v.PanY)/scale + page.H/2
	return x, y
}

// ToView is the inverse of ToPage.
func (v Viewport) ToView(px, py float64, view, page Size, fit float64) (float64, float64) {
	scale := fit * v.Zoom
	return (px-page.W/2)*scale + view.W/2 + v.PanX, (py-page.H/2)*scale + view.H/2 + v.PanY
}
