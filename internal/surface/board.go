// Package surface turns pointer gestures into session actions and draws
// the annotated page frames. It has no windowing dependencies.
package surface

import (
	"image"
	"log"
	"math"
	"slices"
	"sync"

	"InkBoard/internal/raster"
	"InkBoard/internal/render"
	"InkBoard/internal/state"
)

const (
	// DefaultHitRadius is the pointer tolerance, in page units, for the
	// select and eraser tools.
	DefaultHitRadius = 5.0

	// moveThreshold is how far a selected annotation must be dragged
	// before the drag counts as a move.
	moveThreshold = 1.0
	// shapeThreshold is the shortest drag that creates a shape.
	shapeThreshold = 3.0
	// simplifyMin is the point count above which strokes are simplified.
	simplifyMin = 3
)

// PointerEvent is a pointer sample in page coordinates. Coalesced holds the
// samples the platform batched since the previous event, oldest first.
type PointerEvent struct {
	X, Y      float64
	Pressure  float64
	Coalesced []PointerEvent
}

func (e PointerEvent) point() state.Point {
	p := e.Pressure
	if p <= 0 {
		p = state.DefaultPressure
	}
	return state.Point{X: e.X, Y: e.Y, Pressure: p}
}

// samples returns every position the event carries, oldest first.
func (e PointerEvent) samples() []state.Point {
	if len(e.Coalesced) == 0 {
		return []state.Point{e.point()}
	}
	pts := make([]state.Point, 0, len(e.Coalesced))
	for _, c := range e.Coalesced {
		pts = append(pts, c.point())
	}
	return pts
}

// Options configures a Board.
type Options struct {
	Fonts     *raster.Fonts
	Scheduler FrameScheduler
	Epsilon   float64
	HitRadius float64
}

// gesture is the in-progress pointer interaction. The tool is captured at
// pointer down so a tool change mid-gesture does not affect it.
type gesture struct {
	tool   state.Tool
	page   int
	startX float64
	startY float64
	lastX  float64
	lastY  float64

	// pen, highlighter and shape
	points    []state.Point
	style     state.StrokeStyle
	shapeType state.ShapeType

	// select
	target state.Annotation
}

type layerKey struct {
	revision uint64
	page     int
	exclude  string
	bgGen    int
}

// Board turns pointer input into session actions and renders frames of the
// current page. Committed annotations are drawn once into a cached layer
// that is rebuilt only when the annotation set, the page or the background
// changes; each frame copies that layer and draws the live preview on top.
type Board struct {
	machine   *state.Machine
	fonts     *raster.Fonts
	scheduler FrameScheduler
	epsilon   float64
	hitRadius float64

	// OnFrame receives each composed frame. The image is reused by the next
	// frame.
	OnFrame func(img *image.RGBA)
	// OnTextRequest is called when the text tool is clicked at (x, y).
	OnTextRequest func(x, y float64)

	mu        sync.Mutex
	bg        *image.RGBA
	bgPage    int
	bgGen     int
	scale     float64
	committed *image.RGBA
	frame     *image.RGBA
	canvas    *raster.Canvas
	built     layerKey
	rebuilds  int
	exclude   string
	active    *gesture
}

func NewBoard(m *state.Machine, opts Options) *Board {
	if opts.Fonts == nil {
		opts.Fonts = raster.DefaultFonts()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewTimerScheduler(nil)
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = render.DefaultEpsilon
	}
	if opts.HitRadius <= 0 {
		opts.HitRadius = DefaultHitRadius
	}
	b := &Board{
		machine:   m,
		fonts:     opts.Fonts,
		scheduler: opts.Scheduler,
		epsilon:   opts.Epsilon,
		hitRadius: opts.HitRadius,
		bgPage:    -1,
	}
	m.Subscribe(func(prev, next state.State) {
		if prev.Revision != next.Revision || prev.CurrentPage != next.CurrentPage || !slices.Equal(prev.Selected, next.Selected) {
			b.RequestFrame()
		}
	})
	return b
}

// SetBackground sets the rendered bitmap of page. scale is bitmap pixels
// per page unit.
func (b *Board) SetBackground(page int, img image.Image, scale float64) {
	b.mu.Lock()
	b.bg = raster.Clone(img)
	b.bgPage = page
	b.bgGen++
	b.scale = scale
	b.mu.Unlock()
	b.RequestFrame()
}

// Active reports whether a pointer gesture is in progress.
func (b *Board) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil
}

// RequestFrame schedules a redraw, replacing any redraw still pending.
func (b *Board) RequestFrame() {
	b.scheduler.Schedule(b.present)
}

func (b *Board) present() {
	img := b.Frame()
	if img != nil && b.OnFrame != nil {
		b.OnFrame(img)
	}
}

// Frame composes the current frame. It returns nil until a background has
// been set.
func (b *Board) Frame() *image.RGBA {
	st := b.machine.State()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bg == nil {
		return nil
	}
	b.ensureCommitted(st)

	raster.CopyInto(b.frame, b.committed)
	b.canvas.Reset(b.frame)

	g := b.active
	switch {
	case g != nil && (g.tool == state.ToolPen || g.tool == state.ToolHighlighter) && g.page == st.CurrentPage:
		render.RenderStroke(b.canvas, state.Stroke{Points: g.points, Style: g.style})
	case g != nil && g.tool == state.ToolShape && g.page == st.CurrentPage:
		render.RenderShape(b.canvas, g.shape())
	case g != nil && g.tool == state.ToolSelect && g.target != nil:
		moved := render.Move(g.target, g.lastX-g.startX, g.lastY-g.startY)
		render.RenderAnnotation(b.canvas, moved)
		render.RenderSelectionBox(b.canvas, moved)
	default:
		for _, a := range st.PageAnnotations() {
			if st.IsSelected(a.AnnotationID()) {
				render.RenderSelectionBox(b.canvas, a)
			}
		}
	}
	return b.frame
}

// Sync rebuilds the committed layer if the session or background changed
// since it was built, and reports whether it did.
func (b *Board) Sync() bool {
	st := b.machine.State()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bg == nil {
		return false
	}
	before := b.rebuilds
	b.ensureCommitted(st)
	return b.rebuilds != before
}

// ensureCommitted rebuilds the committed layer when its inputs changed.
// Callers hold b.mu.
func (b *Board) ensureCommitted(st state.State) {
	key := layerKey{revision: st.Revision, page: st.CurrentPage, exclude: b.exclude, bgGen: b.bgGen}
	if b.committed != nil && b.built == key {
		return
	}

	w, h := b.bg.Bounds().Dx(), b.bg.Bounds().Dy()
	if b.committed == nil || b.committed.Bounds() != b.bg.Bounds() {
		b.committed = image.NewRGBA(image.Rect(0, 0, w, h))
		b.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	if b.bgPage == st.CurrentPage {
		raster.CopyInto(b.committed, b.bg)
	} else {
		// the new page is still loading
		raster.CopyInto(b.committed, raster.White(w, h))
	}

	b.canvas = raster.NewCanvas(b.committed, b.scale, b.fonts)
	render.RenderAll(b.canvas, st.PageAnnotations(), b.exclude)
	b.built = key
	b.rebuilds++
}

// PointerDown starts a gesture for the active tool. A second pointer going
// down while a gesture is in progress is ignored.
func (b *Board) PointerDown(e PointerEvent) {
	st := b.machine.State()
	if st.Document == nil {
		return
	}

	b.mu.Lock()
	if b.active != nil {
		b.mu.Unlock()
		return
	}
	g := &gesture{tool: st.Tool, page: st.CurrentPage, startX: e.X, startY: e.Y, lastX: e.X, lastY: e.Y}

	var actions []state.Action
	switch st.Tool {
	case state.ToolSelect:
		id := render.FindAnnotationAtPoint(e.X, e.Y, st.PageAnnotations(), b.hitRadius, b.fonts)
		if id == "" {
			actions = append(actions, state.ClearSelection{})
			g = nil
			break
		}
		a, _, _ := st.Pages.Find(st.CurrentPage, id)
		g.target = a
		b.exclude = id
		actions = append(actions, state.Select{IDs: []string{id}})

	case state.ToolEraser:
		if act, ok := b.eraseAt(st, e.X, e.Y); ok {
			actions = append(actions, act)
		}

	case state.ToolText:
		g = nil
		actions = append(actions, state.RequestText{X: e.X, Y: e.Y})

	case state.ToolShape:
		g.shapeType = st.Styles.ShapeType
		g.style = st.Styles.StyleFor(state.ToolShape)

	case state.ToolPen, state.ToolHighlighter:
		g.style = st.Styles.StyleFor(st.Tool)
		g.points = []state.Point{e.point()}
	}
	b.active = g
	b.mu.Unlock()

	for _, a := range actions {
		b.machine.Dispatch(a)
	}
	if st.Tool == state.ToolText && b.OnTextRequest != nil {
		b.OnTextRequest(e.X, e.Y)
	}
	b.RequestFrame()
}

// PointerMove extends the active gesture.
func (b *Board) PointerMove(e PointerEvent) {
	st := b.machine.State()

	b.mu.Lock()
	g := b.active
	if g == nil {
		b.mu.Unlock()
		return
	}
	g.lastX, g.lastY = e.X, e.Y

	var actions []state.Action
	switch g.tool {
	case state.ToolPen, state.ToolHighlighter:
		g.points = append(g.points, e.samples()...)
	case state.ToolEraser:
		for _, p := range e.samples() {
			if act, ok := b.eraseAt(st, p.X, p.Y); ok {
				actions = append(actions, act)
				st = state.Reduce(st, act)
			}
		}
	}
	b.mu.Unlock()

	for _, a := range actions {
		b.machine.Dispatch(a)
	}
	b.RequestFrame()
}

// PointerUp finishes the active gesture and commits its result.
func (b *Board) PointerUp(e PointerEvent) {
	b.mu.Lock()
	g := b.active
	if g == nil {
		b.mu.Unlock()
		return
	}
	b.active = nil
	b.exclude = ""
	g.lastX, g.lastY = e.X, e.Y

	var action state.Action
	switch g.tool {
	case state.ToolSelect:
		dx, dy := g.lastX-g.startX, g.lastY-g.startY
		if g.target != nil && math.Hypot(dx, dy) > moveThreshold {
			action = state.MoveAnnotation{Page: g.page, Annotation: render.Move(g.target, dx, dy)}
		}

	case state.ToolShape:
		if math.Hypot(g.lastX-g.startX, g.lastY-g.startY) > shapeThreshold {
			sh := g.shape()
			sh.ID = state.NewID()
			action = state.AddAnnotation{Page: g.page, Annotation: sh}
		}

	case state.ToolPen, state.ToolHighlighter:
		pts := g.points
		if last := pts[len(pts)-1]; last.X != e.X || last.Y != e.Y {
			pts = append(pts, e.point())
		}
		if len(pts) > simplifyMin {
			pts = render.Simplify(pts, b.epsilon)
		}
		action = state.AddAnnotation{Page: g.page, Annotation: state.Stroke{ID: state.NewID(), Points: pts, Style: g.style}}
	}
	b.mu.Unlock()

	if action != nil {
		b.machine.Dispatch(action)
	}
	b.RequestFrame()
}

// PointerCancel ends the gesture exactly like PointerUp at the last known
// position.
func (b *Board) PointerCancel() {
	b.mu.Lock()
	g := b.active
	b.mu.Unlock()
	if g == nil {
		return
	}
	b.PointerUp(PointerEvent{X: g.lastX, Y: g.lastY})
}

// eraseAt returns the removal for the topmost annotation under (x, y).
// Callers hold b.mu.
func (b *Board) eraseAt(st state.State, x, y float64) (state.Action, bool) {
	id := render.FindAnnotationAtPoint(x, y, st.PageAnnotations(), b.hitRadius, b.fonts)
	if id == "" {
		return nil, false
	}
	log.Printf("[BOARD] Erased %s on page %d", id, st.CurrentPage+1)
	return state.RemoveAnnotation{Page: st.CurrentPage, ID: id}, true
}

func (g *gesture) shape() state.Shape {
	return state.Shape{
		ShapeType: g.shapeType,
		Start:     state.Pos{X: g.startX, Y: g.startY},
		End:       state.Pos{X: g.lastX, Y: g.lastY},
		Style:     g.style,
	}
}
