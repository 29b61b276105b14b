package surface

import (
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InkBoard/internal/raster"
	"InkBoard/internal/state"
)

func newTestBoard(t *testing.T) (*Board, *state.Machine, *ManualScheduler) {
	t.Helper()
	m := state.NewMachine(state.NewState(state.DefaultZoomLimits()))
	m.Dispatch(state.LoadDocument{Document: state.DocumentRef{ID: "doc", Name: "page.png", Type: "image"}, PageCount: 2})
	sched := &ManualScheduler{}
	b := NewBoard(m, Options{Scheduler: sched})
	b.SetBackground(0, raster.White(100, 100), 1)
	return b, m, sched
}

func line(y float64, xs ...float64) []PointerEvent {
	var out []PointerEvent
	for _, x := range xs {
		out = append(out, PointerEvent{X: x, Y: y})
	}
	return out
}

func drawStroke(b *Board) {
	b.PointerDown(PointerEvent{X: 10, Y: 50})
	b.PointerMove(PointerEvent{X: 50, Y: 50, Coalesced: line(50, 20, 30, 40, 50)})
	b.PointerMove(PointerEvent{X: 90, Y: 50, Coalesced: line(50, 60, 70, 80, 90)})
	b.PointerUp(PointerEvent{X: 90, Y: 50})
}

func only(t *testing.T, m *state.Machine) state.Annotation {
	t.Helper()
	list := m.State().PageAnnotations()
	require.Len(t, list, 1)
	return list[0]
}

func TestBoard_PenStrokeIsSimplified(t *testing.T) {
	b, m, _ := newTestBoard(t)
	drawStroke(b)

	s, ok := only(t, m).(state.Stroke)
	require.True(t, ok)
	assert.NotEmpty(t, s.ID)
	require.Len(t, s.Points, 2)
	assert.Equal(t, state.Point{X: 10, Y: 50, Pressure: state.DefaultPressure}, s.Points[0])
	assert.Equal(t, 90.0, s.Points[1].X)
	assert.Equal(t, state.DefaultStyles().StyleFor(state.ToolPen), s.Style)
	assert.True(t, m.State().History.CanUndo())
	assert.False(t, b.Active())
}

func TestBoard_StyleIsCapturedAtPointerDown(t *testing.T) {
	b, m, _ := newTestBoard(t)

	b.PointerDown(PointerEvent{X: 10, Y: 10})
	m.Dispatch(state.SetToolColor{Tool: state.ToolPen, Color: "#ff0000"})
	m.Dispatch(state.SetTool{Tool: state.ToolEraser})
	b.PointerMove(PointerEvent{X: 40, Y: 40})
	b.PointerUp(PointerEvent{X: 80, Y: 20})

	s, ok := only(t, m).(state.Stroke)
	require.True(t, ok)
	assert.Equal(t, "#000000", s.Style.Color)
	assert.Len(t, s.Points, 3)
}

func TestBoard_HighlighterStyle(t *testing.T) {
	b, m, _ := newTestBoard(t)
	m.Dispatch(state.SetTool{Tool: state.ToolHighlighter})
	drawStroke(b)

	s := only(t, m).(state.Stroke)
	assert.Equal(t, state.HighlighterOpacity, s.Style.Opacity)
	assert.Equal(t, state.BlendMultiply, s.Style.BlendMode)
}

func TestBoard_TapMakesDot(t *testing.T) {
	b, m, _ := newTestBoard(t)
	b.PointerDown(PointerEvent{X: 30, Y: 30, Pressure: 0.8})
	b.PointerUp(PointerEvent{X: 30, Y: 30, Pressure: 0.8})

	s := only(t, m).(state.Stroke)
	assert.Equal(t, []state.Point{{X: 30, Y: 30, Pressure: 0.8}}, s.Points)
}

func TestBoard_Shape(t *testing.T) {
	b, m, _ := newTestBoard(t)
	m.Dispatch(state.SetTool{Tool: state.ToolShape})
	m.Dispatch(state.SetShapeType{ShapeType: state.ShapeArrow})

	// too short to count
	b.PointerDown(PointerEvent{X: 10, Y: 10})
	b.PointerMove(PointerEvent{X: 12, Y: 11})
	b.PointerUp(PointerEvent{X: 12, Y: 11})
	assert.Empty(t, m.State().PageAnnotations())

	b.PointerDown(PointerEvent{X: 10, Y: 10})
	b.PointerMove(PointerEvent{X: 40, Y: 20})
	b.PointerUp(PointerEvent{X: 60, Y: 70})

	sh, ok := only(t, m).(state.Shape)
	require.True(t, ok)
	assert.Equal(t, state.ShapeArrow, sh.ShapeType)
	assert.Equal(t, state.Pos{X: 10, Y: 10}, sh.Start)
	assert.Equal(t, state.Pos{X: 60, Y: 70}, sh.End)
	assert.Equal(t, "#e53935", sh.Style.Color)
}

func TestBoard_EraserRemovesContinuously(t *testing.T) {
	b, m, _ := newTestBoard(t)
	style := state.DefaultStyles().StyleFor(state.ToolPen)
	m.Dispatch(state.AddAnnotation{Page: 0, Annotation: state.Stroke{ID: "a", Points: []state.Point{{X: 10, Y: 20, Pressure: 1}, {X: 90, Y: 20, Pressure: 1}}, Style: style}})
	m.Dispatch(state.AddAnnotation{Page: 0, Annotation: state.Stroke{ID: "b", Points: []state.Point{{X: 10, Y: 80, Pressure: 1}, {X: 90, Y: 80, Pressure: 1}}, Style: style}})
	m.Dispatch(state.SetTool{Tool: state.ToolEraser})

	b.PointerDown(PointerEvent{X: 50, Y: 21})
	assert.Len(t, m.State().PageAnnotations(), 1)
	b.PointerMove(PointerEvent{X: 50, Y: 79, Coalesced: line(79, 40, 50)})
	b.PointerUp(PointerEvent{X: 50, Y: 79})
	assert.Empty(t, m.State().PageAnnotations())

	// each removal is its own undo step
	m.Dispatch(state.Undo{})
	assert.Len(t, m.State().PageAnnotations(), 1)
	m.Dispatch(state.Undo{})
	assert.Len(t, m.State().PageAnnotations(), 2)
}

func TestBoard_SelectAndDrag(t *testing.T) {
	b, m, _ := newTestBoard(t)
	drawStroke(b)
	id := only(t, m).AnnotationID()
	rev := m.State().Revision
	m.Dispatch(state.SetTool{Tool: state.ToolSelect})

	b.PointerDown(PointerEvent{X: 50, Y: 51})
	assert.Equal(t, []string{id}, m.State().Selected)
	assert.True(t, b.Sync(), "dragged annotation leaves the committed layer")

	b.PointerMove(PointerEvent{X: 55, Y: 51})
	assert.False(t, b.Sync())
	require.NotNil(t, b.Frame())
	b.PointerUp(PointerEvent{X: 60, Y: 56})

	s := only(t, m).(state.Stroke)
	assert.Equal(t, 20.0, s.Points[0].X)
	assert.Equal(t, 55.0, s.Points[0].Y)
	assert.Equal(t, rev+1, m.State().Revision)

	m.Dispatch(state.Undo{})
	assert.Equal(t, 10.0, only(t, m).(state.Stroke).Points[0].X)
}

func TestBoard_SelectWithoutMovement(t *testing.T) {
	b, m, _ := newTestBoard(t)
	drawStroke(b)
	m.Dispatch(state.SetTool{Tool: state.ToolSelect})
	rev := m.State().Revision

	b.PointerDown(PointerEvent{X: 50, Y: 50})
	b.PointerUp(PointerEvent{X: 50.5, Y: 50.5})
	assert.Equal(t, rev, m.State().Revision)
	assert.Len(t, m.State().Selected, 1)

	// clicking empty space clears the selection
	b.PointerDown(PointerEvent{X: 50, Y: 5})
	b.PointerUp(PointerEvent{X: 50, Y: 5})
	assert.Empty(t, m.State().Selected)
}

func TestBoard_TextRequest(t *testing.T) {
	b, m, _ := newTestBoard(t)
	m.Dispatch(state.SetTool{Tool: state.ToolText})

	var gotX, gotY float64
	b.OnTextRequest = func(x, y float64) { gotX, gotY = x, y }
	b.PointerDown(PointerEvent{X: 12, Y: 34})
	b.PointerUp(PointerEvent{X: 12, Y: 34})

	assert.Equal(t, 12.0, gotX)
	assert.Equal(t, 34.0, gotY)
	require.NotNil(t, m.State().PendingText)
	assert.Equal(t, state.Pos{X: 12, Y: 34}, *m.State().PendingText)

	m.Dispatch(state.SubmitText{Content: "hello"})
	assert.Equal(t, "hello", only(t, m).(state.Text).Content)
}

func TestBoard_CancelCommitsLikeUp(t *testing.T) {
	b, m, _ := newTestBoard(t)
	b.PointerDown(PointerEvent{X: 10, Y: 10})
	b.PointerMove(PointerEvent{X: 40, Y: 40})
	b.PointerCancel()

	s := only(t, m).(state.Stroke)
	assert.Len(t, s.Points, 2)
	assert.False(t, b.Active())
}

func TestBoard_NoDocumentIgnoresInput(t *testing.T) {
	m := state.NewMachine(state.NewState(state.DefaultZoomLimits()))
	b := NewBoard(m, Options{Scheduler: &ManualScheduler{}})
	b.PointerDown(PointerEvent{X: 1, Y: 1})
	assert.False(t, b.Active())
	assert.Nil(t, b.Frame())
}

func TestBoard_CommittedLayerIsCached(t *testing.T) {
	b, m, sched := newTestBoard(t)

	var frames []*image.RGBA
	b.OnFrame = func(img *image.RGBA) { frames = append(frames, img) }
	require.True(t, sched.Flush())
	assert.Equal(t, 1, b.rebuilds)

	b.PointerDown(PointerEvent{X: 10, Y: 50})
	for x := 20.0; x <= 90; x += 10 {
		b.PointerMove(PointerEvent{X: x, Y: 50})
		require.True(t, sched.Flush())
	}
	assert.Equal(t, 1, b.rebuilds, "preview frames reuse the committed layer")

	frame := frames[len(frames)-1]
	assert.Less(t, frame.RGBAAt(50, 50).R, uint8(100), "preview is drawn")
	assert.Equal(t, uint8(255), b.committed.RGBAAt(50, 50).R, "committed layer is untouched")

	b.PointerUp(PointerEvent{X: 90, Y: 50})
	require.True(t, sched.Flush())
	assert.Equal(t, 2, b.rebuilds)
	assert.Less(t, b.committed.RGBAAt(50, 50).R, uint8(100))

	// page change rebuilds, a pure view change does not
	m.Dispatch(state.ZoomAt{Zoom: 2, View: state.Size{W: 100, H: 100}})
	assert.False(t, b.Sync())
	m.Dispatch(state.SetPage{Page: 1})
	assert.True(t, b.Sync())
}

func TestTimerScheduler_CoalescesWithinFrame(t *testing.T) {
	var runs, last atomic.Int32
	s := NewTimerScheduler(nil)
	s.Interval = 20 * time.Millisecond

	for i := int32(1); i <= 5; i++ {
		s.Schedule(func() {
			runs.Add(1)
			last.Store(i)
		})
	}
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, int32(5), last.Load())
}

func TestTimerScheduler_CancelAndRun(t *testing.T) {
	var ran, hopped atomic.Bool
	s := NewTimerScheduler(func(fn func()) {
		hopped.Store(true)
		fn()
	})
	s.Interval = 10 * time.Millisecond

	s.Schedule(func() { ran.Store(true) })
	s.Cancel()
	time.Sleep(30 * time.Millisecond)
	assert.False(t, ran.Load())

	s.Schedule(func() { ran.Store(true) })
	assert.Eventually(t, ran.Load, time.Second, time.Millisecond)
	assert.True(t, hopped.Load())
}

func TestManualScheduler(t *testing.T) {
	var s ManualScheduler
	assert.False(t, s.Flush())
	n := 0
	s.Schedule(func() { n = 1 })
	s.Schedule(func() { n = 2 })
	assert.True(t, s.Flush())
	assert.Equal(t, 2, n)
	assert.False(t, s.Flush())
}
