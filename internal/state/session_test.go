package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(pages int) State {
	return Reduce(NewState(DefaultZoomLimits()), LoadDocument{
		Document:  DocumentRef{ID: "doc", Name: "doc.pdf", Type: "pdf"},
		PageCount: pages,
	})
}

func testStroke(id string) Stroke {
	return Stroke{
		ID:     id,
		Points: []Point{{0, 0, 1}, {5, 5, 1}, {10, 0, 1}},
		Style:  StrokeStyle{Color: "#111111", Size: 4, Opacity: 1, BlendMode: BlendNormal},
	}
}

func TestReduce_StrokeUndoRedoScenario(t *testing.T) {
	s := loaded(1)
	stroke := testStroke("s1")

	s = Reduce(s, AddAnnotation{Page: 0, Annotation: stroke})
	require.Len(t, s.History.Undo, 1)
	assert.Equal(t, ChangeAdd, s.History.Undo[0].Type)

	s = Reduce(s, Undo{})
	assert.Empty(t, s.History.Undo)
	assert.Len(t, s.History.Redo, 1)
	assert.Empty(t, s.PageAnnotations())

	s = Reduce(s, Redo{})
	require.Len(t, s.PageAnnotations(), 1)
	assert.Equal(t, stroke, s.PageAnnotations()[0])
}

func TestReduce_UndoAllRedoAllRestoresState(t *testing.T) {
	s := loaded(3)

	var actions []Action
	for i := 0; i < 6; i++ {
		actions = append(actions, AddAnnotation{Page: i % 3, Annotation: testStroke(fmt.Sprintf("s%d", i))})
	}
	moved := testStroke("s1")
	moved.Points = []Point{{3, 4, 1}, {8, 9, 1}, {13, 4, 1}}
	actions = append(actions,
		MoveAnnotation{Page: 1, Annotation: moved},
		RemoveAnnotation{Page: 0, ID: "s0"},
		AddAnnotation{Page: 2, Annotation: Shape{ID: "r1", ShapeType: ShapeRectangle, Start: Pos{1, 1}, End: Pos{4, 4}}},
		RemoveAnnotation{Page: 2, ID: "s2"},
	)

	for _, a := range actions {
		s = Reduce(s, a)
	}
	require.Len(t, s.History.Undo, len(actions))
	want := s

	for range actions {
		s = Reduce(s, Undo{})
	}
	assert.Zero(t, s.Pages.Count())
	for range actions {
		s = Reduce(s, Redo{})
	}

	assert.Equal(t, want.Pages, s.Pages)
	assert.Equal(t, want.History.Undo, s.History.Undo)
	assert.Empty(t, s.History.Redo)
}

func TestReduce_MoveUndoRestoresSnapshot(t *testing.T) {
	s := loaded(1)
	orig := Text{ID: "t", X: 10, Y: 10, Content: "hi", FontSize: 12, Color: "#000000"}
	s = Reduce(s, AddAnnotation{Page: 0, Annotation: orig})

	moved := orig
	moved.X, moved.Y = 40, 50
	s = Reduce(s, MoveAnnotation{Page: 0, Annotation: moved})
	require.Len(t, s.History.Undo, 2)
	assert.Equal(t, orig, s.History.Undo[1].Previous)
	assert.Equal(t, moved, s.PageAnnotations()[0])

	s = Reduce(s, Undo{})
	assert.Equal(t, orig, s.PageAnnotations()[0])
}

func TestReduce_MoveOfUnknownAnnotationIsIgnored(t *testing.T) {
	s := loaded(1)
	next := Reduce(s, MoveAnnotation{Page: 0, Annotation: testStroke("ghost")})
	assert.Equal(t, s, next)
}

func TestReduce_DuplicateIDIsRejected(t *testing.T) {
	s := loaded(2)
	s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke("dup")})
	s = Reduce(s, AddAnnotation{Page: 1, Annotation: testStroke("dup")})
	assert.Equal(t, 1, s.Pages.Count())
	assert.Len(t, s.History.Undo, 1)
}

func TestReduce_LoadAndRestoreBypassHistory(t *testing.T) {
	s := loaded(2)
	s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke("a")})

	restored := PageAnnotations{1: {testStroke("b")}}
	s = Reduce(s, RestoreAll{Pages: restored})
	assert.Len(t, s.History.Undo, 1)
	assert.Equal(t, restored, s.Pages)

	s = Reduce(s, LoadDocument{Document: DocumentRef{ID: "other"}, PageCount: 1, Pages: PageAnnotations{0: {testStroke("c")}}})
	assert.Empty(t, s.History.Undo)
	assert.Equal(t, "other", s.Document.ID)

	s = Reduce(s, Undo{})
	assert.Equal(t, 1, s.Pages.Count(), "undo cannot undo a load")
}

func TestReduce_RestoreDoesNotAliasCaller(t *testing.T) {
	pages := PageAnnotations{0: {testStroke("a")}}
	s := Reduce(loaded(1), RestoreAll{Pages: pages})
	s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke("b")})
	assert.Len(t, pages[0], 1)
	assert.Len(t, s.PageAnnotations(), 2)
}

func TestReduce_SetToolClearsModalState(t *testing.T) {
	s := loaded(1)
	s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke("a")})
	s = Reduce(s, Select{IDs: []string{"a"}})
	s = Reduce(s, RequestText{X: 4, Y: 5})
	require.NotNil(t, s.PendingText)

	s = Reduce(s, SetTool{Tool: ToolEraser})
	assert.Empty(t, s.Selected)
	assert.Nil(t, s.PendingText)
	assert.Equal(t, ToolEraser, s.Tool)
}

func TestReduce_PerToolStyles(t *testing.T) {
	s := loaded(1)
	s = Reduce(s, SetToolColor{Tool: ToolPen, Color: "#123456"})
	s = Reduce(s, SetToolSize{Tool: ToolHighlighter, Size: 30})
	s = Reduce(s, SetToolSize{Tool: ToolShape, Size: 1000})
	s = Reduce(s, SetToolSize{Tool: ToolText, Size: 24})

	assert.Equal(t, "#123456", s.Styles.Pen.Color)
	assert.Equal(t, DefaultStyles().Highlighter.Color, s.Styles.Highlighter.Color)
	assert.Equal(t, 30.0, s.Styles.Highlighter.Size)
	assert.Equal(t, MaxToolSize, s.Styles.Shape.Size)
	assert.Equal(t, 24.0, s.Styles.Text.FontSize)

	hl := s.Styles.StyleFor(ToolHighlighter)
	assert.Equal(t, BlendMultiply, hl.BlendMode)
	assert.Less(t, hl.Opacity, 1.0)

	pen := s.Styles.StyleFor(ToolPen)
	assert.Equal(t, StrokeStyle{Color: "#123456", Size: 3, Opacity: 1, BlendMode: BlendNormal}, pen)
}

func TestReduce_SubmitText(t *testing.T) {
	NewID = func() string { return "text-1" }
	t.Cleanup(func() { NewID = defaultNewID })

	s := loaded(1)
	s = Reduce(s, SubmitText{Content: "ignored without a pending position"})
	assert.Empty(t, s.PageAnnotations())

	s = Reduce(s, RequestText{X: 12, Y: 30})
	s = Reduce(s, SubmitText{Content: "   "})
	assert.Empty(t, s.PageAnnotations())
	assert.Nil(t, s.PendingText)

	s = Reduce(s, RequestText{X: 12, Y: 30})
	s = Reduce(s, SubmitText{Content: "line one\nline two"})
	require.Len(t, s.PageAnnotations(), 1)
	assert.Equal(t, Text{ID: "text-1", X: 12, Y: 30, Content: "line one\nline two", FontSize: 16, Color: "#000000"}, s.PageAnnotations()[0])
	assert.Nil(t, s.PendingText)
}

func TestReduce_DeleteSelected(t *testing.T) {
	s := loaded(1)
	for _, id := range []string{"a", "b", "c"} {
		s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke(id)})
	}
	s = Reduce(s, Select{IDs: []string{"a", "c"}})
	s = Reduce(s, DeleteSelected{})

	require.Len(t, s.PageAnnotations(), 1)
	assert.Equal(t, "b", s.PageAnnotations()[0].AnnotationID())
	assert.Empty(t, s.Selected)

	s = Reduce(s, Undo{})
	s = Reduce(s, Undo{})
	assert.Equal(t, []string{"a", "b", "c"}, pageIDs(s, 0))
}

func pageIDs(s State, page int) []string {
	var ids []string
	for _, a := range s.Pages[page] {
		ids = append(ids, a.AnnotationID())
	}
	return ids
}

func TestReduce_UndoRemoveKeepsZOrder(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{"bottom", "a"},
		{"middle", "b"},
		{"top", "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loaded(1)
			for _, id := range []string{"a", "b", "c"} {
				s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke(id)})
			}
			s = Reduce(s, RemoveAnnotation{Page: 0, ID: tt.remove})
			require.Len(t, s.History.Undo, 4)

			s = Reduce(s, Undo{})
			assert.Equal(t, []string{"a", "b", "c"}, pageIDs(s, 0))

			s = Reduce(s, Redo{})
			assert.NotContains(t, pageIDs(s, 0), tt.remove)
		})
	}
}

func TestReduce_RestoreThenUndoKeepsIDsUnique(t *testing.T) {
	s := loaded(1)
	s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke("a")})
	saved := s.Pages.Clone()
	s = Reduce(s, RemoveAnnotation{Page: 0, ID: "a"})

	s = Reduce(s, RestoreAll{Pages: saved})
	s = Reduce(s, Undo{})
	assert.Equal(t, []string{"a"}, pageIDs(s, 0))
}

func TestReduce_RestoreThenRedoKeepsIDsUnique(t *testing.T) {
	s := loaded(1)
	s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke("a")})
	saved := s.Pages.Clone()
	s = Reduce(s, Undo{})
	require.True(t, s.History.CanRedo())

	s = Reduce(s, RestoreAll{Pages: saved})
	s = Reduce(s, Redo{})
	assert.Equal(t, []string{"a"}, pageIDs(s, 0))
}

func TestReduce_SetPageClamps(t *testing.T) {
	s := loaded(3)
	s = Reduce(s, SetPage{Page: 10})
	assert.Equal(t, 2, s.CurrentPage)
	s = Reduce(s, SetPage{Page: -1})
	assert.Equal(t, 0, s.CurrentPage)
}

func TestReduce_RevisionTracksCommittedSet(t *testing.T) {
	s := loaded(1)
	rev := s.Revision

	s = Reduce(s, SetTool{Tool: ToolShape})
	s = Reduce(s, ZoomAt{Zoom: 2, View: Size{W: 100, H: 100}})
	assert.Equal(t, rev, s.Revision)

	s = Reduce(s, AddAnnotation{Page: 0, Annotation: testStroke("a")})
	assert.Greater(t, s.Revision, rev)
}

func TestMachine_DispatchNotifiesSubscribers(t *testing.T) {
	m := NewMachine(loaded(1))
	var calls int
	m.Subscribe(func(prev, next State) {
		calls++
		assert.Empty(t, prev.PageAnnotations())
		assert.Len(t, next.PageAnnotations(), 1)
	})

	next := m.Dispatch(AddAnnotation{Page: 0, Annotation: testStroke("a")})
	assert.Equal(t, 1, calls)
	assert.Equal(t, next.Revision, m.State().Revision)
}

func TestMachine_SubscribersSeeSnapshot(t *testing.T) {
	m := NewMachine(loaded(1))
	var late, nested int
	m.Subscribe(func(prev, next State) {
		if prev.Revision != next.Revision && next.Pages.Count() == 1 {
			// registering and dispatching from a subscriber must not deadlock
			m.Subscribe(func(State, State) { late++ })
			m.Dispatch(SetTool{Tool: ToolEraser})
			nested++
		}
	})

	m.Dispatch(AddAnnotation{Page: 0, Annotation: testStroke("a")})
	assert.Equal(t, 1, nested)
	assert.Equal(t, 1, late, "a subscriber added mid-dispatch only sees later dispatches")
	assert.Equal(t, ToolEraser, m.State().Tool)
}
