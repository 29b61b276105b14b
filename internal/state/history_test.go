package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func change(id string) Change {
	return Change{Type: ChangeAdd, Annotation: Text{ID: id, Content: id}}
}

func TestHistory_PushClearsRedo(t *testing.T) {
	var h History
	h = h.Push(change("a"))
	h = h.Push(change("b"))

	h, c, ok := h.StepBack()
	require.True(t, ok)
	assert.Equal(t, "b", c.Annotation.AnnotationID())
	assert.Len(t, h.Redo, 1)

	h = h.Push(change("x"))
	assert.Empty(t, h.Redo)

	_, _, ok = h.StepForward()
	assert.False(t, ok, "redo after a new push must return nothing")
}

func TestHistory_EmptyStacksAreNoOps(t *testing.T) {
	var h History

	next, _, ok := h.StepBack()
	assert.False(t, ok)
	assert.Equal(t, h, next)

	next, _, ok = h.StepForward()
	assert.False(t, ok)
	assert.Equal(t, h, next)
}

func TestHistory_ValueSemantics(t *testing.T) {
	h1 := History{}.Push(change("a"))
	h2 := h1.Push(change("b"))
	h3, _, _ := h2.StepBack()

	assert.Len(t, h1.Undo, 1)
	assert.Len(t, h2.Undo, 2)
	assert.Empty(t, h2.Redo)
	assert.Len(t, h3.Undo, 1)
	assert.Len(t, h3.Redo, 1)
}

func TestHistory_UndoRedoOrder(t *testing.T) {
	var h History
	for _, id := range []string{"a", "b", "c"} {
		h = h.Push(change(id))
	}

	var undone []string
	for h.CanUndo() {
		var c Change
		h, c, _ = h.StepBack()
		undone = append(undone, c.Annotation.AnnotationID())
	}
	assert.Equal(t, []string{"c", "b", "a"}, undone)

	var redone []string
	for h.CanRedo() {
		var c Change
		h, c, _ = h.StepForward()
		redone = append(redone, c.Annotation.AnnotationID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, redone)
}
