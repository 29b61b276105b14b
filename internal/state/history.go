package state

// History is a linear undo/redo log. It is a value: every operation returns
// the updated History and leaves the receiver untouched. History never
// interprets a Change; the reducer applies forward and inverse effects.
type History struct {
	Undo []Change `json:"undoStack"`
	Redo []Change `json:"redoStack"`
}

// Push records c and discards everything that could have been redone.
func (h History) Push(c Change) History {
	undo := make([]Change, len(h.Undo), len(h.Undo)+1)
	copy(undo, h.Undo)
	return History{Undo: append(undo, c)}
}

// StepBack pops the most recent change onto the redo stack. ok is false
// when there is nothing to undo.
func (h History) StepBack() (next History, c Change, ok bool) {
	if len(h.Undo) == 0 {
		return h, Change{}, false
	}
	c = h.Undo[len(h.Undo)-1]
	next.Undo = append([]Change(nil), h.Undo[:len(h.Undo)-1]...)
	next.Redo = append(append([]Change(nil), h.Redo...), c)
	return next, c, true
}

// StepForward is the inverse of StepBack.
func (h History) StepForward() (next History, c Change, ok bool) {
	if len(h.Redo) == 0 {
		return h, Change{}, false
	}
	c = h.Redo[len(h.Redo)-1]
	next.Redo = append([]Change(nil), h.Redo[:len(h.Redo)-1]...)
	next.Undo = append(append([]Change(nil), h.Undo...), c)
	return next, c, true
}

func (h History) CanUndo() bool { return len(h.Undo) > 0 }
func (h History) CanRedo() bool { return len(h.Redo) > 0 }
