package state

import (
	"log"
	"slices"
	"strings"
	"sync"
)

// DocumentRef identifies the document being edited.
type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// State is the single source of truth for one editing session. A State is
// never modified in place; Reduce returns a new one.
type State struct {
	Document    *DocumentRef
	PageCount   int
	CurrentPage int
	Pages       PageAnnotations
	History     History
	Tool        Tool
	Styles      Styles
	Viewport    Viewport
	Limits      ZoomLimits
	Selected    []string
	PendingText *Pos

	// Revision changes whenever the committed annotation set changes.
	Revision uint64
}

func NewState(limits ZoomLimits) State {
	return State{
		Pages:    PageAnnotations{},
		Tool:     ToolPen,
		Styles:   DefaultStyles(),
		Viewport: DefaultViewport(),
		Limits:   limits,
	}
}

// PageAnnotations returns the annotations of the current page.
func (s State) PageAnnotations() []Annotation {
	return s.Pages[s.CurrentPage]
}

// IsSelected reports whether id is part of the current selection.
func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// Action is one of the fixed set of session transitions defined in this
// package.
type Action interface {
	isAction()
}

type (
	LoadDocument struct {
		Document  DocumentRef
		PageCount int
		Pages     PageAnnotations
	}
	RestoreAll struct {
		Pages PageAnnotations
	}
	SetPage struct {
		Page int
	}
	SetTool struct {
		Tool Tool
	}
	SetToolColor struct {
		Tool  Tool
		Color string
	}
	// SetToolSize sets stroke width for pen, highlighter and shape, and the
	// font size for text.
	SetToolSize struct {
		Tool Tool
		Size float64
	}
	SetShapeType struct {
		ShapeType ShapeType
	}
	ZoomAt struct {
		Zoom  float64
		Focal Pos
		View  Size
	}
	SetPan struct {
		PanX, PanY float64
		View       Size
	}
	ResetView      struct{}
	Select         struct{ IDs []string }
	ClearSelection struct{}
	// MoveAnnotation replaces the annotation with the same id on Page by
	// Annotation, recording the old value for undo.
	MoveAnnotation struct {
		Page       int
		Annotation Annotation
	}
	DeleteSelected struct{}
	AddAnnotation  struct {
		Page       int
		Annotation Annotation
	}
	RemoveAnnotation struct {
		Page int
		ID   string
	}
	RequestText struct{ X, Y float64 }
	CancelText  struct{}
	SubmitText  struct{ Content string }
	Undo        struct{}
	Redo        struct{}
)

func (LoadDocument) isAction()     {}
func (RestoreAll) isAction()       {}
func (SetPage) isAction()          {}
func (SetTool) isAction()          {}
func (SetToolColor) isAction()     {}
func (SetToolSize) isAction()      {}
func (SetShapeType) isAction()     {}
func (ZoomAt) isAction()           {}
func (SetPan) isAction()           {}
func (ResetView) isAction()        {}
func (Select) isAction()           {}
func (ClearSelection) isAction()   {}
func (MoveAnnotation) isAction()   {}
func (DeleteSelected) isAction()   {}
func (AddAnnotation) isAction()    {}
func (RemoveAnnotation) isAction() {}
func (RequestText) isAction()      {}
func (CancelText) isAction()       {}
func (SubmitText) isAction()       {}
func (Undo) isAction()             {}
func (Redo) isAction()             {}

// Reduce is the session transition function.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadDocument:
		doc := a.Document
		next := NewState(s.Limits)
		next.Styles = s.Styles
		next.Tool = s.Tool
		next.Document = &doc
		next.PageCount = a.PageCount
		next.Pages = clonePages(a.Pages)
		next.Revision = s.Revision + 1
		return next

	case RestoreAll:
		s.Pages = clonePages(a.Pages)
		s.Selected = nil
		s.Revision++
		return s

	case SetPage:
		page := a.Page
		if page >= s.PageCount {
			page = s.PageCount - 1
		}
		if page < 0 {
			page = 0
		}
		s.CurrentPage = page
		s.Selected = nil
		s.PendingText = nil
		return s

	case SetTool:
		s.Tool = a.Tool
		s.Selected = nil
		s.PendingText = nil
		return s

	case SetToolColor:
		s.Styles = s.Styles.with(a.Tool, func(ts ToolSettings) ToolSettings {
			ts.Color = a.Color
			return ts
		})
		return s

	case SetToolSize:
		lo, hi := MinToolSize, MaxToolSize
		if a.Tool == ToolText {
			lo, hi = MinFontSize, MaxFontSize
		}
		s.Styles = s.Styles.with(a.Tool, func(ts ToolSettings) ToolSettings {
			ts.Size = clamp(a.Size, lo, hi)
			return ts
		})
		return s

	case SetShapeType:
		if a.ShapeType.Valid() {
			s.Styles.ShapeType = a.ShapeType
		}
		return s

	case ZoomAt:
		s.Viewport = s.Viewport.ZoomAt(a.Focal, a.Zoom, a.View, s.Limits)
		return s

	case SetPan:
		s.Viewport = s.Viewport.WithPan(a.PanX, a.PanY, a.View)
		return s

	case ResetView:
		s.Viewport = DefaultViewport()
		return s

	case Select:
		s.Selected = append([]string(nil), a.IDs...)
		return s

	case ClearSelection:
		s.Selected = nil
		return s

	case MoveAnnotation:
		if a.Annotation == nil {
			return s
		}
		prev, _, ok := s.Pages.Find(a.Page, a.Annotation.AnnotationID())
		if !ok {
			return s
		}
		s.Pages = replaceAnnotation(s.Pages, a.Page, a.Annotation)
		s.History = s.History.Push(Change{Type: ChangeMove, Page: a.Page, Annotation: a.Annotation, Previous: prev})
		s.Revision++
		return s

	case DeleteSelected:
		for _, id := range s.Selected {
			s = Reduce(s, RemoveAnnotation{Page: s.CurrentPage, ID: id})
		}
		s.Selected = nil
		return s

	case AddAnnotation:
		if a.Annotation == nil || s.hasID(a.Annotation.AnnotationID()) {
			return s
		}
		s.Pages = appendAnnotation(s.Pages, a.Page, a.Annotation)
		s.History = s.History.Push(Change{Type: ChangeAdd, Page: a.Page, Annotation: a.Annotation})
		s.Revision++
		return s

	case RemoveAnnotation:
		ann, idx, ok := s.Pages.Find(a.Page, a.ID)
		if !ok {
			return s
		}
		s.Pages = removeAnnotation(s.Pages, a.Page, a.ID)
		s.History = s.History.Push(Change{Type: ChangeRemove, Page: a.Page, Annotation: ann, Index: idx})
		s.Selected = without(s.Selected, a.ID)
		s.Revision++
		return s

	case RequestText:
		s.PendingText = &Pos{X: a.X, Y: a.Y}
		return s

	case CancelText:
		s.PendingText = nil
		return s

	case SubmitText:
		pos := s.PendingText
		s.PendingText = nil
		if pos == nil || strings.TrimSpace(a.Content) == "" {
			return s
		}
		text := Text{
			ID:       NewID(),
			X:        pos.X,
			Y:        pos.Y,
			Content:  a.Content,
			FontSize: s.Styles.Text.FontSize,
			Color:    s.Styles.Text.Color,
		}
		return Reduce(s, AddAnnotation{Page: s.CurrentPage, Annotation: text})

	case Undo:
		h, c, ok := s.History.StepBack()
		if !ok {
			return s
		}
		s.History = h
		s.Pages = applyInverse(s.Pages, c)
		s.Selected = nil
		s.Revision++
		return s

	case Redo:
		h, c, ok := s.History.StepForward()
		if !ok {
			return s
		}
		s.History = h
		s.Pages = applyForward(s.Pages, c)
		s.Selected = nil
		s.Revision++
		return s
	}
	return s
}

func (s State) hasID(id string) bool {
	return containsID(s.Pages, id)
}

func containsID(p PageAnnotations, id string) bool {
	for page := range p {
		if _, _, ok := p.Find(page, id); ok {
			return true
		}
	}
	return false
}

// applyForward and applyInverse replay a change. After a restore the
// history may refer to annotations the restored set already holds, so an
// annotation is never inserted twice.
func applyForward(p PageAnnotations, c Change) PageAnnotations {
	switch c.Type {
	case ChangeAdd:
		if containsID(p, c.Annotation.AnnotationID()) {
			return p
		}
		return appendAnnotation(p, c.Page, c.Annotation)
	case ChangeRemove:
		return removeAnnotation(p, c.Page, c.Annotation.AnnotationID())
	case ChangeMove:
		return replaceAnnotation(p, c.Page, c.Annotation)
	}
	return p
}

func applyInverse(p PageAnnotations, c Change) PageAnnotations {
	switch c.Type {
	case ChangeAdd:
		return removeAnnotation(p, c.Page, c.Annotation.AnnotationID())
	case ChangeRemove:
		if containsID(p, c.Annotation.AnnotationID()) {
			return p
		}
		return insertAnnotation(p, c.Page, c.Index, c.Annotation)
	case ChangeMove:
		if c.Previous == nil {
			return p
		}
		return replaceAnnotation(p, c.Page, c.Previous)
	}
	return p
}

// The helpers below copy only the map and the touched page slice; other
// page slices are shared with the previous state.

func clonePages(p PageAnnotations) PageAnnotations {
	if p == nil {
		return PageAnnotations{}
	}
	return p.Clone()
}

func withPage(p PageAnnotations, page int, list []Annotation) PageAnnotations {
	out := make(PageAnnotations, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	if len(list) == 0 {
		delete(out, page)
	} else {
		out[page] = list
	}
	return out
}

func appendAnnotation(p PageAnnotations, page int, a Annotation) PageAnnotations {
	list := make([]Annotation, 0, len(p[page])+1)
	list = append(list, p[page]...)
	return withPage(p, page, append(list, a))
}

// insertAnnotation puts a at index i of the page, or on top when i is past
// the end.
func insertAnnotation(p PageAnnotations, page, i int, a Annotation) PageAnnotations {
	list := make([]Annotation, 0, len(p[page])+1)
	list = append(list, p[page]...)
	i = max(0, min(i, len(list)))
	return withPage(p, page, slices.Insert(list, i, a))
}

func removeAnnotation(p PageAnnotations, page int, id string) PageAnnotations {
	list := make([]Annotation, 0, len(p[page]))
	for _, a := range p[page] {
		if a.AnnotationID() != id {
			list = append(list, a)
		}
	}
	return withPage(p, page, list)
}

func replaceAnnotation(p PageAnnotations, page int, a Annotation) PageAnnotations {
	list := append([]Annotation(nil), p[page]...)
	for i := range list {
		if list[i].AnnotationID() == a.AnnotationID() {
			list[i] = a
		}
	}
	return withPage(p, page, list)
}

func without(ids []string, id string) []string {
	var out []string
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Machine holds the current State for an event-driven host and notifies
// subscribers after every transition.
type Machine struct {
	mu        sync.Mutex
	state     State
	listeners []func(prev, next State)
}

func NewMachine(initial State) *Machine {
	return &Machine{state: initial}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Dispatch applies a to the current state and returns the new state.
// Subscribers run after the lock is released, so they may dispatch too.
func (m *Machine) Dispatch(a Action) State {
	m.mu.Lock()
	prev := m.state
	next := Reduce(prev, a)
	m.state = next
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if doc, ok := a.(LoadDocument); ok {
		log.Printf("[SESSION] Loaded %q: %d pages, %d annotations", doc.Document.Name, next.PageCount, next.Pages.Count())
	}
	for _, fn := range listeners {
		fn(prev, next)
	}
	return next
}

// Subscribe registers fn to be called after every dispatch.
func (m *Machine) Subscribe(fn func(prev, next State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}
