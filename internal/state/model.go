package state

// DefaultPressure is used for input devices that do not report pressure.
const DefaultPressure = 0.5

type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
}

// Pos is a pressure-less coordinate pair used by shapes.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendMultiply BlendMode = "multiply"
)

type StrokeStyle struct {
	Color     string    `json:"color"`
	Size      float64   `json:"size"`
	Opacity   float64   `json:"opacity"`
	BlendMode BlendMode `json:"blendMode"`
}

type Kind string

const (
	KindStroke Kind = "stroke"
	KindShape  Kind = "shape"
	KindText   Kind = "text"
)

type ShapeType string

const (
	ShapeLine      ShapeType = "line"
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeArrow     ShapeType = "arrow"
)

// Valid reports whether t is one of the supported shape types.
func (t ShapeType) Valid() bool {
	switch t {
	case ShapeLine, ShapeRectangle, ShapeCircle, ShapeArrow:
		return true
	}
	return false
}

// Annotation is one of Stroke, Shape or Text. Values are treated as
// immutable: a changed annotation is a new value that replaces the old one.
type Annotation interface {
	AnnotationID() string
	Kind() Kind
	isAnnotation()
}

type Stroke struct {
	ID     string      `json:"id"`
	Points []Point     `json:"points"`
	Style  StrokeStyle `json:"style"`
}

type Shape struct {
	ID        string      `json:"id"`
	ShapeType ShapeType   `json:"shapeType"`
	Start     Pos         `json:"start"`
	End       Pos         `json:"end"`
	Style     StrokeStyle `json:"style"`
}

type Text struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Content  string  `json:"content"`
	FontSize float64 `json:"fontSize"`
	Color    string  `json:"color"`
}

func (s Stroke) AnnotationID() string { return s.ID }
func (s Stroke) Kind() Kind           { return KindStroke }
func (Stroke) isAnnotation()          {}

func (s Shape) AnnotationID() string { return s.ID }
func (s Shape) Kind() Kind           { return KindShape }
func (Shape) isAnnotation()          {}

func (t Text) AnnotationID() string { return t.ID }
func (t Text) Kind() Kind           { return KindText }
func (Text) isAnnotation()          {}

// PageAnnotations maps a zero-based page index to that page's annotations.
// Slice order is insertion order and z-order: later entries draw on top.
type PageAnnotations map[int][]Annotation

// Clone returns a copy whose page slices can be modified independently.
// The annotation values themselves are shared since they are immutable.
func (p PageAnnotations) Clone() PageAnnotations {
	out := make(PageAnnotations, len(p))
	for page, list := range p {
		out[page] = append([]Annotation(nil), list...)
	}
	return out
}

// Count returns the total number of annotations across all pages.
func (p PageAnnotations) Count() int {
	n := 0
	for _, list := range p {
		n += len(list)
	}
	return n
}

// Find returns the annotation with the given id on page, if any.
func (p PageAnnotations) Find(page int, id string) (Annotation, int, bool) {
	for i, a := range p[page] {
		if a.AnnotationID() == id {
			return a, i, true
		}
	}
	return nil, -1, false
}

type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeRemove ChangeType = "remove"
	ChangeMove   ChangeType = "move"
)

// Change is the unit of undo/redo. Previous is only set for ChangeMove and
// holds the annotation as it was before the move.
type Change struct {
	Type       ChangeType `json:"actionType"`
	Page       int        `json:"pageIndex"`
	Annotation Annotation `json:"annotation"`
	Previous   Annotation `json:"previousAnnotation,omitempty"`
	// Index is the z-order position a removed annotation held.
	Index int `json:"index"`
}
