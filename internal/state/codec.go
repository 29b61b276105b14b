package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// wireAnnotation is the flat, type-tagged persisted form of an Annotation.
type wireAnnotation struct {
	ID   string `json:"id"`
	Type Kind   `json:"type"`

	Points []Point      `json:"points,omitempty"`
	Style  *StrokeStyle `json:"style,omitempty"`
	Shape  ShapeType    `json:"shapeType,omitempty"`
	Start  *Pos         `json:"start,omitempty"`
	End    *Pos         `json:"end,omitempty"`
	X      *float64     `json:"x,omitempty"`
	Y      *float64     `json:"y,omitempty"`
	Text   *string      `json:"content,omitempty"`
	Font   float64      `json:"fontSize,omitempty"`
	Color  string       `json:"color,omitempty"`
}

func toWire(a Annotation) (wireAnnotation, error) {
	switch v := a.(type) {
	case Stroke:
		style := v.Style
		return wireAnnotation{ID: v.ID, Type: KindStroke, Points: v.Points, Style: &style}, nil
	case Shape:
		style, start, end := v.Style, v.Start, v.End
		return wireAnnotation{ID: v.ID, Type: KindShape, Shape: v.ShapeType, Start: &start, End: &end, Style: &style}, nil
	case Text:
		x, y, content := v.X, v.Y, v.Content
		return wireAnnotation{ID: v.ID, Type: KindText, X: &x, Y: &y, Text: &content, Font: v.FontSize, Color: v.Color}, nil
	}
	return wireAnnotation{}, fmt.Errorf("unsupported annotation %T", a)
}

func fromWire(w wireAnnotation) (Annotation, error) {
	if w.ID == "" {
		return nil, fmt.Errorf("annotation without id")
	}
	switch w.Type {
	case KindStroke:
		s := Stroke{ID: w.ID, Points: w.Points}
		if w.Style != nil {
			s.Style = *w.Style
		}
		return s, nil
	case KindShape:
		if !w.Shape.Valid() {
			return nil, fmt.Errorf("annotation %s: unknown shape type %q", w.ID, w.Shape)
		}
		s := Shape{ID: w.ID, ShapeType: w.Shape}
		if w.Start != nil {
			s.Start = *w.Start
		}
		if w.End != nil {
			s.End = *w.End
		}
		if w.Style != nil {
			s.Style = *w.Style
		}
		return s, nil
	case KindText:
		t := Text{ID: w.ID, FontSize: w.Font, Color: w.Color}
		if w.X != nil {
			t.X = *w.X
		}
		if w.Y != nil {
			t.Y = *w.Y
		}
		if w.Text != nil {
			t.Content = *w.Text
		}
		return t, nil
	}
	return nil, fmt.Errorf("annotation %s: unknown type %q", w.ID, w.Type)
}

// MarshalAnnotation encodes a single annotation in the wire format.
func MarshalAnnotation(a Annotation) ([]byte, error) {
	w, err := toWire(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalAnnotation decodes a single annotation from the wire format.
func UnmarshalAnnotation(data []byte) (Annotation, error) {
	var w wireAnnotation
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

func (p PageAnnotations) MarshalJSON() ([]byte, error) {
	pages := make([]int, 0, len(p))
	for page := range p {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	out := make(map[string][]wireAnnotation, len(p))
	for _, page := range pages {
		list := make([]wireAnnotation, 0, len(p[page]))
		for _, a := range p[page] {
			w, err := toWire(a)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
			list = append(list, w)
		}
		out[strconv.Itoa(page)] = list
	}
	return json.Marshal(out)
}

func (p *PageAnnotations) UnmarshalJSON(data []byte) error {
	var raw map[string][]wireAnnotation
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(PageAnnotations, len(raw))
	for key, list := range raw {
		page, err := strconv.Atoi(key)
		if err != nil || page < 0 {
			return fmt.Errorf("invalid page index %q", key)
		}
		anns := make([]Annotation, 0, len(list))
		for _, w := range list {
			a, err := fromWire(w)
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			anns = append(anns, a)
		}
		out[page] = anns
	}
	*p = out
	return nil
}

func (c Change) MarshalJSON() ([]byte, error) {
	type change struct {
		Type       ChangeType      `json:"actionType"`
		Page       int             `json:"pageIndex"`
		Annotation json.RawMessage `json:"annotation"`
		Previous   json.RawMessage `json:"previousAnnotation,omitempty"`
		Index      int             `json:"index"`
	}
	out := change{Type: c.Type, Page: c.Page, Index: c.Index}
	var err error
	if out.Annotation, err = MarshalAnnotation(c.Annotation); err != nil {
		return nil, err
	}
	if c.Previous != nil {
		if out.Previous, err = MarshalAnnotation(c.Previous); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}
