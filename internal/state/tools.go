package state

import "fmt"

type Tool int

const (
	ToolSelect Tool = iota
	ToolPen
	ToolHighlighter
	ToolEraser
	ToolText
	ToolShape
)

var toolNames = map[Tool]string{
	ToolSelect:      "select",
	ToolPen:         "pen",
	ToolHighlighter: "highlighter",
	ToolEraser:      "eraser",
	ToolText:        "text",
	ToolShape:       "shape",
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// ParseTool maps a tool name back to its Tool.
func ParseTool(name string) (Tool, error) {
	for t, n := range toolNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tool %q", name)
}

// Tools lists every tool in toolbar order.
func Tools() []Tool {
	return []Tool{ToolSelect, ToolPen, ToolHighlighter, ToolEraser, ToolText, ToolShape}
}

const (
	HighlighterOpacity = 0.4
	MinToolSize        = 1.0
	MaxToolSize        = 64.0
	MinFontSize        = 6.0
	MaxFontSize        = 96.0
)

// ToolSettings is the remembered color and size of a drawing tool.
type ToolSettings struct {
	Color string  `json:"color"`
	Size  float64 `json:"size"`
}

type TextSettings struct {
	Color    string  `json:"color"`
	FontSize float64 `json:"fontSize"`
}

// Styles holds per-tool settings. Each tool remembers its own values, so
// switching from pen to highlighter and back restores the pen settings.
type Styles struct {
	Pen         ToolSettings `json:"pen"`
	Highlighter ToolSettings `json:"highlighter"`
	Shape       ToolSettings `json:"shape"`
	ShapeType   ShapeType    `json:"shapeType"`
	Text        TextSettings `json:"text"`
}

func DefaultStyles() Styles {
	return Styles{
		Pen:         ToolSettings{Color: "#000000", Size: 3},
		Highlighter: ToolSettings{Color: "#ffeb3b", Size: 20},
		Shape:       ToolSettings{Color: "#e53935", Size: 3},
		ShapeType:   ShapeRectangle,
		Text:        TextSettings{Color: "#000000", FontSize: 16},
	}
}

// Settings returns the color/size settings of a drawing tool. ok is false
// for tools without stroke settings.
func (s Styles) Settings(t Tool) (ToolSettings, bool) {
	switch t {
	case ToolPen:
		return s.Pen, true
	case ToolHighlighter:
		return s.Highlighter, true
	case ToolShape:
		return s.Shape, true
	case ToolText:
		return ToolSettings{Color: s.Text.Color, Size: s.Text.FontSize}, true
	}
	return ToolSettings{}, false
}

func (s Styles) with(t Tool, fn func(ToolSettings) ToolSettings) Styles {
	switch t {
	case ToolPen:
		s.Pen = fn(s.Pen)
	case ToolHighlighter:
		s.Highlighter = fn(s.Highlighter)
	case ToolShape:
		s.Shape = fn(s.Shape)
	case ToolText:
		ts := fn(ToolSettings{Color: s.Text.Color, Size: s.Text.FontSize})
		s.Text = TextSettings{Color: ts.Color, FontSize: ts.Size}
	}
	return s
}

// StyleFor is the explicit (active tool) -> stroke style lookup. The
// highlighter draws translucent with multiply blending; every other tool
// draws opaque.
func (s Styles) StyleFor(t Tool) StrokeStyle {
	switch t {
	case ToolHighlighter:
		return StrokeStyle{Color: s.Highlighter.Color, Size: s.Highlighter.Size, Opacity: HighlighterOpacity, BlendMode: BlendMultiply}
	case ToolShape:
		return StrokeStyle{Color: s.Shape.Color, Size: s.Shape.Size, Opacity: 1, BlendMode: BlendNormal}
	default:
		return StrokeStyle{Color: s.Pen.Color, Size: s.Pen.Size, Opacity: 1, BlendMode: BlendNormal}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
