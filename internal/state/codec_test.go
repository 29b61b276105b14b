package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageAnnotations_WireFormat(t *testing.T) {
	pages := PageAnnotations{
		0: {
			testStroke("s1"),
			Shape{ID: "r1", ShapeType: ShapeArrow, Start: Pos{1, 2}, End: Pos{30, 40}, Style: StrokeStyle{Color: "#ff0000", Size: 2, Opacity: 1, BlendMode: BlendNormal}},
		},
		3: {
			Text{ID: "t1", X: 0, Y: 0, Content: "a\nb", FontSize: 14, Color: "#333333"},
		},
	}

	data, err := json.Marshal(pages)
	require.NoError(t, err)

	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "0")
	require.Contains(t, raw, "3")
	assert.Equal(t, "stroke", raw["0"][0]["type"])
	assert.Equal(t, "shape", raw["0"][1]["type"])
	assert.Equal(t, "arrow", raw["0"][1]["shapeType"])
	assert.Equal(t, "text", raw["3"][0]["type"])
	// Text at the origin keeps explicit coordinates.
	assert.Contains(t, raw["3"][0], "x")

	var back PageAnnotations
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, pages, back)
}

func TestPageAnnotations_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad page index", `{"x":[]}`},
		{"negative page index", `{"-1":[]}`},
		{"unknown type", `{"0":[{"id":"a","type":"sticker"}]}`},
		{"unknown shape", `{"0":[{"id":"a","type":"shape","shapeType":"star"}]}`},
		{"missing id", `{"0":[{"type":"text"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PageAnnotations
			assert.Error(t, json.Unmarshal([]byte(tt.data), &p))
		})
	}
}

func TestChange_MarshalJSON(t *testing.T) {
	c := Change{
		Type:       ChangeMove,
		Page:       2,
		Annotation: Text{ID: "t", X: 5, Y: 5, Content: "x"},
		Previous:   Text{ID: "t", X: 1, Y: 1, Content: "x"},
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "move", raw["actionType"])
	assert.EqualValues(t, 2, raw["pageIndex"])
	assert.Contains(t, raw, "previousAnnotation")

	data, err = json.Marshal(Change{Type: ChangeAdd, Annotation: testStroke("s")})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previousAnnotation")
}
