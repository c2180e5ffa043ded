// Package document holds the read-time snapshot of a presentation: slides,
// their text-bearing elements with geometry, and the text assignments planned
// against them.
package document

import "github.com/smorand/slides-content-api/internal/template"

// Element types reported by the walker.
const (
	ElementShape   = "shape"
	ElementTextBox = "textBox"
)

// Position is the top-left corner of an element in the store's native unit.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered size of an element in the store's native unit.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one text-bearing page element.
type Element struct {
	ObjectID    string   `json:"object_id"`
	SlideID     string   `json:"slide_id"`
	ElementType string   `json:"element_type"`
	Content     string   `json:"content"`
	Position    Position `json:"position"`
	Size        Size     `json:"size"`
}

// IsEmpty reports whether the element holds no text.
func (e Element) IsEmpty() bool {
	return e.Content == ""
}

// Slide is one slide with its elements in native tree order.
type Slide struct {
	SlideIndex int       `json:"slide_index"` // 1-based
	SlideID    string    `json:"slide_id"`
	Elements   []Element `json:"elements"`
}

// Document is a presentation snapshot.
type Document struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Slides     []Slide `json:"slides"`
}

// SlideIDs returns slide ids in slide order.
func (d *Document) SlideIDs() []string {
	ids := make([]string, len(d.Slides))
	for i, s := range d.Slides {
		ids[i] = s.SlideID
	}
	return ids
}

// WriteAssignment pairs a cell with the text planned for it.
type WriteAssignment struct {
	ObjectID string            `json:"object_id"`
	Text     string            `json:"text"`
	Role     template.CellRole `json:"role,omitempty"`
	// HeadingLength is the number of leading characters (code points) styled
	// as the heading. Zero means the whole text uses the plain style.
	HeadingLength int `json:"-"`
}
