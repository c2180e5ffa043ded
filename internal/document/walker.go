package document

import (
	"strings"

	"google.golang.org/api/slides/v1"
)

// shapeTypeTextBox is the Slides API shape type of a text box.
const shapeTypeTextBox = "TEXT_BOX"

// FromPresentation walks a presentation into a Document. Slide and element
// order follow the presentation's native order; groups are flattened in
// child order.
func FromPresentation(documentID string, presentation *slides.Presentation) *Document {
	doc := &Document{
		DocumentID: documentID,
		Slides:     []Slide{},
	}
	if presentation == nil {
		return doc
	}

	doc.Title = presentation.Title
	doc.Slides = make([]Slide, 0, len(presentation.Slides))
	for i, page := range presentation.Slides {
		if page == nil {
			continue
		}
		slide := Slide{
			SlideIndex: i + 1,
			SlideID:    page.ObjectId,
			Elements:   []Element{},
		}
		slide.Elements = walkElements(slide.Elements, page.ObjectId, page.PageElements)
		doc.Slides = append(doc.Slides, slide)
	}
	return doc
}

// walkElements appends the text-bearing elements to out.
func walkElements(out []Element, slideID string, elements []*slides.PageElement) []Element {
	for _, element := range elements {
		if element == nil {
			continue
		}

		if element.ElementGroup != nil {
			out = walkElements(out, slideID, element.ElementGroup.Children)
			continue
		}

		if element.Shape == nil {
			continue
		}

		elementType := ElementShape
		if element.Shape.ShapeType == shapeTypeTextBox {
			elementType = ElementTextBox
		}

		out = append(out, Element{
			ObjectID:    element.ObjectId,
			SlideID:     slideID,
			ElementType: elementType,
			Content:     extractText(element.Shape.Text),
			Position:    elementPosition(element),
			Size:        elementSize(element),
		})
	}
	return out
}

// extractText joins the text runs of a text body. An empty shape holds a
// lone paragraph marker, which trims to "".
func extractText(text *slides.TextContent) string {
	if text == nil || len(text.TextElements) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, te := range text.TextElements {
		if te != nil && te.TextRun != nil {
			builder.WriteString(te.TextRun.Content)
		}
	}
	return strings.TrimSpace(builder.String())
}

func elementPosition(element *slides.PageElement) Position {
	if element.Transform == nil {
		return Position{}
	}
	return Position{
		X: element.Transform.TranslateX,
		Y: element.Transform.TranslateY,
	}
}

// elementSize returns the intrinsic size scaled by the transform.
func elementSize(element *slides.PageElement) Size {
	if element.Size == nil {
		return Size{}
	}

	scaleX, scaleY := 1.0, 1.0
	if element.Transform != nil {
		if element.Transform.ScaleX != 0 {
			scaleX = element.Transform.ScaleX
		}
		if element.Transform.ScaleY != 0 {
			scaleY = element.Transform.ScaleY
		}
	}

	var size Size
	if element.Size.Width != nil {
		size.Width = element.Size.Width.Magnitude * scaleX
	}
	if element.Size.Height != nil {
		size.Height = element.Size.Height.Magnitude * scaleY
	}
	return size
}
