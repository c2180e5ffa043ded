package docstore

import (
	"strings"
	"unicode/utf16"

	"google.golang.org/api/slides/v1"

	"github.com/smorand/slides-content-api/internal/document"
	"github.com/smorand/slides-content-api/internal/template"
)

// buildWriteRequests inserts the assignment text into an empty shape and
// styles it. A description heading gets its own size and weight; the rest of
// the text uses the body size.
func buildWriteRequests(a document.WriteAssignment, style template.Style) []*slides.Request {
	requests := []*slides.Request{{
		InsertText: &slides.InsertTextRequest{
			ObjectId:       a.ObjectID,
			InsertionIndex: 0,
			Text:           a.Text,
		},
	}}

	base := &slides.TextStyle{}
	var fields []string
	if style.FontFamily != "" {
		base.FontFamily = style.FontFamily
		fields = append(fields, "fontFamily")
	}
	if style.FontSize > 0 {
		base.FontSize = points(style.FontSize)
		fields = append(fields, "fontSize")
	}
	if style.ThemeColor != "" {
		base.ForegroundColor = &slides.OptionalColor{
			OpaqueColor: &slides.OpaqueColor{ThemeColor: style.ThemeColor},
		}
		fields = append(fields, "foregroundColor")
	}
	if len(fields) > 0 {
		requests = append(requests, styleRequest(a.ObjectID, base, fields, &slides.Range{Type: "ALL"}))
	}

	if a.Role != template.RoleDescription || a.HeadingLength <= 0 {
		return requests
	}

	total := utf16Len(a.Text)
	heading := utf16Offset(a.Text, a.HeadingLength)

	headingStyle := &slides.TextStyle{Bold: style.HeadingBold, ForceSendFields: []string{"Bold"}}
	headingFields := []string{"bold"}
	if style.HeadingFontSize > 0 {
		headingStyle.FontSize = points(style.HeadingFontSize)
		headingFields = append(headingFields, "fontSize")
	}
	requests = append(requests, styleRequest(a.ObjectID, headingStyle, headingFields, fixedRange(0, heading)))

	if heading < total {
		bodyStyle := &slides.TextStyle{Bold: false, ForceSendFields: []string{"Bold"}}
		bodyFields := []string{"bold"}
		if style.BodyFontSize > 0 {
			bodyStyle.FontSize = points(style.BodyFontSize)
			bodyFields = append(bodyFields, "fontSize")
		}
		requests = append(requests, styleRequest(a.ObjectID, bodyStyle, bodyFields, fixedRange(heading, total)))
	}
	return requests
}

func styleRequest(objectID string, style *slides.TextStyle, fields []string, textRange *slides.Range) *slides.Request {
	return &slides.Request{
		UpdateTextStyle: &slides.UpdateTextStyleRequest{
			ObjectId:  objectID,
			Style:     style,
			TextRange: textRange,
			Fields:    strings.Join(fields, ","),
		},
	}
}

func points(size float64) *slides.Dimension {
	return &slides.Dimension{Magnitude: size, Unit: "PT"}
}

func fixedRange(start, end int64) *slides.Range {
	return &slides.Range{
		Type:       "FIXED_RANGE",
		StartIndex: &start,
		EndIndex:   &end,
	}
}

// utf16Len returns the length of s in UTF-16 code units, the unit of Slides
// text indexes.
func utf16Len(s string) int64 {
	var n int64
	for _, r := range s {
		n += int64(utf16.RuneLen(r))
	}
	return n
}

// utf16Offset converts a prefix of runes code points of s to UTF-16 code
// units.
func utf16Offset(s string, runes int) int64 {
	var n int64
	i := 0
	for _, r := range s {
		if i == runes {
			break
		}
		n += int64(utf16.RuneLen(r))
		i++
	}
	return n
}
