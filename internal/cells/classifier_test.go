package cells

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smorand/slides-content-api/internal/document"
	"github.com/smorand/slides-content-api/internal/template"
)

var columnX = []float64{457200, 2743200, 5029200, 7315200}

var allRoles = []template.CellRole{
	template.RoleDescription,
	template.RoleDepartment,
	template.RoleImpact,
	template.RoleDataSources,
}

// gridSlide builds a slide with one element per (column, y). filled maps
// "row/col" (1-based row, 0-based column) to cell text.
func gridSlide(slideID string, xs, ys []float64, filled map[string]string) document.Slide {
	slide := document.Slide{SlideIndex: 1, SlideID: slideID}
	for col, x := range xs {
		for row, y := range ys {
			slide.Elements = append(slide.Elements, document.Element{
				ObjectID:    fmt.Sprintf("%s_r%dc%d", slideID, row+1, col),
				SlideID:     slideID,
				ElementType: document.ElementShape,
				Content:     filled[fmt.Sprintf("%d/%d", row+1, col)],
				Position:    document.Position{X: x, Y: y},
			})
		}
	}
	return slide
}

func TestClassifySlide_AllEmptyRows(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			ys := make([]float64, n)
			for i := range ys {
				ys[i] = float64(1000000 + i*400000)
			}
			slide := gridSlide("s1", columnX, ys, nil)

			rows := NewClassifier(template.Default()).ClassifySlide(slide)

			require.Len(t, rows, n)
			for k := 1; k <= n; k++ {
				row := rows[RowKeyFor(k)]
				require.NotNil(t, row, "row%d missing", k)
				assert.True(t, row.Complete(allRoles))
				assert.Equal(t, fmt.Sprintf("s1_r%dc0", k), row[template.RoleDescription])
				assert.Equal(t, fmt.Sprintf("s1_r%dc3", k), row[template.RoleDataSources])
			}
		})
	}
}

func TestClassifySlide_FilledCellOmitted(t *testing.T) {
	slide := gridSlide("s1", columnX, []float64{1000000, 1400000}, map[string]string{
		"2/1": "Engineering",
	})

	rows := NewClassifier(template.Default()).ClassifySlide(slide)

	require.Contains(t, rows, RowKeyFor(2))
	_, ok := rows[RowKeyFor(2)][template.RoleDepartment]
	assert.False(t, ok, "filled department cell must not be listed")
	assert.Len(t, rows[RowKeyFor(2)], 3)
	assert.True(t, rows[RowKeyFor(1)].Complete(allRoles))
	assert.False(t, rows[RowKeyFor(2)].Complete(allRoles))
}

func TestClassifySlide_FullyFilledRowOmitted(t *testing.T) {
	slide := gridSlide("s1", columnX, []float64{1000000, 1400000}, map[string]string{
		"1/0": "a", "1/1": "b", "1/2": "c", "1/3": "d",
	})

	rows := NewClassifier(template.Default()).ClassifySlide(slide)

	assert.NotContains(t, rows, RowKeyFor(1))
	assert.Contains(t, rows, RowKeyFor(2), "row numbering counts filled cells")
}

func TestClassifySlide_Idempotent(t *testing.T) {
	slide := gridSlide("s1", columnX, []float64{1000000, 1400000, 1800000}, map[string]string{
		"1/2": "Saves 4h",
	})
	classifier := NewClassifier(template.Default())

	first, err := json.Marshal(classifier.ClassifySlide(slide))
	require.NoError(t, err)
	second, err := json.Marshal(classifier.ClassifySlide(slide))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestClassifySlide_UnequalColumns(t *testing.T) {
	slide := gridSlide("s1", columnX[:3], []float64{1000000, 1400000}, nil)
	slide.Elements = append(slide.Elements, document.Element{
		ObjectID: "ds-1",
		Position: document.Position{X: columnX[3], Y: 1000000},
	})

	rows := NewClassifier(template.Default()).ClassifySlide(slide)

	require.Len(t, rows, 2)
	assert.True(t, rows[RowKeyFor(1)].Complete(allRoles))
	assert.Equal(t, "ds-1", rows[RowKeyFor(1)][template.RoleDataSources])
	assert.Len(t, rows[RowKeyFor(2)], 3, "partial rows keep their available roles")
	assert.False(t, rows[RowKeyFor(2)].Complete(allRoles))
}

func TestClassifySlide_ToleratesJitter(t *testing.T) {
	jittered := []float64{457200, 2743200 + 40000, 5029200 - 30000, 7315200}
	slide := gridSlide("s1", columnX, []float64{1000000}, nil)
	extra := gridSlide("s1x", jittered, []float64{1400000}, nil)
	slide.Elements = append(slide.Elements, extra.Elements...)

	rows := NewClassifier(template.Default()).ClassifySlide(slide)

	require.Len(t, rows, 2)
	assert.Equal(t, "s1x_r1c1", rows[RowKeyFor(2)][template.RoleDepartment])
	assert.Equal(t, "s1x_r1c2", rows[RowKeyFor(2)][template.RoleImpact])
}

func TestClassifySlide_DriftWithinColumn(t *testing.T) {
	spec := template.Default()
	spec.ColumnTolerance = 10

	// The description column drifts right row by row; its final mean lies
	// more than the tolerance away from the first cell.
	drift := []float64{0, 10, 15, 18}
	slide := document.Slide{SlideID: "s1"}
	for row, x := range drift {
		y := float64(1000 + row*400)
		slide.Elements = append(slide.Elements, document.Element{
			ObjectID: fmt.Sprintf("d%d", row+1),
			Position: document.Position{X: x, Y: y},
		})
		for col, cx := range []float64{100, 200, 300} {
			slide.Elements = append(slide.Elements, document.Element{
				ObjectID: fmt.Sprintf("c%dr%d", col+1, row+1),
				Position: document.Position{X: cx, Y: y},
			})
		}
	}

	rows := NewClassifier(spec).ClassifySlide(slide)

	require.Len(t, rows, 4)
	for k := 1; k <= 4; k++ {
		row := rows[RowKeyFor(k)]
		assert.True(t, row.Complete(allRoles), "row%d incomplete: %v", k, row)
		assert.Equal(t, fmt.Sprintf("d%d", k), row[template.RoleDescription])
		assert.Equal(t, fmt.Sprintf("c1r%d", k), row[template.RoleDepartment])
	}
}

func TestClassifySlide_AnchorsIgnoreStrayElements(t *testing.T) {
	spec := template.Default()
	spec.ColumnAnchors = columnX

	slide := gridSlide("s1", columnX, []float64{1000000}, nil)
	slide.Elements = append(slide.Elements, document.Element{
		ObjectID: "stray",
		Position: document.Position{X: 1600000, Y: 1000000},
	})

	rows := NewClassifier(spec).ClassifySlide(slide)

	require.Len(t, rows, 1)
	assert.Len(t, rows[RowKeyFor(1)], 4)
	for _, objectID := range rows[RowKeyFor(1)] {
		assert.NotEqual(t, "stray", objectID)
	}
}

func TestClassifySlide_DerivedColumnsSkipTitle(t *testing.T) {
	slide := gridSlide("s1", columnX, []float64{1000000, 1400000}, nil)
	slide.Elements = append([]document.Element{{
		ObjectID:    "title",
		ElementType: document.ElementTextBox,
		Content:     "",
		Position:    document.Position{X: 1200000, Y: 200000},
	}}, slide.Elements...)

	rows := NewClassifier(template.Default()).ClassifySlide(slide)

	require.Len(t, rows, 2)
	located := EmptyCellMap{"s1": rows}.Locate()
	assert.NotContains(t, located, "title")
}

func TestClassifySlide_NoTable(t *testing.T) {
	slide := document.Slide{
		SlideID: "s1",
		Elements: []document.Element{
			{ObjectID: "a", Position: document.Position{X: 0, Y: 0}},
			{ObjectID: "b", Position: document.Position{X: 3000000, Y: 0}},
		},
	}

	rows := NewClassifier(template.Default()).ClassifySlide(slide)

	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestClassifySlide_Region(t *testing.T) {
	spec := template.Default()
	spec.Region = template.Region{MinY: 900000}

	slide := gridSlide("s1", columnX, []float64{100000, 1000000, 1400000}, nil)

	rows := NewClassifier(spec).ClassifySlide(slide)

	require.Len(t, rows, 2)
	assert.Equal(t, "s1_r2c0", rows[RowKeyFor(1)][template.RoleDescription])
}

func TestClassifySlide_SameYIsDeterministic(t *testing.T) {
	slide := gridSlide("s1", columnX, []float64{1000000, 1000000}, nil)
	classifier := NewClassifier(template.Default())

	first := classifier.ClassifySlide(slide)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, classifier.ClassifySlide(slide))
	}

	seen := map[string]bool{}
	for _, row := range first {
		for _, objectID := range row {
			assert.False(t, seen[objectID], "object %s listed twice", objectID)
			seen[objectID] = true
		}
	}
	assert.Len(t, seen, 8)
}

func TestClassify_Document(t *testing.T) {
	doc := &document.Document{
		Slides: []document.Slide{
			gridSlide("s1", columnX, []float64{1000000}, nil),
			gridSlide("s2", columnX, []float64{1000000}, map[string]string{
				"1/0": "a", "1/1": "b", "1/2": "c", "1/3": "d",
			}),
			{SlideIndex: 3, SlideID: "s3"},
		},
	}

	m := NewClassifier(template.Default()).Classify(doc)

	assert.Len(t, m, 1)
	assert.Contains(t, m, "s1")
	assert.Equal(t, 1, m.CountComplete(allRoles))
	assert.Empty(t, NewClassifier(nil).Classify(nil))
}

func TestSlideCellsKeys_NumericOrder(t *testing.T) {
	rows := SlideCells{
		"row10": Row{},
		"row2":  Row{},
		"row1":  Row{},
	}
	assert.Equal(t, []RowKey{"row1", "row2", "row10"}, rows.Keys())
}

func TestRowKeyIndex(t *testing.T) {
	assert.Equal(t, 1, RowKeyFor(1).Index())
	assert.Equal(t, 12, RowKey("row12").Index())
	assert.Equal(t, 0, RowKey("col1").Index())
	assert.Equal(t, 0, RowKey("row").Index())
	assert.Equal(t, 0, RowKey("row0").Index())
}

func TestLocate(t *testing.T) {
	m := EmptyCellMap{
		"s1": {"row1": {template.RoleImpact: "obj-1"}},
	}
	loc := m.Locate()
	assert.Equal(t, Location{SlideID: "s1", Row: "row1", Role: template.RoleImpact}, loc["obj-1"])
}
