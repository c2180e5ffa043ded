package cells

import (
	"math"
	"sort"

	"github.com/smorand/slides-content-api/internal/document"
	"github.com/smorand/slides-content-api/internal/template"
)

// Classifier finds empty template cells by column position and row order.
// It is a pure function of the template and the slide snapshot.
type Classifier struct {
	spec *template.Spec
}

// NewClassifier creates a classifier for the given template.
func NewClassifier(spec *template.Spec) *Classifier {
	if spec == nil {
		spec = template.Default()
	}
	return &Classifier{spec: spec}
}

// Classify builds the EmptyCellMap for a document. Slides without empty
// cells are omitted.
func (c *Classifier) Classify(doc *document.Document) EmptyCellMap {
	out := EmptyCellMap{}
	if doc == nil {
		return out
	}
	for _, slide := range doc.Slides {
		rows := c.ClassifySlide(slide)
		if len(rows) > 0 {
			out[slide.SlideID] = rows
		}
	}
	return out
}

// ClassifySlide returns the empty cells of one slide keyed by row and role.
//
// Elements are binned into columns by x, each column is ordered by y, and the
// k-th element of every column belongs to row k. Filled cells take part in
// row numbering but are not emitted.
func (c *Classifier) ClassifySlide(slide document.Slide) SlideCells {
	out := SlideCells{}

	candidates := make([]document.Element, 0, len(slide.Elements))
	for _, e := range slide.Elements {
		if c.spec.Region.Contains(e.Position.Y) {
			candidates = append(candidates, e)
		}
	}

	columns := c.binColumns(candidates)
	if columns == nil {
		return out
	}

	for col, cells := range columns {
		role := c.spec.Roles[col]
		// Stable so that cells at the same y keep tree order.
		sort.SliceStable(cells, func(i, j int) bool {
			return cells[i].Position.Y < cells[j].Position.Y
		})
		for i, cell := range cells {
			if !cell.IsEmpty() {
				continue
			}
			key := RowKeyFor(i + 1)
			if out[key] == nil {
				out[key] = Row{}
			}
			out[key][role] = cell.ObjectID
		}
	}
	return out
}

// nearestColumn returns the index of the closest column centre within the
// tolerance, or -1. Equidistant columns resolve to the leftmost.
func (c *Classifier) nearestColumn(x float64, centers []float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, center := range centers {
		dist := math.Abs(x - center)
		if dist <= c.spec.ColumnTolerance && dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

// xCluster is a run of nearby x values. members holds candidate indexes in
// tree order.
type xCluster struct {
	center  float64
	sum     float64
	members []int
}

// binColumns splits the candidates into columns left to right, or returns nil
// when the slide holds no table of the configured shape. Anchored columns take
// the elements within tolerance of an anchor. Derived columns are the most
// populated x clusters and keep exactly the elements clustered into them.
func (c *Classifier) binColumns(candidates []document.Element) [][]document.Element {
	columns := make([][]document.Element, c.spec.ColumnCount)

	if len(c.spec.ColumnAnchors) > 0 {
		for _, e := range candidates {
			if col := c.nearestColumn(e.Position.X, c.spec.ColumnAnchors); col >= 0 {
				columns[col] = append(columns[col], e)
			}
		}
		return columns
	}

	clusters := clusterX(candidates, c.spec.ColumnTolerance)
	if len(clusters) < c.spec.ColumnCount {
		return nil
	}

	// Keep the most populated clusters; ties go to the leftmost.
	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].members) > len(clusters[j].members)
	})
	chosen := clusters[:c.spec.ColumnCount]
	for _, cl := range chosen {
		if len(cl.members) < c.spec.MinRows {
			return nil
		}
	}
	sort.Slice(chosen, func(i, j int) bool {
		return chosen[i].center < chosen[j].center
	})

	for col, cl := range chosen {
		sort.Ints(cl.members)
		for _, idx := range cl.members {
			columns[col] = append(columns[col], candidates[idx])
		}
	}
	return columns
}

// clusterX groups the candidates by sorted x, starting a new cluster whenever
// a value lies further than tolerance from the running mean of the current one.
func clusterX(elements []document.Element, tolerance float64) []xCluster {
	if len(elements) == 0 {
		return nil
	}

	order := make([]int, len(elements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return elements[order[i]].Position.X < elements[order[j]].Position.X
	})

	first := order[0]
	x0 := elements[first].Position.X
	clusters := []xCluster{{center: x0, sum: x0, members: []int{first}}}
	for _, idx := range order[1:] {
		x := elements[idx].Position.X
		last := &clusters[len(clusters)-1]
		if x-last.center > tolerance {
			clusters = append(clusters, xCluster{center: x, sum: x, members: []int{idx}})
			continue
		}
		last.sum += x
		last.members = append(last.members, idx)
		last.center = last.sum / float64(len(last.members))
	}
	return clusters
}
