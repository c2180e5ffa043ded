// Package cells locates empty table cells on slides and assigns each one a
// semantic role and a row key.
package cells

import (
	"sort"
	"strconv"
	"strings"

	"github.com/smorand/slides-content-api/internal/template"
)

const rowKeyPrefix = "row"

// RowKey identifies a table row on one slide: "row1", "row2", ... by
// vertical position. It is recomputed on every read.
type RowKey string

// RowKeyFor returns the key of the k-th row (1-based).
func RowKeyFor(k int) RowKey {
	return RowKey(rowKeyPrefix + strconv.Itoa(k))
}

// Index returns the 1-based row number, or 0 for a malformed key.
func (k RowKey) Index() int {
	s, ok := strings.CutPrefix(string(k), rowKeyPrefix)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Row maps roles to the object ids of empty cells in one row.
type Row map[template.CellRole]string

// Complete reports whether the row has a cell for every role.
func (r Row) Complete(roles []template.CellRole) bool {
	for _, role := range roles {
		if r[role] == "" {
			return false
		}
	}
	return true
}

// SlideCells maps row keys to rows for one slide.
type SlideCells map[RowKey]Row

// Keys returns the row keys in numeric order (row2 before row10).
func (s SlideCells) Keys() []RowKey {
	keys := make([]RowKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ki, kj := keys[i].Index(), keys[j].Index()
		if ki != kj {
			return ki < kj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// EmptyCellMap maps slide id to row key to role to object id. An object id
// appears at most once in the whole map.
type EmptyCellMap map[string]SlideCells

// Location is where an object id sits in an EmptyCellMap.
type Location struct {
	SlideID string
	Row     RowKey
	Role    template.CellRole
}

// Locate returns the location of every object id in the map.
func (m EmptyCellMap) Locate() map[string]Location {
	out := make(map[string]Location)
	for slideID, rows := range m {
		for key, row := range rows {
			for role, objectID := range row {
				out[objectID] = Location{SlideID: slideID, Row: key, Role: role}
			}
		}
	}
	return out
}

// CountComplete returns the number of complete rows across all slides.
func (m EmptyCellMap) CountComplete(roles []template.CellRole) int {
	n := 0
	for _, rows := range m {
		for _, row := range rows {
			if row.Complete(roles) {
				n++
			}
		}
	}
	return n
}
