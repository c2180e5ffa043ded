// Package planner turns validated use cases into write assignments against
// the empty cells found on a presentation.
package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/smorand/slides-content-api/internal/cells"
	"github.com/smorand/slides-content-api/internal/document"
	"github.com/smorand/slides-content-api/internal/template"
	"github.com/smorand/slides-content-api/internal/usecase"
)

// Sentinel errors for planning.
var (
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrCellNotWritable      = errors.New("cell not writable")
)

// InsufficientCapacityError reports more use cases than complete empty rows.
type InsufficientCapacityError struct {
	Requested int
	Available int
	Shortfall int
}

// Error returns the error message.
func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("%s: %d use cases requested, %d complete empty rows available (short by %d)",
		ErrInsufficientCapacity, e.Requested, e.Available, e.Shortfall)
}

// Is matches ErrInsufficientCapacity.
func (e *InsufficientCapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}

// CellNotWritableError reports a direct write to a cell that is not a
// currently empty template cell.
type CellNotWritableError struct {
	ObjectID string
	Reason   string
}

// Error returns the error message.
func (e *CellNotWritableError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCellNotWritable, e.ObjectID, e.Reason)
}

// Is matches ErrCellNotWritable.
func (e *CellNotWritableError) Is(target error) bool {
	return target == ErrCellNotWritable
}

// CellText is one direct write request.
type CellText struct {
	ObjectID string `json:"object_id"`
	Text     string `json:"text"`
}

// TargetRow is a complete empty row selected for writing.
type TargetRow struct {
	SlideID string
	Row     cells.RowKey
	Cells   cells.Row
}

// Config holds planner configuration.
type Config struct {
	Template *template.Spec
	Logger   *slog.Logger
}

// Planner assigns use cases to complete empty rows. It never mutates the
// document.
type Planner struct {
	spec      *template.Spec
	formatter *usecase.Formatter
	logger    *slog.Logger
}

// New creates a planner.
func New(config Config) *Planner {
	if config.Template == nil {
		config.Template = template.Default()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Planner{
		spec:      config.Template,
		formatter: usecase.NewFormatter(config.Template),
		logger:    config.Logger,
	}
}

// Rows returns the complete empty rows in write order: slides in slideOrder,
// then rows numerically within each slide. Slides missing from slideOrder
// follow in slide id order.
func (p *Planner) Rows(m cells.EmptyCellMap, slideOrder []string) []TargetRow {
	var rows []TargetRow
	for _, slideID := range orderSlides(m, slideOrder) {
		slide := m[slideID]
		for _, key := range slide.Keys() {
			if slide[key].Complete(p.spec.Roles) {
				rows = append(rows, TargetRow{SlideID: slideID, Row: key, Cells: slide[key]})
			}
		}
	}
	return rows
}

// Plan formats every use case and pairs the i-th one with the i-th complete
// empty row. It returns no assignments on any error.
func (p *Planner) Plan(useCases []usecase.UseCase, m cells.EmptyCellMap, slideOrder []string) ([]document.WriteAssignment, error) {
	formatted := make([]*usecase.Formatted, len(useCases))
	for i, uc := range useCases {
		f, err := p.formatter.Format(uc, i)
		if err != nil {
			return nil, fmt.Errorf("use case %d: %w", i+1, err)
		}
		formatted[i] = f
	}

	rows := p.Rows(m, slideOrder)
	if len(useCases) > len(rows) {
		return nil, &InsufficientCapacityError{
			Requested: len(useCases),
			Available: len(rows),
			Shortfall: len(useCases) - len(rows),
		}
	}

	assignments := make([]document.WriteAssignment, 0, len(useCases)*len(p.spec.Roles))
	for i, f := range formatted {
		row := rows[i]
		for _, cell := range f.Cells {
			if cell.Text == "" {
				continue
			}
			assignments = append(assignments, document.WriteAssignment{
				ObjectID:      row.Cells[cell.Role],
				Text:          cell.Text,
				Role:          cell.Role,
				HeadingLength: cell.HeadingLength,
			})
		}
		p.logger.Debug("use case planned",
			slog.Int("number", f.Number),
			slog.String("slide_id", row.SlideID),
			slog.String("row", string(row.Row)),
		)
	}
	return assignments, nil
}

// PlanCells validates direct cell writes: every target must be a currently
// empty classified cell, targeted once, with text within its role's limit.
func (p *Planner) PlanCells(writes []CellText, m cells.EmptyCellMap) ([]document.WriteAssignment, error) {
	located := m.Locate()
	seen := make(map[string]bool, len(writes))

	assignments := make([]document.WriteAssignment, 0, len(writes))
	for _, w := range writes {
		if w.ObjectID == "" {
			return nil, &CellNotWritableError{ObjectID: "(empty)", Reason: "object_id is required"}
		}
		if seen[w.ObjectID] {
			return nil, &CellNotWritableError{ObjectID: w.ObjectID, Reason: "targeted more than once"}
		}
		seen[w.ObjectID] = true

		loc, ok := located[w.ObjectID]
		if !ok {
			return nil, &CellNotWritableError{ObjectID: w.ObjectID, Reason: "not an empty template cell"}
		}
		if w.Text == "" {
			return nil, &CellNotWritableError{ObjectID: w.ObjectID, Reason: "text is empty"}
		}
		if limit := p.spec.Limit(loc.Role); limit > 0 {
			if n := usecase.Length(w.Text); n > limit {
				return nil, &usecase.ContentTooLongError{Field: string(loc.Role), Limit: limit, Actual: n}
			}
		}

		assignments = append(assignments, document.WriteAssignment{
			ObjectID: w.ObjectID,
			Text:     w.Text,
			Role:     loc.Role,
		})
	}
	return assignments, nil
}

func orderSlides(m cells.EmptyCellMap, slideOrder []string) []string {
	ordered := make([]string, 0, len(m))
	listed := make(map[string]bool, len(slideOrder))
	for _, id := range slideOrder {
		if listed[id] {
			continue
		}
		listed[id] = true
		if _, ok := m[id]; ok {
			ordered = append(ordered, id)
		}
	}

	var rest []string
	for id := range m {
		if !listed[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}
