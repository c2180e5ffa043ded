// Package usecase validates use case records and composes the text written
// into each template cell.
package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/smorand/slides-content-api/internal/template"
)

// Sentinel errors for use case validation.
var (
	ErrIncompleteUseCase = errors.New("incomplete use case")
	ErrContentTooLong    = errors.New("content too long")
)

// ContentTooLongError reports a composed cell text that exceeds its limit.
type ContentTooLongError struct {
	Field  string
	Limit  int
	Actual int
}

// Error returns the error message.
func (e *ContentTooLongError) Error() string {
	return fmt.Sprintf("%s: %s is %d characters, limit is %d", ErrContentTooLong, e.Field, e.Actual, e.Limit)
}

// Is matches ErrContentTooLong.
func (e *ContentTooLongError) Is(target error) bool {
	return target == ErrContentTooLong
}

// UseCase is one record supplied by the agent.
type UseCase struct {
	Number          int    `json:"number,omitempty"` // 0 takes the template's numbering
	Title           string `json:"title"`
	Description     string `json:"description"`
	Department      string `json:"department"`
	Impact          string `json:"impact"`
	DataSources     string `json:"data_sources"`
	WeeklyTimeSaved string `json:"weekly_time_saved,omitempty"`
}

// Cell is the composed text for one role.
type Cell struct {
	Role template.CellRole
	Text string
	// HeadingLength is the length in code points of the "{number}. {title}"
	// prefix of a description cell.
	HeadingLength int
}

// Formatted is a use case rendered for the template.
type Formatted struct {
	Number int
	Cells  []Cell // Template role order
}

// Cell returns the composed cell for a role.
func (f *Formatted) Cell(role template.CellRole) (Cell, bool) {
	for _, c := range f.Cells {
		if c.Role == role {
			return c, true
		}
	}
	return Cell{}, false
}

// Formatter composes and validates cell text against a template.
type Formatter struct {
	spec *template.Spec
}

// NewFormatter creates a formatter for the given template.
func NewFormatter(spec *template.Spec) *Formatter {
	if spec == nil {
		spec = template.Default()
	}
	return &Formatter{spec: spec}
}

// Format renders a use case. position is its 0-based place in the request,
// used for numbering when the use case carries no number.
func (f *Formatter) Format(uc UseCase, position int) (*Formatted, error) {
	title := strings.TrimSpace(uc.Title)
	description := strings.TrimSpace(uc.Description)

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteUseCase, strings.Join(missing, ", "))
	}
	if uc.Number < 0 {
		return nil, fmt.Errorf("%w: number must be positive, got %d", ErrIncompleteUseCase, uc.Number)
	}

	number := uc.Number
	if number == 0 {
		number = f.spec.NumberingStart + position
	}

	heading := strconv.Itoa(number) + ". " + title

	out := &Formatted{
		Number: number,
		Cells:  make([]Cell, 0, len(f.spec.Roles)),
	}
	for _, role := range f.spec.Roles {
		cell := Cell{Role: role}
		switch role {
		case template.RoleDescription:
			cell.Text = heading + " " + description
			cell.HeadingLength = utf8.RuneCountInString(heading)
		case template.RoleDepartment:
			cell.Text = uc.Department
		case template.RoleImpact:
			cell.Text = f.impactText(uc)
		case template.RoleDataSources:
			cell.Text = uc.DataSources
		}

		if limit := f.spec.Limit(role); limit > 0 {
			if n := Length(cell.Text); n > limit {
				return nil, &ContentTooLongError{Field: string(role), Limit: limit, Actual: n}
			}
		}
		out.Cells = append(out.Cells, cell)
	}
	return out, nil
}

// impactText appends the weekly time saved, when given, using the
// template's format.
func (f *Formatter) impactText(uc UseCase) string {
	saved := strings.TrimSpace(uc.WeeklyTimeSaved)
	if saved == "" || f.spec.TimeSavedFormat == "" {
		return uc.Impact
	}
	return strings.NewReplacer(
		"{impact}", uc.Impact,
		"{weekly_time_saved}", saved,
	).Replace(f.spec.TimeSavedFormat)
}

// Length returns the length of s in characters: Unicode code points after
// NFC normalization, so composed and decomposed accents count the same.
func Length(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}
