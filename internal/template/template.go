// Package template describes the table layout that use cases are written into:
// which column holds which field, how long each field may be and how inserted
// text is styled. Everything here is configuration, loaded from YAML, so a
// template change never requires a rebuild.
package template

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CellRole is the semantic column a table cell belongs to.
type CellRole string

// Known cell roles.
const (
	RoleDescription CellRole = "description"
	RoleDepartment  CellRole = "department"
	RoleImpact      CellRole = "impact"
	RoleDataSources CellRole = "data_sources"
)

// knownRoles is the closed set of roles a template may reference.
var knownRoles = map[CellRole]bool{
	RoleDescription: true,
	RoleDepartment:  true,
	RoleImpact:      true,
	RoleDataSources: true,
}

// Sentinel errors for template configuration.
var (
	ErrInvalidTemplate = errors.New("invalid template")
	ErrTemplateLoad    = errors.New("failed to load template")
)

// Default values for the use case table template.
const (
	defaultColumnCount     = 4
	defaultColumnTolerance = 91440 // 0.1 inch in EMU
	defaultNumberingStart  = 8
	defaultTimeSavedFormat = "{impact} ({weekly_time_saved} saved per week)"
)

// Region bounds the vertical band in which table cells are searched.
// A zero bound is unbounded.
type Region struct {
	MinY float64 `yaml:"min_y" json:"min_y,omitempty"`
	MaxY float64 `yaml:"max_y" json:"max_y,omitempty"`
}

// Contains reports whether y falls inside the region.
func (r Region) Contains(y float64) bool {
	if r.MinY != 0 && y < r.MinY {
		return false
	}
	if r.MaxY != 0 && y > r.MaxY {
		return false
	}
	return true
}

// Style holds the text style applied to written cells.
type Style struct {
	FontFamily      string  `yaml:"font_family" json:"font_family"`
	FontSize        float64 `yaml:"font_size" json:"font_size"`                 // Plain cells, in points
	HeadingFontSize float64 `yaml:"heading_font_size" json:"heading_font_size"` // "{number}. {title}" prefix
	BodyFontSize    float64 `yaml:"body_font_size" json:"body_font_size"`       // Description text after the prefix
	HeadingBold     bool    `yaml:"heading_bold" json:"heading_bold"`
	ThemeColor      string  `yaml:"theme_color" json:"theme_color,omitempty"`
}

// Spec is the full template configuration.
type Spec struct {
	Name            string           `yaml:"name" json:"name"`
	ColumnCount     int              `yaml:"column_count" json:"column_count"`
	Roles           []CellRole       `yaml:"roles" json:"roles"`
	ColumnTolerance float64          `yaml:"column_tolerance" json:"column_tolerance"`
	ColumnAnchors   []float64        `yaml:"column_anchors,omitempty" json:"column_anchors,omitempty"`
	MinRows         int              `yaml:"min_rows" json:"min_rows"`
	Region          Region           `yaml:"region" json:"region"`
	Limits          map[CellRole]int `yaml:"limits" json:"limits"`
	NumberingStart  int              `yaml:"numbering_start" json:"numbering_start"`
	TimeSavedFormat string           `yaml:"time_saved_format" json:"time_saved_format"`
	Style           Style            `yaml:"style" json:"style"`
}

// Default returns the use case table template: four columns, left to right
// description, department, impact and data sources.
func Default() *Spec {
	return &Spec{
		Name:            "use-case-table",
		ColumnCount:     defaultColumnCount,
		Roles:           []CellRole{RoleDescription, RoleDepartment, RoleImpact, RoleDataSources},
		ColumnTolerance: defaultColumnTolerance,
		MinRows:         1,
		Limits: map[CellRole]int{
			RoleDescription: 500,
			RoleDepartment:  50,
			RoleImpact:      300,
			RoleDataSources: 100,
		},
		NumberingStart:  defaultNumberingStart,
		TimeSavedFormat: defaultTimeSavedFormat,
		Style: Style{
			FontFamily:      "Arial",
			FontSize:        8,
			HeadingFontSize: 8,
			BodyFontSize:    7,
			HeadingBold:     true,
			ThemeColor:      "DARK1",
		},
	}
}

// Load reads a YAML template from path. Keys missing from the file keep
// their default values.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}
	return Parse(data)
}

// Parse decodes a YAML template and validates it.
func Parse(data []byte) (*Spec, error) {
	spec := Default()
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the template for internal consistency.
func (s *Spec) Validate() error {
	if s.ColumnCount <= 0 {
		return fmt.Errorf("%w: column_count must be positive", ErrInvalidTemplate)
	}
	if len(s.Roles) != s.ColumnCount {
		return fmt.Errorf("%w: %d roles configured for %d columns", ErrInvalidTemplate, len(s.Roles), s.ColumnCount)
	}

	seen := make(map[CellRole]bool, len(s.Roles))
	for _, role := range s.Roles {
		if !knownRoles[role] {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidTemplate, role)
		}
		if seen[role] {
			return fmt.Errorf("%w: role %q appears twice", ErrInvalidTemplate, role)
		}
		seen[role] = true

		if s.Limits[role] <= 0 {
			return fmt.Errorf("%w: limit for %q must be positive", ErrInvalidTemplate, role)
		}
	}

	if s.ColumnTolerance <= 0 {
		return fmt.Errorf("%w: column_tolerance must be positive", ErrInvalidTemplate)
	}
	if len(s.ColumnAnchors) > 0 {
		if len(s.ColumnAnchors) != s.ColumnCount {
			return fmt.Errorf("%w: %d column anchors configured for %d columns", ErrInvalidTemplate, len(s.ColumnAnchors), s.ColumnCount)
		}
		for i := 1; i < len(s.ColumnAnchors); i++ {
			if s.ColumnAnchors[i] <= s.ColumnAnchors[i-1] {
				return fmt.Errorf("%w: column anchors must be strictly increasing", ErrInvalidTemplate)
			}
		}
	}
	if s.MinRows < 1 {
		return fmt.Errorf("%w: min_rows must be at least 1", ErrInvalidTemplate)
	}
	if s.Region.MaxY != 0 && s.Region.MaxY < s.Region.MinY {
		return fmt.Errorf("%w: region max_y is below min_y", ErrInvalidTemplate)
	}
	if s.NumberingStart < 1 {
		return fmt.Errorf("%w: numbering_start must be at least 1", ErrInvalidTemplate)
	}
	return nil
}

// Limit returns the maximum length in characters for a role.
func (s *Spec) Limit(role CellRole) int {
	return s.Limits[role]
}

// HasRole reports whether the template uses the role.
func (s *Spec) HasRole(role CellRole) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}
