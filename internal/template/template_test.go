package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	spec := Default()

	require.NoError(t, spec.Validate())
	assert.Equal(t, 4, spec.ColumnCount)
	assert.Equal(t, []CellRole{RoleDescription, RoleDepartment, RoleImpact, RoleDataSources}, spec.Roles)
	assert.Equal(t, 500, spec.Limit(RoleDescription))
	assert.Equal(t, 50, spec.Limit(RoleDepartment))
	assert.Equal(t, 300, spec.Limit(RoleImpact))
	assert.Equal(t, 100, spec.Limit(RoleDataSources))
	assert.Equal(t, 8, spec.NumberingStart)
}

func TestParse_OverlaysDefaults(t *testing.T) {
	spec, err := Parse([]byte(`
numbering_start: 1
limits:
  department: 80
column_anchors: [100, 200, 300, 400]
`))
	require.NoError(t, err)

	assert.Equal(t, 1, spec.NumberingStart)
	assert.Equal(t, 80, spec.Limit(RoleDepartment))
	assert.Equal(t, 500, spec.Limit(RoleDescription), "unset limits keep their default")
	assert.Equal(t, []float64{100, 200, 300, 400}, spec.ColumnAnchors)
	assert.Equal(t, "Arial", spec.Style.FontFamily)
}

func TestParse_RoleOrder(t *testing.T) {
	spec, err := Parse([]byte(`
column_count: 2
roles: [department, description]
`))
	require.NoError(t, err)
	assert.Equal(t, []CellRole{RoleDepartment, RoleDescription}, spec.Roles)
	assert.False(t, spec.HasRole(RoleImpact))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Spec)
	}{
		{name: "zero columns", mutate: func(s *Spec) { s.ColumnCount = 0 }},
		{name: "role count mismatch", mutate: func(s *Spec) { s.Roles = s.Roles[:3] }},
		{name: "unknown role", mutate: func(s *Spec) { s.Roles[3] = "title" }},
		{name: "duplicate role", mutate: func(s *Spec) { s.Roles[3] = RoleDescription }},
		{name: "missing limit", mutate: func(s *Spec) { delete(s.Limits, RoleImpact) }},
		{name: "zero tolerance", mutate: func(s *Spec) { s.ColumnTolerance = 0 }},
		{name: "anchor count mismatch", mutate: func(s *Spec) { s.ColumnAnchors = []float64{1, 2} }},
		{name: "anchors not increasing", mutate: func(s *Spec) { s.ColumnAnchors = []float64{1, 3, 2, 4} }},
		{name: "inverted region", mutate: func(s *Spec) { s.Region = Region{MinY: 100, MaxY: 50} }},
		{name: "numbering start zero", mutate: func(s *Spec) { s.NumberingStart = 0 }},
		{name: "min rows zero", mutate: func(s *Spec) { s.MinRows = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Default()
			tt.mutate(spec)
			err := spec.Validate()
			if !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("expected ErrInvalidTemplate, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "template.yaml")
		require.NoError(t, os.WriteFile(path, []byte("numbering_start: 3\n"), 0o600))

		spec, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, spec.NumberingStart)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, ErrTemplateLoad)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("limits: [1, 2"))
		assert.ErrorIs(t, err, ErrTemplateLoad)
	})
}

func TestRegionContains(t *testing.T) {
	assert.True(t, Region{}.Contains(-5))
	assert.True(t, Region{MinY: 10, MaxY: 20}.Contains(15))
	assert.False(t, Region{MinY: 10, MaxY: 20}.Contains(5))
	assert.False(t, Region{MinY: 10, MaxY: 20}.Contains(25))
	assert.True(t, Region{MinY: 10}.Contains(1e9))
}
