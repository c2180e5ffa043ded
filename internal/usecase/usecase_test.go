package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smorand/slides-content-api/internal/template"
)

func validUseCase() UseCase {
	return UseCase{
		Number:      8,
		Title:       "Automated Meeting Documentation",
		Description: "Sales teams struggle...",
		Department:  "Sales",
		Impact:      "Saves 5 hours per rep",
		DataSources: "Gong, Salesforce",
	}
}

func TestFormat_DescriptionCell(t *testing.T) {
	f := NewFormatter(template.Default())

	out, err := f.Format(validUseCase(), 0)
	require.NoError(t, err)

	cell, ok := out.Cell(template.RoleDescription)
	require.True(t, ok)
	assert.Equal(t, "8. Automated Meeting Documentation Sales teams struggle...", cell.Text)
	assert.Equal(t, len("8. Automated Meeting Documentation"), cell.HeadingLength)
	assert.Equal(t, 8, out.Number)
}

func TestFormat_PassThroughCells(t *testing.T) {
	f := NewFormatter(template.Default())

	out, err := f.Format(validUseCase(), 0)
	require.NoError(t, err)

	require.Len(t, out.Cells, 4)
	assert.Equal(t, template.RoleDescription, out.Cells[0].Role)
	dept, _ := out.Cell(template.RoleDepartment)
	assert.Equal(t, "Sales", dept.Text)
	assert.Zero(t, dept.HeadingLength)
	impact, _ := out.Cell(template.RoleImpact)
	assert.Equal(t, "Saves 5 hours per rep", impact.Text)
	sources, _ := out.Cell(template.RoleDataSources)
	assert.Equal(t, "Gong, Salesforce", sources.Text)
}

func TestFormat_Numbering(t *testing.T) {
	spec := template.Default()
	spec.NumberingStart = 3
	f := NewFormatter(spec)

	uc := validUseCase()
	uc.Number = 0

	out, err := f.Format(uc, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Number)
	cell, _ := out.Cell(template.RoleDescription)
	assert.True(t, strings.HasPrefix(cell.Text, "5. Automated"))

	uc.Number = -1
	_, err = f.Format(uc, 0)
	assert.ErrorIs(t, err, ErrIncompleteUseCase)
}

func TestFormat_WeeklyTimeSaved(t *testing.T) {
	f := NewFormatter(template.Default())

	uc := validUseCase()
	uc.WeeklyTimeSaved = "4 hours"

	out, err := f.Format(uc, 0)
	require.NoError(t, err)
	impact, _ := out.Cell(template.RoleImpact)
	assert.Equal(t, "Saves 5 hours per rep (4 hours saved per week)", impact.Text)
}

func TestFormat_ContentTooLong(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(uc *UseCase)
		wantField string
		wantLimit int
		wantLen   int
	}{
		{
			name:      "department 51 characters",
			mutate:    func(uc *UseCase) { uc.Department = strings.Repeat("d", 51) },
			wantField: "department",
			wantLimit: 50,
			wantLen:   51,
		},
		{
			name:      "impact over limit",
			mutate:    func(uc *UseCase) { uc.Impact = strings.Repeat("i", 301) },
			wantField: "impact",
			wantLimit: 300,
			wantLen:   301,
		},
		{
			name:      "data sources over limit",
			mutate:    func(uc *UseCase) { uc.DataSources = strings.Repeat("s", 150) },
			wantField: "data_sources",
			wantLimit: 100,
			wantLen:   150,
		},
		{
			name: "composed description over limit",
			mutate: func(uc *UseCase) {
				uc.Title = "T"
				uc.Description = strings.Repeat("x", 495)
			},
			wantField: "description",
			wantLimit: 500,
			wantLen:   len("8. T ") + 495,
		},
	}

	f := NewFormatter(template.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := validUseCase()
			tt.mutate(&uc)

			out, err := f.Format(uc, 0)
			assert.Nil(t, out)
			require.ErrorIs(t, err, ErrContentTooLong)

			var tooLong *ContentTooLongError
			require.True(t, errors.As(err, &tooLong))
			assert.Equal(t, tt.wantField, tooLong.Field)
			assert.Equal(t, tt.wantLimit, tooLong.Limit)
			assert.Equal(t, tt.wantLen, tooLong.Actual)
		})
	}
}

func TestFormat_ExactLimitAccepted(t *testing.T) {
	f := NewFormatter(template.Default())
	uc := validUseCase()
	uc.Department = strings.Repeat("d", 50)

	_, err := f.Format(uc, 0)
	assert.NoError(t, err)
}

func TestFormat_Incomplete(t *testing.T) {
	f := NewFormatter(template.Default())

	tests := []struct {
		name    string
		mutate  func(uc *UseCase)
		wantMsg string
	}{
		{name: "empty title", mutate: func(uc *UseCase) { uc.Title = "" }, wantMsg: "title"},
		{name: "blank description", mutate: func(uc *UseCase) { uc.Description = "   " }, wantMsg: "description"},
		{
			name:    "both missing",
			mutate:  func(uc *UseCase) { uc.Title, uc.Description = "", "" },
			wantMsg: "title, description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := validUseCase()
			tt.mutate(&uc)

			_, err := f.Format(uc, 0)
			require.ErrorIs(t, err, ErrIncompleteUseCase)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFormat_ConfiguredLimits(t *testing.T) {
	spec := template.Default()
	spec.Limits[template.RoleDepartment] = 5
	f := NewFormatter(spec)

	uc := validUseCase()
	uc.Department = "Marketing"

	_, err := f.Format(uc, 0)
	var tooLong *ContentTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 5, tooLong.Limit)
	assert.Equal(t, 9, tooLong.Actual)
}

func TestLength(t *testing.T) {
	assert.Equal(t, 0, Length(""))
	assert.Equal(t, 5, Length("hello"))
	assert.Equal(t, 4, Length("café"))
	// "e" followed by a combining acute accent normalizes to one character.
	assert.Equal(t, 4, Length("cafe\u0301"))
	assert.Equal(t, 2, Length("日本"))
}

func TestContentTooLongError_Message(t *testing.T) {
	err := &ContentTooLongError{Field: "department", Limit: 50, Actual: 51}
	assert.Equal(t, "content too long: department is 51 characters, limit is 50", err.Error())
}
