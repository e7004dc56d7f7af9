package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
)

func TestParseColumnAndDirection(t *testing.T) {
	col, err := ParseColumn("due_date")
	require.NoError(t, err)
	assert.Equal(t, ColumnDueDate, col)
	col, err = ParseColumn("Assignment")
	require.NoError(t, err)
	assert.Equal(t, ColumnName, col)
	_, err = ParseColumn("id")
	assert.Error(t, err)

	dir, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Asc, dir)
	dir, err = ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, dir)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	data := []models.Assignment{
		{ID: "b", Course: "b", DueDate: day(2)},
		{ID: "a", Course: "a", DueDate: day(1)},
	}
	out := Apply(data, Sort{Column: ColumnCourse, Direction: Asc}, nil)
	assert.Equal(t, []string{"a", "b"}, ids(out))
	assert.Equal(t, "b", data[0].ID)
}

func TestApplyCaseInsensitiveText(t *testing.T) {
	data := []models.Assignment{
		{ID: "1", Name: "beta"},
		{ID: "2", Name: "Alpha"},
	}
	assert.Equal(t, []string{"2", "1"}, ids(Apply(data, Sort{Column: ColumnName, Direction: Asc}, Filters{})))
	assert.Equal(t, []string{"1", "2"}, ids(Apply(data, Sort{Column: ColumnName, Direction: Desc}, Filters{})))
}

func TestFiltersCloneIsIndependent(t *testing.T) {
	f := Filters{}
	f.Set(ColumnStatus, []string{"DONE"})
	clone := f.Clone()
	clone.Set(ColumnStatus, nil)
	assert.True(t, f.Allows(models.Assignment{Status: models.StatusDone}))
	assert.False(t, clone.Allows(models.Assignment{Status: models.StatusDone}))
}

func TestDistinctValues(t *testing.T) {
	data := []models.Assignment{{Course: "MATH"}, {Course: "CMPT"}, {Course: "MATH"}}
	assert.Equal(t, []string{"CMPT", "MATH"}, DistinctValues(data, ColumnCourse))
}
