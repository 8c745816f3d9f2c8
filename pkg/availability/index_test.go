package availability

import (
	"testing"

	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mondayNine = model.TimeSlot{ID: "09:00-10:00", Day: model.Monday, Index: 0, Start: 540, End: 600}
	mondayTen  = model.TimeSlot{ID: "10:00-11:00", Day: model.Monday, Index: 1, Start: 600, End: 660}
	tuesdayTen = model.TimeSlot{ID: "10:00-11:00", Day: model.Tuesday, Index: 1, Start: 600, End: 660}
)

func TestReserve(t *testing.T) {
	t.Run("Reserve books all three resources", func(t *testing.T) {
		// Arrange
		index := NewIndex()

		// Act
		err := index.Reserve("F1", "R1", "B1", mondayNine)

		// Assert
		require.NoError(t, err)
		assert.False(t, index.FacultyFree("F1", mondayNine))
		assert.False(t, index.RoomFree("R1", mondayNine))
		assert.False(t, index.BatchFree("B1", mondayNine))
		assert.True(t, index.FacultyFree("F1", mondayTen))
		assert.True(t, index.FacultyFree("F1", tuesdayTen))
		assert.Equal(t, 3, index.Len())
	})

	tests := []struct {
		name                 string
		faculty, room, batch string
		kind                 model.ResourceKind
		id                   string
	}{
		{"Faculty clash", "F1", "R2", "B2", model.ResourceFaculty, "F1"},
		{"Room clash", "F2", "R1", "B2", model.ResourceRoom, "R1"},
		{"Batch clash", "F2", "R2", "B1", model.ResourceBatch, "B1"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			index := NewIndex()
			require.NoError(t, index.Reserve("F1", "R1", "B1", mondayNine))

			// Act
			err := index.Reserve(test.faculty, test.room, test.batch, mondayNine)

			// Assert
			var occupiedErr *model.AlreadyOccupiedError
			require.ErrorAs(t, err, &occupiedErr)
			assert.Equal(t, test.kind, occupiedErr.ResourceKind)
			assert.Equal(t, test.id, occupiedErr.ResourceID)
			assert.Equal(t, model.Monday, occupiedErr.Day)
			assert.Equal(t, "09:00-10:00", occupiedErr.SlotID)
			// A failed reservation books nothing
			assert.Equal(t, 3, index.Len())
		})
	}
}

func TestRelease(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.Reserve("F1", "R1", "B1", mondayNine))
	require.NoError(t, index.Reserve("F1", "R1", "B1", mondayTen))

	index.Release("F1", "R1", "B1", mondayNine)

	assert.True(t, index.FacultyFree("F1", mondayNine))
	assert.True(t, index.RoomFree("R1", mondayNine))
	assert.True(t, index.BatchFree("B1", mondayNine))
	assert.False(t, index.FacultyFree("F1", mondayTen))
	assert.NoError(t, index.Reserve("F2", "R1", "B2", mondayNine))
}

func TestBook(t *testing.T) {
	index := NewIndex()

	require.NoError(t, index.Book(model.ResourceRoom, "R1", mondayNine))
	err := index.Book(model.ResourceRoom, "R1", mondayNine)

	var occupiedErr *model.AlreadyOccupiedError
	require.ErrorAs(t, err, &occupiedErr)
	assert.True(t, index.IsFree(model.ResourceFaculty, "R1", mondayNine))

	index.Free(model.ResourceRoom, "R1", mondayNine)
	assert.True(t, index.RoomFree("R1", mondayNine))
}
