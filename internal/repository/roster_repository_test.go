package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

func student(roll, name string) models.Student {
	return models.Student{Roll: roll, Name: name, Dept: models.DepartmentCSE, Year: models.Year1, CGPA: 8}
}

func TestRosterRepositoryAddPreservesOrder(t *testing.T) {
	repo := NewRosterRepository()
	require.NoError(t, repo.Add(student("R2", "Bob")))
	require.NoError(t, repo.Add(student("R1", "Alice")))

	all := repo.All()
	require.Len(t, all, 2)
	assert.Equal(t, "R2", all[0].Roll)
	assert.Equal(t, "R1", all[1].Roll)
	assert.Equal(t, uint64(2), repo.Revision())
}

func TestRosterRepositoryAddRejectsDuplicate(t *testing.T) {
	repo := NewRosterRepository()
	require.NoError(t, repo.Add(student("R1", "Alice")))

	err := repo.Add(student("R1", "Other"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, uint64(1), repo.Revision())
}

func TestRosterRepositoryUpdateInPlace(t *testing.T) {
	repo := NewRosterRepository()
	require.NoError(t, repo.Add(student("R1", "Alice")))
	require.NoError(t, repo.Add(student("R2", "Bob")))
	require.NoError(t, repo.Add(student("R3", "Cara")))

	require.NoError(t, repo.Update("R2", student("R9", "Bobby")))
	all := repo.All()
	assert.Equal(t, "R9", all[1].Roll)
	assert.Equal(t, "Bobby", all[1].Name)

	_, ok := repo.Find("R2")
	assert.False(t, ok)
}

func TestRosterRepositoryUpdateErrors(t *testing.T) {
	repo := NewRosterRepository()
	require.NoError(t, repo.Add(student("R1", "Alice")))
	require.NoError(t, repo.Add(student("R2", "Bob")))

	err := repo.Update("missing", student("missing", "X"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	err = repo.Update("R2", student("R1", "Bob"))
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, "Bob", repo.All()[1].Name)
}

func TestRosterRepositoryRemove(t *testing.T) {
	repo := NewRosterRepository()
	require.NoError(t, repo.Add(student("R1", "Alice")))
	require.NoError(t, repo.Add(student("R2", "Bob")))

	assert.True(t, repo.Remove("R1"))
	assert.False(t, repo.Remove("R1"))
	assert.Equal(t, []models.Student{student("R2", "Bob")}, repo.All())
	assert.Equal(t, uint64(3), repo.Revision())
}

func TestRosterRepositoryAllIsACopy(t *testing.T) {
	repo := NewRosterRepository()
	require.NoError(t, repo.Add(student("R1", "Alice")))

	all := repo.All()
	all[0].Name = "Mallory"
	got, ok := repo.Find("R1")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name)
}

func TestRosterRepositorySubscribe(t *testing.T) {
	repo := NewRosterRepository()
	var events []models.RosterEvent
	unsubscribe := repo.Subscribe(func(e models.RosterEvent) { events = append(events, e) })

	require.NoError(t, repo.Add(student("R1", "Alice")))
	require.NoError(t, repo.Update("R1", student("R1", "Alicia")))
	repo.Remove("nobody")
	repo.Remove("R1")

	require.Len(t, events, 3)
	assert.Equal(t, models.RosterEvent{Type: models.RosterCreated, Roll: "R1", Revision: 1, Size: 1}, events[0])
	assert.Equal(t, models.RosterUpdated, events[1].Type)
	assert.Equal(t, models.RosterEvent{Type: models.RosterDeleted, Roll: "R1", Revision: 3, Size: 0}, events[2])

	unsubscribe()
	require.NoError(t, repo.Add(student("R2", "Bob")))
	assert.Len(t, events, 3)
}

func TestRosterRepositoryInstanceIsUnique(t *testing.T) {
	a := NewRosterRepository()
	b := NewRosterRepository()
	assert.NotEmpty(t, a.Instance())
	assert.NotEqual(t, a.Instance(), b.Instance())
	assert.Equal(t, a.Instance(), a.Instance())
}
