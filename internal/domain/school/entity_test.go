package school

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

func TestEmployee_RoleTitlesSortedDistinct(t *testing.T) {
	e := &Employee{Roles: []Role{
		{Title: "Teacher"}, {Title: "Admin"}, {Title: "Coach"}, {Title: "Teacher"},
	}}
	assert.Equal(t, []string{"Admin", "Coach", "Teacher"}, e.RoleTitles())
}

func TestEmployee_RoleTitlesNeverNil(t *testing.T) {
	titles := (&Employee{}).RoleTitles()
	require.NotNil(t, titles)
	assert.Empty(t, titles)
}

func TestNewPerson(t *testing.T) {
	school := uuid.New()

	id, f, s, err := NewPerson(school, " Ada ", "Lovelace")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, "Ada", f)
	assert.Equal(t, "Lovelace", s)

	_, _, _, err = NewPerson(uuid.Nil, "Ada", "Lovelace")
	assert.ErrorIs(t, err, shared.ErrEmptySchoolID)
	_, _, _, err = NewPerson(school, "", "Lovelace")
	assert.ErrorIs(t, err, shared.ErrEmptyName)
}

func TestIndex(t *testing.T) {
	e := &Employee{ID: uuid.New()}
	s := &Student{ID: uuid.New()}
	assert.Same(t, e, IndexEmployees([]*Employee{e})[e.ID])
	assert.Same(t, s, IndexStudents([]*Student{s})[s.ID])
}
