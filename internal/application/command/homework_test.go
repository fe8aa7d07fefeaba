package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/internal/testutil"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

type homeworkFixture struct {
	store    *testutil.Store
	h        *command.HomeworkHandler
	schoolID uuid.UUID
	lessonID uuid.UUID
}

func newHomeworkFixture(t *testing.T) *homeworkFixture {
	t.Helper()
	ctx := context.Background()
	store := testutil.NewStore()
	f := &homeworkFixture{store: store, schoolID: uuid.New(), lessonID: uuid.New()}
	require.NoError(t, store.Schools().Create(ctx, &school.School{ID: f.schoolID, Name: "Analytical Academy"}))
	require.NoError(t, store.Lessons().Create(ctx, &timetable.Lesson{ID: f.lessonID, SchoolID: f.schoolID, EventID: uuid.New()}))
	f.h = command.NewHomeworkHandler(store.Homework(), store.Schools(), store.Lessons(), store,
		timeutil.FixedClock(testNow), &testutil.RecordingLogger{})
	return f
}

func (f *homeworkFixture) cmd() command.HomeworkCommand {
	s1 := uuid.New()
	return command.HomeworkCommand{
		ID: uuid.New(), SchoolID: f.schoolID, LessonID: f.lessonID,
		Title: "Fractions", Status: homework.StatusSet,
		DueAt:      testNow.Add(7 * 24 * time.Hour),
		StudentIDs: []uuid.UUID{s1, s1, uuid.Nil},
	}
}

func TestHomework_CreateUpdateRemove(t *testing.T) {
	ctx := context.Background()
	f := newHomeworkFixture(t)
	cmd := f.cmd()

	created, err := f.h.Create(ctx, cmd)
	require.NoError(t, err)
	assert.Len(t, created.Value.StudentIDs, 1)
	assert.True(t, created.Value.SetAt.Equal(testNow))

	_, err = f.h.Create(ctx, cmd)
	assert.ErrorIs(t, err, shared.ErrHomeworkExists)

	cmd.Title = "Fractions and decimals"
	cmd.StudentIDs = nil
	updated, err := f.h.Update(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "Fractions and decimals", updated.Value.Title)
	assert.Empty(t, updated.Value.StudentIDs)
	assert.True(t, updated.Value.SetAt.Equal(testNow))

	removed, err := f.h.Remove(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, cmd.ID, removed.Value.ID)

	_, err = f.h.Remove(ctx, cmd.ID)
	assert.ErrorIs(t, err, shared.ErrHomeworkNotFound)
}

func TestHomework_ReferenceChecks(t *testing.T) {
	ctx := context.Background()
	f := newHomeworkFixture(t)

	noSchool := f.cmd()
	noSchool.SchoolID = uuid.New()
	_, err := f.h.Create(ctx, noSchool)
	assert.ErrorIs(t, err, shared.ErrSchoolNotFound)

	noLesson := f.cmd()
	noLesson.LessonID = uuid.New()
	_, err = f.h.Create(ctx, noLesson)
	assert.ErrorIs(t, err, shared.ErrLessonNotFound)

	tmpl := uuid.New()
	withTemplate := f.cmd()
	withTemplate.TemplateID = &tmpl
	_, err = f.h.Create(ctx, withTemplate)
	assert.ErrorIs(t, err, shared.ErrTemplateNotFound)

	f.store.AddTemplate(tmpl)
	_, err = f.h.Create(ctx, withTemplate)
	assert.NoError(t, err)

	untitled := f.cmd()
	untitled.Title = " "
	_, err = f.h.Create(ctx, untitled)
	assert.ErrorIs(t, err, shared.ErrEmptyTitle)

	_, err = f.h.Update(ctx, f.cmd())
	assert.ErrorIs(t, err, shared.ErrHomeworkNotFound)

	_, err = f.h.Remove(ctx, uuid.Nil)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}
