package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/testutil"
)

func TestCreatePeriod(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	schoolID := uuid.New()
	require.NoError(t, store.Schools().Create(ctx, &school.School{ID: schoolID, Name: "Analytical Academy"}))

	// 23:30 UTC on Sunday is already Monday in Auckland.
	loc := time.FixedZone("NZST", 12*3600)
	h := command.NewCreatePeriodHandler(store.Periods(), store.Schools(), loc, &testutil.RecordingLogger{})

	cmd := command.CreatePeriodCommand{
		SchoolID: schoolID, Name: "Registration",
		Start: time.Date(2024, 9, 1, 23, 30, 0, 0, time.UTC),
		End:   time.Date(2024, 9, 1, 23, 45, 0, 0, time.UTC),
	}

	t.Run("preview does not write", func(t *testing.T) {
		res, err := h.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, "Monday", res.Value.Day)
		assert.False(t, res.Value.Saved)
		assert.Zero(t, store.CallCount("periods.Create"))
	})

	t.Run("save inserts", func(t *testing.T) {
		save := cmd
		save.Save = true
		res, err := h.Handle(ctx, save)
		require.NoError(t, err)
		assert.True(t, res.Value.Saved)
		assert.Equal(t, 1, store.CallCount("periods.Create"))
	})

	t.Run("unknown school", func(t *testing.T) {
		other := cmd
		other.Save = true
		other.SchoolID = uuid.New()
		_, err := h.Handle(ctx, other)
		assert.ErrorIs(t, err, shared.ErrSchoolNotFound)
	})

	t.Run("end before start", func(t *testing.T) {
		bad := cmd
		bad.End = bad.Start.Add(-time.Minute)
		_, err := h.Handle(ctx, bad)
		assert.ErrorIs(t, err, shared.ErrInvalidDates)
	})
}
