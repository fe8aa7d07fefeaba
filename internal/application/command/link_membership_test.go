package command_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/testutil"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

func TestLinkMembership(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	sessions := &invalidations{}
	h := command.NewLinkMembershipHandler(
		store.Users(), store.Memberships(), store.Employees(), store.Students(),
		store, sessions, timeutil.FixedClock(testNow), &testutil.RecordingLogger{},
	)

	u, err := identity.NewUser(identity.NewUserParams{Username: "ada.lovelace", PasswordHash: "h", Now: testNow})
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(ctx, u))

	schoolID := uuid.New()
	stu := &school.Student{ID: uuid.New(), SchoolID: schoolID, Forename: "Ada", Surname: "Lovelace"}
	require.NoError(t, store.Students().Create(ctx, stu))

	cmd := command.LinkMembershipCommand{
		UserID: u.ID, SchoolID: schoolID, UserType: shared.UserTypeStudent, UserTypeID: stu.ID,
	}

	t.Run("links existing student", func(t *testing.T) {
		res, err := h.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, res.Value)

		ms, err := store.Memberships().ListByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, ms, 1)
		assert.Equal(t, stu.ID, ms[0].UserTypeID)
		assert.Equal(t, invalidations{"ada.lovelace"}, *sessions)
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		_, err := h.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrMembershipExists)
		assert.True(t, shared.IsAlreadyExists(err))
	})

	t.Run("missing principal is refused", func(t *testing.T) {
		missing := cmd
		missing.UserType = shared.UserTypeEmployee
		missing.UserTypeID = uuid.New()
		_, err := h.Handle(ctx, missing)
		assert.ErrorIs(t, err, shared.ErrPrincipalNotFound)
	})

	t.Run("parents cannot be linked", func(t *testing.T) {
		parent := cmd
		parent.UserType = shared.UserTypeParent
		_, err := h.Handle(ctx, parent)
		assert.ErrorIs(t, err, shared.ErrInvalidUserType)
	})
}
