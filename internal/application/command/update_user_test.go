package command_test

import (
	"context"
	"testing"
	"time"

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

type invalidations []string

func (i *invalidations) Invalidate(_ context.Context, username string) error {
	*i = append(*i, username)
	return nil
}

type updateFixture struct {
	store    *testutil.Store
	user     *identity.User
	schoolID uuid.UUID
	sessions *invalidations
}

func newUpdateFixture(t *testing.T) *updateFixture {
	t.Helper()
	store := testutil.NewStore()
	u, err := identity.NewUser(identity.NewUserParams{Username: "ada.lovelace", PasswordHash: "old", Now: testNow})
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(context.Background(), u))
	return &updateFixture{store: store, user: u, schoolID: uuid.New(), sessions: &invalidations{}}
}

func (f *updateFixture) employee(t *testing.T, withContact bool) (*school.Employee, *school.ContactDetails) {
	t.Helper()
	ctx := context.Background()
	emp := &school.Employee{ID: uuid.New(), SchoolID: f.schoolID, Forename: "Ada", Surname: "Lovelace"}
	var cd *school.ContactDetails
	if withContact {
		cd = &school.ContactDetails{ID: uuid.New(), PreferredEmail: "old@school.org"}
		require.NoError(t, f.store.ContactDetails().Create(ctx, cd))
		emp.ContactDetailsID = &cd.ID
	}
	require.NoError(t, f.store.Employees().Create(ctx, emp))
	m, err := identity.NewMembership(f.user.ID, f.schoolID, shared.UserTypeEmployee, emp.ID, testNow)
	require.NoError(t, err)
	require.NoError(t, f.store.Memberships().Create(ctx, m))
	return emp, cd
}

func (f *updateFixture) handler() *command.UpdateUserHandler {
	later := testNow.Add(48 * time.Hour)
	return command.NewUpdateUserHandler(
		f.store.Users(), f.store.Memberships(), f.store.Employees(), f.store.ContactDetails(),
		plainHasher{}, f.store, f.sessions, timeutil.FixedClock(later), &testutil.RecordingLogger{},
	)
}

func TestUpdateUser_RewritesUserAndEmployeeContacts(t *testing.T) {
	ctx := context.Background()
	f := newUpdateFixture(t)
	_, cd := f.employee(t, true)

	res, err := f.handler().Handle(ctx, command.UpdateUserCommand{
		UserID: f.user.ID, Password: "new", PreferredEmail: "ada@school.org", PreferredPhone: "0123",
	})
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, res.Value)

	u, err := f.store.Users().GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:new", u.PasswordHash)
	assert.Equal(t, "ada@school.org", u.Email)
	assert.Equal(t, "0123", u.Phone)
	assert.Equal(t, shared.ContactMethodEmail, u.PreferredContact)
	require.NotNil(t, u.LastLoginAt)
	assert.True(t, u.LastLoginAt.After(testNow))

	got, err := f.store.ContactDetails().GetByID(ctx, cd.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@school.org", got.PreferredEmail)
	assert.Equal(t, "0123", got.PreferredPhone)

	assert.Equal(t, invalidations{"ada.lovelace"}, *f.sessions)
	assert.Equal(t, 1, f.store.CallCount("tx.WithTx"))
}

func TestUpdateUser_MissingContactDetails(t *testing.T) {
	f := newUpdateFixture(t)
	f.employee(t, false)

	_, err := f.handler().Handle(context.Background(), command.UpdateUserCommand{UserID: f.user.ID, Password: "new"})
	assert.ErrorIs(t, err, shared.ErrContactDetailsGone)
	assert.Equal(t, "Contact details not found", shared.ErrContactDetailsGone.Message)
	assert.Zero(t, f.store.CallCount("users.Update"))
	assert.Empty(t, *f.sessions)
}

func TestUpdateUser_Errors(t *testing.T) {
	f := newUpdateFixture(t)
	h := f.handler()

	_, err := h.Handle(context.Background(), command.UpdateUserCommand{UserID: uuid.New(), Password: "new"})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	_, err = h.Handle(context.Background(), command.UpdateUserCommand{UserID: f.user.ID})
	assert.ErrorIs(t, err, shared.ErrEmptyPassword)

	_, err = h.Handle(context.Background(), command.UpdateUserCommand{Password: "new"})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}
