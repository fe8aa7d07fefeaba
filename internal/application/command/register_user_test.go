package command_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/application/command"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/testutil"
	"github.com/schooldesk/schooldesk/pkg/retry"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

type fixedPassCode string

func (p fixedPassCode) Generate() (string, error) { return string(p), nil }

var testNow = time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)

func fastRetrier() *retry.Retrier {
	return retry.New(retry.WithMaxAttempts(5), retry.WithInitialDelay(0), retry.WithJitter(0))
}

func newRegisterHandler(store *testutil.Store, users identity.UserRepository, log *testutil.RecordingLogger) *command.RegisterUserHandler {
	return command.NewRegisterUserHandler(
		users, store.Settings(), plainHasher{}, fixedPassCode("123456"),
		fastRetrier(), timeutil.FixedClock(testNow), log,
	)
}

func TestRegisterUser_StudentGetsSchoolFormat(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	schoolID := uuid.New()
	store.PutSetting(identity.SettingSchoolEmailFormat, &schoolID, "forename.surname@school.org")
	h := newRegisterHandler(store, store.Users(), &testutil.RecordingLogger{})

	res, err := h.Handle(ctx, command.RegisterUserCommand{
		Forename: "Ada", Surname: "Lovelace", Password: "secret",
		UserType: shared.UserTypeStudent, SchoolID: schoolID,
		Roles: []identity.AuthorizationRole{identity.RoleStudent},
	})
	require.NoError(t, err)
	assert.Equal(t, shared.OutcomeSuccess, res.Outcome)

	u, err := store.Users().GetByID(ctx, res.Value)
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace@school.org", u.Username)
	assert.Equal(t, "hashed:secret", u.PasswordHash)
	assert.Equal(t, "Ada", u.AssistantNickname)
	assert.Equal(t, "123456", u.AssistantPassCode)
	assert.True(t, u.PassCodeCreatedAt.Equal(testNow))

	roles, err := store.Users().ListAuthorizationRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []identity.AuthorizationRole{identity.RoleStudent}, roles)

	// Second Ada Lovelace at the same school.
	res, err = h.Handle(ctx, command.RegisterUserCommand{
		Forename: "Ada", Surname: "Lovelace", Password: "secret",
		UserType: shared.UserTypeStudent, SchoolID: schoolID,
	})
	require.NoError(t, err)
	u, err = store.Users().GetByID(ctx, res.Value)
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace.1@school.org", u.Username)
}

// racingUsers loses the first insert to a concurrent writer.
type racingUsers struct {
	identity.UserRepository
	lost int
}

func (r *racingUsers) Create(ctx context.Context, u *identity.User) error {
	if r.lost == 0 {
		r.lost++
		rival := *u
		rival.ID = uuid.New()
		if err := r.UserRepository.Create(ctx, &rival); err != nil {
			return err
		}
		return shared.ErrUsernameTaken
	}
	return r.UserRepository.Create(ctx, u)
}

func TestRegisterUser_RetriesLostReservation(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	users := &racingUsers{UserRepository: store.Users()}
	h := newRegisterHandler(store, users, &testutil.RecordingLogger{})

	res, err := h.Handle(ctx, command.RegisterUserCommand{
		Forename: "Grace", Surname: "Hopper", Password: "pw", UserType: shared.UserTypeParent,
	})
	// Parents use the organisation format, which is missing here.
	assert.Nil(t, res)
	assert.True(t, shared.IsFatal(err))

	store.PutSetting(identity.SettingOrgEmailFormat, nil, "forename.surname@trust.org")
	res, err = h.Handle(ctx, command.RegisterUserCommand{
		Forename: "Grace", Surname: "Hopper", Password: "pw", UserType: shared.UserTypeParent,
	})
	require.NoError(t, err)

	u, err := store.Users().GetByID(ctx, res.Value)
	require.NoError(t, err)
	assert.Equal(t, "grace.hopper.1@trust.org", u.Username)
	assert.Equal(t, 1, users.lost)
}

func TestRegisterUser_ExplicitEmailConflictIsNotRetried(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	h := newRegisterHandler(store, store.Users(), &testutil.RecordingLogger{})
	email := "head@trust.org"

	_, err := h.Handle(ctx, command.RegisterUserCommand{
		Forename: "Mary", Surname: "Somerville", Password: "pw",
		UserType: shared.UserTypeEmployee, Email: &email,
	})
	require.NoError(t, err)

	_, err = h.Handle(ctx, command.RegisterUserCommand{
		Forename: "Mary", Surname: "Somerville", Password: "pw",
		UserType: shared.UserTypeEmployee, Email: &email,
	})
	assert.ErrorIs(t, err, shared.ErrUsernameTaken)
	assert.Equal(t, 2, store.CallCount("users.Create"))
}

func TestRegisterUser_RoleGrantFailureIsWarning(t *testing.T) {
	store := testutil.NewStore()
	store.Fail["users.AddAuthorizationRoles"] = errors.New("deadlock")
	store.PutSetting(identity.SettingOrgEmailFormat, nil, "forename.surname@trust.org")
	log := &testutil.RecordingLogger{}
	h := newRegisterHandler(store, store.Users(), log)

	res, err := h.Handle(context.Background(), command.RegisterUserCommand{
		Forename: "Alan", Surname: "Turing", Password: "pw", UserType: shared.UserTypeParent,
		Roles: []identity.AuthorizationRole{identity.RoleParent},
	})
	require.NoError(t, err)
	assert.True(t, res.IsWarning())
	assert.True(t, strings.HasPrefix(res.Message, command.RolesNotAddedMessage+" "))
	assert.Len(t, log.Warnings(), 1)
}

func TestRegisterUser_Validation(t *testing.T) {
	store := testutil.NewStore()
	h := newRegisterHandler(store, store.Users(), &testutil.RecordingLogger{})
	ctx := context.Background()

	_, err := h.Handle(ctx, command.RegisterUserCommand{Surname: "x", Password: "pw", UserType: shared.UserTypeParent})
	assert.ErrorIs(t, err, shared.ErrEmptyName)

	_, err = h.Handle(ctx, command.RegisterUserCommand{Forename: "x", Surname: "y", UserType: shared.UserTypeParent})
	assert.ErrorIs(t, err, shared.ErrEmptyPassword)

	_, err = h.Handle(ctx, command.RegisterUserCommand{Forename: "x", Surname: "y", Password: "pw"})
	assert.ErrorIs(t, err, shared.ErrInvalidUserType)

	_, err = h.Handle(ctx, command.RegisterUserCommand{Forename: "x", Surname: "y", Password: "pw", UserType: shared.UserTypeStudent})
	assert.ErrorIs(t, err, shared.ErrEmptySchoolID)

	assert.Zero(t, store.CallCount("users.Create"))
}
