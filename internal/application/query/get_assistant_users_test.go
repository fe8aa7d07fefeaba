package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/internal/application/query"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/testutil"
)

func seedUser(t *testing.T, store *testutil.Store, username string) *identity.User {
	t.Helper()
	u, err := identity.NewUser(identity.NewUserParams{
		Username:          username,
		PasswordHash:      "hash",
		AssistantNickname: "nick",
		AssistantPassCode: "424242",
		Now:               time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func TestAssistantUsers_ForDevice(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	h := query.NewAssistantUsersHandler(store.Users(), &testutil.RecordingLogger{})

	u := seedUser(t, store, "grace.hopper")
	require.NoError(t, store.Users().RegisterDevice(ctx, identity.Device{DeviceID: "kitchen", UserID: u.ID}))
	require.NoError(t, store.Users().RegisterDevice(ctx, identity.Device{DeviceID: "orphan", UserID: uuid.New()}))

	res, err := h.ForDevice(ctx, "kitchen")
	require.NoError(t, err)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "grace.hopper", res.Value[0].Username)
	assert.Equal(t, "424242", res.Value[0].PassCode)

	res, err = h.ForDevice(ctx, "garage")
	require.NoError(t, err)
	assert.True(t, res.IsWarning())
	assert.Equal(t, query.DeviceNotRegisteredMessage, res.Message)

	res, err = h.ForDevice(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, query.DeviceHasNoUsersMessage, res.Message)

	_, err = h.ForDevice(ctx, " ")
	assert.ErrorIs(t, err, shared.ErrEmptyDeviceID)
}

func TestAssistantUsers_ForUsernameAndAll(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	h := query.NewAssistantUsersHandler(store.Users(), &testutil.RecordingLogger{})

	seedUser(t, store, "b.user")
	seedUser(t, store, "a.user")

	dto, err := h.ForUsername(ctx, "a.user")
	require.NoError(t, err)
	assert.Equal(t, "nick", dto.Nickname)

	_, err = h.ForUsername(ctx, "c.user")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	all, err := h.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.user", all[0].Username)
}
