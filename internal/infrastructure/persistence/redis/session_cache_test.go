package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/config"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/circuitbreaker"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheFromClient(client), mr
}

func TestSessionCache_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	sessions := NewSessionCache(cache, time.Minute)

	got, err := sessions.GetSession(ctx, "ada.lovelace@school.org")
	require.NoError(t, err)
	assert.Nil(t, got)

	s := &identity.Session{
		UserID:   uuid.New(),
		Username: "ada.lovelace@school.org",
		Schools: []identity.SchoolView{{
			SchoolID: uuid.New(), UserType: shared.UserTypeStudent, UserTypeID: uuid.New(), Roles: []string{},
		}},
	}
	require.NoError(t, sessions.SetSession(ctx, s))

	got, err = sessions.GetSession(ctx, s.Username)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.UserID, got.UserID)
	require.Len(t, got.Schools, 1)
	assert.Equal(t, shared.UserTypeStudent, got.Schools[0].UserType)
	assert.NotNil(t, got.Schools[0].Roles)

	mr.FastForward(2 * time.Minute)
	got, err = sessions.GetSession(ctx, s.Username)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	sessions := NewSessionCache(cache, 0)

	s := &identity.Session{UserID: uuid.New(), Username: "jsmith", Schools: []identity.SchoolView{}}
	require.NoError(t, sessions.SetSession(ctx, s))

	ttl, err := cache.TTL(ctx, SessionKey("jsmith"))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, ttl)

	require.NoError(t, sessions.Invalidate(ctx, "jsmith"))
	ok, err := cache.Exists(ctx, SessionKey("jsmith"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionCache_BreakerOpensOnOutage(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	var opened []string
	sessions := NewSessionCache(cache, time.Minute,
		circuitbreaker.WithOnStateChange(func(name string, _, to circuitbreaker.State) {
			opened = append(opened, name+":"+to.String())
		}))

	// Misses never trip the breaker.
	for i := 0; i < 5; i++ {
		got, err := sessions.GetSession(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, circuitbreaker.StateClosed, sessions.BreakerState())

	mr.SetError("LOADING redis is loading the dataset in memory")
	for i := 0; i < 3; i++ {
		_, err := sessions.GetSession(ctx, "jsmith")
		require.Error(t, err)
		assert.False(t, circuitbreaker.Rejected(err))
	}
	assert.Equal(t, circuitbreaker.StateOpen, sessions.BreakerState())
	assert.Equal(t, []string{"session-cache:open"}, opened)

	mr.SetError("")
	_, err := sessions.GetSession(ctx, "jsmith")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

// openBreaker caches a session for jsmith and then trips the breaker with
// three failed reads.
func openBreaker(t *testing.T, mr *miniredis.Miniredis, clock *manualClock) (*SessionCache, *identity.Session) {
	t.Helper()
	ctx := context.Background()
	cache := NewCacheFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { _ = cache.Close() })
	sessions := NewSessionCache(cache, 15*time.Minute, circuitbreaker.WithClock(clock))

	old := &identity.Session{UserID: uuid.New(), Username: "jsmith", Schools: []identity.SchoolView{{
		SchoolID: uuid.New(), UserType: shared.UserTypeEmployee, UserTypeID: uuid.New(), Roles: []string{"Teacher"},
	}}}
	require.NoError(t, sessions.SetSession(ctx, old))

	mr.SetError("LOADING redis is loading the dataset in memory")
	for i := 0; i < 3; i++ {
		_, err := sessions.GetSession(ctx, "jsmith")
		require.Error(t, err)
	}
	require.Equal(t, circuitbreaker.StateOpen, sessions.BreakerState())
	return sessions, old
}

func TestSessionCache_InvalidateWhileBreakerOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	clock := &manualClock{now: time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)}
	sessions, _ := openBreaker(t, mr, clock)

	// Redis is back but the breaker has not cooled down yet.
	mr.SetError("")
	require.NoError(t, sessions.Invalidate(ctx, "jsmith"))
	assert.False(t, mr.Exists(SessionKey("jsmith")))

	clock.now = clock.now.Add(time.Minute)
	got, err := sessions.GetSession(ctx, "jsmith")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionCache_FailedInvalidateNeverServesOldEntry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	clock := &manualClock{now: time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)}
	sessions, old := openBreaker(t, mr, clock)

	require.Error(t, sessions.Invalidate(ctx, "jsmith"))

	mr.SetError("")
	clock.now = clock.now.Add(time.Minute)
	require.True(t, mr.Exists(SessionKey("jsmith")))

	got, err := sessions.GetSession(ctx, "jsmith")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(SessionKey("jsmith")))

	// Once the delete has gone through, the cache works normally again.
	fresh := &identity.Session{UserID: old.UserID, Username: "jsmith", Schools: []identity.SchoolView{}}
	require.NoError(t, sessions.SetSession(ctx, fresh))
	got, err = sessions.GetSession(ctx, "jsmith")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Schools)
}

func TestSessionCache_SkipsWritesWhileStale(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	clock := &manualClock{now: time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)}
	sessions, old := openBreaker(t, mr, clock)

	require.Error(t, sessions.Invalidate(ctx, "jsmith"))
	mr.SetError("")
	clock.now = clock.now.Add(time.Minute)

	require.NoError(t, sessions.SetSession(ctx, old))
	raw, err := mr.Get(SessionKey("jsmith"))
	require.NoError(t, err)
	assert.NotEmpty(t, raw, "the entry cached before the change is still in Redis")

	got, err := sessions.GetSession(ctx, "jsmith")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	assert.ErrorIs(t, cache.Set(ctx, "", "v", time.Second), ErrCacheKeyEmpty)
	assert.ErrorIs(t, cache.Set(ctx, "k", nil, time.Second), ErrCacheNilValue)
	assert.ErrorIs(t, cache.Set(ctx, "k", "v", -time.Second), ErrCacheInvalidTTL)

	var out string
	assert.ErrorIs(t, cache.Get(ctx, "missing", &out), ErrCacheMiss)

	require.NoError(t, cache.Client().Set(ctx, "raw", "{not json", 0).Err())
	assert.ErrorIs(t, cache.Get(ctx, "raw", &out), ErrCacheSerialization)
}

func TestNewCache_ConnectsViaURL(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewCache(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer cache.Close()
	assert.NoError(t, cache.Ping(context.Background()))

	_, err = Options(config.RedisConfig{URL: "://bad"})
	assert.ErrorIs(t, err, ErrCacheConnection)
}
