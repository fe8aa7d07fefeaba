package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/pkg/circuitbreaker"
)

// SessionCache stores resolved sessions keyed by username. Commands that
// change a user's memberships or contact details invalidate the entry.
//
// Reads and writes go through a circuit breaker: after repeated Redis
// failures the cache answers with circuitbreaker.ErrCircuitOpen at once,
// and callers treat that like any other cache error.
//
// Invalidate always tries the delete. When it fails, the username is
// remembered as stale in this process: GetSession reports a miss and
// SetSession skips the write until a later delete goes through.
type SessionCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.Breaker

	mu    sync.Mutex
	stale map[string]struct{}
}

// NewSessionCache creates a session cache; ttl <= 0 means 15 minutes.
// opts tune the breaker.
func NewSessionCache(cache *Cache, ttl time.Duration, opts ...circuitbreaker.Option) *SessionCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	defaults := []circuitbreaker.Option{
		circuitbreaker.WithFailureThreshold(3),
		circuitbreaker.WithOpenFor(30 * time.Second),
		// A miss is an answer, not an outage.
		circuitbreaker.WithIsFailure(func(err error) bool { return !errors.Is(err, ErrCacheMiss) }),
	}
	return &SessionCache{
		cache:   cache,
		ttl:     ttl,
		breaker: circuitbreaker.New("session-cache", append(defaults, opts...)...),
		stale:   make(map[string]struct{}),
	}
}

// GetSession returns nil, nil on a miss.
func (c *SessionCache) GetSession(ctx context.Context, username string) (*identity.Session, error) {
	if c.isStale(username) {
		// Whatever Redis holds predates the change; never serve it.
		c.retryDelete(ctx, username)
		return nil, nil
	}

	var s identity.Session
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Get(ctx, SessionKey(username), &s)
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SetSession stores s under its username.
func (c *SessionCache) SetSession(ctx context.Context, s *identity.Session) error {
	if c.isStale(s.Username) {
		return nil
	}
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, SessionKey(s.Username), s, c.ttl)
	})
}

// Invalidate drops the cached session for username. It bypasses the
// breaker; on failure the username stays stale until a delete succeeds.
func (c *SessionCache) Invalidate(ctx context.Context, username string) error {
	if err := c.cache.Delete(ctx, SessionKey(username)); err != nil {
		c.markStale(username)
		return err
	}
	c.clearStale(username)
	return nil
}

// BreakerState reports the state of the cache's circuit breaker.
func (c *SessionCache) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

func (c *SessionCache) retryDelete(ctx context.Context, username string) {
	if err := c.cache.Delete(ctx, SessionKey(username)); err == nil {
		c.clearStale(username)
	}
}

func (c *SessionCache) isStale(username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stale[username]
	return ok
}

func (c *SessionCache) markStale(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale[username] = struct{}{}
}

func (c *SessionCache) clearStale(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stale, username)
}
