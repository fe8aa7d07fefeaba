package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

var errDown = errors.New("connection refused")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)}
	var transitions []string
	b := New("session-cache",
		WithFailureThreshold(2),
		WithOpenFor(time.Minute),
		WithClock(clock),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		}),
	)

	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State())

	err := b.Execute(ctx, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, Rejected(err))

	clock.now = clock.now.Add(time.Minute)
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)}
	b := New("session-cache", WithFailureThreshold(1), WithOpenFor(time.Second), WithClock(clock))

	_ = b.Execute(ctx, fail)
	clock.now = clock.now.Add(time.Second)
	assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Execute(ctx, ok), ErrCircuitOpen)
}

func TestBreaker_IsFailureFiltersErrors(t *testing.T) {
	ctx := context.Background()
	miss := errors.New("miss")
	b := New("session-cache",
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, miss) }),
	)

	assert.ErrorIs(t, b.Execute(ctx, func(context.Context) error { return miss }), miss)
	assert.Equal(t, StateClosed, b.State())

	b.Reset()
	assert.Equal(t, "session-cache", b.Name())
}
