package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConflict = errors.New("duplicate key")

func fastRetrier(n int) *Retrier {
	return New(WithMaxAttempts(n), WithInitialDelay(0), WithJitter(0))
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastRetrier(5).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errConflict)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := fastRetrier(5).Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(boom)
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_PlainErrorNotRetried(t *testing.T) {
	calls := 0
	err := fastRetrier(5).Do(context.Background(), func(context.Context) error {
		calls++
		return errConflict
	})

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 1, calls)
}

func TestDo_Exhausted(t *testing.T) {
	var seen []int
	r := New(
		WithMaxAttempts(3),
		WithInitialDelay(0),
		WithJitter(0),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { seen = append(seen, attempt) }),
	)

	err := r.Do(context.Background(), func(context.Context) error {
		return Retryable(errConflict)
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_RetryIf(t *testing.T) {
	calls := 0
	r := New(WithMaxAttempts(4), WithInitialDelay(0), WithRetryIf(func(err error) bool {
		return errors.Is(err, errConflict)
	}))

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errConflict
	})

	assert.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastRetrier(3).Do(ctx, func(context.Context) error {
		t.Fatal("operation must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), fastRetrier(3), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Retryable(errConflict)
		}
		return "ada.lovelace.1", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace.1", v)
}

func TestDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithMaxDelay(250*time.Millisecond), WithJitter(0))
	assert.Equal(t, 100*time.Millisecond, r.delay(1))
	assert.Equal(t, 200*time.Millisecond, r.delay(2))
	assert.Equal(t, 250*time.Millisecond, r.delay(3))
}

func TestUsernameReservationRetrier_Default(t *testing.T) {
	assert.Equal(t, 5, UsernameReservationRetrier(0).MaxAttempts())
	assert.Equal(t, 2, UsernameReservationRetrier(2).MaxAttempts())
}
