package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fast(retries int) Policy {
	return Policy{Retries: retries, Base: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestDelay(t *testing.T) {
	p := Default()
	assert.Equal(t, 200*time.Millisecond, p.Delay(0))
	assert.Equal(t, 400*time.Millisecond, p.Delay(1))
	assert.Equal(t, 5*time.Second, p.Delay(10))
	assert.Equal(t, 5*time.Second, p.Delay(100))
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	n, err := fast(2).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDo_GivesUp(t *testing.T) {
	n, err := fast(2).Do(context.Background(), func(context.Context) error { return errFlaky })
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, n)
}

func TestDo_NotRetryable(t *testing.T) {
	p := fast(5)
	p.Retryable = func(error) bool { return false }
	n, err := p.Do(context.Background(), func(context.Context) error { return errFlaky })
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, n)
}

func TestDo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Retries: 10, Base: time.Hour, Max: time.Hour}
	calls := 0
	n, err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
}
