package connect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Execute(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond, 5*time.Millisecond)

	calls := 0
	err := policy.Execute(context.Background(), func(int) error {
		calls++
		return errors.New("down")
	}, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	err := NewRetryPolicy(5, time.Millisecond, time.Millisecond).Execute(context.Background(), func(int) error {
		calls++
		return fatal
	}, func(error) bool { return false })

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRetryPolicy(3, time.Hour, time.Hour).Execute(ctx, func(int) error {
		return errors.New("down")
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicy_DelayCapped(t *testing.T) {
	policy := NewRetryPolicy(10, 100*time.Millisecond, time.Second)
	policy.RandomizeFactor = 0

	assert.Equal(t, 100*time.Millisecond, policy.calculateDelay(0))
	assert.Equal(t, 400*time.Millisecond, policy.calculateDelay(2))
	assert.Equal(t, time.Second, policy.calculateDelay(8))
}
