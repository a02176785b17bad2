package helpers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollUntilSucceedsImmediately(t *testing.T) {
	var calls int32
	ok := PollUntil(context.Background(), time.Hour, time.Hour, func(context.Context) bool {
		atomic.AddInt32(&calls, 1)
		return true
	})
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPollUntilSucceedsEventually(t *testing.T) {
	var calls int32
	ok := PollUntil(context.Background(), time.Millisecond, time.Second, func(context.Context) bool {
		return atomic.AddInt32(&calls, 1) >= 3
	})
	assert.True(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPollUntilTimesOut(t *testing.T) {
	start := time.Now()
	ok := PollUntil(context.Background(), time.Millisecond*5, time.Millisecond*50, func(context.Context) bool {
		return false
	})
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond*50)
}

func TestPollUntilWithZeroTimeoutTriesOnce(t *testing.T) {
	var calls int32
	ok := PollUntil(context.Background(), time.Millisecond, 0, func(context.Context) bool {
		atomic.AddInt32(&calls, 1)
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPollUntilStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond * 20)
		cancel()
	}()
	ok := PollUntil(ctx, time.Millisecond, time.Hour, func(context.Context) bool { return false })
	assert.False(t, ok)
}
