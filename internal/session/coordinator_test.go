package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwait_SingleCaller(t *testing.T) {
	var calls int32
	c := NewCoordinator(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	err := c.Await(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, c.Refreshing())
}

func TestAwait_ConcurrentCallersShareOneRefresh(t *testing.T) {
	const callers = 16

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	c := NewCoordinator(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return nil
	})

	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.Await(context.Background())
	}()

	// Wait until the first caller holds the in-flight refresh, then pile
	// the rest behind it.
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Await(context.Background())
		}(i)
	}

	// Give the joiners a moment to queue before the refresh settles.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, c.Refreshing())
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i, err := range errs {
		assert.NoErrorf(t, err, "caller %d", i)
	}
	assert.False(t, c.Refreshing())
}

func TestAwait_FailurePropagatesToAllCallers(t *testing.T) {
	const callers = 8
	refreshErr := errors.New("refresh token expired")

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	c := NewCoordinator(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return refreshErr
	})

	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.Await(context.Background())
	}()
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Await(context.Background())
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i, err := range errs {
		assert.ErrorIsf(t, err, refreshErr, "caller %d", i)
	}
}

func TestAwait_SequentialCallsRefreshAgain(t *testing.T) {
	var calls int32
	c := NewCoordinator(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	require.NoError(t, c.Await(context.Background()))
	require.NoError(t, c.Await(context.Background()))

	// Coalescing applies to concurrent callers only; back-to-back expiries
	// each get their own refresh.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
