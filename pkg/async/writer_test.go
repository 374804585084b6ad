package async_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/async"
)

func TestWriter_RunsJobsInOrder(t *testing.T) {
	w := async.NewWriter()

	var mu sync.Mutex
	var got []int
	for i := range 10 {
		err := w.Submit(async.Job{Name: "test", Run: func(ctx context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}})
		require.NoError(t, err)
	}

	require.NoError(t, w.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestWriter_RetriesFailedJobs(t *testing.T) {
	w := async.NewWriter(async.WithRetry(3, time.Millisecond))

	var calls atomic.Int32
	require.NoError(t, w.Submit(async.Job{Name: "flaky", Run: func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("temporary")
		}
		return nil
	}}))

	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWriter_GivesUpAfterAttempts(t *testing.T) {
	w := async.NewWriter(async.WithRetry(2, time.Millisecond))

	var calls atomic.Int32
	require.NoError(t, w.Submit(async.Job{Name: "broken", Run: func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("permanent")
	}}))

	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWriter_QueueFull(t *testing.T) {
	w := async.NewWriter(async.WithBufferSize(1))

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, w.Submit(async.Job{Name: "block", Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	require.NoError(t, w.Submit(async.Job{Name: "queued", Run: func(ctx context.Context) error { return nil }}))
	err := w.Submit(async.Job{Name: "dropped", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, async.ErrQueueFull)

	close(release)
	require.NoError(t, w.Close(context.Background()))
}

func TestWriter_SubmitAfterClose(t *testing.T) {
	w := async.NewWriter()
	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))

	err := w.Submit(async.Job{Name: "late", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, async.ErrClosed)
}
