package jobs

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

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan Job, 1)
	q := NewQueue("audit", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("sink unavailable")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "leave.submit"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
		assert.NotEmpty(t, job.ID)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	q := NewQueue("audit", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{Type: "leave.decision"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop()
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestQueueRejectsEnqueueWhenNotRunning(t *testing.T) {
	q := NewQueue("audit", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{}))
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		handled []string
	)
	q := NewQueue("audit", func(_ context.Context, job Job) error {
		if job.ID == "first" {
			<-release
		}
		mu.Lock()
		handled = append(handled, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "first"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "second"}))
	require.NoError(t, q.Enqueue(Job{ID: "third"}))

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first", "second", "third"}, handled)
}

func TestQueueEnqueueFailsAfterContextCancel(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("audit", func(ctx context.Context, _ Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, DrainTimeout: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	cancel()

	errs := make(chan error, 3)
	go func() {
		for _, id := range []string{"a", "b", "c"} {
			errs <- q.Enqueue(Job{ID: id, Type: "leave.decision"})
		}
	}()

	rejected := false
	for i := 0; i < 3; i++ {
		select {
		case err := <-errs:
			if err != nil {
				rejected = true
			}
		case <-time.After(time.Second):
			t.Fatal("enqueue blocked after the queue context was cancelled")
		}
	}
	assert.True(t, rejected)

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
	close(release)
}

func TestQueueBlockedEnqueueReturnsOnCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	q := NewQueue("audit", func(context.Context, Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, DrainTimeout: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "b"}))

	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(Job{ID: "c"}) }()

	select {
	case <-blocked:
		t.Fatal("enqueue should wait while the buffer is full")
	case <-time.After(30 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-blocked:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stopped")
	case <-time.After(time.Second):
		t.Fatal("enqueue stayed blocked after cancellation")
	}

	close(release)
	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
}
