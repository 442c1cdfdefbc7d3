package telegram

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

func newTestDispatcher(t *testing.T, opts DispatcherOptions) *Dispatcher {
	t.Helper()
	d := NewDispatcher(opts)
	t.Cleanup(d.Close)
	return d
}

func TestDispatcherRunsJobs(t *testing.T) {
	d := newTestDispatcher(t, DispatcherOptions{Workers: 2})

	const jobs = 20
	var (
		wg  sync.WaitGroup
		ran atomic.Int64
	)
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		err := d.Enqueue(context.Background(), "send_text", func() error {
			defer wg.Done()
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.EqualValues(t, jobs, ran.Load())
	assert.EqualValues(t, 0, d.ErrorCount())
}

func TestDispatcherRetriesRetryableErrors(t *testing.T) {
	d := newTestDispatcher(t, DispatcherOptions{
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	var attempts atomic.Int64
	done := make(chan struct{})
	err := d.Enqueue(context.Background(), "send_text", func() error {
		if attempts.Add(1) < 3 {
			return timeoutError{}
		}
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed within retry budget")
	}
	assert.EqualValues(t, 3, attempts.Load())
	assert.EqualValues(t, 0, d.ErrorCount())
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{
		Workers:      1,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})

	var attempts atomic.Int64
	require.NoError(t, d.Enqueue(context.Background(), "send_text", func() error {
		attempts.Add(1)
		return errors.New("telegram: Forbidden (403)")
	}))

	d.Close() // drains the queue
	assert.EqualValues(t, 1, attempts.Load())
	assert.EqualValues(t, 1, d.ErrorCount())
}

func TestDispatcherQueueFull(t *testing.T) {
	d := newTestDispatcher(t, DispatcherOptions{QueueSize: 1, Workers: 1})

	block := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send_text", func() error {
		close(block)
		<-release
		return nil
	}))
	<-block

	// Fill the single queue slot, then overflow it.
	require.NoError(t, d.Enqueue(context.Background(), "send_text", func() error { return nil }))
	err := d.Enqueue(context.Background(), "send_text", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
}

func TestDispatcherClosedQueue(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "send_text", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	d.Close() // idempotent
}

// Concurrent Enqueue calls racing Close must never panic on a closed
// channel; once Close wins they all report ErrQueueClosed.
func TestDispatcherEnqueueDuringCloseIsSafe(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{Workers: 2, QueueSize: 4})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				err := d.Enqueue(context.Background(), "send_text", func() error { return nil })
				if errors.Is(err, ErrQueueClosed) {
					return
				}
			}
		}()
	}

	close(start)
	d.Close()
	wg.Wait()

	err := d.Enqueue(context.Background(), "send_text", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherCloseDrainsQueuedJobs(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{Workers: 1, QueueSize: 8})

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "send_text", func() error {
			ran.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.EqualValues(t, 5, ran.Load())
}
