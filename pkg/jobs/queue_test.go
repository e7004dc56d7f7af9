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

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	require.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var attempts int32
	var mu sync.Mutex
	var failed []Job
	failedCh := make(chan struct{})

	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnFailure: func(ctx context.Context, job Job, err error) {
			mu.Lock()
			failed = append(failed, job)
			mu.Unlock()
			close(failedCh)
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	select {
	case <-failedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("failure handler not called")
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Attempt)
}
