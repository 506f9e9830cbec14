package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/queue"
)

type recordingRunner struct {
	mu   sync.Mutex
	seen []billing.Task
	err  error
}

func (r *recordingRunner) Handle(_ context.Context, task billing.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, task)
	return r.err
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestWorkerPool_RunOnceAcksHandledTask(t *testing.T) {
	clk := newClock()
	q := queue.NewMemoryQueue(time.Minute, clk.Now)
	runner := &recordingRunner{}
	pool := billing.NewWorkerPool(q, runner, nil, billing.WorkerConfig{Concurrency: 1})
	ctx := context.Background()

	worked, err := pool.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, worked)

	require.NoError(t, q.Enqueue(ctx, billing.Task{Kind: billing.TaskSubmit, InvoiceID: invoiceID}))
	worked, err = pool.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, worked)
	assert.Equal(t, 1, runner.count())

	clk.Advance(2 * time.Minute)
	worked, err = pool.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, worked, "confirmada, no se reentrega")
}

func TestWorkerPool_FailedTaskIsRedelivered(t *testing.T) {
	clk := newClock()
	q := queue.NewMemoryQueue(time.Minute, clk.Now)
	runner := &recordingRunner{err: errors.New("redis caído")}
	pool := billing.NewWorkerPool(q, runner, nil, billing.WorkerConfig{Concurrency: 1})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, billing.Task{Kind: billing.TaskPoll, InvoiceID: invoiceID}))
	worked, err := pool.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, worked)

	clk.Advance(2 * time.Minute)
	worked, err = pool.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, worked)
	assert.Equal(t, 2, runner.count())
}

func TestWorkerPool_RunStopsOnCancel(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute, nil)
	runner := &recordingRunner{}
	pool := billing.NewWorkerPool(q, runner, nil, billing.WorkerConfig{Concurrency: 3, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(ctx, billing.Task{Kind: billing.TaskSubmit, InvoiceID: invoiceID}))
	}

	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	assert.Eventually(t, func() bool { return runner.count() == 10 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("el pool no se detuvo")
	}
}
