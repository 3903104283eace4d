package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boydwold/spellar-vault/pkg/core"
	"github.com/boydwold/spellar-vault/pkg/pipeline"
)

// runnerFunc adapts a function to pipeline.Runner.
type runnerFunc func(ctx context.Context, fields core.Fields) (pipeline.Result, error)

func (f runnerFunc) Process(ctx context.Context, fields core.Fields) (pipeline.Result, error) {
	return f(ctx, fields)
}

// collector gathers results delivered to the pool hook.
type collector struct {
	mu      sync.Mutex
	results []pipeline.Result
}

func (c *collector) add(r pipeline.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) all() []pipeline.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pipeline.Result(nil), c.results...)
}

func TestPool_ProcessesAndReports(t *testing.T) {
	var got collector
	runner := runnerFunc(func(_ context.Context, fields core.Fields) (pipeline.Result, error) {
		return pipeline.Result{Stem: fields["title"].(string)}, nil
	})
	pool := pipeline.NewPool(runner, pipeline.WithWorkers(2), pipeline.WithResultHook(got.add))
	pool.Start(context.Background())

	id, err := pool.Submit(core.Fields{"title": "Weekly Sync"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, pool.Stop(context.Background()))

	results := got.all()
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].TaskID)
	assert.Equal(t, "Weekly Sync", results[0].Stem)
	assert.NoError(t, results[0].Err)

	state := pool.State().(pipeline.PoolState)
	assert.Equal(t, int64(1), state.Processed)
	assert.Zero(t, state.Failed)
	assert.True(t, state.Closed)
	assert.Equal(t, "pool", pool.ComponentType())
}

func TestPool_QueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	runner := runnerFunc(func(context.Context, core.Fields) (pipeline.Result, error) {
		started <- struct{}{}
		<-release
		return pipeline.Result{}, nil
	})
	pool := pipeline.NewPool(runner, pipeline.WithWorkers(1), pipeline.WithQueueSize(1))
	pool.Start(context.Background())

	_, err := pool.Submit(core.Fields{})
	require.NoError(t, err)
	<-started

	_, err = pool.Submit(core.Fields{})
	require.NoError(t, err, "second meeting waits in the queue")

	_, err = pool.Submit(core.Fields{})
	assert.ErrorIs(t, err, core.ErrQueueFull)

	close(release)
	require.NoError(t, pool.Stop(context.Background()))
}

func TestPool_RecoversPanics(t *testing.T) {
	var got collector
	calls := 0
	runner := runnerFunc(func(context.Context, core.Fields) (pipeline.Result, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return pipeline.Result{Stem: "after"}, nil
	})
	pool := pipeline.NewPool(runner, pipeline.WithWorkers(1), pipeline.WithResultHook(got.add))
	pool.Start(context.Background())

	_, err := pool.Submit(core.Fields{})
	require.NoError(t, err)
	_, err = pool.Submit(core.Fields{})
	require.NoError(t, err)
	require.NoError(t, pool.Stop(context.Background()))

	results := got.all()
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, pipeline.ErrTaskPanic)
	assert.Contains(t, results[0].Err.Error(), "boom")
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "after", results[1].Stem)
	assert.Equal(t, int64(1), pool.State().(pipeline.PoolState).Failed)
}

func TestPool_ErrorsAreCaptured(t *testing.T) {
	var got collector
	runner := runnerFunc(func(context.Context, core.Fields) (pipeline.Result, error) {
		return pipeline.Result{Stem: "s"}, core.ErrArtifactWrite
	})
	pool := pipeline.NewPool(runner, pipeline.WithResultHook(got.add))
	pool.Start(context.Background())

	_, err := pool.Submit(core.Fields{})
	require.NoError(t, err)
	require.NoError(t, pool.Stop(context.Background()))

	results := got.all()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, core.ErrArtifactWrite)
	assert.Equal(t, "s", results[0].Stem)
}

func TestPool_StopDrainsQueue(t *testing.T) {
	var got collector
	runner := runnerFunc(func(context.Context, core.Fields) (pipeline.Result, error) {
		time.Sleep(5 * time.Millisecond)
		return pipeline.Result{}, nil
	})
	pool := pipeline.NewPool(runner, pipeline.WithWorkers(1), pipeline.WithQueueSize(10), pipeline.WithResultHook(got.add))

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	for i := 0; i < 5; i++ {
		_, err := pool.Submit(core.Fields{})
		require.NoError(t, err)
	}
	// Cancelling the start context must not abort accepted work.
	cancel()

	require.NoError(t, pool.Stop(context.Background()))
	assert.Len(t, got.all(), 5)

	_, err := pool.Submit(core.Fields{})
	assert.True(t, errors.Is(err, pipeline.ErrPoolClosed))
	assert.NoError(t, pool.Stop(context.Background()), "Stop is idempotent")
}

func TestPool_StopRespectsDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	runner := runnerFunc(func(context.Context, core.Fields) (pipeline.Result, error) {
		close(started)
		<-release
		return pipeline.Result{}, nil
	})
	pool := pipeline.NewPool(runner, pipeline.WithWorkers(1))
	pool.Start(context.Background())

	_, err := pool.Submit(core.Fields{})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Stop(ctx), context.DeadlineExceeded)
}
