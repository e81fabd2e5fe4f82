package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/grantcore/internal/metrics"
	"github.com/emrgen/grantcore/internal/tester"
	"github.com/emrgen/grantcore/internal/trend"
	"github.com/emrgen/grantcore/internal/vector"
)

type blockingTask struct {
	started chan struct{}
	stopped chan struct{}
}

func (b *blockingTask) Name() string     { return "blocking" }
func (b *blockingTask) Schedule() string { return "@every 1h" }

func (b *blockingTask) Run(ctx context.Context) error {
	close(b.started)
	<-ctx.Done()
	close(b.stopped)
	return ctx.Err()
}

func TestTaskExecutor_SkipsOverlappingRuns(t *testing.T) {
	tester.Quiet(t)
	task := &blockingTask{started: make(chan struct{}), stopped: make(chan struct{})}
	executor := NewTaskExecutor(task)
	require.NoError(t, executor.Start())

	ran := make(chan bool)
	go func() { ran <- executor.RunTask(task) }()
	<-task.started

	assert.False(t, executor.RunTask(task))

	executor.Stop()
	<-task.stopped
	assert.True(t, <-ran)

	// nothing runs after stop
	assert.False(t, executor.RunTask(task))
}

type badSchedule struct{ blockingTask }

func (badSchedule) Schedule() string { return "every now and then" }

func TestTaskExecutor_BadSchedule(t *testing.T) {
	tester.Quiet(t)
	executor := NewTaskExecutor(&badSchedule{})
	err := executor.Start()
	assert.ErrorContains(t, err, "blocking")
	executor.Stop()
}

type snapshot []vector.Entry

func (s snapshot) Snapshot() []vector.Entry { return s }

type sinkFunc func(ctx context.Context, report *trend.Report) error

func (f sinkFunc) Emit(ctx context.Context, report *trend.Report) error { return f(ctx, report) }

func TestTrendTask(t *testing.T) {
	tester.Quiet(t)
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	entries := make(snapshot, 6)
	for i := range entries {
		entries[i] = vector.Entry{
			ID:        fmt.Sprintf("e%d", i),
			Embedding: []float32{1, float32(i) * 0.01, 0},
			Meta:      vector.Meta{PublishedAt: at},
		}
	}

	var got *trend.Report
	sinkErr := error(nil)
	task := NewTrendTask("@daily", entries, trend.Aggregator{}, sinkFunc(func(_ context.Context, report *trend.Report) error {
		got = report
		return sinkErr
	}))
	assert.Equal(t, "@daily", task.Schedule())

	ok := testutil.ToFloat64(metrics.TrendRuns.WithLabelValues("ok"))
	require.NoError(t, task.Run(context.Background()))
	require.NotNil(t, got)
	assert.Equal(t, 6, got.Entries)
	assert.Equal(t, ok+1, testutil.ToFloat64(metrics.TrendRuns.WithLabelValues("ok")))

	sinkErr = errors.New("sink down")
	failed := testutil.ToFloat64(metrics.TrendRuns.WithLabelValues("error"))
	assert.ErrorIs(t, task.Run(context.Background()), sinkErr)
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.TrendRuns.WithLabelValues("error")))
}

type decayer struct {
	halfLife time.Duration
	now      time.Time
}

func (d *decayer) Decay(_ context.Context, halfLife time.Duration, now time.Time) (int, error) {
	d.halfLife, d.now = halfLife, now
	return 3, nil
}

func TestDecayTask(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := &decayer{}
	task := NewDecayTask("@hourly", d, 30*24*time.Hour)
	task.now = func() time.Time { return now }

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 30*24*time.Hour, d.halfLife)
	assert.Equal(t, now, d.now)
}

type rebuilder struct {
	calls int
	err   error
}

func (r *rebuilder) RebuildIfNeeded(context.Context) (bool, error) {
	r.calls++
	return r.err == nil, r.err
}

func TestIndexRebuildTask(t *testing.T) {
	tester.Quiet(t)
	r := &rebuilder{}
	task := NewIndexRebuildTask("@every 10m", r)

	require.NoError(t, task.Run(context.Background()))
	r.err = errors.New("boom")
	assert.Error(t, task.Run(context.Background()))
	assert.Equal(t, 2, r.calls)
}
