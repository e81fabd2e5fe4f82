package jobs

import (
	"context"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// Task is a unit of background work run on a cron schedule.
type Task interface {
	Name() string
	// Schedule is a robfig/cron expression such as "@every 1h".
	Schedule() string
	Run(ctx context.Context) error
}

// TaskExecutor runs tasks on their schedules. A task whose previous run is
// still in progress is skipped rather than stacked.
type TaskExecutor struct {
	cron    *cron.Cron
	tasks   []Task
	running mapset.Set[string]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewTaskExecutor(tasks ...Task) *TaskExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskExecutor{
		cron:    cron.New(),
		tasks:   tasks,
		running: mapset.NewSet[string](),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start schedules every task and starts the cron loop.
func (t *TaskExecutor) Start() error {
	for _, task := range t.tasks {
		err := t.cron.AddFunc(task.Schedule(), func() {
			t.RunTask(task)
		})
		if err != nil {
			return fmt.Errorf("schedule task %s: %w", task.Name(), err)
		}
		logrus.Infof("scheduled task %s: %s", task.Name(), task.Schedule())
	}

	t.cron.Start()
	return nil
}

// RunTask runs a task once unless it is already running and reports whether
// it ran.
func (t *TaskExecutor) RunTask(task Task) bool {
	if t.ctx.Err() != nil {
		return false
	}
	if !t.running.Add(task.Name()) {
		logrus.Warnf("task %s is already running", task.Name())
		return false
	}
	t.wg.Add(1)
	defer func() {
		t.running.Remove(task.Name())
		t.wg.Done()
	}()

	if err := task.Run(t.ctx); err != nil {
		logrus.Errorf("task %s failed: %v", task.Name(), err)
	}
	return true
}

// Stop halts the schedule, cancels running tasks and waits for them.
func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
	t.cancel()
	t.wg.Wait()
}
