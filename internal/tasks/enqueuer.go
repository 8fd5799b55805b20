package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/hibiken/asynq"
)

// Enqueuer publishes background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// AsynqEnqueuer publishes tasks to Redis through an asynq client.
type AsynqEnqueuer struct {
	Client *asynq.Client
	Queue  string
}

// Enqueue implements Enqueuer. A task whose id is already queued is treated
// as delivered.
func (e AsynqEnqueuer) Enqueue(ctx context.Context, task *asynq.Task) error {
	if e.Client == nil {
		return errors.New("tasks: asynq client not configured")
	}
	var opts []asynq.Option
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	_, err := e.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Nop drops every task. It is used when Redis is not configured.
type Nop struct{}

// Enqueue implements Enqueuer.
func (Nop) Enqueue(context.Context, *asynq.Task) error { return nil }

// Recorder keeps enqueued tasks in memory.
type Recorder struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	Err   error
}

// Enqueue implements Enqueuer.
func (r *Recorder) Enqueue(_ context.Context, task *asynq.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.tasks = append(r.tasks, task)
	return nil
}

// Tasks returns the recorded tasks in enqueue order.
func (r *Recorder) Tasks() []*asynq.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*asynq.Task(nil), r.tasks...)
}
