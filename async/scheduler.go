package async

import (
	"context"
	"errors"
	"sync"
)

// ErrTaskOverwritten is passed to the result function of a task that was
// replaced in the queue before it had a chance to run.
var ErrTaskOverwritten = errors.New("task overwritten")

// ReplacementPolicy defines what happens when a task of the same type is
// enqueued while a previous one is still queued or running.
type ReplacementPolicy int

const (
	// ReplacementPolicyCancelOld cancels the queued or running task of the
	// same type and schedules the new one.
	ReplacementPolicyCancelOld ReplacementPolicy = iota
	// ReplacementPolicyIgnoreNew drops the new task if one of the same type
	// is already queued or running.
	ReplacementPolicyIgnoreNew
)

type TaskType struct {
	ID     int64
	Policy ReplacementPolicy
}

type taskFunction func(context.Context) (interface{}, error)
type resultFunction func(interface{}, TaskType, error)

type task struct {
	taskType TaskType
	taskFn   taskFunction
	resFn    resultFunction
	cancel   context.CancelFunc
}

// Scheduler runs tasks one at a time in the order they were enqueued.
// Tasks are deduplicated by TaskType.ID following the type's ReplacementPolicy,
// which is the single staleness-control mechanism: a newer task of the same
// type either cancels the older one or is itself dropped.
type Scheduler struct {
	mu      sync.Mutex
	queue   []*task
	running *task
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Enqueue schedules the task for execution. The result function is always
// invoked, with ErrTaskOverwritten if the task was replaced while queued or
// with the task's own result otherwise. Returns true if the task was ignored
// due to ReplacementPolicyIgnoreNew.
func (s *Scheduler) Enqueue(taskType TaskType, taskFn taskFunction, resFn resultFunction) (ignored bool) {
	newTask := &task{
		taskType: taskType,
		taskFn:   taskFn,
		resFn:    resFn,
	}

	var overwritten *task

	s.mu.Lock()
	for i, queued := range s.queue {
		if queued.taskType.ID != taskType.ID {
			continue
		}
		if taskType.Policy == ReplacementPolicyIgnoreNew {
			s.mu.Unlock()
			return true
		}
		overwritten = queued
		s.queue[i] = newTask
		break
	}

	if overwritten == nil {
		if s.running != nil && s.running.taskType.ID == taskType.ID {
			if taskType.Policy == ReplacementPolicyIgnoreNew {
				s.mu.Unlock()
				return true
			}
			s.running.cancel()
		}
		s.queue = append(s.queue, newTask)
	}
	s.mu.Unlock()

	if overwritten != nil {
		overwritten.resFn(nil, overwritten.taskType, ErrTaskOverwritten)
	}

	s.dispatch()
	return false
}

// Stop cancels the running task and drops all queued ones. The scheduler
// remains usable, subsequent Enqueue calls will be processed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.queue = nil
	if s.running != nil {
		s.running.cancel()
	}
	s.mu.Unlock()
}

func (s *Scheduler) dispatch() {
	s.mu.Lock()
	if s.running != nil || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	ctx, cancel := context.WithCancel(context.Background())
	next.cancel = cancel
	s.running = next
	s.mu.Unlock()

	go func() {
		defer cancel()
		res, err := next.taskFn(ctx)
		next.resFn(res, next.taskType, err)
		s.mu.Lock()
		s.running = nil
		s.mu.Unlock()
		s.dispatch()
	}()
}
