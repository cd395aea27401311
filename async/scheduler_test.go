package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduler_Enqueue_Simple(t *testing.T) {
	s := NewScheduler()
	callChan := make(chan string, 10)

	for _, policy := range []ReplacementPolicy{ReplacementPolicyCancelOld, ReplacementPolicyIgnoreNew} {
		for _, failTask := range []bool{false, true} {
			testTask := TaskType{1, policy}
			ignored := s.Enqueue(testTask, func(ctx context.Context) (interface{}, error) {
				callChan <- "task"
				if failTask {
					return nil, errors.New("test error")
				}
				return 123, nil
			}, func(res interface{}, taskType TaskType, err error) {
				if failTask {
					require.Error(t, err)
					require.Nil(t, res)
				} else {
					require.NoError(t, err)
					require.Equal(t, 123, res)
				}
				require.Equal(t, testTask, taskType)
				callChan <- "result"
			})
			require.False(t, ignored)

			for _, expected := range []string{"task", "result"} {
				select {
				case callRes := <-callChan:
					require.Equal(t, expected, callRes)
				case <-time.After(1 * time.Second):
					require.Fail(t, "test not completed in time")
				}
			}
		}
	}
}

func TestScheduler_Enqueue_CancelOldReplacesQueuedAndCancelsRunning(t *testing.T) {
	s := NewScheduler()

	testTask := TaskType{1, ReplacementPolicyCancelOld}

	firstStarted := make(chan struct{})
	firstCancelled := make(chan struct{})
	thirdEnqueued := make(chan struct{})
	results := make(chan error, 3)

	ignored := s.Enqueue(testTask, func(ctx context.Context) (interface{}, error) {
		close(firstStarted)
		select {
		case <-ctx.Done():
			close(firstCancelled)
		case <-time.After(1 * time.Second):
			return nil, errors.New("task not cancelled in time")
		}
		// Hold the queue until the third Enqueue has overwritten the second task.
		<-thirdEnqueued
		return nil, ctx.Err()
	}, func(res interface{}, taskType TaskType, err error) {
		results <- err
	})
	require.False(t, ignored)
	<-firstStarted

	// Second task queues behind the running first one and cancels it.
	ignored = s.Enqueue(testTask, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("second task should have been overwritten")
	}, func(res interface{}, taskType TaskType, err error) {
		results <- err
	})
	require.False(t, ignored)

	select {
	case <-firstCancelled:
	case <-time.After(1 * time.Second):
		require.Fail(t, "first task not cancelled in time")
	}

	// Third task overwrites the queued second one before it runs.
	done := make(chan struct{})
	ignored = s.Enqueue(testTask, func(ctx context.Context) (interface{}, error) {
		return 123, nil
	}, func(res interface{}, taskType TaskType, err error) {
		results <- err
		close(done)
	})
	require.False(t, ignored)
	close(thirdEnqueued)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		require.Fail(t, "third task not completed in time")
	}

	var sawCancelled, sawOverwritten, sawSuccess bool
	for i := 0; i < 3; i++ {
		err := <-results
		switch {
		case errors.Is(err, context.Canceled):
			sawCancelled = true
		case errors.Is(err, ErrTaskOverwritten):
			sawOverwritten = true
		case err == nil:
			sawSuccess = true
		}
	}
	require.True(t, sawCancelled)
	require.True(t, sawOverwritten)
	require.True(t, sawSuccess)
}

func TestScheduler_Enqueue_IgnoreNew(t *testing.T) {
	s := NewScheduler()
	callChan := make(chan string, 10)
	workloadWG := sync.WaitGroup{}

	workloadWG.Add(1)
	testTask := TaskType{1, ReplacementPolicyIgnoreNew}
	ignored := s.Enqueue(testTask, func(ctx context.Context) (interface{}, error) {
		workloadWG.Wait()
		require.NoError(t, ctx.Err())
		callChan <- "task"
		return 123, nil
	}, func(res interface{}, taskType TaskType, err error) {
		require.NoError(t, err)
		require.Equal(t, 123, res)
		callChan <- "result"
	})
	require.False(t, ignored)

	ignored = s.Enqueue(testTask, func(ctx context.Context) (interface{}, error) {
		require.Fail(t, "unexpected call")
		return nil, errors.New("unexpected call")
	}, func(res interface{}, taskType TaskType, err error) {
		require.Fail(t, "unexpected result call")
	})
	require.True(t, ignored)
	workloadWG.Done()

	for _, expected := range []string{"task", "result"} {
		select {
		case callRes := <-callChan:
			require.Equal(t, expected, callRes)
		case <-time.After(1 * time.Second):
			require.Fail(t, "test not completed in time")
		}
	}
}

func TestScheduler_Enqueue_InResult(t *testing.T) {
	s := NewScheduler()
	callChan := make(chan int, 4)

	s.Enqueue(TaskType{ID: 1, Policy: ReplacementPolicyCancelOld},
		func(ctx context.Context) (interface{}, error) {
			callChan <- 0
			return nil, nil
		}, func(res interface{}, taskType TaskType, err error) {
			callChan <- 1
			s.Enqueue(TaskType{1, ReplacementPolicyCancelOld}, func(ctx context.Context) (interface{}, error) {
				callChan <- 2
				return nil, nil
			}, func(res interface{}, taskType TaskType, err error) {
				callChan <- 3
			})
		},
	)
	for i := 0; i < 4; i++ {
		select {
		case res := <-callChan:
			require.Equal(t, i, res)
		case <-time.After(1 * time.Second):
			require.Fail(t, "test not completed in time")
		}
	}
}

func TestDebouncer_CollapsesTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	fired := make(chan int, 10)

	for i := 0; i < 5; i++ {
		i := i
		d.Trigger(func() { fired <- i })
	}

	select {
	case got := <-fired:
		require.Equal(t, 4, got)
	case <-time.After(1 * time.Second):
		require.Fail(t, "debounced callback not fired in time")
	}

	select {
	case got := <-fired:
		require.Fail(t, "unexpected extra callback", "%d", got)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	fired := make(chan struct{}, 1)

	d.Trigger(func() { close(fired) })
	d.Cancel()

	select {
	case <-fired:
		require.Fail(t, "cancelled callback fired")
	case <-time.After(100 * time.Millisecond):
	}
}
