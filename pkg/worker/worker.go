package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Task represents a unit of work to be processed
type Task interface {
	Execute(ctx context.Context) error
	GetID() string
}

// ResultTask exposes a payload that is delivered with the Result even when
// Execute failed.
type ResultTask interface {
	Task
	GetResult() interface{}
}

// Result represents the result of a task execution
type Result struct {
	TaskID    string
	Success   bool
	Error     error
	Data      interface{}
	Duration  time.Duration
	Timestamp time.Time
}

// PanicError wraps a recovered panic together with the stack of the
// goroutine that panicked.
type PanicError struct {
	TaskID string
	Value  interface{}
	Stack  []byte
}

func (pe *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", pe.TaskID, pe.Value)
}

// run executes task and turns a panic into a *PanicError.
func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{TaskID: task.GetID(), Value: r, Stack: debug.Stack()}
		}
	}()
	return task.Execute(ctx)
}
