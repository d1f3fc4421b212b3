package apitypes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// CommandState is the lifecycle state of an observable command execution.
type CommandState int

const (
	Waiting CommandState = iota
	Running
	FinishedSuccessfully
	FinishedWithError
)

func (s CommandState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case FinishedSuccessfully:
		return "finishedSuccessfully"
	case FinishedWithError:
		return "finishedWithError"
	}
	return "unknown"
}

// ObservableCommand is a running command without a typed result.
type ObservableCommand interface {
	ExecutionID() string
	State() CommandState
	Wait(ctx context.Context) error
	Cancel()
}

// Observable is a running command that produces a result of type R.
type Observable[R any] interface {
	ObservableCommand
	Result(ctx context.Context) (R, error)
}

// IntermediateStream is a running command that only reports intermediate values.
type IntermediateStream[I any] interface {
	ObservableCommand
	Intermediates() <-chan I
}

// IntermediateObservable reports intermediate values of type I and a final R.
type IntermediateObservable[I, R any] interface {
	Observable[R]
	Intermediates() <-chan I
}

// Stream is a sequence of values pushed by a running command. It is closed
// when the command ends.
type Stream[T any] <-chan T

// Future is a background operation without a result.
type Future interface {
	Await(ctx context.Context) error
}

// Task is a background operation with a result.
type Task[R any] interface {
	Await(ctx context.Context) (R, error)
}

// Interceptor receives the value of a metadata item before a call is dispatched.
type Interceptor interface {
	Intercept(ctx context.Context, metadata string, value any) error
}

// Execution implements every command handle. It is driven by a run function
// started in its own goroutine.
type Execution[I, R any] struct {
	id            string
	intermediates chan I
	done          chan struct{}
	cancel        context.CancelFunc

	mu     sync.Mutex
	state  CommandState
	result R
	err    error
}

// Start launches run and returns a handle that observes it. The intermediate
// channel is closed once run returns.
func Start[I, R any](ctx context.Context, run func(ctx context.Context, emit func(I)) (R, error)) *Execution[I, R] {
	ctx, cancel := context.WithCancel(ctx)
	e := &Execution[I, R]{
		id:            newExecutionID(),
		intermediates: make(chan I, 16),
		done:          make(chan struct{}),
		cancel:        cancel,
		state:         Running,
	}
	go func() {
		defer cancel()
		emit := func(v I) {
			select {
			case e.intermediates <- v:
			case <-ctx.Done():
			}
		}
		r, err := run(ctx, emit)
		e.mu.Lock()
		e.result, e.err = r, err
		if err != nil {
			e.state = FinishedWithError
		} else {
			e.state = FinishedSuccessfully
		}
		e.mu.Unlock()
		close(e.intermediates)
		close(e.done)
	}()
	return e
}

func newExecutionID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (e *Execution[I, R]) ExecutionID() string { return e.id }

func (e *Execution[I, R]) State() CommandState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Execution[I, R]) Intermediates() <-chan I { return e.intermediates }

func (e *Execution[I, R]) Cancel() { e.cancel() }

func (e *Execution[I, R]) Wait(ctx context.Context) error {
	_, err := e.Result(ctx)
	return err
}

func (e *Execution[I, R]) Result(ctx context.Context) (R, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.err
}

// Await makes an execution usable as a Task.
func (e *Execution[I, R]) Await(ctx context.Context) (R, error) { return e.Result(ctx) }

// Go runs fn in the background and returns it as a Future.
func Go(ctx context.Context, fn func(ctx context.Context) error) Future {
	return future{Start(ctx, func(ctx context.Context, _ func(struct{})) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})}
}

type future struct{ e *Execution[struct{}, struct{}] }

func (f future) Await(ctx context.Context) error { return f.e.Wait(ctx) }
