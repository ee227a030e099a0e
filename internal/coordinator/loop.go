package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

var (
	// ErrLoopStopped is returned when submitting to a loop that is no longer running
	ErrLoopStopped = errors.New("coordinator loop stopped")
	// ErrCommandPanicked is returned by Do when the command panicked
	ErrCommandPanicked = errors.New("coordinator command panicked")
)

// DefaultQueueSize is the command backlog a Loop accepts before Submit blocks
const DefaultQueueSize = 1024

// Loop runs commands one at a time on a single goroutine, in submission order.
// All room and registry state is owned by this goroutine.
type Loop struct {
	commands chan func(context.Context)
	done     chan struct{}
	logger   *slog.Logger
}

// NewLoop creates a Loop. Call Run to start executing commands.
func NewLoop(queueSize int, logger *slog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		commands: make(chan func(context.Context), queueSize),
		done:     make(chan struct{}),
		logger:   logger.With(slog.String("component", "loop")),
	}
}

// Run executes commands until ctx is cancelled. Commands receive ctx.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("coordinator loop started")
	defer close(l.done)
	for {
		select {
		case cmd := <-l.commands:
			l.execute(ctx, cmd)
		case <-ctx.Done():
			l.logger.Info("coordinator loop stopped", slog.Int("pending", len(l.commands)))
			return
		}
	}
}

func (l *Loop) execute(ctx context.Context, cmd func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("command panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	cmd(ctx)
}

// Submit enqueues cmd. It blocks only while the queue is full, and gives up
// when ctx is done or the loop has stopped.
func (l *Loop) Submit(ctx context.Context, cmd func(context.Context)) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.commands <- cmd:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the loop and waits for its result
func (l *Loop) Do(ctx context.Context, fn func(context.Context) error) error {
	result := make(chan error, 1)
	err := l.Submit(ctx, func(loopCtx context.Context) {
		err := ErrCommandPanicked
		defer func() { result <- err }()
		err = fn(loopCtx)
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		// the command may still have completed just before shutdown
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return fmt.Errorf("waiting for coordinator: %w", ctx.Err())
	}
}

// Done is closed once Run has returned
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
