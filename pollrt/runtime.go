// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package pollrt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"code.hybscloud.com/rtio"
)

// Runtime owns the spawned tasks and the blocking pool of the engine.
//
// Offloaded jobs take one of a fixed number of slots before they run. Shutdown
// stops new work: jobs still waiting for a slot resolve as cancelled and later
// spawns are dropped. Jobs that already hold a slot run to completion.
type Runtime struct {
	opts   options
	slots  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	tasks  sync.WaitGroup
}

var _ rtio.Runtime = (*Runtime)(nil)

// NewRuntime returns a running engine.
func NewRuntime(opts ...Option) *Runtime {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		opts:   o,
		slots:  make(chan struct{}, o.limit),
		ctx:    ctx,
		cancel: cancel,
	}
}

var defaultRuntime struct {
	once sync.Once
	rt   *Runtime
}

// Default returns the process-wide runtime, creating it on first use. It is
// never shut down.
func Default() *Runtime {
	defaultRuntime.once.Do(func() {
		defaultRuntime.rt = NewRuntime()
	})
	return defaultRuntime.rt
}

// Context is cancelled when Shutdown begins. Long-running spawned tasks
// should watch it.
func (r *Runtime) Context() context.Context { return r.ctx }

// track registers one unit of work unless the runtime is shut down.
func (r *Runtime) track() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.tasks.Add(1)
	return true
}

// Spawn runs task concurrently. A panic in task is recovered and logged.
// After Shutdown the task is dropped.
func (r *Runtime) Spawn(task func()) {
	if !r.track() {
		r.opts.log.Warn("spawn after shutdown dropped")
		return
	}
	go func() {
		defer r.tasks.Done()
		defer func() {
			if p := recover(); p != nil {
				r.opts.log.Error("spawned task panicked", zap.Any("panic", p), zap.StackSkip("stack", 2))
			}
		}()
		task()
	}()
}

// Unblock runs job on the blocking pool.
func (r *Runtime) Unblock(job func()) *rtio.Job {
	j := rtio.NewJob()
	if !r.track() {
		j.Finish(&rtio.JoinError{Cancelled: true})
		return j
	}
	go func() {
		defer r.tasks.Done()
		select {
		case r.slots <- struct{}{}:
		case <-r.ctx.Done():
			r.cancelJob(j)
			return
		}
		defer func() { <-r.slots }()
		if r.ctx.Err() != nil {
			r.cancelJob(j)
			return
		}
		if err := j.Run(job); err != nil {
			r.opts.log.Debug("blocking job failed", zap.Error(err))
		}
	}()
	return j
}

func (r *Runtime) cancelJob(j *rtio.Job) {
	r.opts.log.Debug("blocking job cancelled at shutdown")
	j.Finish(&rtio.JoinError{Cancelled: true})
}

// BlockOn drives step on the calling goroutine, sleeping with the runtime
// backoff between not-ready attempts.
func (r *Runtime) BlockOn(ctx context.Context, step func() error) error {
	return rtio.Drive(ctx, rtio.NewBackoffPolicy(r.opts.backoffBase, r.opts.backoffMax), rtio.OpBlockOn, step)
}

// Shutdown stops the runtime and waits for spawned tasks and running jobs to
// finish, or for ctx to end. It is safe to call more than once.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
