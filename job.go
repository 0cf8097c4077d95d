// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"context"
	"sync/atomic"
)

// Job is the completion slot of an offloaded job.
//
// Engines create a Job with NewJob and resolve it exactly once with Finish.
// Callers either poll it (Poll reports ErrWouldBlock until resolved) or wait
// on it. Abandoning a wait does not stop the job itself.
type Job struct {
	done chan struct{}
	err  error
	set  atomic.Bool
}

// NewJob returns an unresolved Job.
func NewJob() *Job {
	return &Job{done: make(chan struct{})}
}

// Finish resolves the job. Only the first call has an effect; it reports
// whether it was that call.
func (j *Job) Finish(err error) bool {
	if !j.set.CompareAndSwap(false, true) {
		return false
	}
	j.err = err
	close(j.done)
	return true
}

// Run executes fn on the calling goroutine and resolves j with the outcome:
// nil when fn returns, a *JoinError holding the recovered value when fn
// panics, and a cancelled *JoinError when fn calls runtime.Goexit. It returns
// the value j was resolved with; after Goexit it does not return.
func (j *Job) Run(fn func()) (err error) {
	returned := false
	defer func() {
		if returned {
			return
		}
		if p := recover(); p != nil {
			err = &JoinError{Panic: p}
		} else {
			err = &JoinError{Cancelled: true}
		}
		j.Finish(err)
	}()
	fn()
	returned = true
	j.Finish(nil)
	return nil
}

// Done is closed once the job is resolved.
func (j *Job) Done() <-chan struct{} { return j.done }

// Poll returns ErrWouldBlock while the job runs, then its result.
func (j *Job) Poll() error {
	select {
	case <-j.done:
		return j.err
	default:
		return ErrWouldBlock
	}
}

// Wait blocks until the job is resolved or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is the typed result of Unblock.
type Pending[R any] struct {
	job *Job
	val R
}

// Unblock runs fn through rt.Unblock and returns its typed pending result.
func Unblock[R any](rt Runtime, fn func() R) *Pending[R] {
	p := &Pending[R]{}
	p.job = rt.Unblock(func() { p.val = fn() })
	return p
}

// Poll returns ErrWouldBlock until fn has finished, then fn's result or the
// *JoinError describing why there is none.
func (p *Pending[R]) Poll() (R, error) {
	if err := p.job.Poll(); err != nil {
		var zero R
		return zero, err
	}
	return p.val, nil
}

// Await waits for fn's result. If ctx ends first it returns ctx.Err(); fn may
// still be running.
func (p *Pending[R]) Await(ctx context.Context) (R, error) {
	if err := p.job.Wait(ctx); err != nil {
		var zero R
		return zero, err
	}
	return p.val, nil
}

// Job returns the underlying completion slot.
func (p *Pending[R]) Job() *Job { return p.job }
