// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stdrt

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"code.hybscloud.com/rtio"
)

// Global is the process-wide Go runtime. It has no state: every value refers
// to the same scheduler, and it is never shut down.
type Global struct{}

var _ rtio.Runtime = Global{}

// Spawn runs task on a new goroutine. A panic in task is recovered and logged
// at error level.
func (Global) Spawn(task func()) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				Logger().Error("spawned task panicked", zap.Any("panic", p), zap.StackSkip("stack", 2))
			}
		}()
		task()
	}()
}

// Unblock runs job on its own goroutine. The job resolves to a *rtio.JoinError
// if job panics, or if it calls runtime.Goexit (reported as cancelled).
func (Global) Unblock(job func()) *rtio.Job {
	j := rtio.NewJob()
	go func() {
		if err := j.Run(job); err != nil {
			Logger().Debug("offloaded job failed", zap.Error(err))
		}
	}()
	return j
}

// BlockOn drives step on the calling goroutine, yielding the processor
// between not-ready attempts and backing off once it keeps failing.
func (Global) BlockOn(ctx context.Context, step func() error) error {
	return rtio.Drive(ctx, newYieldBackoff(), rtio.OpBlockOn, step)
}

// spinBeforeBackoff bounds plain yields before sleeping.
const spinBeforeBackoff = 64

// yieldBackoff yields the processor a few times and then sleeps with an
// adaptive backoff.
type yieldBackoff struct {
	spins int
	b     rtio.Backoff
}

func newYieldBackoff() *yieldBackoff { return &yieldBackoff{} }

func (p *yieldBackoff) Yield(op rtio.Op) { _ = p.YieldContext(context.Background(), op) }

func (p *yieldBackoff) YieldContext(ctx context.Context, _ rtio.Op) error {
	if p.spins < spinBeforeBackoff {
		p.spins++
		runtime.Gosched()
		return nil
	}
	return p.b.WaitContext(ctx)
}

func (*yieldBackoff) OnWouldBlock(rtio.Op) rtio.PolicyAction { return rtio.PolicyRetry }

func (*yieldBackoff) OnMore(rtio.Op) rtio.PolicyAction { return rtio.PolicyReturn }
