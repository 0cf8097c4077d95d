// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"context"
	"runtime"
	"time"
)

// Op identifies which driver step observed a semantic signal.
//
// Policies use it to tell reader-side from writer-side readiness, or an
// accept loop from a block-on loop.
type Op uint8

const (
	OpCopyRead Op = iota
	OpCopyWrite

	OpCopyWriterTo
	OpCopyReaderFrom

	OpReadFull
	OpWriteAll

	OpAccept
	OpBlockOn
	OpAwait
)

func (op Op) String() string {
	switch op {
	case OpCopyRead:
		return "CopyRead"
	case OpCopyWrite:
		return "CopyWrite"
	case OpCopyWriterTo:
		return "CopyWriterTo"
	case OpCopyReaderFrom:
		return "CopyReaderFrom"
	case OpReadFull:
		return "ReadFull"
	case OpWriteAll:
		return "WriteAll"
	case OpAccept:
		return "Accept"
	case OpBlockOn:
		return "BlockOn"
	case OpAwait:
		return "Await"
	default:
		return "Op(unknown)"
	}
}

// PolicyAction tells a driver whether it should return to the caller
// or attempt the operation again.
type PolicyAction uint8

const (
	// PolicyReturn means: return the semantic error to the caller.
	PolicyReturn PolicyAction = iota

	// PolicyRetry means: call Yield, then retry the same step.
	PolicyRetry
)

// SemanticPolicy customizes how a driver reacts to ErrWouldBlock and ErrMore.
//
// Contract expectations:
//   - OnWouldBlock / OnMore are only called for the matching semantic errors.
//   - If PolicyRetry is returned, the driver calls Yield(op) and then retries.
//   - Yield is where waiting happens. A Yield that does not wait makes the
//     driver spin.
type SemanticPolicy interface {
	Yield(op Op)
	OnWouldBlock(op Op) PolicyAction
	OnMore(op Op) PolicyAction
}

// PolicyFunc builds a policy from optional functions.
//
// Default behaviors when fields are nil:
//   - YieldFunc: runtime.Gosched()
//   - WouldBlockFunc: PolicyReturn
//   - MoreFunc: PolicyReturn
type PolicyFunc struct {
	YieldFunc      func(op Op)
	WouldBlockFunc func(op Op) PolicyAction
	MoreFunc       func(op Op) PolicyAction
}

func (p PolicyFunc) Yield(op Op) {
	if p.YieldFunc != nil {
		p.YieldFunc(op)
		return
	}
	runtime.Gosched()
}

func (p PolicyFunc) OnWouldBlock(op Op) PolicyAction {
	if p.WouldBlockFunc != nil {
		return p.WouldBlockFunc(op)
	}
	return PolicyReturn
}

func (p PolicyFunc) OnMore(op Op) PolicyAction {
	if p.MoreFunc != nil {
		return p.MoreFunc(op)
	}
	return PolicyReturn
}

// ReturnPolicy never waits and never retries.
type ReturnPolicy struct{}

func (ReturnPolicy) Yield(Op) {}

func (ReturnPolicy) OnWouldBlock(Op) PolicyAction { return PolicyReturn }

func (ReturnPolicy) OnMore(Op) PolicyAction { return PolicyReturn }

// YieldPolicy retries on ErrWouldBlock and returns on ErrMore.
//
// Default Yield behavior: runtime.Gosched().
type YieldPolicy struct {
	YieldFunc func(op Op)
}

func (p YieldPolicy) Yield(op Op) {
	if p.YieldFunc != nil {
		p.YieldFunc(op)
		return
	}
	runtime.Gosched()
}

func (YieldPolicy) OnWouldBlock(Op) PolicyAction { return PolicyRetry }

func (YieldPolicy) OnMore(Op) PolicyAction { return PolicyReturn }

// YieldOnWriteWouldBlockPolicy retries only when the writer side would block.
// Reader-side ErrWouldBlock is returned to the caller.
type YieldOnWriteWouldBlockPolicy struct {
	YieldFunc func(op Op)
}

func (p YieldOnWriteWouldBlockPolicy) Yield(op Op) {
	if p.YieldFunc != nil {
		p.YieldFunc(op)
		return
	}
	runtime.Gosched()
}

func (YieldOnWriteWouldBlockPolicy) OnWouldBlock(op Op) PolicyAction {
	switch op {
	case OpCopyWrite, OpCopyWriterTo, OpCopyReaderFrom, OpWriteAll:
		return PolicyRetry
	default:
		return PolicyReturn
	}
}

func (YieldOnWriteWouldBlockPolicy) OnMore(Op) PolicyAction { return PolicyReturn }

// ContextYielder is implemented by policies whose wait can end early when a
// context is done. Drive uses YieldContext instead of Yield when available.
type ContextYielder interface {
	YieldContext(ctx context.Context, op Op) error
}

// BackoffPolicy retries on ErrWouldBlock and sleeps with an adaptive Backoff
// between attempts. ErrMore is returned to the caller.
//
// A BackoffPolicy carries backoff state; use one per driver loop.
type BackoffPolicy struct {
	Backoff Backoff
}

// NewBackoffPolicy returns a policy whose backoff starts at base and is capped
// at max. Non-positive values select the defaults.
func NewBackoffPolicy(base, max time.Duration) *BackoffPolicy {
	p := &BackoffPolicy{}
	p.Backoff.SetBase(base)
	p.Backoff.SetMax(max)
	return p
}

func (p *BackoffPolicy) Yield(Op) { p.Backoff.Wait() }

// YieldContext is Yield cut short by ctx.
func (p *BackoffPolicy) YieldContext(ctx context.Context, _ Op) error {
	return p.Backoff.WaitContext(ctx)
}

func (*BackoffPolicy) OnWouldBlock(Op) PolicyAction { return PolicyRetry }

func (*BackoffPolicy) OnMore(Op) PolicyAction { return PolicyReturn }
