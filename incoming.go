// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"context"
	"iter"
	"sync"
)

// Incoming is the unbounded, lazily produced sequence of connections accepted
// by one listener.
//
// Each pull performs exactly one completed Accept: ErrWouldBlock from a
// poll-style listener is waited past with the policy and never surfaces as an
// element. Peer addresses are dropped. A failed accept is returned as that
// pull's error and the sequence continues with the next pull. There is no
// buffering and no lookahead.
//
// Pulls may come from any goroutine; they are serialised, so elements come
// out in the order the accepts complete.
type Incoming[A any] struct {
	mu     sync.Mutex
	l      Listener[A]
	policy SemanticPolicy
}

// NewIncoming takes ownership of l. A nil policy waits with a BackoffPolicy.
func NewIncoming[A any](l Listener[A], policy SemanticPolicy) *Incoming[A] {
	return &Incoming[A]{l: l, policy: policy}
}

// Next suspends until the listener yields a connection or a failure.
// It returns ctx.Err() if ctx ends first.
func (in *Incoming[A]) Next(ctx context.Context) (Transport, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	policy := in.policy
	if policy == nil {
		policy = &BackoffPolicy{}
	}
	return Await(ctx, policy, OpAccept, func() (Transport, error) {
		t, _, err := in.l.Accept(ctx)
		return t, err
	})
}

// All ranges over the sequence. Failed accepts are yielded and the range goes
// on; it ends only when the consumer stops or ctx is done (the context error
// is yielded once as the last element).
func (in *Incoming[A]) All(ctx context.Context) iter.Seq2[Transport, error] {
	return func(yield func(Transport, error) bool) {
		for {
			t, err := in.Next(ctx)
			if err != nil && ctx.Err() != nil {
				yield(nil, err)
				return
			}
			if !yield(t, err) {
				return
			}
		}
	}
}

// Listener returns the owned listener.
func (in *Incoming[A]) Listener() Listener[A] { return in.l }

// Close closes the owned listener.
func (in *Incoming[A]) Close() error { return in.l.Close() }
