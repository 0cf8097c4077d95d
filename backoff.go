// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"context"
	"time"
)

const (
	// DefaultBackoffBase is the first sleep of a fresh Backoff (500µs).
	DefaultBackoffBase = 500 * time.Microsecond

	// DefaultBackoffMax caps a single sleep (100ms).
	DefaultBackoffMax = 100 * time.Millisecond
)

// Backoff is the waiting strategy used by blocking drivers when an engine
// keeps reporting ErrWouldBlock.
//
// Iterations are grouped into blocks: block n performs n sleeps of
// min(base × n, max), each with ±12.5% jitter so that many waiters on the same
// engine do not wake in lockstep.
//
// The zero value is ready to use with DefaultBackoffBase and DefaultBackoffMax.
// A Backoff is not safe for concurrent use.
type Backoff struct {
	n    int // block, 1-indexed once started
	i    int // iteration inside the block
	base time.Duration
	max  time.Duration
	seed uint64
}

// Wait sleeps for the next backoff step.
func (b *Backoff) Wait() {
	time.Sleep(b.next())
}

// WaitContext sleeps for the next backoff step or until ctx is done, whichever
// comes first. It returns ctx.Err() when the wait was cut short.
func (b *Backoff) WaitContext(ctx context.Context) error {
	d := b.next()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// next returns the jittered duration of the current step and advances.
func (b *Backoff) next() time.Duration {
	if b.n == 0 {
		b.n = 1
		if b.seed == 0 {
			b.seed = uint64(time.Now().UnixNano()) | 1
		}
	}
	d := b.jitter(b.Duration())
	b.i++
	if b.i >= b.n {
		b.i = 0
		b.n++
	}
	return d
}

// jitter applies ±12.5% using a xorshift step.
func (b *Backoff) jitter(d time.Duration) time.Duration {
	b.seed ^= b.seed << 13
	b.seed ^= b.seed >> 7
	b.seed ^= b.seed << 17
	r := int64(b.seed>>32) % 256
	return d + time.Duration(int64(d)*(r-128)/1024)
}

// SetBase sets the first step and the linear growth unit.
// Non-positive values select DefaultBackoffBase.
func (b *Backoff) SetBase(d time.Duration) { b.base = d }

// SetMax caps a single step. Non-positive values select DefaultBackoffMax.
func (b *Backoff) SetMax(d time.Duration) { b.max = d }

// Reset goes back to block 1. Call it after the awaited operation made progress.
func (b *Backoff) Reset() { b.n, b.i = 0, 0 }

// Block returns the current block number.
func (b *Backoff) Block() int {
	return max(b.n, 1)
}

// Duration returns the current step without jitter.
func (b *Backoff) Duration() time.Duration {
	base, limit := b.base, b.max
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if limit <= 0 {
		limit = DefaultBackoffMax
	}
	return min(time.Duration(b.Block())*base, limit)
}
