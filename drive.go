// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import "context"

// Drive calls step until it reports something other than a retried
// ErrWouldBlock.
//
// Semantics:
//   - nil, ErrMore and failures are returned as-is.
//   - ErrWouldBlock consults policy.OnWouldBlock(op): PolicyRetry yields and
//     calls step again, PolicyReturn returns ErrWouldBlock.
//   - ctx is checked before every attempt; its error is returned once done.
//     A policy implementing ContextYielder also stops waiting when ctx ends.
//
// A nil policy retries with a fresh BackoffPolicy.
func Drive(ctx context.Context, policy SemanticPolicy, op Op, step func() error) error {
	if policy == nil {
		policy = &BackoffPolicy{}
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := step()
		if !IsWouldBlock(err) {
			return err
		}
		if policy.OnWouldBlock(op) != PolicyRetry {
			return err
		}
		if cy, ok := policy.(ContextYielder); ok {
			if err := cy.YieldContext(ctx, op); err != nil {
				return err
			}
			continue
		}
		policy.Yield(op)
	}
}

// Await drives poll with Drive and returns its value.
func Await[T any](ctx context.Context, policy SemanticPolicy, op Op, poll func() (T, error)) (T, error) {
	var v T
	err := Drive(ctx, policy, op, func() error {
		var err error
		v, err = poll()
		return err
	})
	return v, err
}

// BlockOn drives poll to completion with rt.BlockOn and returns its value.
func BlockOn[T any](ctx context.Context, rt Runtime, poll func() (T, error)) (T, error) {
	var v T
	err := rt.BlockOn(ctx, func() error {
		var err error
		v, err = poll()
		return err
	})
	return v, err
}
