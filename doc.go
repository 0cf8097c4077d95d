// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rtio lets asynchronous I/O code run unmodified on interchangeable
// execution engines.
//
// Consumer code is written against a small set of capability interfaces:
// [Runtime] (spawn, blocking-work offload, block-on), [Transport], [File],
// [Listener] and [Filesystem]. A [Backend] marker type wires those interfaces
// to one concrete engine. Two engines ship with the module:
//
//   - rtio/stdrt: the Go runtime itself (goroutines, net, os). Its native types
//     already speak the common vocabulary and are handed out unwrapped.
//   - rtio/pollrt: a non-blocking poll engine (raw sockets, a bounded blocking
//     pool and a wazero sys filesystem). Its native read is cursor-style and its
//     seek is two-phase, so its objects are exposed through [Compat] and
//     [CompatFile].
//
// Readiness vocabulary
//   - ErrWouldBlock: the engine cannot make progress now; the operation stays
//     registered and the caller retries after waiting. This is the Go spelling
//     of a "not ready" poll result.
//   - ErrMore: progress happened and more completions will follow.
//
// Adapters never spin on ErrWouldBlock: they return it. Waiting is the job of
// the caller's [SemanticPolicy] or of a blocking helper such as [Drive],
// [Incoming.Next], [Pending.Await] or [Runtime.BlockOn].
//
// Note: Copy treats a (0, nil) read as “stop copying now” and returns (written, nil)
// to avoid hidden spinning inside a helper in event-loop code.
package rtio
