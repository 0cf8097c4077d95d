// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pollrt is a readiness-polling engine for Linux.
//
// Unlike the Go runtime, pollrt does not park goroutines on I/O. Sockets are
// raw non-blocking descriptors: an operation that cannot make progress
// reports rtio.ErrWouldBlock (EAGAIN) and the caller decides how to wait,
// typically with an rtio policy or Runtime.BlockOn. Files are wazero
// experimental/sys files whose calls run on a bounded blocking pool and are
// polled to completion.
//
// The native objects speak a vocabulary of their own: reads fill an
// *rtio.ReadBuf cursor and seeks are started and then polled. They are
// exposed through rtio.Compat and rtio.CompatFile, so callers see ordinary
// io.Reader, io.Writer and io.Seeker values.
package pollrt
