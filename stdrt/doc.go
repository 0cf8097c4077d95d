// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stdrt binds the rtio capabilities to the Go runtime itself.
//
// Tasks are goroutines, blocking work runs on its own goroutine (the Go
// scheduler hands blocked threads off, so nothing starves), sockets come from
// package net and files from package os. These native types already speak
// the rtio vocabulary, so accepted connections and opened files are returned
// unwrapped: *net.TCPConn, *net.UnixConn and *os.File.
//
// Blocking calls on sockets and files suspend only the calling goroutine; they
// never report rtio.ErrWouldBlock.
package stdrt
