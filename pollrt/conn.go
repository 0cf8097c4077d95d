// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package pollrt

import (
	"errors"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/rtio"
)

// Conn is a connected non-blocking socket.
//
// Reads fill an *rtio.ReadBuf; a read that fills nothing into a non-empty
// cursor means the peer finished sending. EAGAIN is reported as
// rtio.ErrWouldBlock.
type Conn struct {
	fd     int
	closed atomic.Bool
}

var _ rtio.NativeStream = (*Conn)(nil)

func newConn(fd int) *Conn { return &Conn{fd: fd} }

// Fd returns the socket descriptor.
func (c *Conn) Fd() int { return c.fd }

// ReadBuf reads once into the unfilled part of buf.
func (c *Conn) ReadBuf(buf *rtio.ReadBuf) error {
	if c.closed.Load() {
		return rtio.ErrClosed
	}
	p := buf.Unfilled()
	if len(p) == 0 {
		return nil
	}
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == nil:
			buf.Advance(n)
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return rtio.ErrWouldBlock
		default:
			return os.NewSyscallError("read", err)
		}
	}
}

// Write writes as much of p as the socket accepts without blocking. It
// returns rtio.ErrWouldBlock with the count written so far when the send
// buffer is full.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, rtio.ErrClosed
	}
	var written int
	for written < len(p) {
		n, err := unix.Write(c.fd, p[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil:
			if n == 0 {
				return written, rtio.ErrWouldBlock
			}
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN):
			return written, rtio.ErrWouldBlock
		default:
			return written, os.NewSyscallError("write", err)
		}
	}
	return written, nil
}

// Flush is a no-op: sockets have no user-space write buffer here.
func (c *Conn) Flush() error { return nil }

// Shutdown half-closes the write side.
func (c *Conn) Shutdown() error {
	if c.closed.Load() {
		return rtio.ErrClosed
	}
	return os.NewSyscallError("shutdown", ignoreNotConn(unix.Shutdown(c.fd, unix.SHUT_WR)))
}

// Close releases the descriptor.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return rtio.ErrClosed
	}
	return os.NewSyscallError("close", unix.Close(c.fd))
}

func ignoreNotConn(err error) error {
	if errors.Is(err, unix.ENOTCONN) {
		return nil
	}
	return err
}
