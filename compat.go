// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"io"
	"io/fs"
)

// CursorReader is the native read shape of cursor-style engines: the engine
// fills buf.Unfilled() and advances the cursor.
//
// A call that completes without advancing a non-empty cursor means end of
// stream. A call that cannot complete now returns ErrWouldBlock with the
// cursor untouched.
type CursorReader interface {
	ReadBuf(buf *ReadBuf) error
}

// NativeWriter is the native write side. Write may accept bytes before they
// reach the underlying object; Flush and Shutdown complete that work and may
// report ErrWouldBlock until they do.
type NativeWriter interface {
	Write(p []byte) (int, error)
	Flush() error
	Shutdown() error
}

// TwoPhaseSeeker is the native seek shape of engines that split seeking into
// a synchronous start and an asynchronous completion.
//
// StartSeek registers the seek and fails immediately if it cannot be started
// (for example ErrSeekInFlight while other work is pending). PollSeek completes
// pending work; it reports ErrWouldBlock while not done and the resulting
// absolute offset once done. With nothing pending it reports the current offset.
type TwoPhaseSeeker interface {
	StartSeek(offset int64, whence int) error
	PollSeek() (int64, error)
}

// NativeStream is a native connection object of a cursor-style engine.
type NativeStream interface {
	CursorReader
	NativeWriter
	io.Closer
}

// NativeFile is a native file object of a cursor-style, two-phase-seek engine.
type NativeFile interface {
	NativeStream
	TwoPhaseSeeker
	Stat() (fs.FileInfo, error)
}

// Compat exposes a NativeStream through io.Reader, io.Writer and io.Closer.
//
// Compat owns the wrapped object exclusively and keeps no buffer of its own:
// every call maps to exactly one native call. Native errors, ErrWouldBlock
// included, are returned unchanged.
//
// A Compat is not safe for concurrent use.
type Compat[S NativeStream] struct {
	inner  S
	closed bool
}

// NewCompat takes ownership of s.
func NewCompat[S NativeStream](s S) *Compat[S] {
	return &Compat[S]{inner: s}
}

// Inner returns the wrapped native object.
func (c *Compat[S]) Inner() S { return c.inner }

// Read fills p through a transient cursor and reports how many bytes landed
// in p's leading region.
//
// A native call that completes without filling anything is reported as io.EOF.
// If the native call fails after filling some bytes, both the count and the
// error are returned.
func (c *Compat[S]) Read(p []byte) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	buf := NewReadBuf(p)
	before := buf.Len()
	err := c.inner.ReadBuf(&buf)
	n := buf.Len() - before
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write forwards to the native writer.
func (c *Compat[S]) Write(p []byte) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	return c.inner.Write(p)
}

// Flush forwards to the native writer.
func (c *Compat[S]) Flush() error {
	if c.closed {
		return ErrClosed
	}
	return c.inner.Flush()
}

// Shutdown forwards to the native writer. For connections this closes the
// write half; for files it completes pending writes.
func (c *Compat[S]) Shutdown() error {
	if c.closed {
		return ErrClosed
	}
	return c.inner.Shutdown()
}

// Close releases the native object. Only the first call reaches it.
func (c *Compat[S]) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return c.inner.Close()
}

type seekPhase uint8

const (
	seekIdle seekPhase = iota
	seekStarted
)

// CompatFile exposes a NativeFile through io.Reader, io.Writer, io.Seeker and
// io.Closer.
//
// Seek keeps track of whether a native seek is in flight, so that a caller
// retrying after ErrWouldBlock only polls for completion instead of starting
// the seek again. A Read or Write in between ends that tracking: the native
// call may settle the seek itself, so the next Seek is a new request.
type CompatFile[F NativeFile] struct {
	Compat[F]
	phase  seekPhase
	target seekTarget
}

type seekTarget struct {
	offset int64
	whence int
}

// NewCompatFile takes ownership of f.
func NewCompatFile[F NativeFile](f F) *CompatFile[F] {
	return &CompatFile[F]{Compat: Compat[F]{inner: f}}
}

// Seek runs the two-phase native seek as one call.
//
// While idle, or when asked for a different target than the one in flight,
// Seek first drains pending native work with one PollSeek (returning
// ErrWouldBlock or a failure of that work if it is not cleanly done), then
// starts the seek. A start failure is returned without polling for its
// completion. Otherwise the completion is polled and
// its result returned unchanged: the new offset, ErrWouldBlock (the seek stays
// in flight), or the native failure.
func (f *CompatFile[F]) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	want := seekTarget{offset: offset, whence: whence}
	if f.phase == seekIdle || f.target != want {
		if _, err := f.inner.PollSeek(); err != nil {
			if !IsWouldBlock(err) {
				f.phase = seekIdle
			}
			return 0, err
		}
		f.phase = seekIdle
		if err := f.inner.StartSeek(offset, whence); err != nil {
			return 0, err
		}
		f.phase, f.target = seekStarted, want
	}
	pos, err := f.inner.PollSeek()
	if IsWouldBlock(err) {
		return 0, err
	}
	f.phase = seekIdle
	return pos, err
}

// Read is Compat.Read; it ends any seek tracking.
func (f *CompatFile[F]) Read(p []byte) (int, error) {
	f.phase = seekIdle
	return f.Compat.Read(p)
}

// Write is Compat.Write; it ends any seek tracking.
func (f *CompatFile[F]) Write(p []byte) (int, error) {
	f.phase = seekIdle
	return f.Compat.Write(p)
}

// Stat forwards to the native file.
func (f *CompatFile[F]) Stat() (fs.FileInfo, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.inner.Stat()
}
