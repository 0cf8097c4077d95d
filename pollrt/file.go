// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package pollrt

import (
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	experimentalsys "github.com/tetratelabs/wazero/experimental/sys"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/multierr"

	"code.hybscloud.com/rtio"
)

// maxBuf caps the engine-owned buffer of a single read or write job.
const maxBuf = 2 << 20

type opKind uint8

const (
	opNone opKind = iota
	opRead
	opWrite
	opSeek
)

type opResult struct {
	buf   []byte
	n     int
	off   int64
	errno experimentalsys.Errno
}

// File is an open file of the engine.
//
// Every file system call runs on the runtime's blocking pool, one at a time.
// Reads fill an engine-owned buffer that later cursor reads drain. Writes are
// copied and completed in the background; a failure is reported by the next
// Write, Flush or Close. Seeking is two-phase: StartSeek schedules the move
// and PollSeek reports where it landed. A failed seek settled by some other
// call is reported by the next call that settles work.
type File struct {
	rt   *Runtime
	f    experimentalsys.File
	name string

	op   *rtio.Pending[opResult]
	kind opKind

	rbuf    []byte
	pos     int64
	lastErr error
	seekErr error
}

var _ rtio.NativeFile = (*File)(nil)

func newFile(rt *Runtime, f experimentalsys.File, name string) *File {
	return &File{rt: rt, f: f, name: name}
}

// complete settles the in-flight job, if any. It returns rtio.ErrWouldBlock
// while the job runs.
func (f *File) complete() (opResult, opKind, error) {
	if f.op == nil {
		return opResult{}, opNone, nil
	}
	res, err := f.op.Poll()
	if rtio.IsWouldBlock(err) {
		return res, f.kind, err
	}
	kind := f.kind
	f.op, f.kind = nil, opNone
	if err != nil {
		return res, kind, err
	}
	switch kind {
	case opRead:
		if res.n > 0 {
			f.rbuf = res.buf[:res.n]
			f.pos += int64(res.n)
		}
	case opWrite:
		if res.errno != 0 && f.lastErr == nil {
			f.lastErr = res.errno
		}
		if res.off >= 0 {
			f.pos = res.off
		}
	case opSeek:
		if res.errno != 0 {
			f.seekErr = res.errno
		} else {
			f.pos = res.off
		}
	}
	return res, kind, nil
}

func (f *File) start(kind opKind, job func() opResult) {
	f.kind = kind
	f.op = rtio.Unblock(f.rt, job)
}

// ReadBuf copies buffered data into buf, or starts a read job and reports
// rtio.ErrWouldBlock until it lands.
func (f *File) ReadBuf(buf *rtio.ReadBuf) error {
	for {
		if len(f.rbuf) > 0 {
			n := buf.Put(f.rbuf)
			f.rbuf = f.rbuf[n:]
			return nil
		}
		res, kind, err := f.complete()
		if err != nil {
			return err
		}
		if err := f.takeSeekErr(); err != nil {
			return err
		}
		if kind == opRead {
			if res.errno != 0 {
				return res.errno
			}
			if res.n == 0 {
				return nil
			}
			continue
		}
		if buf.Remaining() == 0 {
			return nil
		}
		b := make([]byte, min(buf.Remaining(), maxBuf))
		sf := f.f
		f.start(opRead, func() opResult {
			n, errno := sf.Read(b)
			return opResult{buf: b, n: n, errno: errno}
		})
		return rtio.ErrWouldBlock
	}
}

// Write copies up to 2 MiB of p into a write job. It returns
// rtio.ErrWouldBlock while an earlier job is still running, and the deferred
// error of a failed earlier write. A longer p is accepted partially: the
// count is returned together with rtio.ErrWouldBlock.
func (f *File) Write(p []byte) (int, error) {
	if _, _, err := f.complete(); err != nil {
		return 0, err
	}
	if err := multierr.Combine(f.takeSeekErr(), f.takeErr()); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	b := append([]byte(nil), p[:min(len(p), maxBuf)]...)
	back := int64(len(f.rbuf))
	f.rbuf = nil
	f.pos -= back
	sf := f.f
	f.start(opWrite, func() opResult {
		res := opResult{off: -1}
		if back > 0 {
			if _, errno := sf.Seek(-back, io.SeekCurrent); errno != 0 {
				res.errno = errno
				return res
			}
		}
		for res.n < len(b) {
			n, errno := sf.Write(b[res.n:])
			res.n += n
			if errno != 0 {
				res.errno = errno
				break
			}
			if n == 0 {
				res.errno = experimentalsys.EIO
				break
			}
		}
		if off, errno := sf.Seek(0, io.SeekCurrent); errno == 0 {
			res.off = off
		}
		return res
	})
	if len(b) < len(p) {
		return len(b), rtio.ErrWouldBlock
	}
	return len(b), nil
}

func (f *File) takeErr() error {
	err := f.lastErr
	f.lastErr = nil
	return err
}

func (f *File) takeSeekErr() error {
	err := f.seekErr
	f.seekErr = nil
	return err
}

// Flush waits for the running job and reports a deferred write or seek error.
func (f *File) Flush() error {
	if _, _, err := f.complete(); err != nil {
		return err
	}
	return multierr.Combine(f.takeSeekErr(), f.takeErr())
}

// Shutdown is Flush: files have no write half to close.
func (f *File) Shutdown() error { return f.Flush() }

// StartSeek schedules a move of the file offset. It fails with
// rtio.ErrSeekInFlight while any job is still running; PollSeek completes it.
// A SeekCurrent offset is relative to the position of the data already read.
func (f *File) StartSeek(offset int64, whence int) error {
	if f.op != nil {
		return rtio.ErrSeekInFlight
	}
	if whence == io.SeekCurrent {
		offset -= int64(len(f.rbuf))
	}
	f.rbuf = nil
	sf := f.f
	f.start(opSeek, func() opResult {
		off, errno := sf.Seek(offset, whence)
		return opResult{off: off, errno: errno}
	})
	return nil
}

// PollSeek completes the running job. After a seek it reports the new
// offset or the seek failure; otherwise it reports the current position.
func (f *File) PollSeek() (int64, error) {
	res, kind, err := f.complete()
	if err != nil {
		return 0, err
	}
	if err := f.takeSeekErr(); err != nil {
		return 0, err
	}
	if kind == opSeek {
		return res.off, nil
	}
	return f.pos - int64(len(f.rbuf)), nil
}

type statResult struct {
	st    sys.Stat_t
	errno experimentalsys.Errno
}

// Stat returns the file metadata. It waits for the running job first; the
// job itself is settled by the next call that polls.
func (f *File) Stat() (fs.FileInfo, error) {
	if f.op != nil {
		<-f.op.Job().Done()
	}
	sf := f.f
	res, err := rtio.Unblock(f.rt, func() statResult {
		st, errno := sf.Stat()
		return statResult{st, errno}
	}).Await(context.Background())
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: f.name, Err: err}
	}
	st, errno := res.st, res.errno
	if errno != 0 {
		return nil, &fs.PathError{Op: "stat", Path: f.name, Err: errno}
	}
	return fileInfo{name: filepath.Base(f.name), st: st}, nil
}

// Close waits for the running job and closes the file. A deferred write
// error is combined with the close error.
func (f *File) Close() error {
	var err error
	if f.op != nil {
		if _, werr := f.op.Await(context.Background()); werr != nil {
			err = werr
		}
		_, _, _ = f.complete()
	}
	err = multierr.Combine(err, f.takeSeekErr(), f.takeErr(), errnoErr(f.f.Close()))
	f.rbuf = nil
	return err
}

func errnoErr(errno experimentalsys.Errno) error {
	if errno == 0 {
		return nil
	}
	return errno
}

// fileInfo adapts a wazero Stat_t.
type fileInfo struct {
	name string
	st   sys.Stat_t
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.st.Size }
func (fi fileInfo) Mode() fs.FileMode  { return fi.st.Mode }
func (fi fileInfo) ModTime() time.Time { return time.Unix(0, fi.st.Mtim) }
func (fi fileInfo) IsDir() bool        { return fi.st.Mode.IsDir() }
func (fi fileInfo) Sys() any           { return &fi.st }
