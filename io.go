// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"io"
)

// Copy copies from src to dst until EOF on src or an error, keeping rtio
// readiness semantics:
//   - ErrWouldBlock / ErrMore from either side stop the copy and are returned
//     with the count written so far. Call Copy again after waiting.
//   - If dst.Write reports a semantic error after a partial write, Copy rewinds
//     src by the unwritten amount when src is an io.Seeker and returns
//     ErrNoSeeker otherwise, so that no read byte is silently dropped.
//   - A (0, nil) read stops the copy and returns (written, nil).
//
// Copy uses src's io.WriterTo or dst's io.ReaderFrom when present.
func Copy(dst io.Writer, src io.Reader) (written int64, err error) {
	return copyBuffer(dst, src, nil, nil)
}

// CopyPolicy is like Copy but consults policy on semantic errors. A retry
// decision yields and resumes where the copy stopped; a write-side retry
// finishes the pending chunk before reading again, so no rollback is needed.
// A nil policy behaves like Copy.
func CopyPolicy(dst io.Writer, src io.Reader, policy SemanticPolicy) (written int64, err error) {
	return copyBuffer(dst, src, nil, policy)
}

// CopyBuffer is like CopyPolicy but stages through buf. If buf is nil a
// 32 KiB buffer is used; a non-nil empty buf panics.
func CopyBuffer(dst io.Writer, src io.Reader, buf []byte, policy SemanticPolicy) (written int64, err error) {
	if buf != nil && len(buf) == 0 {
		panic("empty buffer in CopyBuffer")
	}
	return copyBuffer(dst, src, buf, policy)
}

// CopyN copies n bytes (or until an error) from src to dst.
// On return, written == n if and only if err == nil. A stream that ends early
// yields io.ErrUnexpectedEOF; semantic errors are returned as with CopyPolicy.
func CopyN(dst io.Writer, src io.Reader, n int64, policy SemanticPolicy) (written int64, err error) {
	if n <= 0 {
		return 0, nil
	}
	written, err = copyBuffer(dst, &io.LimitedReader{R: src, N: n}, nil, policy)
	if written == n {
		return n, nil
	}
	if err == nil {
		return written, io.ErrUnexpectedEOF
	}
	return written, err
}

// ReadFull reads exactly len(buf) bytes from r.
//
// ErrWouldBlock consults policy (nil returns it at once with the partial
// count). io.EOF before the first byte is returned as io.EOF, after it as
// io.ErrUnexpectedEOF.
func ReadFull(r io.Reader, buf []byte, policy SemanticPolicy) (n int, err error) {
	if policy == nil {
		policy = ReturnPolicy{}
	}
	for n < len(buf) {
		nr, er := r.Read(buf[n:])
		n += nr
		if er == nil {
			continue
		}
		if IsWouldBlock(er) && policy.OnWouldBlock(OpReadFull) == PolicyRetry {
			policy.Yield(OpReadFull)
			continue
		}
		if IsMore(er) && policy.OnMore(OpReadFull) == PolicyRetry {
			policy.Yield(OpReadFull)
			continue
		}
		if er == io.EOF {
			if n == 0 {
				return 0, io.EOF
			}
			if n < len(buf) {
				return n, io.ErrUnexpectedEOF
			}
			return n, nil
		}
		return n, er
	}
	return n, nil
}

// WriteAll writes all of p to w, consulting policy on semantic errors.
// A write that makes no progress and reports no error yields io.ErrShortWrite.
func WriteAll(w io.Writer, p []byte, policy SemanticPolicy) (n int, err error) {
	if policy == nil {
		policy = ReturnPolicy{}
	}
	for n < len(p) {
		nw, ew := w.Write(p[n:])
		n += nw
		if ew == nil {
			if nw == 0 {
				return n, io.ErrShortWrite
			}
			continue
		}
		if IsWouldBlock(ew) && policy.OnWouldBlock(OpWriteAll) == PolicyRetry {
			policy.Yield(OpWriteAll)
			continue
		}
		if IsMore(ew) && policy.OnMore(OpWriteAll) == PolicyRetry {
			policy.Yield(OpWriteAll)
			continue
		}
		return n, ew
	}
	return n, nil
}

// Buffer is the default staging buffer used by Copy when none is supplied.
type Buffer [32 * 1024]byte

// retry reports whether policy asks to retry the semantic error err, and
// yields if so.
func retry(policy SemanticPolicy, op Op, err error) bool {
	if policy == nil {
		return false
	}
	var action PolicyAction
	switch {
	case IsWouldBlock(err):
		action = policy.OnWouldBlock(op)
	case IsMore(err):
		action = policy.OnMore(op)
	default:
		return false
	}
	if action != PolicyRetry {
		return false
	}
	policy.Yield(op)
	return true
}

func copyBuffer(dst io.Writer, src io.Reader, buf []byte, policy SemanticPolicy) (written int64, err error) {
	if wt, ok := src.(io.WriterTo); ok {
		return copyFast(func() (int64, error) { return wt.WriteTo(dst) }, policy, OpCopyWriterTo)
	}
	if rf, ok := dst.(io.ReaderFrom); ok {
		return copyFast(func() (int64, error) { return rf.ReadFrom(src) }, policy, OpCopyReaderFrom)
	}

	if buf == nil {
		var local Buffer
		buf = local[:]
	}

	for {
		nr, er := src.Read(buf)
		off := 0
		for off < nr {
			nw, ew := dst.Write(buf[off:nr])
			if nw > 0 {
				written += int64(nw)
				off += nw
			}
			if ew == nil {
				if nw == 0 {
					return written, io.ErrShortWrite
				}
				continue
			}
			if retry(policy, OpCopyWrite, ew) {
				continue
			}
			if off < nr && IsSemantic(ew) {
				seeker, ok := src.(io.Seeker)
				if !ok {
					return written, ErrNoSeeker
				}
				if _, serr := seeker.Seek(int64(off-nr), io.SeekCurrent); serr != nil {
					return written, serr
				}
			}
			return written, ew
		}

		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			if retry(policy, OpCopyRead, er) {
				continue
			}
			return written, er
		}
		if nr == 0 {
			return written, nil
		}
	}
}

// copyFast loops a WriterTo/ReaderFrom fast path under policy.
func copyFast(step func() (int64, error), policy SemanticPolicy, op Op) (int64, error) {
	var total int64
	for {
		n, err := step()
		total += n
		if err == nil || err == io.EOF {
			return total, nil
		}
		if retry(policy, op, err) {
			continue
		}
		return total, err
	}
}
