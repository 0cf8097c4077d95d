// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"

	"code.hybscloud.com/rtio"
)

var (
	errBoom     = errors.New("boom")
	errNegative = errors.New("negative offset")
)

// step is one scripted native completion.
type step struct {
	data []byte
	err  error
}

// fakeStream is a scripted cursor-style stream. An exhausted script reports
// end of stream.
type fakeStream struct {
	reads   []step
	calls   int
	written bytes.Buffer
	flushes int
	shuts   int
	closes  int
}

func (s *fakeStream) ReadBuf(b *rtio.ReadBuf) error {
	s.calls++
	if len(s.reads) == 0 {
		return nil
	}
	st := s.reads[0]
	s.reads = s.reads[1:]
	b.Put(st.data)
	return st.err
}

func (s *fakeStream) Write(p []byte) (int, error) { return s.written.Write(p) }
func (s *fakeStream) Flush() error                { s.flushes++; return nil }
func (s *fakeStream) Shutdown() error             { s.shuts++; return nil }
func (s *fakeStream) Close() error                { s.closes++; return nil }

// fakeFile adds a two-phase seek over a 100-byte file. Each started seek
// stays pending for `pending` polls.
type fakeFile struct {
	fakeStream
	pending   int
	startErr  error
	pollErr   error
	inFlight  bool
	remaining int
	failed    bool
	pos       int64
	target    int64
	starts    int
	polls     int
}

func (f *fakeFile) StartSeek(offset int64, whence int) error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	if f.inFlight {
		return rtio.ErrSeekInFlight
	}
	switch whence {
	case io.SeekStart:
		f.target = offset
	case io.SeekCurrent:
		f.target = f.pos + offset
	case io.SeekEnd:
		f.target = 100 + offset
	}
	f.failed = f.target < 0
	f.inFlight, f.remaining = true, f.pending
	return nil
}

func (f *fakeFile) PollSeek() (int64, error) {
	f.polls++
	if err := f.pollErr; err != nil {
		f.pollErr = nil
		return 0, err
	}
	if !f.inFlight {
		return f.pos, nil
	}
	if f.remaining > 0 {
		f.remaining--
		return 0, rtio.ErrWouldBlock
	}
	f.inFlight = false
	if f.failed {
		return 0, errNegative
	}
	f.pos = f.target
	return f.pos, nil
}

func (f *fakeFile) Stat() (fs.FileInfo, error) { return nil, nil }

// script is a reader that replays steps, then reports io.EOF.
type script struct {
	steps []step
}

func (r *script) Read(p []byte) (int, error) {
	if len(r.steps) == 0 {
		return 0, io.EOF
	}
	st := r.steps[0]
	n := copy(p, st.data)
	if n < len(st.data) {
		r.steps[0].data = st.data[n:]
		return n, nil
	}
	r.steps = r.steps[1:]
	return n, st.err
}

// chokeWriter accepts at most limit bytes per call and reports
// ErrWouldBlock for the first `blocks` calls after accepting them.
type chokeWriter struct {
	buf    bytes.Buffer
	limit  int
	blocks int
}

func (w *chokeWriter) Write(p []byte) (int, error) {
	if w.limit > 0 && len(p) > w.limit {
		p = p[:w.limit]
	}
	n, _ := w.buf.Write(p)
	if w.blocks > 0 {
		w.blocks--
		return n, rtio.ErrWouldBlock
	}
	return n, nil
}

// countPolicy retries everything and counts yields.
type countPolicy struct {
	yields map[rtio.Op]int
}

func newCountPolicy() *countPolicy { return &countPolicy{yields: map[rtio.Op]int{}} }

func (p *countPolicy) Yield(op rtio.Op)                       { p.yields[op]++ }
func (p *countPolicy) OnWouldBlock(rtio.Op) rtio.PolicyAction { return rtio.PolicyRetry }
func (p *countPolicy) OnMore(rtio.Op) rtio.PolicyAction       { return rtio.PolicyRetry }

// goRuntime runs everything on plain goroutines.
type goRuntime struct{}

func (goRuntime) Spawn(task func()) { go task() }

func (goRuntime) Unblock(job func()) *rtio.Job {
	j := rtio.NewJob()
	go j.Run(job)
	return j
}

func (goRuntime) BlockOn(ctx context.Context, step func() error) error {
	return rtio.Drive(ctx, rtio.YieldPolicy{}, rtio.OpBlockOn, step)
}

// namedConn is a Transport that only carries an identity.
type namedConn struct {
	io.Reader
	io.Writer
	name string
}

func (c *namedConn) Close() error { return nil }

func conn(name string) *namedConn {
	return &namedConn{Reader: bytes.NewReader(nil), Writer: io.Discard, name: name}
}

type acceptStep struct {
	c   rtio.Transport
	err error
}

// fakeListener replays accept steps, then reports ErrWouldBlock.
type fakeListener struct {
	mu     sync.Mutex
	steps  []acceptStep
	calls  int
	closed bool
}

func (l *fakeListener) Accept(ctx context.Context) (rtio.Transport, *string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(l.steps) == 0 {
		return nil, nil, rtio.ErrWouldBlock
	}
	st := l.steps[0]
	l.steps = l.steps[1:]
	if st.err != nil {
		return nil, nil, st.err
	}
	peer := "peer"
	return st.c, &peer, nil
}

func (l *fakeListener) Addr() string { return "fake" }

func (l *fakeListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
