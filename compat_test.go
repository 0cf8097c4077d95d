// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio_test

import (
	"errors"
	"io"
	"testing"

	"code.hybscloud.com/rtio"
)

func TestCompat_ReadReportsFilledCount(t *testing.T) {
	s := &fakeStream{reads: []step{
		{data: []byte("abc")},
		{err: rtio.ErrWouldBlock},
		{data: []byte("xy"), err: errBoom},
		{data: []byte("0123456789")},
		{},
	}}
	c := rtio.NewCompat(s)
	p := make([]byte, 8)

	n, err := c.Read(p)
	if err != nil || n != 3 || string(p[:n]) != "abc" {
		t.Fatalf("read 1: n=%d err=%v data=%q", n, err, p[:n])
	}
	n, err = c.Read(p)
	if !errors.Is(err, rtio.ErrWouldBlock) || n != 0 {
		t.Fatalf("read 2: want (0, ErrWouldBlock) got (%d, %v)", n, err)
	}
	n, err = c.Read(p)
	if !errors.Is(err, errBoom) || n != 2 {
		t.Fatalf("read 3: want (2, boom) got (%d, %v)", n, err)
	}
	n, err = c.Read(p)
	if err != nil || n != len(p) || string(p) != "01234567" {
		t.Fatalf("read 4: n=%d err=%v data=%q", n, err, p[:n])
	}
	n, err = c.Read(p)
	if err != io.EOF || n != 0 {
		t.Fatalf("read 5: want (0, EOF) got (%d, %v)", n, err)
	}
}

func TestCompat_EmptyReadDoesNotDelegate(t *testing.T) {
	s := &fakeStream{reads: []step{{data: []byte("abc")}}}
	c := rtio.NewCompat(s)
	n, err := c.Read(nil)
	if n != 0 || err != nil {
		t.Fatalf("want (0, nil) got (%d, %v)", n, err)
	}
	if s.calls != 0 {
		t.Fatalf("native read called %d times", s.calls)
	}
}

func TestCompat_WriteSideForwarded(t *testing.T) {
	s := &fakeStream{}
	c := rtio.NewCompat(s)
	if n, err := c.Write([]byte("hello")); n != 5 || err != nil {
		t.Fatalf("Write: (%d, %v)", n, err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if s.written.String() != "hello" || s.flushes != 1 || s.shuts != 1 {
		t.Fatalf("native saw %q flushes=%d shuts=%d", s.written.String(), s.flushes, s.shuts)
	}
	if c.Inner() != s {
		t.Fatalf("Inner does not return the wrapped stream")
	}
}

func TestCompat_CloseOnce(t *testing.T) {
	s := &fakeStream{}
	c := rtio.NewCompat(s)
	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); !errors.Is(err, rtio.ErrClosed) {
		t.Fatalf("second Close: want ErrClosed got %v", err)
	}
	if s.closes != 1 {
		t.Fatalf("native closed %d times", s.closes)
	}
	if _, err := c.Read(make([]byte, 1)); !errors.Is(err, rtio.ErrClosed) {
		t.Fatalf("Read after Close: %v", err)
	}
	if _, err := c.Write([]byte("x")); !errors.Is(err, rtio.ErrClosed) {
		t.Fatalf("Write after Close: %v", err)
	}
}

func TestCompatFile_SeekPollsWithoutRestarting(t *testing.T) {
	f := &fakeFile{pending: 2}
	c := rtio.NewCompatFile(f)

	for i := range 2 {
		if _, err := c.Seek(10, io.SeekStart); !errors.Is(err, rtio.ErrWouldBlock) {
			t.Fatalf("attempt %d: want ErrWouldBlock got %v", i, err)
		}
	}
	pos, err := c.Seek(10, io.SeekStart)
	if err != nil || pos != 10 {
		t.Fatalf("completion: want (10, nil) got (%d, %v)", pos, err)
	}
	if f.starts != 1 {
		t.Fatalf("StartSeek called %d times, want 1", f.starts)
	}

	f.pending = 0
	pos, err = c.Seek(5, io.SeekCurrent)
	if err != nil || pos != 15 {
		t.Fatalf("relative seek: want (15, nil) got (%d, %v)", pos, err)
	}
	if f.starts != 2 {
		t.Fatalf("StartSeek called %d times, want 2", f.starts)
	}
}

func TestCompatFile_RetargetDrainsFirst(t *testing.T) {
	f := &fakeFile{pending: 1}
	c := rtio.NewCompatFile(f)

	if _, err := c.Seek(10, io.SeekStart); !errors.Is(err, rtio.ErrWouldBlock) {
		t.Fatalf("Seek(10): want ErrWouldBlock got %v", err)
	}
	if _, err := c.Seek(20, io.SeekStart); !errors.Is(err, rtio.ErrWouldBlock) {
		t.Fatalf("Seek(20): want ErrWouldBlock got %v", err)
	}
	if f.starts != 2 {
		t.Fatalf("StartSeek called %d times, want 2", f.starts)
	}
	pos, err := c.Seek(20, io.SeekStart)
	if err != nil || pos != 20 {
		t.Fatalf("want (20, nil) got (%d, %v)", pos, err)
	}
}

func TestCompatFile_ReadBetweenSeeksStartsAgain(t *testing.T) {
	f := &fakeFile{pending: 1}
	f.reads = []step{{data: []byte("ab")}}
	c := rtio.NewCompatFile(f)

	if _, err := c.Seek(10, io.SeekStart); !errors.Is(err, rtio.ErrWouldBlock) {
		t.Fatalf("Seek: want ErrWouldBlock got %v", err)
	}
	if n, err := c.Read(make([]byte, 4)); err != nil || n != 2 {
		t.Fatalf("Read: (%d, %v)", n, err)
	}
	// The same target after a Read is a new request: drain, then start.
	if _, err := c.Seek(10, io.SeekStart); !errors.Is(err, rtio.ErrWouldBlock) {
		t.Fatalf("Seek after Read: want ErrWouldBlock got %v", err)
	}
	if f.starts != 2 {
		t.Fatalf("StartSeek called %d times, want 2", f.starts)
	}
	pos, err := c.Seek(10, io.SeekStart)
	if err != nil || pos != 10 {
		t.Fatalf("want (10, nil) got (%d, %v)", pos, err)
	}

	if _, err := c.Seek(-1, io.SeekStart); !errors.Is(err, rtio.ErrWouldBlock) {
		t.Fatalf("Seek(-1): want ErrWouldBlock got %v", err)
	}
	if _, err := c.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := c.Seek(-1, io.SeekStart); !errors.Is(err, errNegative) {
		t.Fatalf("Seek(-1) after Write: want negative offset got %v", err)
	}
}

func TestCompatFile_StartFailureSkipsPoll(t *testing.T) {
	f := &fakeFile{startErr: errBoom}
	c := rtio.NewCompatFile(f)

	if _, err := c.Seek(3, io.SeekStart); !errors.Is(err, errBoom) {
		t.Fatalf("want boom got %v", err)
	}
	if f.polls != 1 {
		t.Fatalf("PollSeek called %d times, want 1 (drain only)", f.polls)
	}

	f.startErr = nil
	pos, err := c.Seek(3, io.SeekStart)
	if err != nil || pos != 3 {
		t.Fatalf("after failure: want (3, nil) got (%d, %v)", pos, err)
	}
}

func TestCompatFile_DrainFailureReturned(t *testing.T) {
	f := &fakeFile{pollErr: errBoom}
	c := rtio.NewCompatFile(f)
	if _, err := c.Seek(1, io.SeekStart); !errors.Is(err, errBoom) {
		t.Fatalf("want boom got %v", err)
	}
	if f.starts != 0 {
		t.Fatalf("StartSeek called %d times, want 0", f.starts)
	}
}

func TestCompatFile_NegativeSeekFails(t *testing.T) {
	f := &fakeFile{}
	c := rtio.NewCompatFile(f)
	if _, err := c.Seek(-1, io.SeekStart); !errors.Is(err, errNegative) {
		t.Fatalf("want native failure got %v", err)
	}
	pos, err := c.Seek(0, io.SeekEnd)
	if err != nil || pos != 100 {
		t.Fatalf("SeekEnd: want (100, nil) got (%d, %v)", pos, err)
	}
}

func TestCompatFile_ClosedSeek(t *testing.T) {
	c := rtio.NewCompatFile(&fakeFile{})
	_ = c.Close()
	if _, err := c.Seek(0, io.SeekStart); !errors.Is(err, rtio.ErrClosed) {
		t.Fatalf("want ErrClosed got %v", err)
	}
	if _, err := c.Stat(); !errors.Is(err, rtio.ErrClosed) {
		t.Fatalf("Stat: want ErrClosed got %v", err)
	}
}
