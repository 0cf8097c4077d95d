// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"code.hybscloud.com/rtio"
)

func TestJob_FinishOnce(t *testing.T) {
	j := rtio.NewJob()
	if err := j.Poll(); !errors.Is(err, rtio.ErrWouldBlock) {
		t.Fatalf("unresolved Poll: want ErrWouldBlock got %v", err)
	}
	if !j.Finish(errBoom) {
		t.Fatalf("first Finish reported false")
	}
	if j.Finish(nil) {
		t.Fatalf("second Finish reported true")
	}
	if err := j.Poll(); !errors.Is(err, errBoom) {
		t.Fatalf("Poll: want boom got %v", err)
	}
	select {
	case <-j.Done():
	default:
		t.Fatalf("Done not closed")
	}
}

func TestJob_WaitHonoursContext(t *testing.T) {
	j := rtio.NewJob()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}
}

func TestJob_RunOutcomes(t *testing.T) {
	t.Run("return", func(t *testing.T) {
		j := rtio.NewJob()
		if err := j.Run(func() {}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if err := j.Poll(); err != nil {
			t.Fatalf("Poll: %v", err)
		}
	})

	t.Run("panic", func(t *testing.T) {
		j := rtio.NewJob()
		err := j.Run(func() { panic(errBoom) })
		var je *rtio.JoinError
		if !errors.As(err, &je) || !je.IsPanic() || je.IsCancelled() {
			t.Fatalf("want panic JoinError got %#v", err)
		}
		if !errors.Is(j.Poll(), errBoom) {
			t.Fatalf("JoinError does not unwrap the panic value: %v", j.Poll())
		}
	})

	t.Run("goexit", func(t *testing.T) {
		j := rtio.NewJob()
		go j.Run(runtime.Goexit)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := j.Wait(ctx)
		var je *rtio.JoinError
		if !errors.As(err, &je) || !je.IsCancelled() {
			t.Fatalf("want cancelled JoinError got %v", err)
		}
	})
}

func TestUnblock_TypedResult(t *testing.T) {
	p := rtio.Unblock(goRuntime{}, func() int { return 42 })
	v, err := p.Await(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("Await: want (42, nil) got (%d, %v)", v, err)
	}
	v, err = p.Poll()
	if err != nil || v != 42 {
		t.Fatalf("Poll after Await: want (42, nil) got (%d, %v)", v, err)
	}
}

func TestUnblock_PanicIsNotZeroValue(t *testing.T) {
	p := rtio.Unblock(goRuntime{}, func() string { panic("bad") })
	_, err := p.Await(context.Background())
	var je *rtio.JoinError
	if !errors.As(err, &je) || je.Panic != "bad" {
		t.Fatalf("want JoinError{Panic: bad} got %v", err)
	}
}

func TestUnblock_PollBeforeDone(t *testing.T) {
	release := make(chan struct{})
	p := rtio.Unblock(goRuntime{}, func() int { <-release; return 1 })
	if _, err := p.Poll(); !errors.Is(err, rtio.ErrWouldBlock) {
		t.Fatalf("want ErrWouldBlock got %v", err)
	}
	close(release)
	v, err := rtio.BlockOn(context.Background(), goRuntime{}, p.Poll)
	if err != nil || v != 1 {
		t.Fatalf("BlockOn: want (1, nil) got (%d, %v)", v, err)
	}
}
