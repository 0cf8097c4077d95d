// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/rtio"
)

func TestIncoming_OneAcceptPerPull(t *testing.T) {
	l := &fakeListener{steps: []acceptStep{
		{c: conn("a")},
		{err: errBoom},
		{c: conn("b")},
	}}
	in := rtio.NewIncoming[string](l, newCountPolicy())
	ctx := context.Background()

	c, err := in.Next(ctx)
	if err != nil || c.(*namedConn).name != "a" {
		t.Fatalf("pull 1: %v %v", c, err)
	}
	if _, err := in.Next(ctx); !errors.Is(err, errBoom) {
		t.Fatalf("pull 2: want boom got %v", err)
	}
	c, err = in.Next(ctx)
	if err != nil || c.(*namedConn).name != "b" {
		t.Fatalf("pull 3: %v %v", c, err)
	}
	if l.calls != 3 {
		t.Fatalf("Accept called %d times, want 3", l.calls)
	}
}

func TestIncoming_WouldBlockIsNeverYielded(t *testing.T) {
	l := &fakeListener{}
	p := rtio.PolicyFunc{
		WouldBlockFunc: func(rtio.Op) rtio.PolicyAction { return rtio.PolicyRetry },
		YieldFunc: func(op rtio.Op) {
			if op != rtio.OpAccept {
				t.Errorf("yield op = %v, want Accept", op)
			}
			l.mu.Lock()
			if l.calls == 3 {
				l.steps = append(l.steps, acceptStep{c: conn("late")})
			}
			l.mu.Unlock()
		},
	}
	in := rtio.NewIncoming[string](l, p)
	c, err := in.Next(context.Background())
	if err != nil || c.(*namedConn).name != "late" {
		t.Fatalf("want late conn got %v %v", c, err)
	}
	if l.calls != 4 {
		t.Fatalf("Accept called %d times, want 4", l.calls)
	}
}

func TestIncoming_AllContinuesPastErrors(t *testing.T) {
	l := &fakeListener{steps: []acceptStep{
		{err: errBoom},
		{c: conn("a")},
		{err: errBoom},
		{c: conn("b")},
	}}
	in := rtio.NewIncoming[string](l, newCountPolicy())

	var names []string
	var errs int
	for c, err := range in.All(context.Background()) {
		if err != nil {
			errs++
			continue
		}
		names = append(names, c.(*namedConn).name)
		if len(names) == 2 {
			break
		}
	}
	if errs != 2 || len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names=%v errs=%d", names, errs)
	}
}

func TestIncoming_AllEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	in := rtio.NewIncoming[string](&fakeListener{}, nil)

	var last error
	n := 0
	for _, err := range in.All(ctx) {
		last = err
		n++
	}
	if n != 1 || !errors.Is(last, context.DeadlineExceeded) {
		t.Fatalf("want one DeadlineExceeded element got %d, last %v", n, last)
	}
}

func TestIncoming_ConcurrentPullsSeeEachConnOnce(t *testing.T) {
	const total = 64
	l := &fakeListener{}
	for i := range total {
		l.steps = append(l.steps, acceptStep{c: &namedConn{name: string(rune('A' + i))}})
	}
	in := rtio.NewIncoming[string](l, rtio.YieldPolicy{})

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range total / 8 {
				c, err := in.Next(context.Background())
				if err != nil {
					t.Errorf("Next: %v", err)
					return
				}
				mu.Lock()
				seen[c.(*namedConn).name]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != total {
		t.Fatalf("saw %d distinct conns, want %d", len(seen), total)
	}
	for name, n := range seen {
		if n != 1 {
			t.Fatalf("conn %s seen %d times", name, n)
		}
	}
}

func TestIncoming_CloseClosesListener(t *testing.T) {
	l := &fakeListener{}
	in := rtio.NewIncoming[string](l, nil)
	if in.Listener() != rtio.Listener[string](l) {
		t.Fatalf("Listener does not return the owned listener")
	}
	if err := in.Close(); err != nil || !l.closed {
		t.Fatalf("Close: err=%v closed=%v", err, l.closed)
	}
}
