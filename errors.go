// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"errors"
	"fmt"
	"os"
)

// rtio uses two semantic errors for readiness and multi-shot I/O.
//
// Mental model:
//   - ErrWouldBlock: retry later (wait for readiness/completion, then try again).
//   - ErrMore: keep polling (operation remains active; more completions will follow).
//
// Neither is a failure. Engines report them, adapters forward them unchanged.

// ErrWouldBlock means “no further progress without waiting”.
// Linux analogy: EAGAIN/EWOULDBLOCK / not-ready / no completion available.
// Next step: wait (policy yield, backoff, readiness), then retry the same call.
var ErrWouldBlock = errors.New("rtio: would block")

// ErrMore means “this operation remains active; more completions will follow”
// (multi-shot / streaming style).
var ErrMore = errors.New("rtio: expect more")

// ErrNoSeeker is returned by Copy when a semantic write error left bytes
// unwritten and the source cannot be rewound.
var ErrNoSeeker = errors.New("rtio: partial write on non-seekable source")

// ErrSeekInFlight is returned by a two-phase seeker when StartSeek is called
// while another operation on the same object has not completed yet.
var ErrSeekInFlight = errors.New("rtio: other operation pending, poll for completion before seeking")

// ErrClosed is returned by adapters used after Close.
var ErrClosed = os.ErrClosed

// JoinError reports that an offloaded job did not produce a result.
//
// Exactly one of the two causes is set: the job panicked (Panic holds the
// recovered value) or it was cancelled before or while running (engine
// shutdown, runtime.Goexit). Both are failures; neither is collapsed into a
// zero result.
type JoinError struct {
	Panic     any
	Cancelled bool
}

// IsPanic reports whether the job panicked.
func (e *JoinError) IsPanic() bool { return !e.Cancelled }

// IsCancelled reports whether the job was cancelled.
func (e *JoinError) IsCancelled() bool { return e.Cancelled }

func (e *JoinError) Error() string {
	if e.Cancelled {
		return "rtio: job cancelled"
	}
	return fmt.Sprintf("rtio: job panicked: %v", e.Panic)
}

// Unwrap returns the panic value when it is an error.
func (e *JoinError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}
