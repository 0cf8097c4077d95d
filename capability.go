// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
)

// Runtime is the task capability of an engine.
//
// Runtime values are shared by reference across goroutines without extra
// locking. The generic helpers Unblock and BlockOn give typed access to the
// type-erased methods.
type Runtime interface {
	// Spawn starts task concurrently and returns immediately. The task's
	// completion is not observable; a panic inside it is recovered and logged
	// by the engine.
	Spawn(task func())

	// Unblock runs job where it cannot starve the engine's other tasks. The
	// returned Job resolves to nil when job returned, or to a *JoinError when
	// it panicked or was cancelled.
	Unblock(job func()) *Job

	// BlockOn drives step on the calling goroutine until it returns anything
	// but ErrWouldBlock, waiting between attempts the way the engine waits.
	// It returns ctx.Err() if ctx ends first.
	//
	// Calling BlockOn from inside another BlockOn's step is a caller error on
	// engines that forbid reentrant blocking; it is not detected.
	BlockOn(ctx context.Context, step func() error) error
}

// Transport is one established bidirectional byte stream, such as an accepted
// TCP or Unix-socket connection. Reads and writes may report ErrWouldBlock on
// poll-style engines.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// File is a readable, writable and seekable byte store.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Stat() (fs.FileInfo, error)
}

// Listener accepts connections on an engine-defined address type A.
//
// Binding is done by the engine (see Backend.BindTCP and Backend.BindUnix)
// because it produces the listener.
type Listener[A any] interface {
	// Accept returns the next connection and its peer address. The address is
	// nil when the transport kind has no meaningful peer, such as an unnamed
	// Unix socket. Poll-style engines return ErrWouldBlock when no connection
	// is pending.
	Accept(ctx context.Context) (Transport, *A, error)

	// Addr returns the bound local address.
	Addr() A

	// Close stops listening. Connections already accepted stay open.
	Close() error
}

// OpenOptions is the portable set of file open flags.
//
// Engines translate it into their own option type. At least one of Read,
// Write or Append must be set.
type OpenOptions struct {
	Read     bool
	Write    bool
	Append   bool
	Truncate bool
	Create   bool
	// CreateNew fails if the file already exists. It implies Create.
	CreateNew bool
	// Perm is used when the file is created. Zero selects 0o644.
	Perm fs.FileMode
}

// ErrInvalidOpenOptions is returned when OpenOptions has no access mode.
var ErrInvalidOpenOptions = errors.New("rtio: open options select no access mode")

// Validate reports whether o selects an access mode.
func (o OpenOptions) Validate() error {
	if !o.Read && !o.Write && !o.Append {
		return ErrInvalidOpenOptions
	}
	return nil
}

// FilePerm returns Perm or the default creation mode.
func (o OpenOptions) FilePerm() fs.FileMode {
	if o.Perm == 0 {
		return 0o644
	}
	return o.Perm
}

// DirEntry is one entry of a directory listing.
type DirEntry interface {
	// Path returns the directory path joined with the entry name.
	Path() string
	// Metadata fetches the entry's metadata without following symlinks. It
	// may need a separate call into the engine.
	Metadata(ctx context.Context) (fs.FileInfo, error)
}

// ReadDir is a lazily produced directory listing.
type ReadDir interface {
	// Next returns the next entry, or io.EOF after the last one.
	Next(ctx context.Context) (DirEntry, error)
	Close() error
}

// Filesystem is the file capability of an engine.
type Filesystem interface {
	Open(ctx context.Context, path string, opts OpenOptions) (File, error)
	ReadDir(ctx context.Context, path string) (ReadDir, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Metadata(ctx context.Context, path string) (fs.FileInfo, error)
}

// Entries ranges over rd until io.EOF, an error, or the consumer stops.
// A failed Next is yielded once and ends the range. Entries does not close rd.
func Entries(ctx context.Context, rd ReadDir) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		for {
			e, err := rd.Next(ctx)
			if err == io.EOF {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}
