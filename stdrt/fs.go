// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stdrt

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"code.hybscloud.com/rtio"
)

// readDirBatch is how many entries one ReadDir refill fetches.
const readDirBatch = 64

// FS is the os filesystem. Every call runs through Global.Unblock so that a
// cancelled ctx releases the caller even when the kernel call is slow.
// Opened files are *os.File.
type FS struct{}

var _ rtio.Filesystem = FS{}

// OpenFlags translates portable open options into os.OpenFile flags.
func OpenFlags(o rtio.OpenOptions) (int, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	var flag int
	switch {
	case o.Read && (o.Write || o.Append):
		flag = os.O_RDWR
	case o.Write || o.Append:
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}
	if o.Append {
		flag |= os.O_APPEND
	}
	if o.Truncate {
		flag |= os.O_TRUNC
	}
	if o.CreateNew {
		flag |= os.O_CREATE | os.O_EXCL
	} else if o.Create {
		flag |= os.O_CREATE
	}
	return flag, nil
}

type openResult struct {
	f   *os.File
	err error
}

// Open opens path with opts.
func (FS) Open(ctx context.Context, path string, opts rtio.OpenOptions) (rtio.File, error) {
	flag, err := OpenFlags(opts)
	if err != nil {
		return nil, err
	}
	p := rtio.Unblock(Global{}, func() openResult {
		f, err := os.OpenFile(path, flag, opts.FilePerm())
		return openResult{f, err}
	})
	res, err := p.Await(ctx)
	if err != nil {
		closeLate(p)
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.f, nil
}

// closeLate closes a file whose open finished after the caller gave up.
func closeLate(p *rtio.Pending[openResult]) {
	go func() {
		if res, err := p.Await(context.Background()); err == nil && res.f != nil {
			_ = res.f.Close()
		}
	}()
}

// ReadDir lists path lazily.
func (FS) ReadDir(ctx context.Context, path string) (rtio.ReadDir, error) {
	p := rtio.Unblock(Global{}, func() openResult {
		f, err := os.Open(path)
		return openResult{f, err}
	})
	res, err := p.Await(ctx)
	if err != nil {
		closeLate(p)
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	return &dirStream{dir: path, f: res.f}, nil
}

// ReadFile reads the whole file at path.
func (FS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	type result struct {
		b   []byte
		err error
	}
	res, err := rtio.Unblock(Global{}, func() result {
		b, err := os.ReadFile(path)
		return result{b, err}
	}).Await(ctx)
	if err != nil {
		return nil, err
	}
	return res.b, res.err
}

// Metadata stats path, following symlinks.
func (FS) Metadata(ctx context.Context, path string) (fs.FileInfo, error) {
	return statAsync(ctx, func() (fs.FileInfo, error) { return os.Stat(path) })
}

type statResult struct {
	fi  fs.FileInfo
	err error
}

func statAsync(ctx context.Context, stat func() (fs.FileInfo, error)) (fs.FileInfo, error) {
	res, err := rtio.Unblock(Global{}, func() statResult {
		fi, err := stat()
		return statResult{fi, err}
	}).Await(ctx)
	if err != nil {
		return nil, err
	}
	return res.fi, res.err
}

// dirStream refills from (*os.File).ReadDir in batches.
type dirStream struct {
	dir   string
	f     *os.File
	batch []os.DirEntry
	done  bool
}

func (d *dirStream) Next(ctx context.Context) (rtio.DirEntry, error) {
	for len(d.batch) == 0 {
		if d.done {
			return nil, io.EOF
		}
		type result struct {
			entries []os.DirEntry
			err     error
		}
		res, err := rtio.Unblock(Global{}, func() result {
			es, err := d.f.ReadDir(readDirBatch)
			return result{es, err}
		}).Await(ctx)
		if err != nil {
			return nil, err
		}
		d.batch = res.entries
		if res.err == io.EOF {
			d.done = true
		} else if res.err != nil {
			if len(d.batch) == 0 {
				return nil, res.err
			}
			d.done = true
		}
	}
	e := d.batch[0]
	d.batch = d.batch[1:]
	return dirEntry{path: filepath.Join(d.dir, e.Name()), e: e}, nil
}

func (d *dirStream) Close() error { return d.f.Close() }

type dirEntry struct {
	path string
	e    os.DirEntry
}

func (e dirEntry) Path() string { return e.path }

func (e dirEntry) Metadata(ctx context.Context) (fs.FileInfo, error) {
	return statAsync(ctx, e.e.Info)
}
