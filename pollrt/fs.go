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
	"strings"

	experimentalsys "github.com/tetratelabs/wazero/experimental/sys"
	"github.com/tetratelabs/wazero/experimental/sysfs"
	"github.com/tetratelabs/wazero/sys"

	"code.hybscloud.com/rtio"
)

// readDirBatch is how many entries one ReadDir refill fetches.
const readDirBatch = 64

// FS is a directory tree served through wazero's host file system. Paths
// given to FS are host paths; relative ones resolve against the working
// directory and must stay under the root. Errors carry wazero's Errno
// vocabulary inside *fs.PathError.
type FS struct {
	rt   *Runtime
	sys  experimentalsys.FS
	root string
}

var _ rtio.Filesystem = (*FS)(nil)

// NewFS serves the tree at root on rt. A nil rt selects Default.
func NewFS(rt *Runtime, root string) (*FS, error) {
	if rt == nil {
		rt = Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FS{rt: rt, sys: sysfs.DirFS(abs), root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// rel maps a host path to a path inside the root.
func (f *FS) rel(op, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &fs.PathError{Op: op, Path: path, Err: err}
	}
	r, err := filepath.Rel(f.root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, "../") {
		return "", &fs.PathError{Op: op, Path: path, Err: experimentalsys.EPERM}
	}
	return r, nil
}

// Oflag translates portable open options into wazero open flags.
func Oflag(o rtio.OpenOptions) (experimentalsys.Oflag, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	var flag experimentalsys.Oflag
	switch {
	case o.Read && (o.Write || o.Append):
		flag = experimentalsys.O_RDWR
	case o.Write || o.Append:
		flag = experimentalsys.O_WRONLY
	default:
		flag = experimentalsys.O_RDONLY
	}
	if o.Append {
		flag |= experimentalsys.O_APPEND
	}
	if o.Truncate {
		flag |= experimentalsys.O_TRUNC
	}
	if o.CreateNew {
		flag |= experimentalsys.O_CREAT | experimentalsys.O_EXCL
	} else if o.Create {
		flag |= experimentalsys.O_CREAT
	}
	return flag, nil
}

type openResult struct {
	f     experimentalsys.File
	errno experimentalsys.Errno
}

func (f *FS) openFile(ctx context.Context, op, path string, flag experimentalsys.Oflag, perm fs.FileMode) (experimentalsys.File, error) {
	r, err := f.rel(op, path)
	if err != nil {
		return nil, err
	}
	p := rtio.Unblock(f.rt, func() openResult {
		sf, errno := f.sys.OpenFile(r, flag, perm)
		return openResult{sf, errno}
	})
	res, err := p.Await(ctx)
	if err != nil {
		go func() {
			if res, err := p.Await(context.Background()); err == nil && res.errno == 0 {
				_ = res.f.Close()
			}
		}()
		return nil, err
	}
	if res.errno != 0 {
		return nil, &fs.PathError{Op: op, Path: path, Err: res.errno}
	}
	return res.f, nil
}

// Open opens path with opts. The file is a *rtio.CompatFile[*File].
func (f *FS) Open(ctx context.Context, path string, opts rtio.OpenOptions) (rtio.File, error) {
	flag, err := Oflag(opts)
	if err != nil {
		return nil, err
	}
	sf, err := f.openFile(ctx, "open", path, flag, opts.FilePerm())
	if err != nil {
		return nil, err
	}
	return rtio.NewCompatFile(newFile(f.rt, sf, path)), nil
}

// ReadDir lists path lazily.
func (f *FS) ReadDir(ctx context.Context, path string) (rtio.ReadDir, error) {
	sf, err := f.openFile(ctx, "readdir", path, experimentalsys.O_RDONLY|experimentalsys.O_DIRECTORY, 0)
	if err != nil {
		return nil, err
	}
	return &dirStream{fsys: f, dir: path, f: sf}, nil
}

// ReadFile reads the whole file at path.
func (f *FS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	sf, err := f.openFile(ctx, "open", path, experimentalsys.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	res, err := rtio.Unblock(f.rt, func() opResult {
		defer sf.Close()
		var b []byte
		if st, errno := sf.Stat(); errno == 0 && st.Size > 0 {
			b = make([]byte, 0, st.Size+1)
		}
		for {
			if len(b) == cap(b) {
				b = append(b, 0)[:len(b)]
			}
			n, errno := sf.Read(b[len(b):cap(b)])
			b = b[:len(b)+n]
			if errno != 0 {
				return opResult{buf: b, errno: errno}
			}
			if n == 0 {
				return opResult{buf: b}
			}
		}
	}).Await(ctx)
	if err != nil {
		return nil, err
	}
	if res.errno != 0 {
		return nil, &fs.PathError{Op: "read", Path: path, Err: res.errno}
	}
	return res.buf, nil
}

// Metadata stats path, following symlinks.
func (f *FS) Metadata(ctx context.Context, path string) (fs.FileInfo, error) {
	return f.stat(ctx, "stat", path, f.sys.Stat)
}

func (f *FS) stat(ctx context.Context, op, path string, stat func(string) (sys.Stat_t, experimentalsys.Errno)) (fs.FileInfo, error) {
	r, err := f.rel(op, path)
	if err != nil {
		return nil, err
	}
	type result struct {
		st    sys.Stat_t
		errno experimentalsys.Errno
	}
	res, err := rtio.Unblock(f.rt, func() result {
		st, errno := stat(r)
		return result{st, errno}
	}).Await(ctx)
	if err != nil {
		return nil, err
	}
	if res.errno != 0 {
		return nil, &fs.PathError{Op: op, Path: path, Err: res.errno}
	}
	return fileInfo{name: filepath.Base(path), st: res.st}, nil
}

// dirStream refills from File.Readdir in batches.
type dirStream struct {
	fsys  *FS
	dir   string
	f     experimentalsys.File
	batch []experimentalsys.Dirent
	done  bool
}

func (d *dirStream) Next(ctx context.Context) (rtio.DirEntry, error) {
	for {
		for len(d.batch) > 0 {
			e := d.batch[0]
			d.batch = d.batch[1:]
			if e.Name == "." || e.Name == ".." {
				continue
			}
			return dirEntry{fsys: d.fsys, path: filepath.Join(d.dir, e.Name)}, nil
		}
		if d.done {
			return nil, io.EOF
		}
		type result struct {
			entries []experimentalsys.Dirent
			errno   experimentalsys.Errno
		}
		sf := d.f
		res, err := rtio.Unblock(d.fsys.rt, func() result {
			es, errno := sf.Readdir(readDirBatch)
			return result{es, errno}
		}).Await(ctx)
		if err != nil {
			return nil, err
		}
		if res.errno != 0 {
			return nil, &fs.PathError{Op: "readdir", Path: d.dir, Err: res.errno}
		}
		d.batch = res.entries
		if len(d.batch) == 0 {
			d.done = true
		}
	}
}

func (d *dirStream) Close() error { return errnoErr(d.f.Close()) }

type dirEntry struct {
	fsys *FS
	path string
}

func (e dirEntry) Path() string { return e.path }

func (e dirEntry) Metadata(ctx context.Context) (fs.FileInfo, error) {
	return e.fsys.stat(ctx, "lstat", e.path, e.fsys.sys.Lstat)
}
