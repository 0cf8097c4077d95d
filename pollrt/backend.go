// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package pollrt

import (
	"context"
	"net/netip"
	"sync"

	"github.com/tetratelabs/wazero/experimental/sysfs"

	"code.hybscloud.com/rtio"
)

// Backend selects the engine bundle on the Default runtime: TCPListener,
// UnixListener and an FS rooted at "/".
type Backend struct{}

var _ rtio.Backend = Backend{}

// Runtime returns Default.
func (Backend) Runtime() rtio.Runtime { return Default() }

// BindTCP binds a *TCPListener with the default backlog.
func (Backend) BindTCP(ctx context.Context, addr netip.AddrPort) (rtio.Listener[netip.AddrPort], error) {
	l, err := BindTCP(ctx, addr)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// BindUnix binds a *UnixListener with the default backlog.
func (Backend) BindUnix(ctx context.Context, path string) (rtio.Listener[string], error) {
	l, err := BindUnix(ctx, path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

var rootFS = sync.OnceValue(func() *FS {
	return &FS{rt: Default(), sys: sysfs.DirFS("/"), root: "/"}
})

// FS returns the root file system on Default.
func (Backend) FS() rtio.Filesystem { return rootFS() }
