// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stdrt

import (
	"context"
	"net/netip"

	"code.hybscloud.com/rtio"
)

// Backend selects the Go runtime bundle: Global, TCPListener, UnixListener
// and FS.
type Backend struct{}

var _ rtio.Backend = Backend{}

// Runtime returns Global.
func (Backend) Runtime() rtio.Runtime { return Global{} }

// BindTCP binds a *TCPListener.
func (Backend) BindTCP(ctx context.Context, addr netip.AddrPort) (rtio.Listener[netip.AddrPort], error) {
	l, err := BindTCP(ctx, addr)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// BindUnix binds a *UnixListener.
func (Backend) BindUnix(ctx context.Context, path string) (rtio.Listener[string], error) {
	l, err := BindUnix(ctx, path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// FS returns FS.
func (Backend) FS() rtio.Filesystem { return FS{} }
