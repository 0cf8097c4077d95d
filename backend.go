// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"context"
	"net/netip"
)

// Backend bundles the capability implementations of one engine.
//
// Engines provide a zero-size marker type implementing Backend. Generic code
// takes the marker as a type parameter and calls the helpers below, which
// need no value, so swapping the type argument swaps the whole I/O stack:
//
//	func serve[B rtio.Backend](ctx context.Context) error {
//		l, err := rtio.BindTCP[B](ctx, netip.MustParseAddrPort("127.0.0.1:0"))
//		...
//	}
type Backend interface {
	// Runtime returns the engine's runtime. Engines with a canonical
	// process-wide instance return that instance on every call.
	Runtime() Runtime

	// BindTCP listens on a TCP address. Port 0 picks a free port.
	BindTCP(ctx context.Context, addr netip.AddrPort) (Listener[netip.AddrPort], error)

	// BindUnix listens on a Unix-socket path.
	BindUnix(ctx context.Context, path string) (Listener[string], error)

	// FS returns the engine's filesystem.
	FS() Filesystem
}

// RuntimeOf returns the runtime of backend B.
func RuntimeOf[B Backend]() Runtime {
	var b B
	return b.Runtime()
}

// BindTCP binds a TCP listener with backend B.
func BindTCP[B Backend](ctx context.Context, addr netip.AddrPort) (Listener[netip.AddrPort], error) {
	var b B
	return b.BindTCP(ctx, addr)
}

// BindUnix binds a Unix-socket listener with backend B.
func BindUnix[B Backend](ctx context.Context, path string) (Listener[string], error) {
	var b B
	return b.BindUnix(ctx, path)
}

// FSOf returns the filesystem of backend B.
func FSOf[B Backend]() Filesystem {
	var b B
	return b.FS()
}
