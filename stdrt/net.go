// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stdrt

import (
	"context"
	"net"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"code.hybscloud.com/rtio"
)

// TCPListener is a TCP listener of the Go runtime.
type TCPListener struct {
	l *net.TCPListener
}

var _ rtio.Listener[netip.AddrPort] = (*TCPListener)(nil)

// BindTCP listens on addr. Port 0 picks a free port.
func BindTCP(ctx context.Context, addr netip.AddrPort) (*TCPListener, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr.String())
	if err != nil {
		return nil, err
	}
	tl := &TCPListener{l: l.(*net.TCPListener)}
	Logger().Debug("tcp listener bound", zap.Stringer("addr", tl.Addr()))
	return tl, nil
}

// AcceptTCP waits for the next connection. It returns ctx.Err() if ctx ends
// first.
func (l *TCPListener) AcceptTCP(ctx context.Context) (*net.TCPConn, netip.AddrPort, error) {
	c, err := acceptContext(ctx, l.l, l.l.AcceptTCP)
	if err != nil {
		return nil, netip.AddrPort{}, err
	}
	return c, tcpAddrPort(c.RemoteAddr()), nil
}

// Accept implements rtio.Listener. The transport is a *net.TCPConn.
func (l *TCPListener) Accept(ctx context.Context) (rtio.Transport, *netip.AddrPort, error) {
	c, peer, err := l.AcceptTCP(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, &peer, nil
}

// Addr returns the bound address.
func (l *TCPListener) Addr() netip.AddrPort { return tcpAddrPort(l.l.Addr()) }

// Close stops listening.
func (l *TCPListener) Close() error { return l.l.Close() }

// UnixListener is a Unix-socket listener of the Go runtime. The socket file
// is removed on Close.
type UnixListener struct {
	l    *net.UnixListener
	path string
}

var _ rtio.Listener[string] = (*UnixListener)(nil)

// BindUnix listens on the socket file path.
func BindUnix(ctx context.Context, path string) (*UnixListener, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	Logger().Debug("unix listener bound", zap.String("path", path))
	return &UnixListener{l: l.(*net.UnixListener), path: path}, nil
}

// AcceptUnix waits for the next connection. The peer path is empty when the
// peer socket is unnamed.
func (l *UnixListener) AcceptUnix(ctx context.Context) (*net.UnixConn, string, error) {
	c, err := acceptContext(ctx, l.l, l.l.AcceptUnix)
	if err != nil {
		return nil, "", err
	}
	var peer string
	// Linux reports an unbound peer as "@".
	if ua, ok := c.RemoteAddr().(*net.UnixAddr); ok && ua != nil && ua.Name != "@" {
		peer = ua.Name
	}
	return c, peer, nil
}

// Accept implements rtio.Listener. The transport is a *net.UnixConn and the
// peer is nil for unnamed peers.
func (l *UnixListener) Accept(ctx context.Context) (rtio.Transport, *string, error) {
	c, peer, err := l.AcceptUnix(ctx)
	if err != nil {
		return nil, nil, err
	}
	if peer == "" {
		return c, nil, nil
	}
	return c, &peer, nil
}

// Addr returns the socket path.
func (l *UnixListener) Addr() string { return l.path }

// Close stops listening and removes the socket file.
func (l *UnixListener) Close() error { return l.l.Close() }

type deadliner interface {
	SetDeadline(t time.Time) error
}

// acceptContext runs a blocking accept that ctx can interrupt by moving the
// listener deadline into the past.
func acceptContext[C any](ctx context.Context, d deadliner, accept func() (C, error)) (C, error) {
	var zero C
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = d.SetDeadline(time.Unix(1, 0))
	})
	c, err := accept()
	if !stop() {
		<-fired
		_ = d.SetDeadline(time.Time{})
		if err != nil {
			return zero, ctx.Err()
		}
	}
	return c, err
}

func tcpAddrPort(a net.Addr) netip.AddrPort {
	ta, ok := a.(*net.TCPAddr)
	if !ok || ta == nil {
		return netip.AddrPort{}
	}
	ap := ta.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
