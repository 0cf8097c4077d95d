// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package pollrt

import (
	"context"
	"errors"
	"io/fs"
	"net/netip"
	"os"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"code.hybscloud.com/rtio"
)

// socket is a bound, listening, non-blocking descriptor.
type socket struct {
	fd     int
	closed atomic.Bool
}

func listenSocket(domain int, sa unix.Sockaddr, cfg listenConfig) (*socket, error) {
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if domain != unix.AF_UNIX {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			_ = unix.Close(fd)
			return nil, os.NewSyscallError("setsockopt", err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, cfg.backlog); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}
	return &socket{fd: fd}, nil
}

// accept makes one accept4 attempt.
func (s *socket) accept(ctx context.Context) (*Conn, unix.Sockaddr, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if s.closed.Load() {
		return nil, nil, rtio.ErrClosed
	}
	for {
		nfd, sa, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			return newConn(nfd), sa, nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, nil, rtio.ErrWouldBlock
		default:
			return nil, nil, os.NewSyscallError("accept4", err)
		}
	}
}

func (s *socket) close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return rtio.ErrClosed
	}
	return os.NewSyscallError("close", unix.Close(s.fd))
}

// TCPListener is a non-blocking TCP listener.
type TCPListener struct {
	s    *socket
	addr netip.AddrPort
}

var _ rtio.Listener[netip.AddrPort] = (*TCPListener)(nil)

// BindTCP listens on addr. Port 0 picks a free port. An invalid address
// listens on all IPv4 interfaces.
func BindTCP(ctx context.Context, addr netip.AddrPort, opts ...ListenOption) (*TCPListener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	domain, sa := tcpSockaddr(addr)
	s, err := listenSocket(domain, sa, buildListenConfig(opts))
	if err != nil {
		return nil, err
	}
	bound, err := unix.Getsockname(s.fd)
	if err != nil {
		_ = s.close()
		return nil, os.NewSyscallError("getsockname", err)
	}
	l := &TCPListener{s: s, addr: addrPort(bound)}
	Logger().Debug("tcp listener bound", zap.Stringer("addr", l.addr))
	return l, nil
}

// AcceptConn makes one accept attempt and returns the native connection.
func (l *TCPListener) AcceptConn(ctx context.Context) (*Conn, netip.AddrPort, error) {
	c, sa, err := l.s.accept(ctx)
	if err != nil {
		return nil, netip.AddrPort{}, err
	}
	return c, addrPort(sa), nil
}

// Accept makes one accept attempt. It returns rtio.ErrWouldBlock when no
// connection is pending. The transport is a *rtio.Compat[*Conn].
func (l *TCPListener) Accept(ctx context.Context) (rtio.Transport, *netip.AddrPort, error) {
	c, peer, err := l.AcceptConn(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rtio.NewCompat(c), &peer, nil
}

// Addr returns the bound address.
func (l *TCPListener) Addr() netip.AddrPort { return l.addr }

// Close stops listening.
func (l *TCPListener) Close() error {
	Logger().Debug("tcp listener closed", zap.Stringer("addr", l.addr))
	return l.s.close()
}

// UnixListener is a non-blocking Unix-socket listener. The socket file is
// removed on Close.
type UnixListener struct {
	s    *socket
	path string
}

var _ rtio.Listener[string] = (*UnixListener)(nil)

// BindUnix listens on the socket file path.
func BindUnix(ctx context.Context, path string, opts ...ListenOption) (*UnixListener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := listenSocket(unix.AF_UNIX, &unix.SockaddrUnix{Name: path}, buildListenConfig(opts))
	if err != nil {
		return nil, err
	}
	Logger().Debug("unix listener bound", zap.String("path", path))
	return &UnixListener{s: s, path: path}, nil
}

// AcceptConn makes one accept attempt. The peer path is empty for unnamed
// peers.
func (l *UnixListener) AcceptConn(ctx context.Context) (*Conn, string, error) {
	c, sa, err := l.s.accept(ctx)
	if err != nil {
		return nil, "", err
	}
	var peer string
	if ua, ok := sa.(*unix.SockaddrUnix); ok && ua.Name != unnamedUnix {
		peer = ua.Name
	}
	return c, peer, nil
}

// Accept makes one accept attempt. The transport is a *rtio.Compat[*Conn]
// and the peer is nil for unnamed peers.
func (l *UnixListener) Accept(ctx context.Context) (rtio.Transport, *string, error) {
	c, peer, err := l.AcceptConn(ctx)
	if err != nil {
		return nil, nil, err
	}
	if peer == "" {
		return rtio.NewCompat(c), nil, nil
	}
	return rtio.NewCompat(c), &peer, nil
}

// Addr returns the socket path.
func (l *UnixListener) Addr() string { return l.path }

// Close stops listening and removes the socket file.
func (l *UnixListener) Close() error {
	err := l.s.close()
	if errors.Is(err, rtio.ErrClosed) {
		return err
	}
	if rerr := os.Remove(l.path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
		err = multierr.Append(err, rerr)
	}
	Logger().Debug("unix listener closed", zap.String("path", l.path), zap.Error(err))
	return err
}

// unnamedUnix is how an unbound Unix peer is reported: the address carries
// no path, and the leading NUL is rendered as '@'.
const unnamedUnix = "@"

func tcpSockaddr(ap netip.AddrPort) (int, unix.Sockaddr) {
	addr := ap.Addr()
	if !addr.IsValid() {
		addr = netip.IPv4Unspecified()
	}
	if addr.Is4() || addr.Is4In6() {
		return unix.AF_INET, &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.Unmap().As4()}
	}
	return unix.AF_INET6, &unix.SockaddrInet6{Port: int(ap.Port()), Addr: addr.As16()}
}

func addrPort(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr).Unmap(), uint16(sa.Port))
	}
	return netip.AddrPortFrom(netip.Addr{}, 0)
}
