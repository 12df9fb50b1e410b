//go:build linux
// +build linux

// File: internal/netutil/socket_linux.go
// Author: yoyo-hu
//
// Raw non-blocking TCP listener setup, after WebServer::InitSocket_
// (SO_LINGER, SO_REUSEADDR, bind, listen), the unix.Socket/SetsockoptInt
// style of internal/transport/transport_linux.go, and the raw-socket
// helper style seen in lev2048-fdd/common.go, merged into a single
// constructor returning a plain int fd for the reactor to manage.

package netutil

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/yoyo-hu/webserver/api"
)

// ListenOptions configures the bound listening socket.
type ListenOptions struct {
	Port int
	// OpenLinger enables a one-second graceful-close SO_LINGER, matching
	// the original's optLinger{onoff:1, linger:1}.
	OpenLinger bool
	// Backlog is the listen() backlog; the original used a fixed 6.
	Backlog int
}

// NewListenSocket creates, binds and listens on a non-blocking IPv4 TCP
// socket per opts, returning its file descriptor.
func NewListenSocket(opts ListenOptions) (int, error) {
	if opts.Port < 1024 || opts.Port > 65535 {
		return -1, api.ErrInvalidPort
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = 6
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	linger := unix.Linger{}
	if opts.OpenLinger {
		linger.Onoff = 1
		linger.Linger = 1
	}
	if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &linger); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt SO_LINGER: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	addr := unix.SockaddrInet4{Port: opts.Port}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind :%d: %w", opts.Port, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblock: %w", err)
	}
	return fd, nil
}

// Accept wraps accept4(2) with SOCK_NONBLOCK|SOCK_CLOEXEC, returning the
// new connection's fd and peer address. err is non-nil (and possibly
// unix.EAGAIN) when no connection is pending.
func Accept(listenFd int) (int, net.Addr, error) {
	connFd, sa, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, nil, err
	}
	return connFd, sockaddrToAddr(sa), nil
}

func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

// CloseSocket closes fd, ignoring EBADF (already closed).
func CloseSocket(fd int) error {
	if err := unix.Close(fd); err != nil && err != unix.EBADF {
		return err
	}
	return nil
}
