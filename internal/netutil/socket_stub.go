//go:build !linux
// +build !linux

package netutil

import (
	"errors"
	"net"
)

// ListenOptions configures the bound listening socket.
type ListenOptions struct {
	Port       int
	OpenLinger bool
	Backlog    int
}

// NewListenSocket is unsupported outside Linux; the reactor this server
// relies on is epoll-only.
func NewListenSocket(ListenOptions) (int, error) {
	return -1, errors.New("netutil: raw socket listener requires linux")
}

// Accept is unsupported outside Linux.
func Accept(int) (int, net.Addr, error) {
	return -1, nil, errors.New("netutil: accept requires linux")
}

// CloseSocket is unsupported outside Linux.
func CloseSocket(int) error {
	return errors.New("netutil: close requires linux")
}
