//go:build !linux
// +build !linux

// File: internal/reactor/reactor_stub.go
// Author: yoyo-hu
//
// Stub for unsupported platforms; the system targets Linux-class
// operating systems only.

package reactor

import (
	"errors"

	"github.com/yoyo-hu/webserver/api"
)

// New returns an error on non-Linux platforms.
func New() (api.Reactor, error) {
	return nil, errors.New("reactor: linux epoll required, unsupported platform")
}
