//go:build linux
// +build linux

// File: internal/reactor/epoll_linux.go
// Author: yoyo-hu
//
// Linux epoll(7)-based Reactor, merging the split reactor_linux.go /
// epoll_reactor.go shape seen in production hioload servers into a
// single ONESHOT/edge-aware implementation matching api.Reactor.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/yoyo-hu/webserver/api"
)

type epollReactor struct {
	epfd int
}

// New creates a Linux epoll-backed api.Reactor.
func New() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{epfd: epfd}, nil
}

func toEpollEvents(mask api.EventMask) uint32 {
	var ev uint32
	if mask&api.EventRead != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&api.EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	// Always watch for peer half-close; cheap, and the dispatcher's
	// tie-break rule decides how to treat it alongside other bits.
	ev |= unix.EPOLLRDHUP
	if mask&api.OneShot != 0 {
		ev |= unix.EPOLLONESHOT
	}
	if mask&api.EdgeTriggered != 0 {
		ev |= unix.EPOLLET
	}
	return ev
}

func fromEpollEvents(ev uint32) api.EventMask {
	var mask api.EventMask
	if ev&unix.EPOLLIN != 0 {
		mask |= api.EventRead
	}
	if ev&unix.EPOLLOUT != 0 {
		mask |= api.EventWrite
	}
	if ev&unix.EPOLLRDHUP != 0 {
		mask |= api.EventPeerHangup
	}
	if ev&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		mask |= api.EventError
	}
	return mask
}

func (r *epollReactor) Register(fd int, mask api.EventMask) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("epoll add fd %d: %w", fd, err)
	}
	return nil
}

func (r *epollReactor) Modify(fd int, mask api.EventMask) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return fmt.Errorf("epoll mod fd %d: %w", fd, err)
	}
	return nil
}

func (r *epollReactor) Unregister(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll del fd %d: %w", fd, err)
	}
	return nil
}

func (r *epollReactor) Wait(timeoutMs int, dst []api.Event) ([]api.Event, error) {
	const maxEvents = 256
	var raw [maxEvents]unix.EpollEvent

	n, err := unix.EpollWait(r.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return nil, fmt.Errorf("epoll wait: %w", err)
	}

	out := dst[:0]
	for i := 0; i < n; i++ {
		out = append(out, api.Event{
			Fd:   int(raw[i].Fd),
			Mask: fromEpollEvents(raw[i].Events),
		})
	}
	return out, nil
}

func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
