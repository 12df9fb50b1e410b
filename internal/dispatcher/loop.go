// File: internal/dispatcher/loop.go
// Author: yoyo-hu
//
// The dispatcher goroutine's main loop, a direct translation of
// WebServer::Start's tick/wait/classify cycle: Tick the timer for the
// next wait budget, Wait on the reactor, then for each ready event route
// to the acceptor, the close path, or a submitted task, with hangup
// taking priority over a simultaneous read-ready bit.

package dispatcher

import (
	"time"

	"github.com/yoyo-hu/webserver/api"
	"github.com/yoyo-hu/webserver/internal/netutil"
)

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// stopPollIntervalMs bounds how long a single reactor.Wait blocks, so
// Stop() is never left waiting on an epoll_wait that would otherwise
// sleep until the next event or timer, neither of which a shutdown with
// no active traffic guarantees.
const stopPollIntervalMs = 1000

// metricsPushIntervalMs bounds how often live counters are copied into
// the Metrics collaborator; every loop iteration would be wasted work
// under high event rates.
const metricsPushIntervalMs = 1000

func (s *Server) loop() {
	defer close(s.doneCh)
	defer s.shutdownConns()

	events := make([]api.Event, 0, 256)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		// Cap the wait so Stop() is noticed promptly even with no timer
		// armed and no traffic; the reactor contract's -1/infinite wait
		// is still honored in spirit, just bounded to keep the shutdown
		// check below live.
		timeoutMs := stopPollIntervalMs
		if s.idleTimeoutMs > 0 {
			next := s.timer.Tick()
			if next >= 0 && int(next) < timeoutMs {
				timeoutMs = int(next)
			}
		}

		ready, err := s.reactor.Wait(timeoutMs, events[:0])
		if err != nil {
			if s.log != nil {
				s.log.Errorf("dispatcher: reactor wait: %v", err)
			}
			continue
		}

		for _, ev := range ready {
			s.handleEvent(ev)
		}
		s.drainCloseRequests()
		s.pushMetrics()

		select {
		case <-s.stopCh:
			return
		default:
		}
	}
}

// drainCloseRequests applies every close a worker reported since the
// last iteration. Runs on the dispatcher goroutine, so it's the only
// place besides handleEvent/shutdownConns that touches the table/timer.
func (s *Server) drainCloseRequests() {
	for {
		select {
		case fd := <-s.closeCh:
			if conn, ok := s.table.Get(fd); ok {
				s.closeConn(fd, conn)
			}
		default:
			return
		}
	}
}

// requestClose is how a worker goroutine asks the dispatcher to close
// fd; it never mutates the Connection Table or Timing Heap itself.
func (s *Server) requestClose(fd int) {
	s.closeCh <- fd
}

// pushMetrics copies live counters into the Metrics collaborator at
// most once per metricsPushIntervalMs, so an operator reading
// /debug/metrics or a Control.Snapshot sees the dispatcher's actual
// connection count and lifetime totals rather than a stale zero value.
func (s *Server) pushMetrics() {
	if s.metrics == nil {
		return
	}
	now := nowMs()
	if now-s.lastMetricsPushMs < metricsPushIntervalMs {
		return
	}
	s.lastMetricsPushMs = now
	s.metrics.Set("connections", s.table.Len())
	s.metrics.Set("accepted_total", s.acceptedTotal)
	s.metrics.Set("closed_total", s.closedTotal)
	s.metrics.Set("evicted_total", s.evictedTotal)
	s.metrics.Set("busy_rejected_total", s.busyRejectedTotal)
}

func (s *Server) handleEvent(ev api.Event) {
	if ev.Fd == s.listenFd {
		s.handleListenerReady()
		return
	}

	conn, ok := s.table.Get(ev.Fd)
	if !ok {
		if s.log != nil {
			s.log.Warnf("dispatcher: event for unknown fd %d", ev.Fd)
		}
		return
	}

	// Hangup/error wins over a simultaneous READ bit.
	if ev.Mask&(api.EventPeerHangup|api.EventError) != 0 {
		s.closeConn(ev.Fd, conn)
		return
	}

	if s.idleTimeoutMs > 0 {
		s.timer.Adjust(ev.Fd, s.idleTimeoutMs)
	}

	switch {
	case ev.Mask&api.EventRead != 0:
		_ = s.pool.Submit(api.Task{Kind: api.ReadTask, Fd: ev.Fd})
	case ev.Mask&api.EventWrite != 0:
		_ = s.pool.Submit(api.Task{Kind: api.WriteTask, Fd: ev.Fd})
	default:
		if s.log != nil {
			s.log.Warnf("dispatcher: unexpected event mask %v for fd %d", ev.Mask, ev.Fd)
		}
	}
}

// closeByFd is the idle-timer callback: close connection whose
// descriptor is fd, provided fd still names a live connection.
func (s *Server) closeByFd(fd int) {
	conn, ok := s.table.Get(fd)
	if !ok {
		return
	}
	s.evictedTotal++
	s.closeConn(fd, conn)
}

// closeConn deregisters fd from the reactor before closing the socket
// (invariant 5), removes it from the table, cancels its timer, releases
// the collaborator connection's resources and closes the socket.
func (s *Server) closeConn(fd int, conn api.HTTPConn) {
	s.reactor.Unregister(fd)
	s.table.Remove(fd)
	s.timer.Cancel(fd)
	conn.Close()
	netutil.CloseSocket(fd)
	s.closedTotal++
	if s.log != nil {
		s.log.Infof("client[%d] quit", fd)
	}
}

// shutdownConns runs once the loop has stopped selecting on stopCh.
// Order matters: the pool is drained first so no worker is still
// touching a Connection Table entry when the forced closes below run,
// keeping invariant 2 intact through shutdown.
func (s *Server) shutdownConns() {
	s.pool.Shutdown()
	s.drainCloseRequests()

	var fds []int
	s.table.Range(func(c api.HTTPConn) { fds = append(fds, c.Fd()) })
	for _, fd := range fds {
		if conn, ok := s.table.Get(fd); ok {
			s.closeConn(fd, conn)
		}
	}

	if s.listenFd != 0 {
		s.reactor.Unregister(s.listenFd)
		netutil.CloseSocket(s.listenFd)
	}
	s.reactor.Close()
}
