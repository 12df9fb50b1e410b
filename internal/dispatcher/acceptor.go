// File: internal/dispatcher/acceptor.go
// Author: yoyo-hu
//
// Listener & Acceptor (component F). Grounded on WebServer::DealListen_:
// accept in a loop that terminates after one iteration in LT mode or
// runs until EAGAIN in ET mode, rejecting past MAX_FD with "Server
// busy!" before the new descriptor is ever registered or tabled.

package dispatcher

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/yoyo-hu/webserver/api"
	"github.com/yoyo-hu/webserver/internal/netutil"
)

// MaxFd is the hard cap on live connections (invariant 4).
const MaxFd = 65536

var errServerBusyMsg = []byte("HTTP/1.1 503 Server busy!\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")

// handleListenerReady drains the listening socket, per listenerEdgeTriggered.
func (s *Server) handleListenerReady() {
	for {
		fd, addr, err := netutil.Accept(s.listenFd)
		if err != nil {
			return
		}
		if s.table.Len() >= MaxFd {
			s.rejectBusy(fd)
			if !s.listenerEdgeTriggered {
				return
			}
			continue
		}
		s.addClient(fd, addr)
		if !s.listenerEdgeTriggered {
			return
		}
	}
}

func (s *Server) rejectBusy(fd int) {
	unix.Write(fd, errServerBusyMsg)
	netutil.CloseSocket(fd)
	s.busyRejectedTotal++
	if s.log != nil {
		s.log.Warnf("acceptor: connection table full (%d), rejecting fd %d", MaxFd, fd)
	}
}

func (s *Server) addClient(fd int, addr net.Addr) {
	conn := s.newConn()
	conn.Init(fd, addr)

	mask := api.EventRead | s.connEventMask
	if err := s.reactor.Register(fd, mask); err != nil {
		if s.log != nil {
			s.log.Errorf("acceptor: register fd %d: %v", fd, err)
		}
		conn.Close()
		netutil.CloseSocket(fd)
		return
	}
	if err := s.table.Insert(conn); err != nil {
		// Table capacity raced with this accept; undo the registration.
		s.reactor.Unregister(fd)
		conn.Close()
		netutil.CloseSocket(fd)
		return
	}
	if s.idleTimeoutMs > 0 {
		s.timer.Add(fd, s.idleTimeoutMs, s.closeByFd)
	}
	s.acceptedTotal++
	if s.log != nil {
		s.log.Infof("client[%d] in, peer=%v", fd, addr)
	}
}
