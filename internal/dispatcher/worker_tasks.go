// File: internal/dispatcher/worker_tasks.go
// Author: yoyo-hu
//
// Worker-side task handlers, grounded on WebServer::OnRead_/OnProcess/
// OnWrite_: non-blocking I/O followed by either re-arming for more of
// the same or flipping the watched bit, all running off the dispatcher
// goroutine inside the task pool's workers. Re-arm at the end of a task
// is safe without additional locking because invariant 2 guarantees at
// most one outstanding task per connection.
//
// api.HTTPConn.Read/Write already absorb EAGAIN internally (returning a
// nil error once the socket has no more data/room); a non-nil error here
// is always close-worthy.

package dispatcher

import "github.com/yoyo-hu/webserver/api"

// runTask is the workerpool.Handler bound into the Task Pool at
// construction time. A panic inside a task is recovered here and ends
// only that task's connection.
func (s *Server) runTask(t api.Task) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Errorf("worker task panicked: fd=%d kind=%v recovered=%v", t.Fd, t.Kind, r)
			}
			s.requestClose(t.Fd)
		}
	}()
	conn, ok := s.table.Get(t.Fd)
	if !ok {
		return // closed between submit and dequeue
	}
	switch t.Kind {
	case api.ReadTask:
		s.onRead(t.Fd, conn)
	case api.WriteTask:
		s.onWrite(t.Fd, conn)
	}
}

func (s *Server) onRead(fd int, conn api.HTTPConn) {
	if _, err := conn.Read(); err != nil {
		s.requestClose(fd)
		return
	}
	s.onProcess(fd, conn)
}

// onProcess drives Process() and rearms the reactor for whichever
// direction the connection now needs: WRITE once a response is ready,
// READ if more input is required.
func (s *Server) onProcess(fd int, conn api.HTTPConn) {
	mask := s.connEventMask
	if conn.Process() {
		mask |= api.EventWrite
	} else {
		mask |= api.EventRead
	}
	if err := s.reactor.Modify(fd, mask); err != nil {
		s.requestClose(fd)
	}
}

func (s *Server) onWrite(fd int, conn api.HTTPConn) {
	if _, err := conn.Write(); err != nil {
		s.requestClose(fd)
		return
	}
	if conn.ToWriteBytes() > 0 {
		// Socket reported EAGAIN mid-write; keep watching for WRITE.
		if err := s.reactor.Modify(fd, s.connEventMask|api.EventWrite); err != nil {
			s.requestClose(fd)
		}
		return
	}
	if conn.IsKeepAlive() {
		s.onProcess(fd, conn)
		return
	}
	s.requestClose(fd)
}
