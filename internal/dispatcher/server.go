// File: internal/dispatcher/server.go
// Author: yoyo-hu
//
// Server orchestrates the Readiness Reactor, Timing Heap, Task Pool and
// Connection Table behind the single dispatcher goroutine that drives
// the event loop. After the facade construction style of server/
// hioload.go (Config struct, New validating and wiring collaborators,
// Start/Stop guarded by a mutex and a started flag) and WebServer's
// constructor/Start/~WebServer split for the loop itself.

package dispatcher

import (
	"fmt"
	"sync"

	"github.com/yoyo-hu/webserver/api"
	"github.com/yoyo-hu/webserver/internal/conntable"
	"github.com/yoyo-hu/webserver/internal/netutil"
	"github.com/yoyo-hu/webserver/internal/reactor"
	"github.com/yoyo-hu/webserver/internal/timerheap"
	"github.com/yoyo-hu/webserver/internal/workerpool"
)

// TriggerMode mirrors the original's 0..3 trigMode CLI argument.
type TriggerMode int

const (
	TriggerLevelBoth  TriggerMode = 0 // both listener and connections LT
	TriggerConnEdge   TriggerMode = 1 // connections ET, listener LT
	TriggerListenEdge TriggerMode = 2 // listener ET, connections LT
	TriggerEdgeBoth   TriggerMode = 3 // both ET
)

// Config configures a Server.
type Config struct {
	Port          int
	TriggerMode   TriggerMode
	IdleTimeoutMs int64 // <=0 disables idle-timeout eviction
	OpenLinger    bool
	WorkerCount   int

	// NewConn constructs a fresh api.HTTPConn for each accepted socket.
	NewConn func() api.HTTPConn
	Logger  api.Logger

	// Metrics, if set, receives live counters every metricsPushIntervalMs
	// (connection count, accept/close/evict/reject totals) so an operator
	// can read them back through Control.Snapshot.
	Metrics api.Control
}

// Server is the connection-multiplexing engine: one dispatcher goroutine
// driving the reactor, timer and task pool over a shared Connection
// Table.
type Server struct {
	cfg Config

	reactor api.Reactor
	timer   api.TimerHeap
	pool    api.TaskPool
	table   *conntable.Table
	log     api.Logger
	newConn func() api.HTTPConn
	metrics api.Control

	listenFd              int
	listenerEdgeTriggered bool
	connEventMask         api.EventMask
	idleTimeoutMs         int64

	// Counters pushed into metrics; touched only by the dispatcher
	// goroutine (acceptor and close paths both run on it).
	acceptedTotal     int64
	closedTotal       int64
	evictedTotal      int64
	busyRejectedTotal int64
	lastMetricsPushMs int64

	// closeCh carries fds a worker has decided to close. Only the
	// dispatcher goroutine touches the Connection Table and Timing Heap;
	// a worker that hits EOF/EAGAIN-less-error/protocol failure reports
	// the fd here instead of mutating either structure itself.
	closeCh chan int

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New validates cfg and wires the Reactor, Timing Heap, Task Pool and
// Connection Table, but does not bind a socket or start the loop.
func New(cfg Config) (*Server, error) {
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, api.ErrInvalidPort
	}
	if cfg.NewConn == nil {
		return nil, fmt.Errorf("dispatcher: Config.NewConn is required")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 8
	}

	r, err := reactor.New()
	if err != nil {
		return nil, fmt.Errorf("dispatcher: reactor init: %w", err)
	}

	s := &Server{
		cfg:           cfg,
		reactor:       r,
		table:         conntable.New(64, MaxFd),
		log:           cfg.Logger,
		newConn:       cfg.NewConn,
		metrics:       cfg.Metrics,
		idleTimeoutMs: cfg.IdleTimeoutMs,
		closeCh:       make(chan int, 4096),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	s.timer = timerheap.New(nowMs)
	s.pool = workerpool.New(cfg.WorkerCount, s.runTask, s.log)

	switch cfg.TriggerMode {
	case TriggerConnEdge:
		s.connEventMask = api.OneShot | api.EdgeTriggered
	case TriggerListenEdge:
		s.listenerEdgeTriggered = true
		s.connEventMask = api.OneShot
	case TriggerEdgeBoth:
		s.listenerEdgeTriggered = true
		s.connEventMask = api.OneShot | api.EdgeTriggered
	default:
		s.connEventMask = api.OneShot
	}
	return s, nil
}

// Start binds the listening socket and launches the dispatcher goroutine.
// It returns once the listener is bound and registered; it does not
// block for the lifetime of the server (use Wait for that).
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	listenMask := api.EventRead
	if s.listenerEdgeTriggered {
		listenMask |= api.EdgeTriggered
	}

	fd, err := netutil.NewListenSocket(netutil.ListenOptions{
		Port:       s.cfg.Port,
		OpenLinger: s.cfg.OpenLinger,
	})
	if err != nil {
		return fmt.Errorf("dispatcher: listen: %w", err)
	}
	if err := s.reactor.Register(fd, listenMask); err != nil {
		netutil.CloseSocket(fd)
		return fmt.Errorf("dispatcher: register listener: %w", err)
	}
	s.listenFd = fd
	s.started = true

	if s.log != nil {
		s.log.Infof("server listening on port %d, trigger mode %d", s.cfg.Port, s.cfg.TriggerMode)
	}

	go s.loop()
	return nil
}

// Stop closes the listener, terminates the loop, drains the task pool
// and forcibly closes any remaining connections. Blocks until shutdown
// completes.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
}

// Wait blocks until the dispatcher goroutine has exited, e.g. after Stop.
func (s *Server) Wait() {
	<-s.doneCh
}

// ConnectionCount reports the live connection count (userCount).
func (s *Server) ConnectionCount() int {
	return s.table.Len()
}
