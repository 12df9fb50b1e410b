// File: internal/workerpool/pool.go
// Author: yoyo-hu
//
// Fixed-size worker pool guarded by a mutex and condition variable, backed
// by github.com/eapache/queue as the growable FIFO — a direct translation
// of the original C++ ThreadPool (mutex + condition_variable + queue of
// std::function<void()>), substituting a tagged api.Task for the bound
// closure: cheap in C++ via std::bind, not free in Go, so a tagged value
// avoids a per-task heap allocation.

package workerpool

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/yoyo-hu/webserver/api"
)

// Handler is invoked by a worker goroutine for each dequeued task.
type Handler func(api.Task)

// Pool is a fixed-size FIFO worker pool.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  *queue.Queue
	closed bool
	wg     sync.WaitGroup
	handle Handler
	log    api.Logger
}

var _ api.TaskPool = (*Pool)(nil)

// New starts workerCount goroutines consuming a shared FIFO, each running
// handle for every dequeued task.
func New(workerCount int, handle Handler, log api.Logger) *Pool {
	if workerCount <= 0 {
		workerCount = 8
	}
	p := &Pool{
		tasks:  queue.New(),
		handle: handle,
		log:    log,
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task and wakes one worker. Non-blocking.
func (p *Pool) Submit(t api.Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrPoolClosed
	}
	p.tasks.Add(t)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// Shutdown signals workers to stop after finishing in-flight work; queued
// but unexecuted tasks are discarded. Blocks until all workers exit.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.tasks.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			// Queued-but-unexecuted tasks are discarded on shutdown;
			// only a task already dequeued finishes running.
			p.mu.Unlock()
			return
		}
		t := p.tasks.Remove().(api.Task)
		p.mu.Unlock()

		p.runTask(t)
	}
}

// runTask recovers from a panicking task so a single connection's worker
// failure never kills the dispatcher or other workers.
func (p *Pool) runTask(t api.Task) {
	defer func() {
		if r := recover(); r != nil && p.log != nil {
			p.log.Errorf("worker task panicked: fd=%d kind=%v recovered=%v", t.Fd, t.Kind, r)
		}
	}()
	p.handle(t)
}
