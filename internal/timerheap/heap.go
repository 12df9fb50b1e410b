// File: internal/timerheap/heap.go
// Author: yoyo-hu
//
// Binary min-heap of idle-timeout nodes, keyed by absolute expiry, after
// a container/heap scheduler pattern, extended with a descriptor->index
// side table so Adjust is O(log n) instead of a linear scan, paired with
// lazy Cancel (direct heap-position indexing beats the original's pure
// lazy-deletion strategy).

package timerheap

import (
	"container/heap"

	"github.com/yoyo-hu/webserver/api"
)

type node struct {
	fd       int
	expiryMs int64
	callback func(fd int)
	dead     bool
	index    int // position in the heap array, maintained by container/heap
}

type nodeHeap []*node

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].expiryMs < h[j].expiryMs }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	last := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return last
}

// Heap is the dispatcher-owned timing wheel. Not safe for concurrent use;
// the dispatcher goroutine is its sole caller.
type Heap struct {
	h     nodeHeap
	byFd  map[int]*node
	nowFn func() int64
}

// New constructs an empty Heap. nowFn supplies the current monotonic time
// in milliseconds; tests substitute a fake clock.
func New(nowFn func() int64) *Heap {
	return &Heap{byFd: make(map[int]*node), nowFn: nowFn}
}

var _ api.TimerHeap = (*Heap)(nil)

// Add inserts a node expiring in timeoutMs milliseconds.
func (t *Heap) Add(fd int, timeoutMs int64, callback func(fd int)) error {
	if _, ok := t.byFd[fd]; ok {
		return api.ErrDuplicateTimer
	}
	n := &node{fd: fd, expiryMs: t.nowFn() + timeoutMs, callback: callback}
	t.byFd[fd] = n
	heap.Push(&t.h, n)
	return nil
}

// Adjust sets a new expiry for fd; a no-op if fd is unknown or dead.
func (t *Heap) Adjust(fd int, timeoutMs int64) {
	n, ok := t.byFd[fd]
	if !ok || n.dead {
		return
	}
	n.expiryMs = t.nowFn() + timeoutMs
	heap.Fix(&t.h, n.index)
}

// Cancel lazily marks fd's node dead; the node is purged from the heap the
// next time it reaches the top in Tick.
func (t *Heap) Cancel(fd int) {
	n, ok := t.byFd[fd]
	if !ok {
		return
	}
	n.dead = true
	delete(t.byFd, fd)
}

// Tick fires every expired, live callback in expiry order and returns the
// number of milliseconds until the next live node's expiry, or -1 if the
// heap holds no live node.
func (t *Heap) Tick() int64 {
	now := t.nowFn()
	for t.h.Len() > 0 {
		n := t.h[0]
		if n.dead {
			heap.Pop(&t.h)
			continue
		}
		if n.expiryMs > now {
			return n.expiryMs - now
		}
		heap.Pop(&t.h)
		delete(t.byFd, n.fd)
		n.callback(n.fd)
	}
	return -1
}

// Len reports the number of live nodes.
func (t *Heap) Len() int {
	return len(t.byFd)
}
