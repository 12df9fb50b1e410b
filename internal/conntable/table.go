// File: internal/conntable/table.go
// Author: yoyo-hu
//
// Descriptor-keyed connection table, sharded like a sessionManager
// (power-of-two shard count, per-shard lock) so that connection counts
// in the tens of thousands don't serialize on one lock. Where a
// sessionManager hashes its session id, this table picks the shard from
// the descriptor's low bits. Insert/Remove run exclusively on the
// dispatcher goroutine; worker lookups are read-only.

package conntable

import (
	"sync"

	"github.com/yoyo-hu/webserver/api"
)

// Table is a sole-owner map from file descriptor to api.HTTPConn.
type Table struct {
	shards []*shard
	mask   uint32
	maxFd  int
}

type shard struct {
	mu    sync.RWMutex
	conns map[int]api.HTTPConn
}

// New constructs a Table with shardCount shards (rounded up to the next
// power of two) and a hard capacity of maxFd live connections.
func New(shardCount, maxFd int) *Table {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard, m)
	for i := range shards {
		shards[i] = &shard{conns: make(map[int]api.HTTPConn)}
	}
	return &Table{shards: shards, mask: m - 1, maxFd: maxFd}
}

func (t *Table) shardFor(fd int) *shard {
	return t.shards[uint32(fd)&t.mask]
}

// Insert adds conn under its own Fd(). Returns api.ErrTooManyConns without
// mutating the table if doing so would exceed maxFd (invariant 4).
func (t *Table) Insert(conn api.HTTPConn) error {
	if t.maxFd > 0 && t.Len() >= t.maxFd {
		return api.ErrTooManyConns
	}
	sh := t.shardFor(conn.Fd())
	sh.mu.Lock()
	sh.conns[conn.Fd()] = conn
	sh.mu.Unlock()
	return nil
}

// Get returns the connection registered for fd, if any.
func (t *Table) Get(fd int) (api.HTTPConn, bool) {
	sh := t.shardFor(fd)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	c, ok := sh.conns[fd]
	return c, ok
}

// Remove deletes fd from the table. Idempotent.
func (t *Table) Remove(fd int) {
	sh := t.shardFor(fd)
	sh.mu.Lock()
	delete(sh.conns, fd)
	sh.mu.Unlock()
}

// Len returns the total live connection count across all shards.
func (t *Table) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.conns)
		sh.mu.RUnlock()
	}
	return n
}

// Range applies fn to every live connection. fn must not call Insert or
// Remove on this table.
func (t *Table) Range(fn func(api.HTTPConn)) {
	for _, sh := range t.shards {
		sh.mu.RLock()
		for _, c := range sh.conns {
			fn(c)
		}
		sh.mu.RUnlock()
	}
}

func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
