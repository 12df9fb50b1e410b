// File: internal/metrics/registry.go
// Author: yoyo-hu
//
// Concrete api.Control implementation, after control.MetricsRegistry
// (RWMutex-guarded map, Set/GetSnapshot) but renamed to the api.Control
// method names this repository standardizes on across collaborators.
// A single Registry is shared between dispatcher.Config.Metrics, which
// pushes connection/accept/close/evict/reject counters into it at most
// once a second, and httpserve's /debug/metrics route, which serves Snapshot()
// back out as JSON.

package metrics

import (
	"sync"
	"time"

	"github.com/yoyo-hu/webserver/api"
)

// Registry holds mutable runtime metrics the dispatcher and collaborators
// report into.
type Registry struct {
	mu      sync.RWMutex
	values  map[string]any
	updated time.Time
}

var _ api.Control = (*Registry)(nil)

// New creates an empty registry.
func New() *Registry {
	return &Registry{values: make(map[string]any)}
}

// Set sets or updates a metric key.
func (r *Registry) Set(key string, value any) {
	r.mu.Lock()
	r.values[key] = value
	r.updated = time.Now()
	r.mu.Unlock()
}

// Snapshot returns a copy of the current metric values.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.values)+1)
	for k, v := range r.values {
		out[k] = v
	}
	out["updated_at"] = r.updated
	return out
}
