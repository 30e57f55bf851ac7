package gateway

import (
	"sync"
	"time"
)

// ClientConnection is the registry entry for one accepted connection
// (§3). id is deterministic from peer+userAgent so reconnects converge.
type ClientConnection struct {
	ID            string
	Class         ConnectionClass
	Peer          string
	Since         time.Time
	Authenticated bool
	UserAgent     string
}

// transport is the minimal surface the registry needs to evict a
// connection; *Client satisfies it.
type transport interface {
	Close() error
}

// Registry is the thread-safe Connection Registry (§4.D). Exactly one
// live read loop exists per registered client-id (I1): the read loop
// itself is the only writer of its own entry, and unregister is called
// exactly once, on that loop's exit.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*ClientConnection
	tx    map[string]transport
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*ClientConnection),
		tx:    make(map[string]transport),
	}
}

// Register adds a connection, establishing I1 for this client-id.
func (r *Registry) Register(conn *ClientConnection, t transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
	r.tx[conn.ID] = t
}

// Unregister removes a connection and attempts to close its transport.
// Close errors are swallowed per §4.D ("any exception swallowed").
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	t, ok := r.tx[id]
	delete(r.conns, id)
	delete(r.tx, id)
	r.mu.Unlock()

	if ok && t != nil {
		_ = t.Close()
	}
}

// Get returns the registered connection for id, if any.
func (r *Registry) Get(id string) (*ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Transport returns the registered transport for id, if any.
func (r *Registry) Transport(id string) (transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tx[id]
	return t, ok
}

// Len reports the number of registered connections (used by /health and
// Prometheus gauges, and by tests asserting I3's "registry is empty"
// post-condition).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CountByClass reports the number of registered connections per class,
// feeding the gateway_connections{class} gauge.
func (r *Registry) CountByClass() map[ConnectionClass]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ConnectionClass]int, len(defaultCaps))
	for _, c := range r.conns {
		out[c.Class]++
	}
	return out
}

// All returns a snapshot slice of registered connections (for eviction
// during stop()).
func (r *Registry) All() []*ClientConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ClientConnection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
