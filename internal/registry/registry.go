// Package registry holds the mapping from protocol identifiers to the
// handlers the listener dispatches inbound streams to.
package registry

import "sync"

// StreamHandler consumes one inbound duplex stream, given the StreamInfo
// the daemon announced it with. Handlers are invoked on their own
// goroutine; the registry itself does not run them.
type StreamHandler func(info StreamInfo, stream Stream)

// StreamInfo is the subset of the wire StreamInfo a handler needs. It is
// redeclared here, rather than imported from internal/wire, so this
// package has no dependency on the wire codec.
type StreamInfo struct {
	Peer  []byte
	Addr  []byte
	Proto string
}

// Stream is the minimal duplex interface a handler is handed; satisfied
// by net.Conn.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Registry maps protocol identifiers to handlers. Registration is
// last-writer-wins per protocol; concurrent registrations for distinct
// protocols never block each other beyond the width of the lock.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]StreamHandler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]StreamHandler)}
}

// Set installs handler for proto, replacing any previous handler for the
// same protocol.
func (r *Registry) Set(proto string, handler StreamHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[proto] = handler
}

// Lookup returns the handler registered for proto, if any.
func (r *Registry) Lookup(proto string) (StreamHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[proto]
	return h, ok
}

// Protocols returns the currently registered protocol identifiers, in no
// particular order.
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for p := range r.handlers {
		out = append(out, p)
	}
	return out
}
