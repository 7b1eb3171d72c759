// ABOUTME: Process-wide registry mapping a user id to its one live connection
// ABOUTME: Last-writer-wins per user; delivery to absent users is a normal miss

package registry

import (
	"log/slog"
	"sync"

	"github.com/chambee/comm-relay/internal/metrics"
)

// Channel is the outbound half of a live connection. Send must not block
// indefinitely; implementations bound writes with a buffer or deadline.
type Channel interface {
	Send(payload []byte) error
	Close(code int, reason string)
}

// Registry tracks at most one live Channel per user for the process
// lifetime. All sessions share a single instance; every access to the
// mapping is mutex-guarded and critical sections hold only map operations —
// channel writes and closes happen outside the lock.
type Registry struct {
	mu     sync.RWMutex
	conns  map[int64]Channel
	logger *slog.Logger
}

// New creates a Registry. Pass nil logger for default.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[int64]Channel),
		logger: logger.With("component", "registry"),
	}
}

// Register installs the channel as the user's live connection, replacing any
// prior entry. The replaced channel is closed after the swap so a reconnect
// never leaks its predecessor.
func (r *Registry) Register(userID int64, ch Channel) {
	r.mu.Lock()
	previous := r.conns[userID]
	r.conns[userID] = ch
	total := len(r.conns)
	// Gauge update stays inside the critical section so interleaved
	// register/unregister cannot publish a stale count last
	metrics.ConnectionsActive.Set(float64(total))
	r.mu.Unlock()

	r.logger.Debug("connection registered", "user_id", userID, "total", total)

	if previous != nil && previous != ch {
		previous.Close(CloseSessionReplaced, "session replaced")
	}
}

// Unregister removes the user's entry if ch is still the registered channel.
// The identity check keeps a replaced session's deferred cleanup from
// evicting its successor. Idempotent: absent entries are a no-op.
func (r *Registry) Unregister(userID int64, ch Channel) {
	r.mu.Lock()
	current, ok := r.conns[userID]
	if !ok || current != ch {
		r.mu.Unlock()
		return
	}
	delete(r.conns, userID)
	total := len(r.conns)
	metrics.ConnectionsActive.Set(float64(total))
	r.mu.Unlock()

	r.logger.Debug("connection unregistered", "user_id", userID, "total", total)
}

// Deliver sends payload to the user's live connection if one exists. A
// missing recipient returns false without error — offline is a normal
// outcome, not a failure. The channel handle is copied out under the read
// lock and written outside it so one slow consumer cannot stall others.
func (r *Registry) Deliver(userID int64, payload []byte) bool {
	r.mu.RLock()
	ch, ok := r.conns[userID]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	if err := ch.Send(payload); err != nil {
		r.logger.Debug("delivery send failed", "user_id", userID, "error", err)
		return false
	}
	return true
}

// Connected reports whether the user currently has a live connection.
func (r *Registry) Connected(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Close terminates all tracked connections and clears the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]Channel, 0, len(r.conns))
	for _, ch := range r.conns {
		conns = append(conns, ch)
	}
	r.conns = make(map[int64]Channel)
	metrics.ConnectionsActive.Set(0)
	r.mu.Unlock()

	for _, ch := range conns {
		ch.Close(CloseShutdown, "server shutdown")
	}
	r.logger.Debug("registry closed", "connections", len(conns))
}
