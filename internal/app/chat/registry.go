/*
Package chat contains the core logic of the relay: the wire codec, the connection
registry, the broadcast hub, and the per-connection session handling.

This file defines the Registry, the single source of truth for which connections
are live and what their display names are. All state lives in one map guarded by
one mutex; every operation is atomic and coarse-grained, and no caller ever holds
a reference into the map across a blocking boundary.
*/
package chat

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/logx"
)

// connection is one registry entry. The registry exclusively owns the outbound
// channel: it is the only code that sends on it after Add and the only code
// that closes it.
type connection struct {
	// username is the mutable display name, never empty.
	username string

	// send queues serialized frames for the connection's write loop.
	send chan []byte
}

// Registry maps connection identifiers to live connections. Identifiers in the
// map are exactly the set of currently live sessions.
type Registry struct {
	// mu guards conns, including the per-connection send channels during fan-out.
	mu sync.Mutex

	conns map[uint64]*connection

	logger zerolog.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[uint64]*connection),
		logger: logx.Logger().With().Str("component", "registry").Logger(),
	}
}

// Add inserts a fresh connection with the default display name "User #<id>"
// and returns the assigned name. The id is supplied by the caller from a
// monotonic counter and is never reused, so Add has no error condition.
func (r *Registry) Add(id uint64, send chan []byte) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	username := fmt.Sprintf("User #%d", id)
	r.conns[id] = &connection{username: username, send: send}

	r.logger.Info().
		Uint64("connection_id", id).
		Int("total_connections", len(r.conns)).
		Msg("Connection registered")

	return username
}

// Remove deletes the entry if present and closes its outbound channel,
// returning the display name that was removed. Removing an absent id is a
// no-op signal, not an error, so double removal is safe.
func (r *Registry) Remove(id uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return "", false
	}

	delete(r.conns, id)
	close(conn.send)

	r.logger.Info().
		Uint64("connection_id", id).
		Int("total_connections", len(r.conns)).
		Msg("Connection removed")

	return conn.username, true
}

// Rename swaps the display name for id and returns the prior name. The caller
// is responsible for announcing the change.
func (r *Registry) Rename(id uint64, username string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return "", false
	}

	old := conn.username
	conn.username = username
	return old, true
}

// Username returns the current display name for id.
func (r *Registry) Username(id uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return "", false
	}
	return conn.username, true
}

// Usernames returns the current display names in map iteration order. The
// order is not stable across calls; consumers treat the roster as a set.
func (r *Registry) Usernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]string, 0, len(r.conns))
	for _, conn := range r.conns {
		users = append(users, conn.username)
	}
	return users
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.conns)
}

// Unicast serializes the envelope and delivers it to exactly one connection if
// it still exists. A missing entry or a full outbound queue is swallowed;
// removal happens only via the session loop detecting read failure.
func (r *Registry) Unicast(id uint64, env Envelope) {
	frame, err := EncodeEnvelope(env)
	if err != nil {
		r.logger.Error().Err(err).Str("message_type", string(env.MessageType)).Msg("Failed to encode unicast envelope")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return
	}
	r.deliver(id, conn, frame)
}

// Broadcast serializes the envelope once and delivers it to every currently
// registered connection. Holding the lock across the fan-out presents a
// consistent membership snapshot to the round; per-recipient failures are
// independently swallowed. Every recipient of a round observes byte-identical
// payloads.
func (r *Registry) Broadcast(env Envelope) {
	frame, err := EncodeEnvelope(env)
	if err != nil {
		r.logger.Error().Err(err).Str("message_type", string(env.MessageType)).Msg("Failed to encode broadcast envelope")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, conn := range r.conns {
		r.deliver(id, conn, frame)
	}
}

// deliver performs a bounded, non-blocking send so one slow connection can
// never stall a broadcast round. Callers must hold r.mu.
func (r *Registry) deliver(id uint64, conn *connection, frame []byte) {
	select {
	case conn.send <- frame:
	default:
		r.logger.Warn().
			Uint64("connection_id", id).
			Int("queue_len", len(conn.send)).
			Msg("Outbound queue full, dropping frame")
	}
}

// Drain removes every connection and closes its outbound channel. Used during
// shutdown; subsequent session-loop removals become no-ops.
func (r *Registry) Drain() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, conn := range r.conns {
		delete(r.conns, id)
		close(conn.send)
	}
}
