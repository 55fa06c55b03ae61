/*
Package chat contains the core logic of the relay: the wire codec, the connection
registry, the broadcast hub, and the per-connection session handling.

This file defines the Hub, the orchestration layer above the Registry. It owns
the identifier generator and exposes the semantic operations used by session
handlers: joining, leaving, relaying chat lines, and renaming. Every membership
or identity change is announced with a system chat line and a fresh roster.
*/
package chat

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/logx"
)

// Hub relays chat messages and roster updates to every live connection.
type Hub struct {
	registry *Registry

	// ids assigns connection identifiers. Instance-scoped, monotonic, never
	// reused within the process lifetime.
	ids atomic.Uint64

	logger zerolog.Logger
}

// NewHub constructs a Hub with an empty registry.
func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		logger:   logx.Logger().With().Str("component", "hub").Logger(),
	}
}

// Registry exposes the underlying connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Join registers a new connection and announces it: a system chat line, the
// updated roster, and a unicast username confirmation reflecting the
// post-arrival state. It returns the assigned identifier and default name.
// Ownership of the send channel transfers to the registry.
func (h *Hub) Join(send chan []byte) (uint64, string) {
	id := h.ids.Add(1)
	username := h.registry.Add(id, send)

	h.broadcastSystem(fmt.Sprintf("User %s arrived", username))
	h.broadcastRoster()
	h.registry.Unicast(id, NewUsernameEnvelope(username))

	return id, username
}

// Leave removes a connection and, if it was still registered, announces the
// departure followed by the updated roster. A second Leave for the same id is
// a no-op and produces no announcements.
func (h *Hub) Leave(id uint64) {
	username, ok := h.registry.Remove(id)
	if !ok {
		return
	}

	h.broadcastSystem(fmt.Sprintf("User %s left", username))
	h.broadcastRoster()
}

// RelayChat broadcasts a chat line authored by the connection's current
// display name, stamped with the server clock. A chat post from an id that
// vanished underneath us is dropped. Identical bodies are relayed as distinct
// frames; nothing is deduplicated.
func (h *Hub) RelayChat(id uint64, text string) {
	author, ok := h.registry.Username(id)
	if !ok {
		h.logger.Warn().Uint64("connection_id", id).Msg("Dropping chat post from unknown connection")
		return
	}

	msg := ChatMessage{
		Message:   text,
		Author:    author,
		CreatedAt: Now(),
	}

	h.logger.Debug().
		Str("message_id", uuid.NewString()).
		Uint64("connection_id", id).
		Str("author", author).
		Msg("Relaying chat message")

	h.registry.Broadcast(NewChatEnvelope(msg))
}

// Rename applies a display-name change. The requested name is trimmed; an
// empty result is silently ignored. On success it broadcasts a system line
// naming the old and new names, unicasts a confirmation to the originator
// only, and broadcasts the updated roster. A rename for a vanished id does
// nothing.
func (h *Hub) Rename(id uint64, requested string) {
	username := strings.TrimSpace(requested)
	if username == "" {
		return
	}

	old, ok := h.registry.Rename(id, username)
	if !ok {
		return
	}

	h.broadcastSystem(fmt.Sprintf("User %s changed username to %s", old, username))
	h.registry.Unicast(id, NewUsernameEnvelope(username))
	h.broadcastRoster()
}

// Shutdown drops every connection and closes its outbound channel, ending the
// write loops. Read loops observe the closing transport and unwind on their
// own; their removals find nothing and stay silent.
func (h *Hub) Shutdown() {
	h.logger.Info().Int("connections", h.registry.Len()).Msg("Shutting down hub")
	h.registry.Drain()
}

func (h *Hub) broadcastSystem(text string) {
	msg := ChatMessage{
		Message:   text,
		Author:    SystemAuthor,
		CreatedAt: Now(),
	}

	h.logger.Debug().
		Str("message_id", uuid.NewString()).
		Str("text", text).
		Msg("Broadcasting system message")

	h.registry.Broadcast(NewChatEnvelope(msg))
}

func (h *Hub) broadcastRoster() {
	h.registry.Broadcast(NewRosterEnvelope(h.registry.Usernames()))
}
