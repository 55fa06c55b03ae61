/*
Package chat contains the core logic of the relay: the wire codec, the connection
registry, the broadcast hub, and the per-connection session handling.

This file defines the Client struct, one per WebSocket connection. It runs the
session's read and write loops, handles heartbeats, decodes inbound frames, and
dispatches them to the Hub. A session moves from connecting to active when the
read loop registers it, and to closed exactly once when the read loop ends.
*/
package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10
)

// Client is an active WebSocket session.
type Client struct {
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// id is assigned by the hub at registration and never reused.
	id uint64

	// send queues serialized frames. Ownership transfers to the registry on
	// Join; the write loop is the sole reader.
	send chan []byte

	// maxFrameBytes caps the size of inbound frames.
	maxFrameBytes int64

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection. The session is not
// registered with the hub until Register runs.
func NewClient(hub *Hub, conn *websocket.Conn, maxFrameBytes int64, sendBuffer int) *Client {
	sessionLogger := logx.Logger().With().
		Str("session_id", uuid.NewString()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Logger()

	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		maxFrameBytes: maxFrameBytes,
		logger:        sessionLogger,
	}
}

// Register joins the session to the hub: it assigns the connection identifier
// and enriches the session logger. It must be called before either pump starts;
// no Client field is mutated once the write goroutine exists. The announcement
// frames queued by Join wait in the send buffer until WritePump drains them.
func (c *Client) Register() {
	var username string
	c.id, username = c.hub.Join(c.send)
	c.logger = c.logger.With().Uint64("connection_id", c.id).Logger()
	c.logger.Info().Str("username", username).Msg("Session active")
}

// ReadPump blocks on inbound frames until the connection ends or errors.
// Decode failures never terminate the session; transport failures always do,
// exactly once.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.maxFrameBytes)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Read loop ended with unexpected close")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// cleanupOnDisconnect transitions the session to closed: deregister, announce
// the departure, release the transport. The registry closes the send channel,
// which ends the write loop.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Session closing")

	c.hub.Leave(c.id)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close after read loop")
	}
}

// processInboundFrame decodes one frame and dispatches it. Malformed frames
// and unsupported variants are logged and skipped.
func (c *Client) processInboundFrame(frame []byte) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Ignoring undecodable frame")
		return
	}

	switch env.MessageType {
	case TypeNewMessage:
		// Author and timestamp are server-authoritative; only the body is used.
		c.hub.RelayChat(c.id, env.Message.Message)

	case TypeUsernameChange:
		c.hub.Rename(c.id, *env.Username)

	default:
		c.logger.Warn().Str("message_type", string(env.MessageType)).Msg("Ignoring unsupported inbound frame type")
	}
}

// WritePump drains the send channel to the WebSocket connection and keeps the
// heartbeat alive. It terminates when the channel closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close in write loop")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel. Returns
// false when the loop should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		// Registry closed the channel; say goodbye.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a heartbeat ping. Returns false on write failure.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
