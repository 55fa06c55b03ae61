/*
Package handler provides the HTTP handlers and routing setup for the chat relay.

This file contains the WebSocket handler: it rate-limits handshakes per IP,
upgrades the HTTP connection, and starts the session's read and write loops.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatrelay/internal/app/chat"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

// HandleWebSocket creates the HandlerFunc that turns an HTTP request into a
// live chat session. The handler returns when the session's read loop ends.
func HandleWebSocket(upgrader websocket.Upgrader, connectLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !connectLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, conn, deps.Config.MaxFrameBytes, deps.Config.SendBuffer)

		// Register completes all Client initialization before the write
		// goroutine starts; the announcements it queues are drained by the pump.
		client.Register()

		go client.WritePump()

		client.ReadPump()
	}
}
