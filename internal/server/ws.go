// ABOUTME: WebSocket endpoint that turns an upgraded connection into a relay session
// ABOUTME: Authenticates post-upgrade so failures surface as close frames

package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chambee/comm-relay/internal/registry"
	"github.com/chambee/comm-relay/internal/relay"
)

const maxFrameSize = 64 * 1024

// handleWS upgrades the connection, authenticates the client, and runs a
// relay session until the connection ends. Authentication failures close the
// socket with a policy-violation frame so clients can distinguish a bad
// credential from a network fault.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	credential := r.URL.Query().Get("token")
	if credential == "" {
		credential = bearerToken(r)
	}

	user, err := s.authenticator.Authenticate(r.Context(), credential)
	if err != nil || user == nil {
		s.logger.Debug("websocket auth failed", "remote", r.RemoteAddr)
		closeWithPolicyViolation(ws, "authentication failed")
		return
	}

	conn := registry.NewConn(user.ID, ws, registry.ConnOptions{
		SendBuffer:   s.cfg.Relay.SendBuffer,
		WriteTimeout: s.cfg.Relay.WriteTimeout,
		PingInterval: s.cfg.Relay.PingInterval,
	})

	ws.SetReadLimit(maxFrameSize)
	readTimeout := s.cfg.Relay.ReadTimeout
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	conn.Start()

	session := relay.NewSession(user, conn, s.registry, s.conversations, s.cfg.Relay.StoreTimeout, s.logger)
	session.Run(r.Context())

	conn.Close(websocket.CloseNormalClosure, "")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origins := s.cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients send no Origin header
		return true
	}
	for _, allowed := range origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func closeWithPolicyViolation(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	_ = ws.Close()
}
