package gateway

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a websocket connection with a write mutex so the heartbeat
// broadcaster and the reader never interleave writes.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// heartbeatInterval is how often live stats are pushed to operators.
const heartbeatInterval = 10 * time.Second

// handleWS upgrades to a websocket that streams periodic stats frames.
// With a configured fingerprint, clients must present it as ?fp=.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WSFingerprint != "" && r.URL.Query().Get("fp") != s.cfg.WSFingerprint {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] ❌ ws upgrade failed: %v", err)
		return
	}

	c := &wsConn{conn: conn}
	s.wsMu.Lock()
	s.wsConns[c] = true
	count := len(s.wsConns)
	s.wsMu.Unlock()
	log.Printf("[Gateway] 🔌 ws client connected (%d total)", count)

	c.writeJSON(s.statsFrame())

	// Reader loop only detects disconnects; inbound frames are ignored.
	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.wsConns, c)
			s.wsMu.Unlock()
			conn.Close()
			log.Println("[Gateway] 🔌 ws client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// statsFrame is one heartbeat payload.
func (s *Server) statsFrame() map[string]any {
	customers, messages := s.debouncer.Stats()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return map[string]any{
		"type":             "heartbeat",
		"active_requests":  s.activeRequests.Load(),
		"total_requests":   s.totalRequests.Load(),
		"active_buffers":   customers,
		"pending_messages": messages,
		"active_sessions":  len(s.store.All(ctx)),
		"uptime_sec":       int(time.Since(s.startedAt).Seconds()),
		"timestamp":        time.Now().Format(time.RFC3339),
	}
}

// heartbeatLoop pushes stats to every connected operator client.
func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.wsMu.Lock()
		conns := make([]*wsConn, 0, len(s.wsConns))
		for c := range s.wsConns {
			conns = append(conns, c)
		}
		s.wsMu.Unlock()

		if len(conns) == 0 {
			continue
		}

		frame := s.statsFrame()
		for _, c := range conns {
			if err := c.writeJSON(frame); err != nil {
				s.wsMu.Lock()
				delete(s.wsConns, c)
				s.wsMu.Unlock()
				c.conn.Close()
			}
		}
	}
}
