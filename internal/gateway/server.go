// Package gateway is the HTTP surface: the chat-platform webhook, admin
// and test endpoints, and a websocket feed of live stats for operators.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/intynet/neti/internal/config"
	"github.com/intynet/neti/internal/debounce"
	"github.com/intynet/neti/internal/overlay"
	"github.com/intynet/neti/internal/qiscus"
	"github.com/intynet/neti/internal/session"
)

// TagAdmin is the slice of the chat-platform client the test endpoints use.
type TagAdmin interface {
	RoomTags(ctx context.Context, roomID string) []qiscus.Tag
	CheckEscalatedTag(ctx context.Context, roomID string) (hasTag, expired bool, tagID string)
	MarkEscalated(ctx context.Context, roomID string) bool
}

// Server hosts the webhook and administrative endpoints.
type Server struct {
	cfg     config.GatewayConfig
	env     string
	version string

	store     *session.Store
	debouncer *debounce.Debouncer
	overlay   *overlay.Overlay
	tags      TagAdmin

	startedAt time.Time

	activeRequests atomic.Int64
	totalRequests  atomic.Int64
	totalLatencyMs atomic.Int64

	upgrader websocket.Upgrader
	wsMu     sync.Mutex
	wsConns  map[*wsConn]bool

	httpServer *http.Server
}

// NewServer wires the gateway.
func NewServer(cfg config.GatewayConfig, env, version string, store *session.Store, d *debounce.Debouncer, o *overlay.Overlay, tags TagAdmin) *Server {
	return &Server{
		cfg:       cfg,
		env:       env,
		version:   version,
		store:     store,
		debouncer: d,
		overlay:   o,
		tags:      tags,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		wsConns: make(map[*wsConn]bool),
	}
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook/qiscus", s.track(s.handleWebhook))
	mux.HandleFunc("/stats", s.withAuth(s.handleStats))
	mux.HandleFunc("/sessions", s.withAuth(s.handleSessions))
	mux.HandleFunc("/session/", s.withAuth(s.handleSession))
	mux.HandleFunc("/test/chat", s.withAuth(s.track(s.handleTestChat)))
	mux.HandleFunc("/test/check-tag/", s.withAuth(s.handleCheckTag))
	mux.HandleFunc("/test/add-tag/", s.withAuth(s.handleAddTag))
	mux.HandleFunc("/ws", s.handleWS)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go s.heartbeatLoop()

	log.Printf("[Gateway] 🚀 listening on %s (env=%s)", addr, s.env)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// withAuth requires the configured Bearer key. Without a configured key
// the endpoint is open (development mode).
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.cfg.APIKey {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

// track records in-flight and latency counters around a handler.
func (s *Server) track(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.activeRequests.Add(1)
		s.totalRequests.Add(1)
		start := time.Now()
		defer func() {
			s.activeRequests.Add(-1)
			s.totalLatencyMs.Add(time.Since(start).Milliseconds())
		}()
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "Neti",
		"version":     s.version,
		"status":      "running",
		"environment": s.env,
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	redisOK := s.store.Healthy(r.Context())
	status := "healthy"
	redis := "connected"
	if !redisOK {
		redis = "memory"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"redis":       redis,
		"environment": s.env,
		"uptime_sec":  int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	customers, messages := s.debouncer.Stats()
	sessions := s.store.All(r.Context())

	states := make(map[session.State]int)
	for _, sess := range sessions {
		states[sess.State]++
	}

	total := s.totalRequests.Load()
	var avgLatency int64
	if total > 0 {
		avgLatency = s.totalLatencyMs.Load() / total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": map[string]any{
			"total":  len(sessions),
			"states": states,
		},
		"buffer": map[string]any{
			"active_buffers":   customers,
			"pending_messages": messages,
		},
		"requests": map[string]any{
			"active":         s.activeRequests.Load(),
			"total":          total,
			"avg_latency_ms": avgLatency,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.store.All(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleSession serves GET and DELETE for /session/{customerID}.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimPrefix(r.URL.Path, "/session/")
	if customerID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"customer_id": customerID,
			"session":     s.store.Get(r.Context(), customerID),
		})
	case http.MethodDelete:
		dropped := s.debouncer.Clear(customerID)
		s.store.Delete(r.Context(), customerID)
		log.Printf("[Gateway] 🔄 session reset for %s (%d buffered dropped)", customerID, dropped)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "deleted",
			"customer_id":      customerID,
			"dropped_messages": dropped,
		})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTestChat processes a message synchronously, bypassing the
// debouncer. Intended for manual testing of the dialogue flow.
func (s *Server) handleTestChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		CustomerID   string `json:"customer_id"`
		CustomerName string `json:"customer_name"`
		Message      string `json:"message"`
		RoomID       string `json:"room_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" || req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "customer_id and message required")
		return
	}
	if req.CustomerName == "" {
		req.CustomerName = "Test Customer"
	}

	res := s.overlay.DirectChat(r.Context(), req.CustomerID, req.CustomerName, req.Message, req.RoomID)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckTag(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/test/check-tag/")
	if roomID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing room id")
		return
	}

	hasTag, expired, tagID := s.tags.CheckEscalatedTag(r.Context(), roomID)
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":           roomID,
		"has_escalated_tag": hasTag,
		"expired":           expired,
		"tag_id":            tagID,
		"all_tags":          s.tags.RoomTags(r.Context(), roomID),
	})
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	roomID := strings.TrimPrefix(r.URL.Path, "/test/add-tag/")
	if roomID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing room id")
		return
	}

	ok := s.tags.MarkEscalated(r.Context(), roomID)
	writeJSON(w, http.StatusOK, map[string]any{"success": ok, "room_id": roomID})
}
