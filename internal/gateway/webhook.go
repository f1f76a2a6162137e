package gateway

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/intynet/neti/internal/debounce"
)

// webhookPayload is the inner Qiscus message envelope.
type webhookPayload struct {
	From struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"from"`
	Room struct {
		// Arrives as either a number or a string depending on the event.
		ID json.RawMessage `json:"id"`
	} `json:"room"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// extractPayload unwraps the shapes Qiscus delivers: a bare object, a
// one-element array, and payloads nested under "payload" or
// "body.payload".
func extractPayload(body []byte) (*webhookPayload, bool) {
	var raw json.RawMessage = body

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return nil, false
		}
		raw = arr[0]
	}

	var envelope struct {
		Payload json.RawMessage `json:"payload"`
		Body    struct {
			Payload json.RawMessage `json:"payload"`
		} `json:"body"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false
	}

	inner := envelope.Payload
	if len(inner) == 0 {
		inner = envelope.Body.Payload
	}
	if len(inner) == 0 {
		return nil, false
	}

	var p webhookPayload
	if err := json.Unmarshal(inner, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// handleWebhook buffers an inbound customer message. It always answers
// 200 so the chat platform never retries.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "unreadable body"})
		return
	}

	payload, ok := extractPayload(body)
	if !ok {
		log.Println("[Gateway] ⚠️ webhook without payload, ignoring")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "no_payload"})
		return
	}

	msgType := payload.Message.Type
	if msgType == "" {
		msgType = "text"
	}
	if msgType != "text" || payload.Message.Text == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "non_text"})
		return
	}

	customerID := payload.From.Email
	if customerID == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "no_sender"})
		return
	}
	customerName := payload.From.Name
	if customerName == "" {
		customerName = "Customer"
	}

	log.Printf("[Gateway] 📨 from %s (%s): %.50s", customerName, customerID, payload.Message.Text)

	roomID := strings.Trim(string(payload.Room.ID), `"`)
	if roomID == "null" {
		roomID = ""
	}

	pending := s.debouncer.Add(customerID, payload.Message.Text, debounce.Metadata{
		CustomerName: customerName,
		RoomID:       roomID,
	}, s.overlay.HandleBatch)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "buffered",
		"pending_messages": pending,
	})
}
