// Package qiscus wraps the Qiscus multichannel REST API: outbound messages
// and room tag management for the escalation flow.
package qiscus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Tag is one room tag as returned by the API.
type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"room_tag_created"`
}

// tagCreatedLayout matches the API's timezone-less timestamps.
const tagCreatedLayout = "2006-01-02T15:04:05"

// Config holds Qiscus credentials and the escalation tag identity.
type Config struct {
	AppID      string
	SecretKey  string
	BaseURL    string // tag API base
	SendURL    string // send-message endpoint
	TagID      string // escalation tag id, matched alongside TagName
	TagName    string // escalation tag display name
	ExpiryDays int
}

// Client performs Qiscus API operations. All methods are best-effort; a
// failure is logged and reported via the boolean return, never raised.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Qiscus client.
func NewClient(cfg Config) *Client {
	if cfg.TagName == "" {
		cfg.TagName = "Direspon AI"
	}
	if cfg.ExpiryDays <= 0 {
		cfg.ExpiryDays = 2
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether outbound sending is possible.
func (c *Client) Configured() bool {
	return c.cfg.AppID != "" && c.cfg.SecretKey != "" && c.cfg.SendURL != ""
}

func (c *Client) auth(req *http.Request) {
	req.Header.Set("Qiscus-App-Id", c.cfg.AppID)
	req.Header.Set("Qiscus-Secret-Key", c.cfg.SecretKey)
}

// SendMessage posts a text message into a room. Empty text is a successful
// no-op. Without credentials the message is logged instead of sent.
func (c *Client) SendMessage(ctx context.Context, roomID, text, customerID string) bool {
	if text == "" {
		log.Println("[Qiscus] 📭 no message to send")
		return true
	}
	if !c.Configured() {
		log.Printf("[Qiscus] ⚠️ credentials not configured, would send to room %s: %.100s", roomID, text)
		return false
	}

	payload, _ := json.Marshal(map[string]any{
		"to":      customerID,
		"type":    "text",
		"text":    map[string]string{"body": text},
		"room_id": roomID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SendURL, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	c.auth(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[Qiscus] ❌ send failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Qiscus] ❌ send status %d for room %s", resp.StatusCode, roomID)
		return false
	}
	log.Printf("[Qiscus] ✅ message sent to room %s", roomID)
	return true
}

// RoomTags lists a room's tags. Failures return an empty list.
func (c *Client) RoomTags(ctx context.Context, roomID string) []Tag {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/room_tags/%s", c.cfg.BaseURL, roomID), nil)
	if err != nil {
		return nil
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[Qiscus] ❌ get tags failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Qiscus] ❌ get tags status %d", resp.StatusCode)
		return nil
	}

	var parsed struct {
		Data []Tag `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("[Qiscus] ❌ parse tags: %v", err)
		return nil
	}
	return parsed.Data
}

// CheckEscalatedTag reports whether the room carries the escalation tag,
// whether that tag is older than the expiry threshold, and its id for
// removal. The tag matches by configured id or by display name.
func (c *Client) CheckEscalatedTag(ctx context.Context, roomID string) (hasTag, expired bool, tagID string) {
	for _, tag := range c.RoomTags(ctx, roomID) {
		id := fmt.Sprint(tag.ID)
		if (c.cfg.TagID != "" && id == c.cfg.TagID) || tag.Name == c.cfg.TagName {
			expired = c.tagExpired(tag)
			log.Printf("[Qiscus] 🏷️ room %s has escalated tag (expired=%v)", roomID, expired)
			return true, expired, id
		}
	}
	return false, false, ""
}

func (c *Client) tagExpired(tag Tag) bool {
	if tag.CreatedAt == "" {
		return false
	}
	created, err := time.Parse(tagCreatedLayout, strings.TrimSuffix(tag.CreatedAt, "Z"))
	if err != nil {
		log.Printf("[Qiscus] ❌ parse tag date %q: %v", tag.CreatedAt, err)
		return false
	}
	return time.Now().After(created.AddDate(0, 0, c.cfg.ExpiryDays))
}

// AddRoomTag attaches a tag to a room by name.
func (c *Client) AddRoomTag(ctx context.Context, roomID, tag string) bool {
	form := url.Values{"tag": {tag}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/room_tags/%s", c.cfg.BaseURL, roomID), strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	c.auth(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[Qiscus] ❌ add tag failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Qiscus] ❌ add tag status %d", resp.StatusCode)
		return false
	}
	log.Printf("[Qiscus] 🏷️ tag %q added to room %s", tag, roomID)
	return true
}

// RemoveRoomTag detaches a tag from a room by tag id.
func (c *Client) RemoveRoomTag(ctx context.Context, roomID, tagID string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/room_tags/%s/%s", c.cfg.BaseURL, roomID, tagID), nil)
	if err != nil {
		return false
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[Qiscus] ❌ remove tag failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Qiscus] ❌ remove tag status %d", resp.StatusCode)
		return false
	}
	log.Printf("[Qiscus] 🏷️ tag %s removed from room %s", tagID, roomID)
	return true
}

// MarkEscalated attaches the escalation tag to a room.
func (c *Client) MarkEscalated(ctx context.Context, roomID string) bool {
	return c.AddRoomTag(ctx, roomID, c.cfg.TagName)
}
