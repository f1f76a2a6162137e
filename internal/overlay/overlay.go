// Package overlay reconciles local session state with the externally
// visible escalation tag before each coalesced batch reaches the dialogue
// engine, and applies the engine's escalation signal afterwards.
package overlay

import (
	"context"
	"log"
	"time"

	"github.com/intynet/neti/internal/debounce"
	"github.com/intynet/neti/internal/engine"
	"github.com/intynet/neti/internal/reply"
	"github.com/intynet/neti/internal/session"
)

// Sender dispatches a reply into a chat room.
type Sender interface {
	SendMessage(ctx context.Context, roomID, text, customerID string) bool
}

// Tags manages the escalation tag on a room.
type Tags interface {
	CheckEscalatedTag(ctx context.Context, roomID string) (hasTag, expired bool, tagID string)
	RemoveRoomTag(ctx context.Context, roomID, tagID string) bool
	MarkEscalated(ctx context.Context, roomID string) bool
}

// Processor runs the dialogue engine over one message.
type Processor interface {
	Process(ctx context.Context, customerID, customerName, message string, s *session.Session) engine.Result
}

// batchTimeout bounds one whole batch including oracle, validation and
// transport calls.
const batchTimeout = 60 * time.Second

// Overlay is the pre/post-engine escalation logic.
type Overlay struct {
	Sessions *session.Store
	Tags     Tags
	Sender   Sender
	Engine   Processor

	tpl reply.Templates
}

// New creates an Overlay.
func New(sessions *session.Store, tags Tags, sender Sender, eng Processor, tpl reply.Templates) *Overlay {
	return &Overlay{Sessions: sessions, Tags: tags, Sender: sender, Engine: eng, tpl: tpl}
}

// ChatResult is the outcome of one processed batch, also exposed on the
// synchronous test endpoint.
type ChatResult struct {
	Reply            string        `json:"reply,omitempty"`
	State            session.State `json:"state"`
	Stop             bool          `json:"ai_stop"`
	HasPendingReport bool          `json:"has_pending_report"`
}

// HandleBatch is the debounce handler: it runs the overlay steps and sends
// the resulting reply into the room.
func (o *Overlay) HandleBatch(customerID, message string, meta debounce.Metadata) {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	res := o.process(ctx, customerID, message, meta)
	if res.Stop {
		return
	}
	if meta.RoomID != "" && res.Reply != "" {
		o.Sender.SendMessage(ctx, meta.RoomID, res.Reply, customerID)
	}
}

// DirectChat processes a message synchronously, bypassing the debouncer.
// The reply is returned instead of sent.
func (o *Overlay) DirectChat(ctx context.Context, customerID, customerName, message, roomID string) ChatResult {
	return o.process(ctx, customerID, message, debounce.Metadata{CustomerName: customerName, RoomID: roomID})
}

func (o *Overlay) process(ctx context.Context, customerID, message string, meta debounce.Metadata) ChatResult {
	log.Printf("[Overlay] 🤖 processing %.50q from %s", message, customerID)

	sess := o.Sessions.Get(ctx, customerID)

	// Bare acknowledgments never touch state or the oracle.
	if engine.IsAcknowledgment(message) {
		log.Println("[Overlay] 👍 acknowledgment, short-circuiting")
		return ChatResult{Reply: o.tpl.Acknowledgment, State: sess.State, HasPendingReport: sess.Data.HasPendingReport}
	}

	var hasTag, expired bool
	var tagID string
	if meta.RoomID != "" {
		hasTag, expired, tagID = o.Tags.CheckEscalatedTag(ctx, meta.RoomID)
	}

	// Expired tag means the admin forgot to clear it: remove and reopen.
	if hasTag && expired && tagID != "" {
		log.Println("[Overlay] ⏰ escalation tag expired, auto-removing")
		o.Tags.RemoveRoomTag(ctx, meta.RoomID, tagID)
		hasTag = false
		sess.Reset()
		o.Sessions.Set(ctx, customerID, sess)
	}

	if hasTag {
		if engine.IsReportRelated(message) {
			log.Println("[Overlay] 🚫 pending report, intercepting")
			return ChatResult{Reply: o.tpl.PendingReport, State: session.StateEscalated, Stop: false, HasPendingReport: true}
		}
		// Off-topic chat is allowed through, flagged for context.
		sess.Data.HasPendingReport = true
	}

	// Tag gone but session still escalated: a human closed it out, reopen.
	if !hasTag && sess.State == session.StateEscalated {
		log.Println("[Overlay] ✅ tag cleared by admin, resetting session")
		sess.Reset()
		o.Sessions.Set(ctx, customerID, sess)
	}

	res := o.Engine.Process(ctx, customerID, meta.CustomerName, message, sess)

	if res.Stop {
		log.Println("[Overlay] 🛑 engine escalated, tagging room")
		if meta.RoomID != "" {
			o.Tags.MarkEscalated(ctx, meta.RoomID)
		}
		o.Sessions.Set(ctx, customerID, sess)
		return ChatResult{State: sess.State, Stop: true, HasPendingReport: sess.Data.HasPendingReport}
	}

	o.Sessions.Set(ctx, customerID, sess)
	return ChatResult{Reply: res.Reply, State: sess.State, HasPendingReport: sess.Data.HasPendingReport}
}
