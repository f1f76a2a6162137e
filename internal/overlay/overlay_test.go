package overlay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intynet/neti/internal/debounce"
	"github.com/intynet/neti/internal/engine"
	"github.com/intynet/neti/internal/reply"
	"github.com/intynet/neti/internal/session"
)

type sentMessage struct {
	roomID, text, customerID string
}

type fakeSender struct {
	sent []sentMessage
}

func (f *fakeSender) SendMessage(_ context.Context, roomID, text, customerID string) bool {
	f.sent = append(f.sent, sentMessage{roomID, text, customerID})
	return true
}

type fakeTags struct {
	hasTag  bool
	expired bool
	tagID   string

	removed []string
	marked  []string
}

func (f *fakeTags) CheckEscalatedTag(context.Context, string) (bool, bool, string) {
	return f.hasTag, f.expired, f.tagID
}

func (f *fakeTags) RemoveRoomTag(_ context.Context, _ string, tagID string) bool {
	f.removed = append(f.removed, tagID)
	return true
}

func (f *fakeTags) MarkEscalated(_ context.Context, roomID string) bool {
	f.marked = append(f.marked, roomID)
	return true
}

type fakeEngine struct {
	result engine.Result
	calls  []string
	seen   []*session.Session
}

func (f *fakeEngine) Process(_ context.Context, _, _, message string, s *session.Session) engine.Result {
	f.calls = append(f.calls, message)
	f.seen = append(f.seen, s)
	if f.result.Reply == "" && !f.result.Stop {
		return engine.Result{Reply: "engine reply", Session: s}
	}
	res := f.result
	res.Session = s
	return res
}

func newOverlay(tags *fakeTags, eng *fakeEngine) (*Overlay, *session.Store, *fakeSender) {
	store := session.NewStore(session.StoreConfig{TTL: time.Hour})
	sender := &fakeSender{}
	o := New(store, tags, sender, eng, reply.Defaults())
	return o, store, sender
}

func meta() debounce.Metadata {
	return debounce.Metadata{CustomerName: "Budi", RoomID: "room-1"}
}

func TestAcknowledgmentBypassesEngine(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{}
	o, store, sender := newOverlay(tags, eng)

	sess := session.New()
	sess.State = session.StateTroubleshoot
	sess.Data.InitialComplaint = "wifi lemot"
	store.Set(context.Background(), "cust-1", sess)

	o.HandleBatch("cust-1", "siap", meta())

	assert.Empty(t, eng.calls)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Siap kak!", sender.sent[0].text)

	got := store.Get(context.Background(), "cust-1")
	assert.Equal(t, session.StateTroubleshoot, got.State)
	assert.Equal(t, "wifi lemot", got.Data.InitialComplaint)
}

func TestFreshTagInterceptsReportRelated(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{hasTag: true, tagID: "99"}
	o, _, sender := newOverlay(tags, eng)

	o.HandleBatch("cust-1", "internet masih mati kak", meta())

	assert.Empty(t, eng.calls)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "masih dalam proses penanganan")
}

func TestFreshTagAllowsOffTopicWithPendingFlag(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{hasTag: true, tagID: "99"}
	o, _, sender := newOverlay(tags, eng)

	o.HandleBatch("cust-1", "mau tanya harga paket bisnis dong", meta())

	require.Len(t, eng.calls, 1)
	assert.True(t, eng.seen[0].Data.HasPendingReport)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "engine reply", sender.sent[0].text)
}

func TestExpiredTagRemovedAndSessionReset(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{hasTag: true, expired: true, tagID: "99"}
	o, store, _ := newOverlay(tags, eng)

	sess := session.New()
	sess.State = session.StateEscalated
	sess.Data.HasPendingReport = true
	store.Set(context.Background(), "cust-1", sess)

	// An unrelated message still triggers the cleanup.
	o.HandleBatch("cust-1", "mau tanya harga paket dong", meta())

	assert.Equal(t, []string{"99"}, tags.removed)
	require.Len(t, eng.calls, 1)
	assert.Equal(t, session.StateDetect, eng.seen[0].State)
	assert.False(t, eng.seen[0].Data.HasPendingReport)
}

func TestNoTagEscalatedSessionResets(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{}
	o, store, _ := newOverlay(tags, eng)

	sess := session.New()
	sess.State = session.StateEscalated
	store.Set(context.Background(), "cust-1", sess)

	o.HandleBatch("cust-1", "halo min mau tanya promo", meta())

	require.Len(t, eng.calls, 1)
	assert.Equal(t, session.StateDetect, eng.seen[0].State)
}

func TestStopMarksRoomAndSuppressesReply(t *testing.T) {
	eng := &fakeEngine{result: engine.Result{Stop: true}}
	tags := &fakeTags{}
	o, store, sender := newOverlay(tags, eng)

	o.HandleBatch("cust-1", "ID: C650AD\nKendala: internet mati", meta())

	assert.Equal(t, []string{"room-1"}, tags.marked)
	assert.Empty(t, sender.sent)
	// Session persisted.
	assert.Equal(t, 1, store.Get(context.Background(), "cust-1").MessageCount)
}

func TestReplySentAndSessionPersisted(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{}
	o, store, sender := newOverlay(tags, eng)

	o.HandleBatch("cust-1", "internet mati kak", meta())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, sentMessage{"room-1", "engine reply", "cust-1"}, sender.sent[0])
	assert.Equal(t, 1, store.Get(context.Background(), "cust-1").MessageCount)
}

func TestNoRoomIDSkipsTagCheckAndSend(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{hasTag: true, tagID: "99"}
	o, _, sender := newOverlay(tags, eng)

	o.HandleBatch("cust-1", "internet mati kak", debounce.Metadata{CustomerName: "Budi"})

	require.Len(t, eng.calls, 1)
	assert.False(t, eng.seen[0].Data.HasPendingReport)
	assert.Empty(t, sender.sent)
}

func TestDirectChatReturnsResultWithoutSending(t *testing.T) {
	eng := &fakeEngine{}
	tags := &fakeTags{}
	o, _, sender := newOverlay(tags, eng)

	res := o.DirectChat(context.Background(), "cust-1", "Budi", "internet mati kak", "room-1")

	assert.Equal(t, "engine reply", res.Reply)
	assert.Equal(t, session.StateDetect, res.State)
	assert.False(t, res.Stop)
	assert.Empty(t, sender.sent)
}
