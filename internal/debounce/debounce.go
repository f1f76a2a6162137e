// Package debounce coalesces bursts of chat messages per customer. A batch
// is flushed to the handler only after the customer has been quiet for the
// configured window; each new message restarts the window.
package debounce

import (
	"log"
	"strings"
	"sync"
	"time"
)

// Metadata travels alongside a batch so the handler can reply into the
// right room.
type Metadata struct {
	CustomerName string
	RoomID       string
}

// Handler receives one flushed batch. Messages are joined with single
// spaces in arrival order.
type Handler func(customerID, message string, meta Metadata)

type buffer struct {
	messages   []string
	meta       Metadata
	createdAt  time.Time
	lastUpdate time.Time
}

// Debouncer buffers messages per customer id and flushes each buffer once
// the quiet window elapses with no new arrivals. At most one watcher
// goroutine runs per customer at a time.
type Debouncer struct {
	quiet time.Duration

	mu      sync.Mutex
	buffers map[string]*buffer
	active  map[string]bool
}

// New creates a Debouncer with the given quiet window.
func New(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 3 * time.Second
	}
	return &Debouncer{
		quiet:   quiet,
		buffers: make(map[string]*buffer),
		active:  make(map[string]bool),
	}
}

// Add appends a message to the customer's buffer, restarting the quiet
// window, and returns the pending message count. The first message for an
// unwatched customer starts a watcher goroutine.
func (d *Debouncer) Add(customerID, message string, meta Metadata, h Handler) int {
	now := time.Now()

	d.mu.Lock()
	buf, ok := d.buffers[customerID]
	if !ok {
		buf = &buffer{meta: meta, createdAt: now}
		d.buffers[customerID] = buf
	}
	buf.messages = append(buf.messages, message)
	buf.lastUpdate = now
	if meta.RoomID != "" {
		buf.meta = meta
	}
	n := len(buf.messages)

	start := !d.active[customerID]
	if start {
		d.active[customerID] = true
	}
	d.mu.Unlock()

	if start {
		go d.watch(customerID, h)
	}
	return n
}

// watch sleeps in quiet-window steps until the buffer has been idle long
// enough, then pops and delivers it. The small slack tolerates timer skew
// so a flush is not deferred by a whole extra window.
func (d *Debouncer) watch(customerID string, h Handler) {
	defer func() {
		d.mu.Lock()
		delete(d.active, customerID)
		_, pending := d.buffers[customerID]
		if pending {
			d.active[customerID] = true
		}
		d.mu.Unlock()
		if pending {
			go d.watch(customerID, h)
		}
	}()

	const slack = 100 * time.Millisecond

	var flushed *buffer
	for {
		time.Sleep(d.quiet)

		d.mu.Lock()
		buf, ok := d.buffers[customerID]
		if !ok {
			d.mu.Unlock()
			return
		}
		if time.Since(buf.lastUpdate) >= d.quiet-slack {
			delete(d.buffers, customerID)
			flushed = buf
			d.mu.Unlock()
			break
		}
		d.mu.Unlock()
	}

	joined := strings.Join(flushed.messages, " ")
	log.Printf("[Debounce] flushing %d message(s) for %s", len(flushed.messages), customerID)
	d.deliver(customerID, joined, flushed.meta, h)
}

func (d *Debouncer) deliver(customerID, message string, meta Metadata, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Debounce] ❌ handler panic for %s: %v", customerID, r)
		}
	}()
	h(customerID, message, meta)
}

// Clear drops any pending buffer for a customer without delivering it.
// Returns the number of discarded messages.
func (d *Debouncer) Clear(customerID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[customerID]
	if !ok {
		return 0
	}
	delete(d.buffers, customerID)
	return len(buf.messages)
}

// ClearAll drops every pending buffer and returns the number of customers
// affected.
func (d *Debouncer) ClearAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.buffers)
	d.buffers = make(map[string]*buffer)
	return n
}

// PendingCount returns how many messages are buffered for a customer.
func (d *Debouncer) PendingCount(customerID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.buffers[customerID]; ok {
		return len(buf.messages)
	}
	return 0
}

// Stats reports buffered customers and total pending messages.
func (d *Debouncer) Stats() (customers, messages int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, buf := range d.buffers {
		messages += len(buf.messages)
	}
	return len(d.buffers), messages
}
