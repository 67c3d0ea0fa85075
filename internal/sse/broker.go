// Package sse streams note and render events to browser clients over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event types.
const (
	TypeNoteCreated     = "note.created"
	TypeNoteUpdated     = "note.updated"
	TypeNoteDeleted     = "note.deleted"
	TypeVaultChanged    = "vault.changed"
	TypeRenderSucceeded = "render.succeeded"
	TypeRenderFailed    = "render.failed"
)

// DefaultVaultThrottle is the minimum gap between vault.changed events.
const DefaultVaultThrottle = 2 * time.Second

const (
	clientBuffer = 64
	keepAlive    = 15 * time.Second
)

var noteTypes = map[string]string{
	"created": TypeNoteCreated,
	"updated": TypeNoteUpdated,
	"deleted": TypeNoteDeleted,
}

// Event is one message on the stream. Data is sent as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker fans events out to subscribed clients. Slow clients miss events
// rather than stall publishers. Every delivered frame carries an increasing id.
type Broker struct {
	vaultMin time.Duration

	mu        sync.Mutex
	clients   map[chan []byte]struct{}
	seq       uint64
	lastVault time.Time
	closed    bool
}

// NewBroker creates a broker. Note events are followed by a vault.changed
// hint at most once per vaultThrottle.
func NewBroker(vaultThrottle time.Duration) *Broker {
	if vaultThrottle <= 0 {
		vaultThrottle = DefaultVaultThrottle
	}
	return &Broker{
		vaultMin: vaultThrottle,
		clients:  make(map[chan []byte]struct{}),
	}
}

// Close disconnects every client. Later publishes are dropped and later
// subscribers get a closed channel. Close may be called more than once.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		close(ch)
	}
	b.clients = nil
}

// Subscribe registers a client and returns its frame channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.clients[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends event to every client.
func (b *Broker) Publish(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcastLocked(event.Type, payload)
}

func (b *Broker) broadcastLocked(typ string, payload []byte) {
	if b.closed {
		return
	}
	b.seq++
	frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", b.seq, typ, payload))
	for ch := range b.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

// PublishNoteEvent publishes a note change and a throttled vault.changed event.
// kind is one of created, updated or deleted; other kinds are ignored.
func (b *Broker) PublishNoteEvent(kind, path string) {
	typ, ok := noteTypes[kind]
	if !ok {
		return
	}
	payload, _ := json.Marshal(map[string]string{"path": path})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcastLocked(typ, payload)
	if now := time.Now(); now.Sub(b.lastVault) >= b.vaultMin {
		b.lastVault = now
		b.broadcastLocked(TypeVaultChanged, []byte("{}"))
	}
}

// PublishRenderEvent publishes render.succeeded for status "ok" and
// render.failed for anything else.
func (b *Broker) PublishRenderEvent(status string, data any) {
	typ := TypeRenderFailed
	if status == "ok" {
		typ = TypeRenderSucceeded
	}
	b.Publish(Event{Type: typ, Data: data})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Idle streams get a
// comment line every keepAlive so proxies keep them open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
