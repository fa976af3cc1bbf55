// Package sse streams workspace change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/hagal/internal/models"
)

// Event names written on the wire.
const (
	TypeNoteCreated     = "note.created"
	TypeNoteUpdated     = "note.updated"
	TypeNoteDeleted     = "note.deleted"
	TypeGraphUpdated    = "graph.updated"
	TypeDoctorCompleted = "doctor.completed"
)

// subscriberBuffer is the number of frames a slow client may fall behind
// before frames are dropped for it.
const subscriberBuffer = 64

// keepAlive is how often an idle stream gets a comment line.
var keepAlive = 25 * time.Second

// Event is one frame: Type becomes the SSE event name, Data is sent as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NoteEvent is the payload of note.* events.
type NoteEvent struct {
	Vault string `json:"vault"`
	Fname string `json:"fname"`
	Path  string `json:"path"`
}

var noteEventTypes = map[string]string{
	"created": TypeNoteCreated,
	"updated": TypeNoteUpdated,
	"deleted": TypeNoteDeleted,
}

// hub is the state owned by the broker loop.
type hub struct {
	subs      map[chan []byte]struct{}
	seq       uint64
	lastGraph time.Time
	graphMin  time.Duration
}

func (h *hub) send(ev Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	h.seq++
	frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, ev.Type, data))
	for ch := range h.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// graphChanged emits graph.updated at most once per graphMin.
func (h *hub) graphChanged(now time.Time) {
	if now.Sub(h.lastGraph) < h.graphMin {
		return
	}
	h.lastGraph = now
	h.send(Event{Type: TypeGraphUpdated, Data: map[string]string{}})
}

// Broker fans events out to subscribers. Every mutation runs as an op on a
// single loop goroutine, which owns the hub.
type Broker struct {
	ops     chan func(*hub)
	quit    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
}

// NewBroker starts a broker. graphThrottle is the minimum spacing of
// graph.updated events; non-positive values mean two seconds.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}
	b := &Broker{
		ops:  make(chan func(*hub), 256),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.loop(&hub{subs: map[chan []byte]struct{}{}, graphMin: graphThrottle})
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.done)
	for {
		select {
		case op := <-b.ops:
			op(h)
		case <-b.quit:
			for ch := range h.subs {
				close(ch)
			}
			return
		}
	}
}

// do queues op on the loop. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	if b.stopped.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.stopped.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	added := make(chan struct{})
	if !b.do(func(h *hub) {
		h.subs[ch] = struct{}{}
		close(added)
	}) {
		close(ch)
		return ch
	}
	select {
	case <-added:
	case <-b.done:
	}
	return ch
}

// Unsubscribe drops a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of subscribers.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.subs) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish sends ev to every subscriber.
func (b *Broker) Publish(ev Event) {
	b.do(func(h *hub) { h.send(ev) })
}

// PublishNoteEvent announces a note change and a throttled graph.updated.
// kind is "created", "updated" or "deleted"; other kinds are ignored. path
// is relative to the workspace root.
func (b *Broker) PublishNoteEvent(kind string, ref models.NoteRef, path string) {
	typ, ok := noteEventTypes[kind]
	if !ok {
		return
	}
	payload := NoteEvent{Vault: ref.Vault, Fname: ref.Fname, Path: path}
	b.do(func(h *hub) {
		h.send(Event{Type: typ, Data: payload})
		h.graphChanged(time.Now())
	})
}

// PublishDoctorCompleted announces a finished doctor run with its summary.
func (b *Broker) PublishDoctorCompleted(action string, summary any) {
	b.Publish(Event{Type: TypeDoctorCompleted, Data: map[string]any{"action": action, "summary": summary}})
}

// ServeHTTP streams events to one client until it disconnects
// (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
		}
		flusher.Flush()
	}
}
