// Package sse implements a Server-Sent Events broker that streams each
// user's asynchronous outcomes (auto-save results, inline summaries,
// staleness hints) to that user's open connections.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/resummarize/internal/auth"
)

// Event types.
const (
	TypeNoteCreated    = "note.created"
	TypeNoteUpdated    = "note.updated"
	TypeNoteDeleted    = "note.deleted"
	TypeNoteSaved      = "note.saved"
	TypeNoteSaveFailed = "note.save_failed"
	TypeNoteSummary    = "note.summary"
	TypeSummariesStale = "summaries.stale"
)

// Note change kinds accepted by PublishNoteEvent.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Event represents an SSE event for one user.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type subscription struct {
	userID string
	ch     chan []byte
}

type publishReq struct {
	userID string
	event  Event
}

type noteEventReq struct {
	userID string
	kind   string
	id     string
}

// Broker manages SSE client connections and delivers events per user.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-user stale-hint timestamps). Public methods communicate with
// this loop through channels, so no mutexes are required.
type Broker struct {
	staleMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan subscription
	publishCh     chan publishReq
	noteEventCh   chan noteEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one summaries.stale hint
// per user within staleThrottle.
func NewBroker(staleThrottle time.Duration) *Broker {
	if staleThrottle <= 0 {
		staleThrottle = 2 * time.Second
	}

	b := &Broker{
		staleMin:      staleThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan subscription),
		publishCh:     make(chan publishReq, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[string]map[chan []byte]struct{})
	lastStale := make(map[string]time.Time)

	deliver := func(userID string, event Event) {
		subs := clients[userID]
		if len(subs) == 0 {
			return
		}
		raw, err := encode(event)
		if err != nil {
			return
		}
		for ch := range subs {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for _, subs := range clients {
				for ch := range subs {
					close(ch)
				}
			}
			return

		case s := <-b.subscribeCh:
			if clients[s.userID] == nil {
				clients[s.userID] = make(map[chan []byte]struct{})
			}
			clients[s.userID][s.ch] = struct{}{}

		case s := <-b.unsubscribeCh:
			if _, ok := clients[s.userID][s.ch]; ok {
				delete(clients[s.userID], s.ch)
				close(s.ch)
				if len(clients[s.userID]) == 0 {
					delete(clients, s.userID)
				}
			}

		case req := <-b.publishCh:
			deliver(req.userID, req.event)

		case req := <-b.noteEventCh:
			data := map[string]string{"id": req.id}
			switch req.kind {
			case KindCreated:
				deliver(req.userID, Event{Type: TypeNoteCreated, Data: data})
			case KindUpdated:
				deliver(req.userID, Event{Type: TypeNoteUpdated, Data: data})
			case KindDeleted:
				deliver(req.userID, Event{Type: TypeNoteDeleted, Data: data})
			}

			now := time.Now()
			if now.Sub(lastStale[req.userID]) >= b.staleMin {
				lastStale[req.userID] = now
				deliver(req.userID, Event{Type: TypeSummariesStale, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			n := 0
			for _, subs := range clients {
				n += len(subs)
			}
			resp <- n
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client for userID and returns its channel.
func (b *Broker) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{userID: userID, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(userID string, ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- subscription{userID: userID, ch: ch}:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients across all users.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to every connection of userID.
func (b *Broker) Publish(userID string, event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- publishReq{userID: userID, event: event}:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a note change and a throttled summaries.stale hint.
func (b *Broker) PublishNoteEvent(userID, kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEventReq{userID: userID, kind: kind, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). It streams the
// events of the authenticated user only.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"not authenticated","retryable":false}`))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(userID)
	defer b.Unsubscribe(userID, ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
