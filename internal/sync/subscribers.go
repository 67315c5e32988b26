package sync

import (
	"reflect"
	stdsync "sync"

	"github.com/matheus3301/pollchat/internal/wire"
)

// MessageEvent is delivered to message subscribers once per synced message.
type MessageEvent struct {
	ChatID   string
	Message  wire.Message
	SenderID string
}

// ChatEvent is delivered to chat subscribers once per synced chat summary.
type ChatEvent struct {
	ChatID string
	Chat   wire.Chat
}

// MessageHandler receives synced messages.
type MessageHandler interface {
	HandleMessage(MessageEvent)
}

// ChatHandler receives synced chat summaries.
type ChatHandler interface {
	HandleChat(ChatEvent)
}

// MessageHandlerFunc adapts a function to MessageHandler. Functions cannot be
// compared, so every registration of a func is a separate subscription and
// only its own unsubscribe func removes it. Callers that may register the
// same subscriber more than once should pass a pointer handler instead.
type MessageHandlerFunc func(MessageEvent)

func (f MessageHandlerFunc) HandleMessage(e MessageEvent) { f(e) }

// ChatHandlerFunc adapts a function to ChatHandler. Like MessageHandlerFunc,
// it is never deduplicated.
type ChatHandlerFunc func(ChatEvent)

func (f ChatHandlerFunc) HandleChat(e ChatEvent) { f(e) }

// registry is an ordered set of handlers. Dispatch works on a snapshot, so a
// handler may unsubscribe itself while being called.
type registry[H any] struct {
	mu      stdsync.Mutex
	next    int
	entries []entry[H]
}

type entry[H any] struct {
	id int
	h  H
}

// add registers h and returns its unsubscribe handle. Registering a handler
// equal to one already present returns a handle for the existing entry.
func (r *registry[H]) add(h H) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if sameHandler(e.h, h) {
			return r.remover(e.id)
		}
	}
	id := r.next
	r.next++
	r.entries = append(r.entries, entry[H]{id: id, h: h})
	return r.remover(id)
}

func (r *registry[H]) remover(id int) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.entries {
			if e.id == id {
				r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
				return
			}
		}
	}
}

func (r *registry[H]) snapshot() []H {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]H, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.h
	}
	return out
}

func (r *registry[H]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// sameHandler compares two handlers when their dynamic type allows it.
func sameHandler(a, b any) (same bool) {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	// Structs holding funcs are comparable by type but panic on ==.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
