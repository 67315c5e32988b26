package sync

import (
	"cmp"
	"slices"
	"strings"
	stdsync "sync"

	"github.com/matheus3301/pollchat/internal/wire"
)

// Merge folds message batches into one list without duplicates. For a
// repeated id the occurrence in the later batch wins. The result is ordered by
// timestamp, ties broken by id. Inputs are not modified.
func Merge(batches ...[]wire.Message) []wire.Message {
	byID := make(map[string]wire.Message)
	for _, batch := range batches {
		for _, m := range batch {
			byID[m.ID] = m
		}
	}
	out := make([]wire.Message, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	slices.SortFunc(out, compareMessages)
	return out
}

func compareMessages(a, b wire.Message) int {
	return cmp.Or(a.Timestamp.Compare(b.Timestamp), strings.Compare(a.ID, b.ID))
}

// Thread is the reconciled message list of one chat. It subscribes as a
// MessageHandler and ignores other chats.
type Thread struct {
	chatID string

	mu   stdsync.RWMutex
	msgs []wire.Message
}

// NewThread starts a thread for chatID seeded with history.
func NewThread(chatID string, history []wire.Message) *Thread {
	t := &Thread{chatID: chatID}
	t.msgs = Merge(filterChat(chatID, history))
	return t
}

func filterChat(chatID string, msgs []wire.Message) []wire.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (t *Thread) ChatID() string { return t.chatID }

// HandleMessage merges e into the thread if it belongs to this chat.
func (t *Thread) HandleMessage(e MessageEvent) {
	if e.ChatID != t.chatID {
		return
	}
	t.Add(e.Message)
}

// Add merges locally known messages, such as the server reply to a send.
func (t *Thread) Add(msgs ...wire.Message) {
	msgs = filterChat(t.chatID, msgs)
	if len(msgs) == 0 {
		return
	}
	t.mu.Lock()
	t.msgs = Merge(t.msgs, msgs)
	t.mu.Unlock()
}

// Messages returns a copy of the ordered messages.
func (t *Thread) Messages() []wire.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.msgs)
}

// Inbox keeps the latest summary of every chat seen and subscribes as a
// ChatHandler.
type Inbox struct {
	mu    stdsync.RWMutex
	chats map[string]wire.Chat
}

// NewInbox seeds the inbox with chats.
func NewInbox(chats []wire.Chat) *Inbox {
	in := &Inbox{chats: make(map[string]wire.Chat, len(chats))}
	for _, c := range chats {
		in.chats[c.ID] = c
	}
	return in
}

// HandleChat replaces the stored summary unless it is older than what the
// inbox already holds.
func (in *Inbox) HandleChat(e ChatEvent) {
	in.Put(e.Chat)
}

// Put stores c unless the inbox holds a newer summary of the same chat.
func (in *Inbox) Put(c wire.Chat) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if cur, ok := in.chats[c.ID]; ok && cur.UpdatedAt.After(c.UpdatedAt) {
		return
	}
	in.chats[c.ID] = c
}

// Get returns the summary of chatID.
func (in *Inbox) Get(chatID string) (wire.Chat, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	c, ok := in.chats[chatID]
	return c, ok
}

// Chats returns all summaries, most recently updated first.
func (in *Inbox) Chats() []wire.Chat {
	in.mu.RLock()
	out := make([]wire.Chat, 0, len(in.chats))
	for _, c := range in.chats {
		out = append(out, c)
	}
	in.mu.RUnlock()
	slices.SortFunc(out, func(a, b wire.Chat) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), strings.Compare(a.ID, b.ID))
	})
	return out
}

// IDs returns the ids of all chats in the inbox.
func (in *Inbox) IDs() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	ids := make([]string, 0, len(in.chats))
	for id := range in.chats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
