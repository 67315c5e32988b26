package sync

import (
	"slices"
	stdsync "sync"
)

// Membership is the set of chats the client is actively viewing plus the one
// chat in the foreground. Focus is independent of the set.
type Membership struct {
	mu      stdsync.RWMutex
	members map[string]struct{}
	focus   string
}

// NewMembership returns an empty set with no focus.
func NewMembership() *Membership {
	return &Membership{members: make(map[string]struct{})}
}

// Join adds chatID. Joining twice is a no-op.
func (m *Membership) Join(chatID string) {
	if chatID == "" {
		return
	}
	m.mu.Lock()
	m.members[chatID] = struct{}{}
	m.mu.Unlock()
}

// Leave removes chatID. Focus is left untouched.
func (m *Membership) Leave(chatID string) {
	m.mu.Lock()
	delete(m.members, chatID)
	m.mu.Unlock()
}

// SetFocus replaces the focused chat. "" clears it.
func (m *Membership) SetFocus(chatID string) {
	m.mu.Lock()
	m.focus = chatID
	m.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (m *Membership) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.members))
	for id := range m.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return State{Members: ids, Focus: m.focus}
}

// State is an immutable view of a Membership.
type State struct {
	Members []string // sorted
	Focus   string
}

// Has reports whether chatID is a member.
func (s State) Has(chatID string) bool {
	_, ok := slices.BinarySearch(s.Members, chatID)
	return ok
}
