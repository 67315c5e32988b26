package store

import "github.com/matheus3301/pollchat/internal/wire"

// Stamps are unix microseconds.

// User is a registered chat user.
type User struct {
	ID        string
	Username  string
	Email     string
	Avatar    string
	LastSeen  int64
	CreatedAt int64
	UpdatedAt int64
}

// Chat is a two-party conversation. ParticipantA is the user that opened it.
type Chat struct {
	ID             string
	ParticipantA   string
	ParticipantB   string
	LastMessage    string
	LastMessageAt  int64 // 0 when the chat has no messages
	LastSenderName string
	CreatedAt      int64
	UpdatedAt      int64
}

// Has reports whether userID participates in the chat.
func (c *Chat) Has(userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// Message is a persisted chat message.
type Message struct {
	ID         string
	ChatID     string
	SenderID   string
	ReceiverID string
	Content    string
	Status     wire.Status
	Timestamp  int64
	CreatedAt  int64
	UpdatedAt  int64
}

// Delta is one page of changes after a cursor.
type Delta struct {
	Messages  []Message
	Chats     []Chat
	Timestamp int64
	HasMore   bool
}
