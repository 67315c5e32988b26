// Package wire defines the request and response shapes exchanged between
// pollchat clients and the server, along with the error kinds both sides agree on.
package wire

import (
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// Status is the delivery state of a message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

// Rank orders statuses along sent < delivered < seen. Unknown values rank 0.
func (s Status) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusSeen:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.Rank() > 0
}

// UserSummary is the public projection of a user embedded in chats and messages.
type UserSummary struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// Message is a single chat message as seen by clients.
type Message struct {
	ID         string       `json:"id"`
	ChatID     string       `json:"chatId"`
	SenderID   string       `json:"senderId"`
	ReceiverID string       `json:"receiverId"`
	Content    string       `json:"content"`
	Status     Status       `json:"status"`
	Timestamp  time.Time    `json:"timestamp"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	Sender     *UserSummary `json:"sender,omitempty"`
	Receiver   *UserSummary `json:"receiver,omitempty"`
}

// LastMessage is the denormalized summary a chat keeps of its newest message.
type LastMessage struct {
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	SenderName string    `json:"senderName"`
}

// Chat is a two-party conversation.
type Chat struct {
	ID           string        `json:"id"`
	Participants []UserSummary `json:"participants"`
	LastMessage  *LastMessage  `json:"lastMessage,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID string) *UserSummary {
	for i := range c.Participants {
		if c.Participants[i].ID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// SyncRequest asks for everything that changed in ChatIDs after Cursor.
// A nil cursor means "since epoch".
type SyncRequest struct {
	Cursor  *timestamppb.Timestamp `json:"cursor,omitempty"`
	ChatIDs []string               `json:"chatIds"`
}

// SyncResponse carries one delta. Timestamp is the caller's next cursor.
// HasMore is set when the message page cap was reached and Timestamp only
// covers the rows returned.
type SyncResponse struct {
	Messages  []Message              `json:"messages"`
	Chats     []Chat                 `json:"chats"`
	Timestamp *timestamppb.Timestamp `json:"timestamp"`
	HasMore   bool                   `json:"hasMore,omitempty"`
}

type SendMessageRequest struct {
	ChatID     string `json:"chatId"`
	Content    string `json:"content"`
	ReceiverID string `json:"receiverId"`
}

type UpdateStatusRequest struct {
	MessageID string `json:"messageId"`
	Status    Status `json:"status"`
}

type ListChatsRequest struct{}

type ListChatsResponse struct {
	Chats []Chat `json:"chats"`
}

type CreateChatRequest struct {
	RecipientID string `json:"recipientId"`
}

// CreateChatResponse reports whether the chat was newly created or already existed.
type CreateChatResponse struct {
	Chat    Chat `json:"chat"`
	Created bool `json:"created"`
}

type ListMessagesRequest struct {
	ChatID string `json:"chatId"`
	Page   int    `json:"page,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Page     int       `json:"page"`
	HasMore  bool      `json:"hasMore"`
}

type UpsertProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type SearchUsersRequest struct {
	Query string `json:"q,omitempty"`
}

type SearchUsersResponse struct {
	Users []UserSummary `json:"users"`
}

type SetPresenceRequest struct {
	Online bool `json:"isOnline"`
}

type SetPresenceResponse struct {
	Online   bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

type OnlineUsersRequest struct{}

type MeRequest struct{}

type PingRequest struct{}

type PingResponse struct {
	Time *timestamppb.Timestamp `json:"time"`
}

// UploadTicket is returned by upload signing.
type UploadTicket struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

// CursorFrom converts t to its wire form. The zero time maps to nil.
func CursorFrom(t time.Time) *timestamppb.Timestamp {
	if t.IsZero() {
		return nil
	}
	return timestamppb.New(t)
}

// CursorTime converts a wire cursor back to time. nil maps to the zero time.
func CursorTime(ts *timestamppb.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.AsTime()
}
