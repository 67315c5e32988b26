// Package model holds the terminal client's state between the sync engine
// and the views.
package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	stdsync "sync"

	intsync "github.com/matheus3301/pollchat/internal/sync"
	"github.com/matheus3301/pollchat/internal/wire"
)

// API is the subset of the server API the terminal client calls directly.
type API interface {
	Me(ctx context.Context) (*wire.UserSummary, error)
	ListChats(ctx context.Context) (*wire.ListChatsResponse, error)
	ListMessages(ctx context.Context, req *wire.ListMessagesRequest) (*wire.ListMessagesResponse, error)
	SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.Message, error)
	CreateChat(ctx context.Context, recipientID string) (*wire.CreateChatResponse, error)
	SearchUsers(ctx context.Context, query string) (*wire.SearchUsersResponse, error)
	SetPresence(ctx context.Context, online bool) (*wire.SetPresenceResponse, error)
}

// ErrNoActiveChat is returned by Send when no chat is open.
var ErrNoActiveChat = errors.New("no chat open")

// HistoryLimit is the number of messages loaded when a chat is opened.
const HistoryLimit = 100

// ViewModel keeps the chat list and the open thread up to date from the
// sync engine and signals the UI when either changes.
type ViewModel struct {
	api    API
	engine *intsync.Engine
	inbox  *intsync.Inbox

	mu          stdsync.RWMutex
	me          wire.UserSummary
	thread      *intsync.Thread
	unsubThread func()

	refreshCh chan struct{}
	unsub     []func()
}

// NewViewModel wires the view model to engine. Every chat the model learns
// about is joined so its summary keeps syncing in the background tier.
func NewViewModel(api API, engine *intsync.Engine) *ViewModel {
	vm := &ViewModel{
		api:       api,
		engine:    engine,
		inbox:     intsync.NewInbox(nil),
		refreshCh: make(chan struct{}, 1),
	}
	vm.unsub = append(vm.unsub,
		engine.OnChat(vm.inbox),
		engine.OnChat(intsync.ChatHandlerFunc(func(intsync.ChatEvent) { vm.signalRefresh() })),
		engine.OnMessage(intsync.MessageHandlerFunc(func(intsync.MessageEvent) { vm.signalRefresh() })),
	)
	return vm
}

// Close detaches the model from the engine.
func (vm *ViewModel) Close() {
	vm.CloseChat()
	for _, fn := range vm.unsub {
		fn()
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Load fetches the local user and chat list.
func (vm *ViewModel) Load(ctx context.Context) error {
	me, err := vm.api.Me(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	vm.mu.Lock()
	vm.me = *me
	vm.mu.Unlock()
	return vm.LoadChats(ctx)
}

// LoadChats refreshes the chat list. Chats created by other users only show
// up this way, since the engine syncs joined chats only.
func (vm *ViewModel) LoadChats(ctx context.Context) error {
	resp, err := vm.api.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	for _, c := range resp.Chats {
		vm.inbox.Put(c)
		vm.engine.Join(c.ID)
	}
	vm.signalRefresh()
	return nil
}

// Me returns the local user.
func (vm *ViewModel) Me() wire.UserSummary {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.me
}

// Chats returns the chat list, most recent first.
func (vm *ViewModel) Chats() []wire.Chat {
	return vm.inbox.Chats()
}

// Chat returns one chat summary.
func (vm *ViewModel) Chat(chatID string) (wire.Chat, bool) {
	return vm.inbox.Get(chatID)
}

// Title is the display name of a chat for the local user.
func (vm *ViewModel) Title(c wire.Chat) string {
	if other := c.Other(vm.Me().ID); other != nil && other.Username != "" {
		return other.Username
	}
	return c.ID
}

// FindChat returns the id of the first chat whose title contains name,
// ignoring case.
func (vm *ViewModel) FindChat(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range vm.Chats() {
		if strings.Contains(strings.ToLower(vm.Title(c)), name) {
			return c.ID, true
		}
	}
	return "", false
}

// OpenChat loads the newest history page of chatID, subscribes it to the
// engine and makes it the focused chat.
func (vm *ViewModel) OpenChat(ctx context.Context, chatID string) error {
	resp, err := vm.api.ListMessages(ctx, &wire.ListMessagesRequest{ChatID: chatID, Limit: HistoryLimit})
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	thread := intsync.NewThread(chatID, resp.Messages)

	vm.mu.Lock()
	if vm.unsubThread != nil {
		vm.unsubThread()
	}
	vm.thread = thread
	vm.unsubThread = vm.engine.OnMessage(thread)
	vm.mu.Unlock()

	vm.engine.Join(chatID)
	vm.engine.SetFocus(chatID)
	vm.signalRefresh()
	return nil
}

// CloseChat drops the open thread and clears the focus.
func (vm *ViewModel) CloseChat() {
	vm.mu.Lock()
	if vm.unsubThread != nil {
		vm.unsubThread()
	}
	vm.thread, vm.unsubThread = nil, nil
	vm.mu.Unlock()
	vm.engine.SetFocus("")
}

// ActiveChat returns the id of the open chat, or "".
func (vm *ViewModel) ActiveChat() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.thread == nil {
		return ""
	}
	return vm.thread.ChatID()
}

// Messages returns the open thread in chronological order.
func (vm *ViewModel) Messages() []wire.Message {
	vm.mu.RLock()
	th := vm.thread
	vm.mu.RUnlock()
	if th == nil {
		return nil
	}
	return th.Messages()
}

// Send posts text to the open chat and merges the reply into the thread
// without waiting for the next poll.
func (vm *ViewModel) Send(ctx context.Context, text string) (*wire.Message, error) {
	vm.mu.RLock()
	th := vm.thread
	me := vm.me.ID
	vm.mu.RUnlock()
	if th == nil {
		return nil, ErrNoActiveChat
	}
	chat, ok := vm.inbox.Get(th.ChatID())
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", th.ChatID(), wire.ErrNotFound)
	}
	other := chat.Other(me)
	if other == nil {
		return nil, fmt.Errorf("chat %s has no other participant: %w", chat.ID, wire.ErrInvalidArgument)
	}
	m, err := vm.api.SendMessage(ctx, &wire.SendMessageRequest{ChatID: chat.ID, Content: text, ReceiverID: other.ID})
	if err != nil {
		return nil, err
	}
	th.Add(*m)
	vm.signalRefresh()
	return m, nil
}

// StartChat opens (creating if needed) the chat with userID and returns its id.
func (vm *ViewModel) StartChat(ctx context.Context, userID string) (string, error) {
	resp, err := vm.api.CreateChat(ctx, userID)
	if err != nil {
		return "", err
	}
	vm.inbox.Put(resp.Chat)
	vm.engine.Join(resp.Chat.ID)
	vm.signalRefresh()
	return resp.Chat.ID, nil
}

// SearchUsers looks up other users by name or email.
func (vm *ViewModel) SearchUsers(ctx context.Context, query string) ([]wire.UserSummary, error) {
	resp, err := vm.api.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	return slices.Clone(resp.Users), nil
}

// SetOnline reports presence for the local user.
func (vm *ViewModel) SetOnline(ctx context.Context, online bool) error {
	_, err := vm.api.SetPresence(ctx, online)
	return err
}
