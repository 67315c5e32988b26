// Package sync is the client side of chat synchronization: one adaptive poll
// loop per session that fetches deltas for the joined chats, fans them out to
// subscribers and sends delivery receipts.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/matheus3301/pollchat/internal/bus"
	"github.com/matheus3301/pollchat/internal/status"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
)

// Bus event kinds published by the engine.
const (
	EventCompleted   = "sync.completed"
	EventFailed      = "sync.failed"
	EventTierChanged = "sync.tier_changed"
)

// ErrPollInFlight is returned by Poll when another poll is still running.
var ErrPollInFlight = errors.New("poll already in flight")

// Transport is the server API the engine needs.
type Transport interface {
	Sync(ctx context.Context, req *wire.SyncRequest) (*wire.SyncResponse, error)
	UpdateStatus(ctx context.Context, req *wire.UpdateStatusRequest) (*wire.Message, error)
}

// Options tunes an Engine.
type Options struct {
	// UserID is the local user. Receipts are only sent when it is set.
	UserID string
	// Since is the starting cursor. The zero time replays from epoch.
	Since          time.Time
	Intervals      Intervals
	RequestTimeout time.Duration
	// AutoDelivered marks incoming messages delivered as soon as they sync.
	AutoDelivered bool
	// AutoSeen marks incoming messages seen while their chat is focused and
	// the client is visible with window focus.
	AutoSeen bool
}

// Completed is the payload of EventCompleted.
type Completed struct {
	Messages int
	Chats    int
	Cursor   time.Time
	HasMore  bool
}

// Failed is the payload of EventFailed.
type Failed struct {
	Err error
}

// TierChanged is the payload of EventTierChanged.
type TierChanged struct {
	From Tier
	To   Tier
}

// Engine owns the membership set, cursor, subscribers and poll loop of one
// client session.
type Engine struct {
	transport Transport
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options

	members  *Membership
	cursor   *Cursor
	messages registry[MessageHandler]
	chats    registry[ChatHandler]

	visible       atomic.Bool
	windowFocused atomic.Bool
	inFlight      atomic.Bool
	connected     atomic.Bool
	lastTier      atomic.Int32

	// pending holds messages addressed to the local user that are not yet
	// seen, keyed by chat then message id.
	pendingMu stdsync.Mutex
	pending   map[string]map[string]wire.Status

	mu     stdsync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}
}

// NewEngine creates an engine. It starts visible and window-focused.
func NewEngine(t Transport, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if b == nil {
		b = bus.New()
	}
	opts.Intervals = opts.Intervals.withDefaults()
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	e := &Engine{
		transport: t,
		bus:       b,
		logger:    logger,
		opts:      opts,
		members:   NewMembership(),
		cursor:    NewCursor(opts.Since),
		pending:   make(map[string]map[string]wire.Status),
		wake:      make(chan struct{}, 1),
	}
	e.visible.Store(true)
	e.windowFocused.Store(true)
	e.lastTier.Store(-1)
	return e
}

// Join adds chatID to the synced set.
func (e *Engine) Join(chatID string) { e.members.Join(chatID) }

// Leave removes chatID from the synced set.
func (e *Engine) Leave(chatID string) { e.members.Leave(chatID) }

// SetFocus marks chatID as the foreground chat. "" clears the focus.
func (e *Engine) SetFocus(chatID string) { e.members.SetFocus(chatID) }

// Membership returns the current membership snapshot.
func (e *Engine) Membership() State { return e.members.Snapshot() }

// SetVisible records whether the client is visible. Becoming visible wakes
// the loop instead of waiting for the next re-check.
func (e *Engine) SetVisible(v bool) {
	if e.visible.Swap(v) != v && v {
		e.nudge()
	}
}

// SetWindowFocused records whether the client window has input focus.
func (e *Engine) SetWindowFocused(v bool) { e.windowFocused.Store(v) }

// Tier returns the tier the next tick would run in.
func (e *Engine) Tier() Tier {
	return SelectTier(e.visible.Load(), e.members.Snapshot())
}

// Cursor returns the current sync position.
func (e *Engine) Cursor() time.Time { return e.cursor.Get() }

// Connected reports whether the most recent poll succeeded.
func (e *Engine) Connected() bool { return e.connected.Load() }

// OnMessage subscribes h to synced messages. Subscribing an equal handler
// twice delivers once; pointer handlers compare by identity, while
// MessageHandlerFunc values never compare equal. The returned func
// unsubscribes and may be called repeatedly.
func (e *Engine) OnMessage(h MessageHandler) func() { return e.messages.add(h) }

// OnChat subscribes h to synced chat summaries, with the same dedup rules
// as OnMessage.
func (e *Engine) OnChat(h ChatHandler) func() { return e.chats.add(h) }

// Start launches the poll loop. Calling Start on a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.loop(ctx, e.done)
}

// Stop ends the poll loop and waits for the current tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (e *Engine) nudge() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// loop runs one tick at a time and re-arms its timer only after the tick has
// returned, so ticks never overlap.
func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-e.wake:
		}
		timer.Reset(e.tick(ctx))
	}
}

// tick evaluates the tier, polls unless suspended and returns the delay until
// the next tick. Panics are contained here.
func (e *Engine) tick(ctx context.Context) (next time.Duration) {
	next = e.opts.Intervals.Recheck
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sync tick panicked", zap.Any("panic", r))
			e.publish(EventFailed, Failed{Err: fmt.Errorf("tick panic: %v", r)})
		}
	}()

	tier := e.Tier()
	if prev := Tier(e.lastTier.Swap(int32(tier))); prev != tier {
		e.logger.Debug("poll tier changed", zap.Stringer("from", prev), zap.Stringer("to", tier))
		e.publish(EventTierChanged, TierChanged{From: prev, To: tier})
	}
	if tier == TierSuspended {
		return e.opts.Intervals.Recheck
	}
	next = e.opts.Intervals.For(tier)

	more, err := e.Poll(ctx)
	switch {
	case err == nil:
		e.sendReceipts(ctx)
		if more {
			return 0
		}
	case errors.Is(err, ErrPollInFlight), ctx.Err() != nil:
	case errors.Is(err, wire.ErrTransient):
		e.logger.Warn("sync poll failed", zap.Error(err))
	default:
		e.logger.Error("sync poll failed", zap.Error(err))
	}
	return next
}

// Poll fetches one delta for the joined chats, dispatches it and advances the
// cursor. It reports whether the server has more changes waiting. A call made
// while another poll is running returns ErrPollInFlight without a request.
func (e *Engine) Poll(ctx context.Context) (more bool, err error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return false, ErrPollInFlight
	}
	defer e.inFlight.Store(false)

	state := e.members.Snapshot()
	if len(state.Members) == 0 {
		return false, nil
	}
	since := e.cursor.Get()

	rctx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()
	resp, err := e.transport.Sync(rctx, &wire.SyncRequest{
		Cursor:  wire.CursorFrom(since),
		ChatIDs: state.Members,
	})
	if err != nil {
		e.connected.Store(false)
		e.publish(EventFailed, Failed{Err: err})
		return false, err
	}
	e.connected.Store(true)

	e.dispatch(resp)
	advanced := e.cursor.Advance(wire.CursorTime(resp.Timestamp))
	e.publish(EventCompleted, Completed{
		Messages: len(resp.Messages),
		Chats:    len(resp.Chats),
		Cursor:   e.cursor.Get(),
		HasMore:  resp.HasMore,
	})
	return resp.HasMore && advanced, nil
}

func (e *Engine) dispatch(resp *wire.SyncResponse) {
	if len(resp.Messages) > 0 {
		handlers := e.messages.snapshot()
		for _, m := range resp.Messages {
			e.track(m)
			evt := MessageEvent{ChatID: m.ChatID, Message: m, SenderID: m.SenderID}
			for _, h := range handlers {
				e.safeCall(func() { h.HandleMessage(evt) })
			}
		}
	}
	if len(resp.Chats) > 0 {
		handlers := e.chats.snapshot()
		for _, c := range resp.Chats {
			evt := ChatEvent{ChatID: c.ID, Chat: c}
			for _, h := range handlers {
				e.safeCall(func() { h.HandleChat(evt) })
			}
		}
	}
}

// safeCall isolates a subscriber so one bad handler cannot block the others
// or the cursor update.
func (e *Engine) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sync subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

func (e *Engine) publish(kind string, payload any) {
	e.bus.Emit(kind, payload)
}

// track remembers incoming messages that still need a receipt.
func (e *Engine) track(m wire.Message) {
	if e.opts.UserID == "" || m.ReceiverID != e.opts.UserID {
		return
	}
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	done := m.Status == wire.StatusSeen || (m.Status == wire.StatusDelivered && !e.opts.AutoSeen)
	if done || (!e.opts.AutoDelivered && !e.opts.AutoSeen) {
		if byID := e.pending[m.ChatID]; byID != nil {
			delete(byID, m.ID)
			if len(byID) == 0 {
				delete(e.pending, m.ChatID)
			}
		}
		return
	}
	byID := e.pending[m.ChatID]
	if byID == nil {
		byID = make(map[string]wire.Status)
		e.pending[m.ChatID] = byID
	}
	byID[m.ID] = m.Status
}

// receiptTarget is the status the local user's client should report for a
// message in chatID currently at cur, or "" for none.
func (e *Engine) receiptTarget(chatID string, cur wire.Status, state State) wire.Status {
	if e.opts.AutoSeen && state.Focus == chatID && state.Has(chatID) && e.visible.Load() && e.windowFocused.Load() {
		if status.Ahead(cur, wire.StatusSeen) {
			return wire.StatusSeen
		}
	}
	if e.opts.AutoDelivered && status.Ahead(cur, wire.StatusDelivered) {
		return wire.StatusDelivered
	}
	return ""
}

// sendReceipts reports delivered/seen for tracked messages.
func (e *Engine) sendReceipts(ctx context.Context) {
	if e.opts.UserID == "" || (!e.opts.AutoDelivered && !e.opts.AutoSeen) {
		return
	}
	state := e.members.Snapshot()

	type receipt struct {
		chatID, msgID string
		target        wire.Status
	}
	var todo []receipt
	e.pendingMu.Lock()
	for chatID, byID := range e.pending {
		for msgID, cur := range byID {
			if target := e.receiptTarget(chatID, cur, state); target != "" {
				todo = append(todo, receipt{chatID, msgID, target})
			}
		}
	}
	e.pendingMu.Unlock()

	for _, r := range todo {
		rctx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
		m, err := e.transport.UpdateStatus(rctx, &wire.UpdateStatusRequest{MessageID: r.msgID, Status: r.target})
		cancel()
		switch {
		case err == nil:
			e.track(*m)
		case errors.Is(err, wire.ErrForbidden):
			e.logger.Error("receipt rejected as forbidden", zap.String("message", r.msgID), zap.Error(err))
			e.forget(r.chatID, r.msgID)
		case errors.Is(err, wire.ErrNotFound), errors.Is(err, wire.ErrInvalidArgument):
			e.logger.Warn("receipt dropped", zap.String("message", r.msgID), zap.Error(err))
			e.forget(r.chatID, r.msgID)
		default:
			e.logger.Warn("receipt failed", zap.String("message", r.msgID), zap.Error(err))
		}
	}
}

func (e *Engine) forget(chatID, msgID string) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	if byID := e.pending[chatID]; byID != nil {
		delete(byID, msgID)
		if len(byID) == 0 {
			delete(e.pending, chatID)
		}
	}
}
