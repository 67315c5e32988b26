package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/pollchat/internal/tui/ui"
	"github.com/matheus3301/pollchat/internal/wire"
	"github.com/rivo/tview"
)

// ConversationInfo displays detailed information about a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Focus implements Component.
func (ci *ConversationInfo) Focus() tview.Primitive { return ci.TextView }

// Hints implements Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
	}
}

// Update renders the details of chat as seen by the local user me.
func (ci *ConversationInfo) Update(chat *wire.Chat, me string) {
	ci.Clear()
	if chat == nil {
		return
	}

	fg := ui.ColorTag(ci.theme.FgColor)
	val := ui.ColorTag(ci.theme.CounterColor)
	row := func(label, value string) {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-14s[-:-:-] [%s]%s[-]\n", fg, label+":", val, tview.Escape(value))
	}

	name := chat.ID
	_, _ = fmt.Fprintln(ci)
	if other := chat.Other(me); other != nil {
		name = other.Username
		row("With", other.Username)
		if other.Email != "" {
			row("Email", other.Email)
		}
		presence := "offline"
		if other.Online {
			presence = "online"
		}
		if !other.LastSeen.IsZero() {
			presence += ", last seen " + other.LastSeen.Local().Format("2006-01-02 15:04")
		}
		row("Presence", presence)
	}
	row("Chat ID", chat.ID)
	row("Created", chat.CreatedAt.Local().Format("2006-01-02 15:04"))
	if lm := chat.LastMessage; lm != nil {
		row("Last Active", formatTimestamp(lm.Timestamp))
		row("Last Message", strings.TrimSpace(lm.SenderName+": "+preview(lm.Content)))
	} else {
		row("Last Message", "-")
	}

	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(name)))
}
